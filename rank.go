package shapeclust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Ranks returns the 1-based fractional ranks of x. Tied values share the
// mean of the ranks they span, so {3, 1, 3} ranks as {2.5, 1, 2.5}.
func Ranks(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return x[idx[a]] < x[idx[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && x[idx[j]] == x[idx[i]] {
			j++
		}
		// Positions i..j-1 hold equal values; ranks i+1..j average to (i+j+1)/2.
		r := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = r
		}
		i = j
	}
	return ranks
}

// spearmanDistance returns 1 - rho, where rho is the Pearson correlation of
// the fractional ranks of a and b. The result lies in [0, 2] and is exactly
// zero when the two sequences rank identically.
func spearmanDistance(a, b []float64) float64 {
	ra, rb := Ranks(a), Ranks(b)
	if floats.Equal(ra, rb) {
		return 0
	}
	rho := stat.Correlation(ra, rb, nil)
	if math.IsNaN(rho) || math.IsInf(rho, 0) {
		// Exactly one side is constant: no rank correlation.
		return 1
	}
	return clampCorrelationDistance(1 - rho)
}

// kendallDistance returns 1 - tau_b over all n*(n-1)/2 element pairs.
func kendallDistance(a, b []float64) float64 {
	n := len(a)
	var concordant, discordant, tiesA, tiesB int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sa := compare(a[i], a[j])
			sb := compare(b[i], b[j])
			switch {
			case sa == 0 && sb == 0:
				tiesA++
				tiesB++
			case sa == 0:
				tiesA++
			case sb == 0:
				tiesB++
			case sa == sb:
				concordant++
			default:
				discordant++
			}
		}
	}

	total := n * (n - 1) / 2
	denom := math.Sqrt(float64(total-tiesA) * float64(total-tiesB))
	if denom == 0 {
		if tiesA == total && tiesB == total {
			return 0
		}
		return 1
	}
	tau := float64(concordant-discordant) / denom
	return clampCorrelationDistance(1 - tau)
}

func compare(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// clampCorrelationDistance removes rounding noise that would push 1 - r
// outside [0, 2].
func clampCorrelationDistance(d float64) float64 {
	return math.Min(math.Max(d, 0), 2)
}
