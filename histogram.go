package shapeclust

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// normalise scales h to unit mass. A histogram with zero mass stays all zero.
func normalise(h []float64) []float64 {
	p := make([]float64, len(h))
	total := floats.Sum(h)
	if total == 0 {
		return p
	}
	for i, v := range h {
		p[i] = v / total
	}
	return p
}

// sigmaDistance is the Hellinger distance between the normalised histograms:
// sqrt(1/2 * sum((sqrt(p_i) - sqrt(q_i))^2)). It lies in [0, 1].
func sigmaDistance(a, b []float64) float64 {
	p, q := normalise(a), normalise(b)
	var sum float64
	for i := range p {
		d := math.Sqrt(p[i]) - math.Sqrt(q[i])
		sum += d * d
	}
	return math.Sqrt(sum / 2)
}

// chiSquaredDistance is the symmetric chi-squared distance between the
// normalised histograms: 1/2 * sum((p_i - q_i)^2 / (p_i + q_i)). Bins empty in
// both histograms contribute nothing.
func chiSquaredDistance(a, b []float64) float64 {
	p, q := normalise(a), normalise(b)
	var sum float64
	for i := range p {
		s := p[i] + q[i]
		if s == 0 {
			continue
		}
		d := p[i] - q[i]
		sum += d * d / s
	}
	return sum / 2
}
