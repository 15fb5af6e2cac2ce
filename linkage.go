package shapeclust

import (
	"fmt"
	"math"
)

// Linkage selects how the distance between two clusters is derived from
// the distances between their members.
type Linkage string

const (
	LinkageSingle   Linkage = "single"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
	LinkageWeighted Linkage = "weighted"
	LinkageWard     Linkage = "ward"
)

// Linkages lists every supported linkage method.
func Linkages() []Linkage {
	return []Linkage{LinkageSingle, LinkageComplete, LinkageAverage, LinkageWeighted, LinkageWard}
}

// ParseLinkage resolves a linkage method name. Unknown names are a
// configuration error; there is no silent default.
func ParseLinkage(s string) (Linkage, error) {
	l := Linkage(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLinkage, s)
	}
	return l, nil
}

// Valid reports whether l is a supported method.
func (l Linkage) Valid() bool {
	switch l {
	case LinkageSingle, LinkageComplete, LinkageAverage, LinkageWeighted, LinkageWard:
		return true
	default:
		return false
	}
}

// update returns the Lance-Williams distance from the cluster formed by
// merging i and j (sizes ni, nj, separated by dij) to cluster k of size nk.
func (l Linkage) update(dik, djk, dij float64, ni, nj, nk int) float64 {
	switch l {
	case LinkageSingle:
		return math.Min(dik, djk)
	case LinkageComplete:
		return math.Max(dik, djk)
	case LinkageAverage:
		fi, fj := float64(ni), float64(nj)
		return (fi*dik + fj*djk) / (fi + fj)
	case LinkageWeighted:
		return (dik + djk) / 2
	case LinkageWard:
		if math.IsInf(dik, 1) || math.IsInf(djk, 1) {
			return math.Inf(1)
		}
		fi, fj, fk := float64(ni), float64(nj), float64(nk)
		v := ((fi+fk)*dik*dik + (fj+fk)*djk*djk - fk*dij*dij) / (fi + fj + fk)
		return math.Sqrt(math.Max(v, 0))
	default:
		panic("shapeclust: update called with unvalidated linkage " + string(l))
	}
}

// agglomerate runs the generic O(n³) agglomerative algorithm on a copy of m,
// merging at each step the closest pair of active clusters (first in
// row-major order on ties). Returns scipy-format dendrogram rows.
func agglomerate(m *Matrix, method Linkage) [][4]float64 {
	n := m.N
	d := append([]float64(nil), m.Data...)
	size := make([]int, n)
	id := make([]int, n)
	active := make([]bool, n)
	for i := range n {
		size[i] = 1
		id[i] = i
		active[i] = true
	}

	rows := make([][4]float64, 0, n-1)
	for step := range n - 1 {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if bi == -1 || d[i*n+j] < best {
					bi, bj, best = i, j, d[i*n+j]
				}
			}
		}

		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			nd := method.update(d[bi*n+k], d[bj*n+k], best, size[bi], size[bj], size[k])
			d[bi*n+k] = nd
			d[k*n+bi] = nd
		}

		rows = append(rows, dendrogramRow(id[bi], id[bj], best, size[bi]+size[bj]))
		size[bi] += size[bj]
		id[bi] = n + step
		active[bj] = false
	}
	return rows
}
