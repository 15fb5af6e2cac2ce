package shapeclust

import (
	"fmt"
	"math"
)

// Pair is a pair of items and the distance between them. I < J always.
type Pair struct {
	I, J     int
	A, B     string
	Distance float64
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s), d= %.5f", p.A, p.B, p.Distance)
}

// ClosestPair returns the off-diagonal cell with the smallest distance. Ties
// go to the first cell in row-major order. NaN cells are skipped. The matrix
// is only read.
func ClosestPair(m *Matrix, names []string) (Pair, error) {
	return scanPair(m, names, func(d, best float64) bool { return d < best })
}

// FarthestPair returns the off-diagonal cell with the largest distance. Ties
// go to the first cell in row-major order, so an all-zero matrix reports the
// first two items at distance 0. NaN cells are skipped.
func FarthestPair(m *Matrix, names []string) (Pair, error) {
	return scanPair(m, names, func(d, best float64) bool { return d > best })
}

// scanPair walks the upper triangle, which holds the first occurrence in
// row-major order of every off-diagonal value of a symmetric matrix.
func scanPair(m *Matrix, names []string, better func(d, best float64) bool) (Pair, error) {
	if err := m.checkNames(names); err != nil {
		return Pair{}, err
	}
	if m.N < 2 {
		return Pair{}, fmt.Errorf("%w: got %d", ErrTooFewItems, m.N)
	}

	bi, bj := -1, -1
	var best float64
	for i := 0; i < m.N; i++ {
		row := m.Row(i)
		for j := i + 1; j < m.N; j++ {
			d := row[j]
			if math.IsNaN(d) {
				continue
			}
			if bi == -1 || better(d, best) {
				bi, bj, best = i, j, d
			}
		}
	}
	if bi == -1 {
		return Pair{}, ErrNaNDistance
	}
	return Pair{I: bi, J: bj, A: names[bi], B: names[bj], Distance: best}, nil
}
