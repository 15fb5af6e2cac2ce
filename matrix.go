package shapeclust

import (
	"fmt"
	"math"
)

// Matrix is a dense n×n distance matrix stored flat in row-major order:
// Data[i*N+j] is the distance between items i and j.
type Matrix struct {
	N    int
	Data []float64
}

// NewMatrix returns a zero n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float64, n*n)}
}

// MatrixFromRows builds a matrix from a square 2-D slice.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), n)
		}
		copy(m.Data[i*n:], row)
	}
	return m, nil
}

// At returns the distance between items i and j.
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.N+j] }

// set writes d into both mirrored cells.
func (m *Matrix) set(i, j int, d float64) {
	m.Data[i*m.N+j] = d
	m.Data[j*m.N+i] = d
}

// Row returns row i. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []float64 { return m.Data[i*m.N : (i+1)*m.N] }

// Rows returns a copy of the matrix as a 2-D slice.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, m.N)
	for i := range rows {
		rows[i] = append([]float64(nil), m.Row(i)...)
	}
	return rows
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{N: m.N, Data: append([]float64(nil), m.Data...)}
}

// Subset returns the matrix restricted to the items at idx, in idx order.
func (m *Matrix) Subset(idx []int) *Matrix {
	s := NewMatrix(len(idx))
	for a, i := range idx {
		for b, j := range idx {
			s.Data[a*s.N+b] = m.At(i, j)
		}
	}
	return s
}

// Equal reports whether m and o hold bitwise-identical values. NaN cells
// compare equal to NaN cells with the same bit pattern.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.N != o.N || len(m.Data) != len(o.Data) {
		return false
	}
	for i := range m.Data {
		if math.Float64bits(m.Data[i]) != math.Float64bits(o.Data[i]) {
			return false
		}
	}
	return true
}

// HasNaN reports whether any cell is NaN.
func (m *Matrix) HasNaN() bool {
	for _, d := range m.Data {
		if math.IsNaN(d) {
			return true
		}
	}
	return false
}

// Validate checks the matrix is square with n cells per row, symmetric,
// zero-diagonal and free of negative distances. NaN cells are permitted in
// symmetric positions.
func (m *Matrix) Validate() error {
	if m.N < 0 || len(m.Data) != m.N*m.N {
		return fmt.Errorf("%w: %d cells for n=%d", ErrShapeMismatch, len(m.Data), m.N)
	}
	for i := 0; i < m.N; i++ {
		if d := m.At(i, i); d != 0 {
			return fmt.Errorf("shapeclust: diagonal cell %d is %v, want 0", i, d)
		}
		for j := i + 1; j < m.N; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Float64bits(a) != math.Float64bits(b) {
				return fmt.Errorf("shapeclust: matrix not symmetric at (%d, %d): %v != %v", i, j, a, b)
			}
			if a < 0 {
				return fmt.Errorf("shapeclust: negative distance %v at (%d, %d)", a, i, j)
			}
		}
	}
	return nil
}

// checkNames verifies that names index the matrix one-to-one.
func (m *Matrix) checkNames(names []string) error {
	if m == nil {
		return fmt.Errorf("%w: nil matrix", ErrShapeMismatch)
	}
	if len(m.Data) != m.N*m.N || len(names) != m.N {
		return fmt.Errorf("%w: %d names for %d×%d matrix", ErrShapeMismatch, len(names), m.N, m.N)
	}
	return nil
}
