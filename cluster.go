package shapeclust

import (
	"fmt"
	"io"
	"math"
	"os"

	gojson "github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

// ClusterOptions controls Cluster.
type ClusterOptions struct {
	// Method is the linkage strategy. Required.
	Method Linkage

	// Cutoff is the distance at which the dendrogram is cut: items joined by
	// merges no higher than Cutoff share a label. Must be >= 0.
	Cutoff float64

	// Dendrogram keeps the merge tree on the returned Assignment.
	Dendrogram bool

	// Logger receives a warning when the tree contains +Inf merges.
	// Nil discards it.
	Logger *Logger
}

// Assignment is the flat clustering of a named collection. Labels[i] is the
// 1-based cluster label of Names[i]; labels are numbered in order of first
// appearance by item index.
type Assignment struct {
	Method Linkage
	Cutoff float64
	Names  []string
	Labels []int

	// Dendrogram holds scipy-format rows [left, right, distance, size] when
	// requested. Merged cluster IDs start at len(Names).
	Dendrogram [][4]float64
}

// Cluster performs agglomerative hierarchical clustering of the precomputed
// distance matrix m and cuts the tree at opts.Cutoff.
//
// Single linkage is built from the minimum spanning tree of m; the other
// methods use Lance-Williams updates. m is not modified.
func Cluster(m *Matrix, names []string, opts ClusterOptions) (*Assignment, error) {
	if !opts.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLinkage, string(opts.Method))
	}
	if opts.Cutoff < 0 || math.IsNaN(opts.Cutoff) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCutoff, opts.Cutoff)
	}
	if err := m.checkNames(names); err != nil {
		return nil, err
	}
	if m.N < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewItems, m.N)
	}
	if m.HasNaN() {
		return nil, ErrNaNDistance
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	dendrogram := BuildTree(m, opts.Method)
	if math.IsInf(dendrogram[len(dendrogram)-1][2], 1) {
		opts.Logger.orNoop().Warn("dendrogram contains merge(s) at +Inf distance")
	}

	a := &Assignment{
		Method: opts.Method,
		Cutoff: opts.Cutoff,
		Names:  append([]string(nil), names...),
		Labels: cutTree(dendrogram, m.N, opts.Cutoff),
	}
	if opts.Dendrogram {
		a.Dendrogram = dendrogram
	}
	return a, nil
}

// BuildTree returns the full dendrogram of m under method without cutting it.
func BuildTree(m *Matrix, method Linkage) [][4]float64 {
	if method == LinkageSingle {
		return Label(PrimMST(m), m.N)
	}
	return agglomerate(m, method)
}

// cutTree assigns flat labels: the children of a node are joined when the
// highest merge within the node's subtree is <= cutoff.
func cutTree(dendrogram [][4]float64, n int, cutoff float64) []int {
	uf := NewUnionFind(n)
	height := make([]float64, 2*n-1)
	for k, row := range dendrogram {
		a, b := int(row[0]), int(row[1])
		h := max(row[2], height[a], height[b])
		height[n+k] = h
		if h <= cutoff {
			uf.Union(a, b)
		}
	}

	labels := make([]int, n)
	byRoot := make(map[int]int)
	for i := range n {
		root := uf.Find(i)
		l, ok := byRoot[root]
		if !ok {
			l = len(byRoot) + 1
			byRoot[root] = l
		}
		labels[i] = l
	}
	return labels
}

// NumClusters returns the number of distinct labels.
func (a *Assignment) NumClusters() int {
	k := 0
	for _, l := range a.Labels {
		k = max(k, l)
	}
	return k
}

// Groups maps each label to its member names in index order.
func (a *Assignment) Groups() map[int][]string {
	g := make(map[int][]string, a.NumClusters())
	for i, l := range a.Labels {
		g[l] = append(g[l], a.Names[i])
	}
	return g
}

// Equal reports whether a and o label the same names identically.
func (a *Assignment) Equal(o *Assignment) bool {
	if len(a.Names) != len(o.Names) || len(a.Labels) != len(o.Labels) {
		return false
	}
	for i := range a.Names {
		if a.Names[i] != o.Names[i] || a.Labels[i] != o.Labels[i] {
			return false
		}
	}
	return true
}

// WriteJSON writes the label -> names mapping as a JSON object.
func (a *Assignment) WriteJSON(w io.Writer) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Groups())
}

// WriteJSONFile writes the label -> names mapping to path.
func (a *Assignment) WriteJSONFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrPersist, cerr)
		}
	}()
	if err := a.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Cophenetic returns the matrix of cophenetic distances of a dendrogram over
// n items: cell (i, j) is the height of the merge that first joins i and j.
func Cophenetic(dendrogram [][4]float64, n int) *Matrix {
	c := NewMatrix(n)
	members := make([][]int, 2*n-1)
	for i := range n {
		members[i] = []int{i}
	}
	for k, row := range dendrogram {
		a, b := int(row[0]), int(row[1])
		for _, x := range members[a] {
			for _, y := range members[b] {
				c.set(x, y, row[2])
			}
		}
		members[n+k] = append(append([]int(nil), members[a]...), members[b]...)
		members[a], members[b] = nil, nil
	}
	return c
}

// CopheneticCorrelation returns the Pearson correlation between the
// off-diagonal distances of m and the cophenetic distances of dendrogram,
// a measure of how faithfully the tree preserves m.
func CopheneticCorrelation(m *Matrix, dendrogram [][4]float64) float64 {
	c := Cophenetic(dendrogram, m.N)
	total := m.N * (m.N - 1) / 2
	x := make([]float64, 0, total)
	y := make([]float64, 0, total)
	for i := 0; i < m.N; i++ {
		for j := i + 1; j < m.N; j++ {
			x = append(x, m.At(i, j))
			y = append(y, c.At(i, j))
		}
	}
	return stat.Correlation(x, y, nil)
}
