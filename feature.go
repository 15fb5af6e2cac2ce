package shapeclust

import "fmt"

// Kind distinguishes the two descriptor families produced by feature extraction.
type Kind uint8

const (
	// Histogram is a binned radial or angular distribution at a fixed resolution.
	Histogram Kind = iota + 1
	// Invariants is a vector of rotation-invariant spherical-harmonic coefficients.
	Invariants
)

func (k Kind) String() string {
	switch k {
	case Histogram:
		return "histogram"
	case Invariants:
		return "invariants"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Feature is a single descriptor. Values are never modified by this package.
type Feature struct {
	Kind   Kind
	Values []float64
}

// NewHistogram returns a histogram feature over bins.
func NewHistogram(bins []float64) Feature {
	return Feature{Kind: Histogram, Values: bins}
}

// NewInvariants returns an invariant-vector feature.
func NewInvariants(v []float64) Feature {
	return Feature{Kind: Invariants, Values: v}
}

// Len returns the resolution (histogram) or length (invariants) of f.
func (f Feature) Len() int { return len(f.Values) }

// Item is a named feature object.
type Item struct {
	Name    string
	Feature Feature
}

// Collection is an ordered set of uniquely named items. The slice order is
// the index order used by the distance matrix, cluster labels and artifacts.
type Collection []Item

// Names returns item names in index order.
func (c Collection) Names() []string {
	names := make([]string, len(c))
	for i, it := range c {
		names[i] = it.Name
	}
	return names
}

// Validate checks that the collection has at least two items, unique names
// and non-empty features.
func (c Collection) Validate() error {
	if len(c) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewItems, len(c))
	}
	seen := make(map[string]int, len(c))
	for i, it := range c {
		if j, ok := seen[it.Name]; ok {
			return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateName, it.Name, j, i)
		}
		seen[it.Name] = i
		if it.Feature.Len() == 0 {
			return fmt.Errorf("%w: item %q", ErrEmptyFeature, it.Name)
		}
	}
	return nil
}
