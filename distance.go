package shapeclust

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceFunc compares two equal-length value sequences. Implementations
// must be deterministic and symmetric, and return 0 for identical inputs.
type DistanceFunc func(a, b []float64) float64

// Metric selects one of the fixed comparison functions.
type Metric uint8

const (
	// Spearman is 1 minus the Spearman rank order coefficient ("sp").
	Spearman Metric = iota + 1
	// KendallTau is 1 minus Kendall's tau-b ("kt").
	KendallTau
	// SigmaHistogram is the Hellinger distance between normalised histograms ("hd").
	SigmaHistogram
	// ChiSquared is the symmetric chi-squared histogram distance ("cs").
	ChiSquared
	// InvariantEuclidean is the Euclidean distance between invariant vectors ("dv").
	InvariantEuclidean
)

type metricEntry struct {
	code    string
	name    string
	accepts Kind
	fn      DistanceFunc
}

var metrics = [...]metricEntry{
	Spearman:           {code: "sp", name: "Spearman rank order coefficient", accepts: Histogram, fn: spearmanDistance},
	KendallTau:         {code: "kt", name: "Kendall's Tau", accepts: Histogram, fn: kendallDistance},
	SigmaHistogram:     {code: "hd", name: "Sigma histogram distance", accepts: Histogram, fn: sigmaDistance},
	ChiSquared:         {code: "cs", name: "Chi-squared histogram distance", accepts: Histogram, fn: chiSquaredDistance},
	InvariantEuclidean: {code: "dv", name: "Euclidean distance between invariants", accepts: Invariants, fn: euclideanDistance},
}

// Metrics lists every supported metric in registry order.
func Metrics() []Metric {
	return []Metric{Spearman, KendallTau, SigmaHistogram, ChiSquared, InvariantEuclidean}
}

// ParseMetric resolves a short metric code ("sp", "kt", "hd", "cs", "dv").
func ParseMetric(code string) (Metric, error) {
	for _, m := range Metrics() {
		if metrics[m].code == code {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, code)
}

// Valid reports whether m is a registry entry.
func (m Metric) Valid() bool {
	return m >= Spearman && m <= InvariantEuclidean
}

// Code returns the short code of m.
func (m Metric) Code() string {
	if !m.Valid() {
		return ""
	}
	return metrics[m].code
}

// String returns the display name used in log output.
func (m Metric) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Metric(%d)", uint8(m))
	}
	return metrics[m].name
}

// Accepts returns the feature kind m operates on.
func (m Metric) Accepts() Kind {
	if !m.Valid() {
		return 0
	}
	return metrics[m].accepts
}

// Func returns the raw comparison function, without feature validation.
func (m Metric) Func() DistanceFunc {
	if !m.Valid() {
		return nil
	}
	return metrics[m].fn
}

// Distance compares two feature objects.
func (m Metric) Distance(a, b Feature) (float64, error) {
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMetric, uint8(m))
	}
	e := metrics[m]
	if a.Kind != e.accepts || b.Kind != e.accepts {
		return 0, fmt.Errorf("%w: %s needs %s, got %s and %s", ErrKindMismatch, e.code, e.accepts, a.Kind, b.Kind)
	}
	if a.Len() == 0 || b.Len() == 0 {
		return 0, ErrEmptyFeature
	}
	if a.Len() != b.Len() {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, a.Len(), b.Len())
	}
	if err := checkFinite(a.Values); err != nil {
		return 0, err
	}
	if err := checkFinite(b.Values); err != nil {
		return 0, err
	}
	if e.accepts == Histogram && m != Spearman && m != KendallTau {
		if err := checkBins(a.Values); err != nil {
			return 0, err
		}
		if err := checkBins(b.Values); err != nil {
			return 0, err
		}
	}
	return e.fn(a.Values, b.Values), nil
}

// checkFinite rejects NaN and infinite values.
func checkFinite(v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: value %d is %v", ErrNonFiniteValue, i, x)
		}
	}
	return nil
}

// checkBins rejects histograms with negative bins.
func checkBins(h []float64) error {
	for i, v := range h {
		if v < 0 {
			return fmt.Errorf("%w: bin %d is %v", ErrInvalidBin, i, v)
		}
	}
	return nil
}

// euclideanDistance is the L2 distance between two invariant vectors.
func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
