package shapeclust

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMetric is returned for a metric code outside the registry.
	ErrUnknownMetric = errors.New("shapeclust: unknown metric")

	// ErrUnknownLinkage is returned for a linkage method outside the supported set.
	ErrUnknownLinkage = errors.New("shapeclust: unknown linkage method")

	// ErrUnknownPolicy is returned for an unrecognised failure policy.
	ErrUnknownPolicy = errors.New("shapeclust: unknown failure policy")

	// ErrTooFewItems is returned when fewer than two feature objects are
	// supplied; pairwise comparison and clustering are undefined.
	ErrTooFewItems = errors.New("shapeclust: at least two items are required")

	// ErrDuplicateName is returned when a collection repeats an item name.
	ErrDuplicateName = errors.New("shapeclust: duplicate item name")

	// ErrEmptyFeature is returned when a feature object carries no values.
	ErrEmptyFeature = errors.New("shapeclust: empty feature")

	// ErrDimensionMismatch is returned when two compared features differ in length.
	ErrDimensionMismatch = errors.New("shapeclust: dimension mismatch")

	// ErrKindMismatch is returned when a metric receives a feature kind it
	// does not operate on (e.g. an invariant vector for a histogram metric).
	ErrKindMismatch = errors.New("shapeclust: feature kind not accepted by metric")

	// ErrNonFiniteValue is returned when a feature holds a NaN or infinite value.
	ErrNonFiniteValue = errors.New("shapeclust: feature value is not finite")

	// ErrInvalidBin is returned for a histogram bin that is negative or not finite.
	ErrInvalidBin = errors.New("shapeclust: invalid histogram bin")

	// ErrShapeMismatch is returned when matrix and name cardinalities disagree
	// or a matrix is not square.
	ErrShapeMismatch = errors.New("shapeclust: matrix shape does not match names")

	// ErrNaNDistance is returned when a matrix holding NaN cells reaches the
	// cluster engine.
	ErrNaNDistance = errors.New("shapeclust: matrix contains NaN distances")

	// ErrInvalidCutoff is returned for a negative or NaN distance cutoff.
	ErrInvalidCutoff = errors.New("shapeclust: distance cutoff must be a non-negative number")

	// ErrInvalidWorkers is returned for a negative worker count.
	ErrInvalidWorkers = errors.New("shapeclust: worker count must be positive")

	// ErrBuildTimeout is returned when a matrix build exceeds its time bound.
	ErrBuildTimeout = errors.New("shapeclust: matrix build timed out")

	// ErrUnknownFormat is returned when an artifact path has no recognised extension.
	ErrUnknownFormat = errors.New("shapeclust: unknown artifact format")

	// ErrPersist wraps every failure to write or read an artifact.
	ErrPersist = errors.New("shapeclust: persistence failed")
)

// PairError identifies the pair of items whose comparison failed.
//
// The underlying metric error can be accessed via errors.Unwrap.
type PairError struct {
	I, J         int
	NameA, NameB string
	Err          error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("shapeclust: comparing %q (%d) with %q (%d): %v", e.NameA, e.I, e.NameB, e.J, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// Stage names a step of the pipeline.
type Stage string

const (
	StageConfig   Stage = "config"
	StageBuild    Stage = "build"
	StageCluster  Stage = "cluster"
	StageExtremes Stage = "extremes"
	StagePersist  Stage = "persist"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
