package shapeclust

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// FailurePolicy decides what a matrix build does when one pair fails.
type FailurePolicy uint8

const (
	// FailFast stops dispatching batches and returns the first PairError.
	FailFast FailurePolicy = iota
	// Tolerant stores NaN in the failed cells and keeps going.
	Tolerant
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case Tolerant:
		return "tolerant"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", uint8(p))
	}
}

// ParseFailurePolicy resolves "fail-fast" or "tolerant".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "fail-fast", "":
		return FailFast, nil
	case "tolerant":
		return Tolerant, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// BuildOptions controls BuildMatrix.
type BuildOptions struct {
	// Workers bounds the number of concurrently computed batches.
	// 0 means runtime.NumCPU().
	Workers int

	// Policy selects fail-fast (default) or NaN-tolerant handling of pair errors.
	Policy FailurePolicy

	// Timeout bounds the whole build. 0 means no bound beyond ctx.
	Timeout time.Duration

	// BatchSize is the number of index pairs handed to a worker at once.
	// 0 picks a size that yields a few batches per worker.
	BatchSize int

	// Logger receives warnings for pairs degraded to NaN. Nil discards them.
	Logger *Logger
}

// BuildResult is a fully assembled matrix plus the pairs that failed under
// the Tolerant policy.
type BuildResult struct {
	Matrix *Matrix
	Failed []*PairError
}

type pair struct{ i, j int }

type batchResult struct {
	dists  []float64
	failed []*PairError
}

// BuildMatrix computes the n×n distance matrix of items under metric.
//
// Only the N*(N-1)/2 pairs with i < j are compared; each result is mirrored
// into [i][j] and [j][i] and the diagonal stays zero. Pairs are cut into
// batches, computed concurrently, and written into the matrix by the caller's
// goroutine only after every batch has returned, so the matrix is bitwise
// identical for any worker count or batch size. A partially built matrix is
// never returned.
func BuildMatrix(ctx context.Context, items Collection, metric Metric, opts BuildOptions) (*BuildResult, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, uint8(metric))
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, opts.Workers)
	}
	if opts.Policy != FailFast && opts.Policy != Tolerant {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, uint8(opts.Policy))
	}
	if err := items.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	n := len(items)
	total := n * (n - 1) / 2
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = max(1, (total+4*workers-1)/(4*workers))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	batches := splitPairs(n, batchSize)
	results := make([]batchResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for b := range batches {
		// Stop dispatching once a batch failed or the caller gave up.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := computeBatch(gctx, items, metric, batches[b], opts.Policy)
			results[b] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, buildError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, buildError(ctx, err)
	}

	log := opts.Logger.orNoop()
	m := NewMatrix(n)
	var failed []*PairError
	for b, pairs := range batches {
		for k, p := range pairs {
			m.set(p.i, p.j, results[b].dists[k])
		}
		for _, pe := range results[b].failed {
			log.Warn("pair comparison failed, cell set to NaN",
				"a", pe.NameA, "b", pe.NameB, "error", pe.Err)
		}
		failed = append(failed, results[b].failed...)
	}

	return &BuildResult{Matrix: m, Failed: failed}, nil
}

// ComputeMatrix is the single-goroutine reference for BuildMatrix under the
// FailFast policy.
func ComputeMatrix(items Collection, metric Metric) (*Matrix, error) {
	if err := items.Validate(); err != nil {
		return nil, err
	}
	n := len(items)
	m := NewMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := comparePair(items, metric, i, j)
			if err != nil {
				return nil, err
			}
			m.set(i, j, d)
		}
	}
	return m, nil
}

// splitPairs enumerates the upper-triangle pairs in row-major order and cuts
// them into batches of at most size pairs.
func splitPairs(n, size int) [][]pair {
	var (
		batches [][]pair
		cur     = make([]pair, 0, size)
	)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cur = append(cur, pair{i, j})
			if len(cur) == size {
				batches = append(batches, cur)
				cur = make([]pair, 0, size)
			}
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func computeBatch(ctx context.Context, items Collection, metric Metric, pairs []pair, policy FailurePolicy) (batchResult, error) {
	res := batchResult{dists: make([]float64, len(pairs))}
	for k, p := range pairs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d, err := comparePair(items, metric, p.i, p.j)
		if err != nil {
			var pe *PairError
			if policy == FailFast || !errors.As(err, &pe) {
				return res, err
			}
			res.failed = append(res.failed, pe)
			d = math.NaN()
		}
		res.dists[k] = d
	}
	return res, nil
}

// comparePair runs metric on items i and j, converting errors and panics
// from malformed features into a PairError.
func comparePair(items Collection, metric Metric, i, j int) (d float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PairError{I: i, J: j, NameA: items[i].Name, NameB: items[j].Name,
				Err: fmt.Errorf("metric panicked: %v", r)}
		}
	}()
	d, err = metric.Distance(items[i].Feature, items[j].Feature)
	if err != nil {
		return 0, &PairError{I: i, J: j, NameA: items[i].Name, NameB: items[j].Name, Err: err}
	}
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, &PairError{I: i, J: j, NameA: items[i].Name, NameB: items[j].Name,
			Err: fmt.Errorf("invalid distance %v", d)}
	}
	return d, nil
}

// buildError maps context expiry to ErrBuildTimeout and leaves other errors as is.
func buildError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBuildTimeout, context.DeadlineExceeded)
	}
	return err
}
