package shapeclust

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"
)

// Config controls a full Run: matrix build, clustering, extremes and
// persistence. Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Metric compares pairs of features. Default: Spearman.
	Metric Metric

	// Workers bounds the goroutines computing the matrix.
	// 0 means runtime.NumCPU(). Must be >= 0.
	Workers int

	// Policy decides whether one failing pair aborts the build (FailFast) or
	// degrades its cell to NaN (Tolerant). Under Tolerant, items involved in
	// failed pairs are dropped before clustering. Default: FailFast.
	Policy FailurePolicy

	// Timeout bounds the matrix build. 0 means unbounded.
	Timeout time.Duration

	// Linkage is the agglomerative merge rule. Default: LinkageAverage.
	Linkage Linkage

	// Cutoff is the dendrogram cut height. Must be >= 0. Default: 0.1.
	Cutoff float64

	// DumpClusters, when set, is the path of a JSON file mapping cluster
	// label to member names.
	DumpClusters string

	// Dendrogram keeps the merge tree on the Report.
	Dendrogram bool

	// Output, when set, is the artifact path (.json, .json.zst, .db, .sqlite).
	// Empty means log only.
	Output string
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Metric:  Spearman,
		Linkage: LinkageAverage,
		Cutoff:  0.1,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Metric == 0 {
		cfg.Metric = Spearman
	}
	if cfg.Linkage == "" {
		cfg.Linkage = LinkageAverage
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig reports configuration errors before any computation begins.
func validateConfig(cfg *Config) error {
	if !cfg.Metric.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMetric, uint8(cfg.Metric))
	}
	if !cfg.Linkage.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLinkage, string(cfg.Linkage))
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, cfg.Workers)
	}
	if cfg.Policy != FailFast && cfg.Policy != Tolerant {
		return fmt.Errorf("%w: %d", ErrUnknownPolicy, uint8(cfg.Policy))
	}
	if cfg.Cutoff < 0 || math.IsNaN(cfg.Cutoff) {
		return fmt.Errorf("%w: got %v", ErrInvalidCutoff, cfg.Cutoff)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("shapeclust: Timeout must be >= 0, got %s", cfg.Timeout)
	}
	if cfg.Output != "" {
		if _, err := FormatForPath(cfg.Output); err != nil {
			return err
		}
	}
	return nil
}

// Report is the outcome of a Run.
type Report struct {
	Metric Metric
	// Names and Matrix cover the items that reached clustering, in index order.
	Names  []string
	Matrix *Matrix
	// Excluded lists items dropped because their comparisons failed (Tolerant only).
	Excluded   []string
	Failed     []*PairError
	Assignment *Assignment
	Closest    Pair
	Farthest   Pair
	Elapsed    time.Duration
}

// Run builds the distance matrix of items, clusters it, finds the closest
// and farthest pairs, and writes the requested outputs.
//
// Errors are *StageError values naming the failing stage. A build failure
// aborts everything after it. A persistence failure returns the complete
// Report together with the error: results already computed stay valid.
func Run(ctx context.Context, items Collection, cfg Config, log *Logger) (*Report, error) {
	start := time.Now()

	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, stageErr(StageConfig, err)
	}
	log = log.orNoop().WithMetric(cfg.Metric)
	if err := items.Validate(); err != nil {
		return nil, stageErr(StageConfig, err)
	}

	log.Info(fmt.Sprintf("Generating matrix using %s", cfg.Metric), "items", len(items), "workers", cfg.Workers)
	built, err := BuildMatrix(ctx, items, cfg.Metric, BuildOptions{
		Workers: cfg.Workers,
		Policy:  cfg.Policy,
		Timeout: cfg.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, stageErr(StageBuild, err)
	}

	rep := &Report{
		Metric: cfg.Metric,
		Names:  items.Names(),
		Matrix: built.Matrix,
		Failed: built.Failed,
	}
	if len(built.Failed) > 0 {
		rep.Matrix, rep.Names, rep.Excluded = dropNaN(built.Matrix, rep.Names)
		log.Warn("excluded items with failed comparisons", "excluded", rep.Excluded)
	}

	rep.Assignment, err = Cluster(rep.Matrix, rep.Names, ClusterOptions{
		Method:     cfg.Linkage,
		Cutoff:     cfg.Cutoff,
		Dendrogram: cfg.Dendrogram,
		Logger:     log,
	})
	if err != nil {
		return nil, stageErr(StageCluster, err)
	}
	log.Info("clustered", "method", string(cfg.Linkage), "cutoff", cfg.Cutoff,
		"clusters", rep.Assignment.NumClusters())

	if rep.Closest, err = ClosestPair(rep.Matrix, rep.Names); err != nil {
		return nil, stageErr(StageExtremes, err)
	}
	log.Info("Closest pair: " + rep.Closest.String())
	if rep.Farthest, err = FarthestPair(rep.Matrix, rep.Names); err != nil {
		return nil, stageErr(StageExtremes, err)
	}
	log.Info("Farthest pair: " + rep.Farthest.String())

	var persistErr error
	if cfg.DumpClusters != "" {
		persistErr = errors.Join(persistErr, rep.Assignment.WriteJSONFile(cfg.DumpClusters))
	}
	if cfg.Output != "" {
		res := NewResult(cfg.Metric, rep.Matrix, rep.Names, rep.Assignment)
		persistErr = errors.Join(persistErr, WriteResult(ctx, cfg.Output, res))
	}
	if persistErr != nil {
		log.Error("writing results failed", "error", persistErr)
	}

	rep.Elapsed = time.Since(start)
	log.Info(footer(rep.Elapsed))
	return rep, stageErr(StagePersist, persistErr)
}

// footer formats the elapsed time to two significant digits.
func footer(elapsed time.Duration) string {
	return fmt.Sprintf("Process complete! Took %.2g s", elapsed.Seconds())
}

// dropNaN removes items until no NaN cell remains, each time dropping the
// item with the most NaN cells (lowest index on ties). Returns the reduced
// matrix, the kept names and the dropped names.
func dropNaN(m *Matrix, names []string) (*Matrix, []string, []string) {
	n := m.N
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	var dropped []string
	for {
		worst, worstCount := -1, 0
		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			c := 0
			for j := 0; j < n; j++ {
				if keep[j] && math.IsNaN(m.At(i, j)) {
					c++
				}
			}
			if c > worstCount {
				worst, worstCount = i, c
			}
		}
		if worst == -1 {
			break
		}
		keep[worst] = false
		dropped = append(dropped, names[worst])
	}

	var idx []int
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	sub := m.Subset(idx)
	kept := make([]string, len(idx))
	for k, i := range idx {
		kept[k] = names[i]
	}
	return sub, kept, dropped
}

// Batch is one independent unit of work, e.g. the items of one directory.
type Batch struct {
	Name  string
	Items Collection
	// Output and DumpClusters override the Config paths for this batch.
	Output       string
	DumpClusters string
}

// BatchResult is the outcome of one Batch. Err is nil on success; Report may
// be set alongside a persistence error.
type BatchResult struct {
	Name   string
	Report *Report
	Err    error
}

// RunBatches runs each batch independently. A failing batch is logged and
// recorded; it never prevents the remaining batches from running. Only ctx
// cancellation stops the loop early, marking the remaining batches with
// ctx.Err().
func RunBatches(ctx context.Context, batches []Batch, cfg Config, log *Logger) []BatchResult {
	log = log.orNoop()
	results := make([]BatchResult, len(batches))
	for i, b := range batches {
		results[i].Name = b.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		bcfg := cfg
		if b.Output != "" {
			bcfg.Output = b.Output
		}
		if b.DumpClusters != "" {
			bcfg.DumpClusters = b.DumpClusters
		}
		blog := log.WithBatch(b.Name)
		rep, err := Run(ctx, b.Items, bcfg, blog)
		results[i].Report, results[i].Err = rep, err
		if err != nil {
			blog.Error("batch failed", "error", err)
		}
	}
	return results
}
