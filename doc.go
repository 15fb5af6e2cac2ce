// Package shapeclust compares batches of shape descriptors (radial or
// angular histograms, or spherical-harmonic invariant vectors) and groups
// similar items with agglomerative hierarchical clustering.
//
// The pipeline is: build the all-pairs distance matrix in parallel, cluster
// it with a linkage method and a distance cutoff, report the closest and
// farthest pairs, and optionally persist matrix, names and labels.
//
// Basic usage:
//
//	cfg := shapeclust.DefaultConfig()
//	cfg.Metric = shapeclust.SigmaHistogram
//	cfg.Linkage = shapeclust.LinkageSingle
//	cfg.Cutoff = 0.3
//	cfg.Output = "result.db"
//	report, err := shapeclust.Run(ctx, items, cfg, shapeclust.NewLogger(nil))
//	// report.Assignment.Labels[i] is the 1-based cluster of item i
//
// The pieces are usable on their own:
//
//	built, err := shapeclust.BuildMatrix(ctx, items, shapeclust.KendallTau, shapeclust.BuildOptions{Workers: 8})
//	a, err := shapeclust.Cluster(built.Matrix, items.Names(), shapeclust.ClusterOptions{Method: shapeclust.LinkageAverage, Cutoff: 0.2})
//	p, err := shapeclust.ClosestPair(built.Matrix, items.Names())
//
// # Metrics
//
// Five metrics are registered under short codes: "sp" (Spearman), "kt"
// (Kendall's tau-b), "hd" (Hellinger "sigma" histogram distance), "cs"
// (chi-squared histogram distance) and "dv" (Euclidean distance between
// invariant vectors). Every metric is symmetric and returns exactly 0 for
// identical inputs.
//
// # Determinism
//
// BuildMatrix computes each unordered pair once and mirrors it, and
// assembles the matrix only after every batch has returned. The result is
// bitwise identical for any worker count.
package shapeclust
