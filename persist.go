package shapeclust

import (
	"context"
	"fmt"
	"strings"
)

// Format is an on-disk artifact layout.
type Format string

const (
	// FormatJSON is a go-json document with the matrix as a base64 float64 blob.
	FormatJSON Format = "json"
	// FormatJSONZstd is FormatJSON compressed with zstd.
	FormatJSONZstd Format = "json.zst"
	// FormatSQLite is a SQLite database with meta, items and matrix_rows tables.
	FormatSQLite Format = "sqlite"
)

// FormatForPath picks a format from the file extension of path:
// .json, .json.zst, .db or .sqlite.
func FormatForPath(path string) (Format, error) {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".json.zst"):
		return FormatJSONZstd, nil
	case strings.HasSuffix(p, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(p, ".db"), strings.HasSuffix(p, ".sqlite"):
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Result bundles a distance matrix, the item names in matrix index order and
// the cluster labels keyed to the same order.
type Result struct {
	Metric Metric
	Method Linkage
	Cutoff float64
	Names  []string
	Matrix *Matrix
	// Labels may be empty when no clustering was performed.
	Labels []int
}

// NewResult bundles m and the names and labels of a. a may be nil, in which
// case names must be supplied and no labels are stored.
func NewResult(metric Metric, m *Matrix, names []string, a *Assignment) *Result {
	r := &Result{Metric: metric, Names: names, Matrix: m}
	if a != nil {
		r.Method = a.Method
		r.Cutoff = a.Cutoff
		r.Labels = a.Labels
	}
	return r
}

// Validate checks that names, matrix and labels agree in cardinality.
func (r *Result) Validate() error {
	if err := r.Matrix.checkNames(r.Names); err != nil {
		return err
	}
	if len(r.Labels) != 0 && len(r.Labels) != len(r.Names) {
		return fmt.Errorf("%w: %d labels for %d names", ErrShapeMismatch, len(r.Labels), len(r.Names))
	}
	seen := make(map[string]int, len(r.Names))
	for i, name := range r.Names {
		if j, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateName, name, j, i)
		}
		seen[name] = i
	}
	return nil
}

// WriteResult writes r to path in the format implied by its extension.
// A failed write leaves r untouched and reports an error wrapping ErrPersist.
func WriteResult(ctx context.Context, path string, r *Result) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	format, err := FormatForPath(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	switch format {
	case FormatSQLite:
		err = writeSQLite(ctx, path, r)
	default:
		err = writeSnapshot(path, r, format == FormatJSONZstd)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	return nil
}

// ReadResult loads an artifact written by WriteResult.
func ReadResult(ctx context.Context, path string) (*Result, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	var r *Result
	switch format {
	case FormatSQLite:
		r, err = readSQLite(ctx, path)
	default:
		r, err = readSnapshot(path, format == FormatJSONZstd)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	return r, nil
}

// metricFromCode maps a stored code back to a Metric; an empty code is the
// zero Metric.
func metricFromCode(code string) (Metric, error) {
	if code == "" {
		return 0, nil
	}
	return ParseMetric(code)
}

// linkageFromName maps a stored method back to a Linkage; empty is allowed.
func linkageFromName(name string) (Linkage, error) {
	if name == "" {
		return "", nil
	}
	return ParseLinkage(name)
}
