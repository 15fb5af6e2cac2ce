package shapeclust

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineItems places four items on a line: A=0 B=0.1 C=0.9 D=0.7.
func lineItems() Collection {
	return Collection{
		{Name: "A", Feature: NewInvariants([]float64{0})},
		{Name: "B", Feature: NewInvariants([]float64{0.1})},
		{Name: "C", Feature: NewInvariants([]float64{0.9})},
		{Name: "D", Feature: NewInvariants([]float64{0.7})},
	}
}

func lineConfig() Config {
	cfg := DefaultConfig()
	cfg.Metric = InvariantEuclidean
	cfg.Linkage = LinkageSingle
	cfg.Cutoff = 0.3
	cfg.Workers = 2
	return cfg
}

func requireStage(t *testing.T, err error, want Stage) *StageError {
	t.Helper()
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, want, se.Stage)
	return se
}

func TestRun_EndToEnd(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, slog.LevelInfo)

	rep, err := Run(context.Background(), lineItems(), lineConfig(), log)
	require.NoError(t, err)

	assert.Equal(t, InvariantEuclidean, rep.Metric)
	assert.Equal(t, []string{"A", "B", "C", "D"}, rep.Names)
	assert.Empty(t, rep.Excluded)
	assert.Empty(t, rep.Failed)
	assert.Equal(t, []int{1, 1, 2, 2}, rep.Assignment.Labels)
	assert.Nil(t, rep.Assignment.Dendrogram)

	assert.Equal(t, "A", rep.Closest.A)
	assert.Equal(t, "B", rep.Closest.B)
	assert.InDelta(t, 0.1, rep.Closest.Distance, floatTol)
	assert.Equal(t, "A", rep.Farthest.A)
	assert.Equal(t, "C", rep.Farthest.B)
	assert.InDelta(t, 0.9, rep.Farthest.Distance, floatTol)
	assert.Positive(t, rep.Elapsed)

	out := buf.String()
	assert.Contains(t, out, "Generating matrix using Euclidean distance between invariants")
	assert.Contains(t, out, "Closest pair: (A, B), d= 0.10000")
	assert.Contains(t, out, "Farthest pair: (A, C), d= 0.90000")
	assert.Contains(t, out, "Process complete! Took ")
	assert.Contains(t, out, "metric=dv")
}

func TestRun_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := lineConfig()
	cfg.Dendrogram = true
	cfg.DumpClusters = filepath.Join(dir, "clusters.json")
	cfg.Output = filepath.Join(dir, "result.json.zst")

	rep, err := Run(context.Background(), lineItems(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, rep.Assignment.Dendrogram, 3)

	raw, err := os.ReadFile(cfg.DumpClusters)
	require.NoError(t, err)
	var groups map[string][]string
	require.NoError(t, gojson.Unmarshal(raw, &groups))
	assert.Equal(t, map[string][]string{"1": {"A", "B"}, "2": {"C", "D"}}, groups)

	res, err := ReadResult(context.Background(), cfg.Output)
	require.NoError(t, err)
	assert.True(t, rep.Matrix.Equal(res.Matrix))
	assert.Equal(t, rep.Names, res.Names)
	assert.Equal(t, rep.Assignment.Labels, res.Labels)
	assert.Equal(t, LinkageSingle, res.Method)
}

func TestRun_Deterministic(t *testing.T) {
	items := randomCollection(21, 12, 16, Histogram)
	cfg := DefaultConfig()
	cfg.Cutoff = 0.5

	var first *Report
	for _, workers := range []int{1, 3, 12} {
		cfg.Workers = workers
		rep, err := Run(context.Background(), items, cfg, nil)
		require.NoError(t, err)
		if first == nil {
			first = rep
			continue
		}
		assert.True(t, first.Matrix.Equal(rep.Matrix), "workers=%d", workers)
		assert.True(t, first.Assignment.Equal(rep.Assignment), "workers=%d", workers)
		assert.Equal(t, first.Closest, rep.Closest)
		assert.Equal(t, first.Farthest, rep.Farthest)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config, *Collection)
		want   error
	}{
		"negative cutoff":  {func(c *Config, _ *Collection) { c.Cutoff = -0.5 }, ErrInvalidCutoff},
		"unknown linkage":  {func(c *Config, _ *Collection) { c.Linkage = "centroid" }, ErrUnknownLinkage},
		"unknown metric":   {func(c *Config, _ *Collection) { c.Metric = Metric(77) }, ErrUnknownMetric},
		"negative workers": {func(c *Config, _ *Collection) { c.Workers = -2 }, ErrInvalidWorkers},
		"output format":    {func(c *Config, _ *Collection) { c.Output = "out.mat" }, ErrUnknownFormat},
		"one item":         {func(_ *Config, items *Collection) { *items = (*items)[:1] }, ErrTooFewItems},
		"duplicate name":   {func(_ *Config, items *Collection) { (*items)[3].Name = "A" }, ErrDuplicateName},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, items := lineConfig(), lineItems()
			tc.mutate(&cfg, &items)

			rep, err := Run(context.Background(), items, cfg, nil)
			assert.Nil(t, rep)
			assert.ErrorIs(t, err, tc.want)
			requireStage(t, err, StageConfig)
		})
	}
}

func TestRun_BuildFailureNamesPair(t *testing.T) {
	items := lineItems()
	items[2].Feature = NewInvariants([]float64{0.9, 0.1})

	var buf bytes.Buffer
	rep, err := Run(context.Background(), items, lineConfig(), NewTextLogger(&buf, slog.LevelInfo))
	assert.Nil(t, rep)
	requireStage(t, err, StageBuild)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	var pe *PairError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.NameA == "C" || pe.NameB == "C", "pair %q/%q", pe.NameA, pe.NameB)
	assert.NotContains(t, buf.String(), "Closest pair")
}

func TestRun_TolerantExcludesFailingItems(t *testing.T) {
	items := append(lineItems(), Item{Name: "E", Feature: NewInvariants([]float64{1, 2})})
	cfg := lineConfig()
	cfg.Policy = Tolerant

	rep, err := Run(context.Background(), items, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, rep.Failed, 4)
	assert.Equal(t, []string{"E"}, rep.Excluded)
	assert.Equal(t, []string{"A", "B", "C", "D"}, rep.Names)
	assert.False(t, rep.Matrix.HasNaN())
	assert.Equal(t, []int{1, 1, 2, 2}, rep.Assignment.Labels)
}

func TestRun_Timeout(t *testing.T) {
	cfg := lineConfig()
	cfg.Timeout = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, lineItems(), cfg, nil)
	requireStage(t, err, StageBuild)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrBuildTimeout), "got %v", err)
}

func TestRun_PersistFailureKeepsReport(t *testing.T) {
	dir := t.TempDir()
	cfg := lineConfig()
	cfg.Output = filepath.Join(dir, "missing", "result.db")
	cfg.DumpClusters = filepath.Join(dir, "clusters.json")

	var buf bytes.Buffer
	rep, err := Run(context.Background(), lineItems(), cfg, NewTextLogger(&buf, slog.LevelInfo))
	requireStage(t, err, StagePersist)
	assert.ErrorIs(t, err, ErrPersist)

	require.NotNil(t, rep)
	assert.Equal(t, []int{1, 1, 2, 2}, rep.Assignment.Labels)
	assert.Equal(t, "A", rep.Closest.A)

	// The dump written before the failing output survives.
	_, statErr := os.Stat(cfg.DumpClusters)
	assert.NoError(t, statErr)
	assert.Contains(t, buf.String(), "writing results failed")
}

func TestDropNaN(t *testing.T) {
	m, names := exampleMatrix(t)
	m.set(1, 0, math.NaN())
	m.set(1, 3, math.NaN())
	m.set(2, 3, math.NaN())

	sub, kept, dropped := dropNaN(m, names)
	// B and D have two NaN cells each; B goes first, then C and D tie on
	// (C, D) and the lower index goes.
	assert.Equal(t, []string{"B", "C"}, dropped)
	assert.Equal(t, []string{"A", "D"}, kept)
	require.Equal(t, 2, sub.N)
	assert.Equal(t, 0.5, sub.At(0, 1))
	assert.False(t, sub.HasNaN())
}

func TestRunBatches_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	batches := []Batch{
		{Name: "first", Items: lineItems(), Output: filepath.Join(dir, "first.json")},
		{Name: "broken", Items: lineItems()[:1]},
		{Name: "third", Items: randomCollection(8, 6, 10, Invariants), Output: filepath.Join(dir, "third.sqlite")},
	}
	cfg := lineConfig()

	var buf bytes.Buffer
	results := RunBatches(context.Background(), batches, cfg, NewJSONLogger(&buf, slog.LevelInfo))
	require.Len(t, results, 3)

	assert.Equal(t, "first", results[0].Name)
	assert.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Report)

	assert.Equal(t, "broken", results[1].Name)
	assert.ErrorIs(t, results[1].Err, ErrTooFewItems)
	assert.Nil(t, results[1].Report)

	assert.NoError(t, results[2].Err)
	require.NotNil(t, results[2].Report)
	assert.Len(t, results[2].Report.Names, 6)

	for _, name := range []string{"first.json", "third.sqlite"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	var sawFailure bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, gojson.Unmarshal([]byte(line), &rec), line)
		if rec["msg"] == "batch failed" {
			sawFailure = true
			assert.Equal(t, "broken", rec["batch"])
		}
	}
	assert.True(t, sawFailure)
}

func TestRunBatches_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunBatches(ctx, []Batch{
		{Name: "a", Items: lineItems()},
		{Name: "b", Items: lineItems()},
	}, lineConfig(), nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled, r.Name)
		assert.Nil(t, r.Report)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.orNoop())

	var buf bytes.Buffer
	NewTextLogger(&buf, slog.LevelWarn).WithMetric(KendallTau).WithBatch("b1").Info("hidden")
	assert.Empty(t, buf.String())

	NewTextLogger(&buf, slog.LevelWarn).WithMetric(KendallTau).WithBatch("b1").Warn("shown")
	assert.Contains(t, buf.String(), "metric=kt")
	assert.Contains(t, buf.String(), "batch=b1")
}

func TestRun_NonFiniteFeature(t *testing.T) {
	items := append(lineItems(), Item{Name: "E", Feature: NewInvariants([]float64{math.NaN()})})

	rep, err := Run(context.Background(), items, lineConfig(), nil)
	assert.Nil(t, rep)
	requireStage(t, err, StageBuild)
	var pe *PairError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "E", pe.NameB)
	assert.ErrorIs(t, err, ErrNonFiniteValue)

	cfg := lineConfig()
	cfg.Policy = Tolerant
	rep, err = Run(context.Background(), items, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, rep.Failed, 4)
	assert.Equal(t, []string{"E"}, rep.Excluded)
	assert.Equal(t, []int{1, 1, 2, 2}, rep.Assignment.Labels)
}

func TestFooter_TwoSignificantDigits(t *testing.T) {
	assert.Equal(t, "Process complete! Took 1.2 s", footer(1234*time.Millisecond))
	assert.Equal(t, "Process complete! Took 0.012 s", footer(12345*time.Microsecond))
	assert.Equal(t, "Process complete! Took 42 s", footer(42*time.Second))
}
