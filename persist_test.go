package shapeclust

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleResult(t *testing.T) *Result {
	t.Helper()
	m, names := exampleMatrix(t)
	a, err := Cluster(m, names, ClusterOptions{Method: LinkageSingle, Cutoff: 0.3})
	require.NoError(t, err)
	return NewResult(SigmaHistogram, m, names, a)
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]Format{
		"out.json":         FormatJSON,
		"out.JSON":         FormatJSON,
		"dir/out.json.zst": FormatJSONZstd,
		"out.db":           FormatSQLite,
		"/tmp/out.sqlite":  FormatSQLite,
	}
	for path, want := range cases {
		got, err := FormatForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatForPath("out.h5")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteResult_RoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".json.zst", ".db", ".sqlite"} {
		t.Run(ext, func(t *testing.T) {
			want := exampleResult(t)
			// A value that needs all 64 bits to survive.
			want.Matrix.set(1, 3, math.Nextafter(0.4, 1))
			path := filepath.Join(t.TempDir(), "result"+ext)

			require.NoError(t, WriteResult(context.Background(), path, want))
			got, err := ReadResult(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, want.Matrix.Equal(got.Matrix), "matrix differs after round trip")
			assert.Equal(t, want.Names, got.Names)
			assert.Equal(t, want.Labels, got.Labels)
			assert.Equal(t, SigmaHistogram, got.Metric)
			assert.Equal(t, LinkageSingle, got.Method)
			assert.Equal(t, 0.3, got.Cutoff)
		})
	}
}

func TestWriteResult_NaNAndNoLabels(t *testing.T) {
	for _, ext := range []string{".json", ".db"} {
		t.Run(ext, func(t *testing.T) {
			m, names := exampleMatrix(t)
			m.set(0, 2, math.NaN())
			want := NewResult(KendallTau, m, names, nil)
			path := filepath.Join(t.TempDir(), "nan"+ext)

			require.NoError(t, WriteResult(context.Background(), path, want))
			got, err := ReadResult(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, math.IsNaN(got.Matrix.At(2, 0)))
			assert.True(t, want.Matrix.Equal(got.Matrix))
			assert.Empty(t, got.Labels)
			assert.Equal(t, Linkage(""), got.Method)
		})
	}
}

func TestWriteResult_Overwrites(t *testing.T) {
	for _, ext := range []string{".json.zst", ".sqlite"} {
		path := filepath.Join(t.TempDir(), "result"+ext)
		first := exampleResult(t)
		require.NoError(t, WriteResult(context.Background(), path, first))

		second := exampleResult(t)
		second.Names = []string{"W", "X", "Y", "Z"}
		require.NoError(t, WriteResult(context.Background(), path, second))

		got, err := ReadResult(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, second.Names, got.Names, ext)
	}
}

func TestWriteResult_Errors(t *testing.T) {
	r := exampleResult(t)
	dir := t.TempDir()

	err := WriteResult(context.Background(), filepath.Join(dir, "missing", "out.json"), r)
	assert.ErrorIs(t, err, ErrPersist)
	_, statErr := os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(statErr))

	err = WriteResult(context.Background(), filepath.Join(dir, "out.mat"), r)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	bad := *r
	bad.Labels = []int{1, 2}
	err = WriteResult(context.Background(), filepath.Join(dir, "out.json"), &bad)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// A failed write leaves the in-memory result intact.
	assert.Equal(t, []int{1, 1, 2, 2}, r.Labels)
	assert.Equal(t, 0.1, r.Matrix.At(0, 1))

	_, err = ReadResult(context.Background(), filepath.Join(dir, "absent.db"))
	assert.ErrorIs(t, err, ErrPersist)
}

func TestEncodeFloat64s(t *testing.T) {
	values := []float64{0, math.Copysign(0, -1), 1.5, math.Inf(1), math.NaN(), math.SmallestNonzeroFloat64}
	got, err := DecodeFloat64s(EncodeFloat64s(values))
	require.NoError(t, err)
	require.Len(t, got, len(values))
	for i := range values {
		assert.Equal(t, math.Float64bits(values[i]), math.Float64bits(got[i]), "value %d", i)
	}

	_, err = DecodeFloat64s(make([]byte, 7))
	assert.Error(t, err)
}

func TestWriteResult_FailedWriteKeepsPrevious(t *testing.T) {
	for _, ext := range []string{".db", ".json"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "result"+ext)
			good := exampleResult(t)
			require.NoError(t, WriteResult(context.Background(), path, good))

			dup := exampleResult(t)
			dup.Names = []string{"A", "A", "C", "D"}
			err := WriteResult(context.Background(), path, dup)
			assert.ErrorIs(t, err, ErrPersist)
			assert.ErrorIs(t, err, ErrDuplicateName)

			if ext == ".db" {
				// A transaction that never starts must not touch the old file.
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				other := exampleResult(t)
				other.Names = []string{"W", "X", "Y", "Z"}
				assert.ErrorIs(t, WriteResult(ctx, path, other), ErrPersist)
			}

			got, err := ReadResult(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, good.Names, got.Names)
			assert.True(t, good.Matrix.Equal(got.Matrix))

			// No temporary files are left behind.
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}
