package shapeclust

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

const snapshotVersion = 1

// snapshot is the JSON artifact layout. Matrix holds n*n row-major float64
// values as produced by EncodeFloat64s; encoding/json style base64 keeps
// them bit-exact.
type snapshot struct {
	Version int      `json:"version"`
	Metric  string   `json:"metric,omitempty"`
	Method  string   `json:"method,omitempty"`
	Cutoff  float64  `json:"cutoff"`
	N       int      `json:"n"`
	Names   []string `json:"names"`
	Labels  []int    `json:"labels,omitempty"`
	Matrix  []byte   `json:"matrix"`
}

// writeSnapshot writes r through a temporary file in the target directory
// and renames it into place, so a failed write never leaves a truncated
// artifact at path.
func writeSnapshot(path string, r *Result, compress bool) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".shapeclust-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compress {
		zw, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		w = zw
	}

	s := snapshot{
		Version: snapshotVersion,
		Metric:  r.Metric.Code(),
		Method:  string(r.Method),
		Cutoff:  r.Cutoff,
		N:       r.Matrix.N,
		Names:   r.Names,
		Labels:  r.Labels,
		Matrix:  EncodeFloat64s(r.Matrix.Data),
	}
	if err = gojson.NewEncoder(w).Encode(&s); err != nil {
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return err
		}
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readSnapshot(path string, compressed bool) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rd io.Reader = bufio.NewReader(f)
	if compressed {
		zr, err := zstd.NewReader(rd)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		rd = zr
	}

	var s snapshot
	if err := gojson.NewDecoder(rd).Decode(&s); err != nil {
		return nil, err
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	data, err := DecodeFloat64s(s.Matrix)
	if err != nil {
		return nil, err
	}
	if s.N < 0 || len(data) != s.N*s.N {
		return nil, errors.New("matrix blob does not match n")
	}
	metric, err := metricFromCode(s.Metric)
	if err != nil {
		return nil, err
	}
	method, err := linkageFromName(s.Method)
	if err != nil {
		return nil, err
	}
	return &Result{
		Metric: metric,
		Method: method,
		Cutoff: s.Cutoff,
		Names:  s.Names,
		Labels: s.Labels,
		Matrix: &Matrix{N: s.N, Data: data},
	}, nil
}
