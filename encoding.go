package shapeclust

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFloat64s encodes values as a little-endian sequence of IEEE 754
// float64 bit patterns, preserving every value exactly (NaN included).
func EncodeFloat64s(values []float64) []byte {
	b := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

// DecodeFloat64s decodes a blob produced by EncodeFloat64s.
func DecodeFloat64s(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("shapeclust: invalid float64 blob length %d (not multiple of 8)", len(b))
	}
	values := make([]float64, len(b)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return values, nil
}
