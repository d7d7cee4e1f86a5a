package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedEmbedding is returned when a stored encoding cannot be decoded
// into a vector of the expected dimension.
var ErrMalformedEmbedding = errors.New("malformed embedding")

// EncodeEmbedding serializes an embedding as consecutive little-endian float64 values.
func EncodeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*8)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeEmbedding parses an encoding produced by EncodeEmbedding. When dim is
// positive the decoded vector must have exactly dim components.
func DecodeEmbedding(data []byte, dim int) ([]float64, error) {
	if len(data) == 0 || len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float64 values", ErrMalformedEmbedding, len(data))
	}
	n := len(data) / 8
	if dim > 0 && n != dim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedEmbedding, n, dim)
	}

	embedding := make([]float64, n)
	for i := range embedding {
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrMalformedEmbedding, i)
		}
		embedding[i] = v
	}
	return embedding, nil
}

// ToFloat32 converts an embedding for float32-based indexes.
func ToFloat32(embedding []float64) []float32 {
	out := make([]float32, len(embedding))
	for i, v := range embedding {
		out[i] = float32(v)
	}
	return out
}
