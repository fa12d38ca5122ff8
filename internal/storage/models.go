package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// IntentRecord is one labeled dataset entry with its precomputed embedding.
// Records are written once by the offline build and never mutated at query
// time; Position preserves load order so the in-memory similarity matrix
// stays positionally consistent with the record list it was built from.
type IntentRecord struct {
	IntentID    string
	Instruction string
	Input       string
	Output      string
	Embedding   []float32
	Position    int
}

// KnowledgeRecord is one document-corpus entry with its precomputed embedding.
// Keywords holds a JSON array stored as text.
type KnowledgeRecord struct {
	ID        string
	Keywords  string
	Answer    string
	Embedding []float32
	Position  int
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
// Returns an error if the byte slice length is not a multiple of 4 (indicates data corruption).
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
