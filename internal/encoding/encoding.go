// Package encoding implements the binary on-disk format for the vector
// half of a persisted index: a fixed header followed by little-endian
// float32 rows.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorrupt is returned when vector data fails structural validation.
var ErrCorrupt = errors.New("corrupt vector data")

// magic identifies a docrag vector file.
var magic = [4]byte{'D', 'R', 'V', 'X'}

// EncodeMatrix serializes vectors of the given dimension. Every row
// must have exactly dim elements and carry finite values. generation
// identifies the save that produced the file; the chunk half of a
// persisted pair carries the same value, and load rejects a pair
// whose generations disagree.
func EncodeMatrix(generation uint64, dim int, vectors [][]float32) ([]byte, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if len(vectors) > math.MaxInt32 {
		return nil, fmt.Errorf("too many vectors: %d exceeds maximum", len(vectors))
	}

	buf := new(bytes.Buffer)
	if _, err := buf.Write(magic[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, generation); err != nil {
		return nil, fmt.Errorf("failed to encode generation: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return nil, fmt.Errorf("failed to encode vector count: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(dim)); err != nil {
		return nil, fmt.Errorf("failed to encode dimension: %w", err)
	}

	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		if err := ValidateVector(vec); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		for _, val := range vec {
			if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
				return nil, fmt.Errorf("failed to encode vector value: %w", err)
			}
		}
	}

	return buf.Bytes(), nil
}

// DecodeMatrix parses data produced by EncodeMatrix. It rejects
// truncated files, bad headers and payload size mismatches.
func DecodeMatrix(data []byte) (uint64, int, [][]float32, error) {
	if len(data) < 20 {
		return 0, 0, nil, ErrCorrupt
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return 0, 0, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	buf := bytes.NewReader(data[4:])
	var generation uint64
	var count, dim uint32
	if err := binary.Read(buf, binary.LittleEndian, &generation); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &dim); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dim == 0 {
		return 0, 0, nil, fmt.Errorf("%w: zero dimension", ErrCorrupt)
	}

	expected := int64(count) * int64(dim) * 4
	if int64(buf.Len()) != expected {
		return 0, 0, nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, buf.Len(), expected)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		row := make([]float32, dim)
		for j := range row {
			if err := binary.Read(buf, binary.LittleEndian, &row[j]); err != nil {
				return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		}
		vectors[i] = row
	}

	return generation, int(dim), vectors, nil
}

// ValidateVector rejects vectors carrying NaN or infinite components.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return errors.New("empty vector")
	}
	for _, val := range vector {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("vector contains non-finite value")
		}
	}
	return nil
}
