package featio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"featmill/internal/faults"
	"featmill/internal/fileutil"
)

const (
	float32Size = 4
	int32Size   = 4
)

// ReadMatrix loads a raw float32 file and reshapes it to (-1, cols).
func ReadMatrix(path string, cols int) (Matrix, error) {
	if cols <= 0 {
		return Matrix{}, faults.Wrap(faults.ErrShapeMismatch, "featio", "read", fmt.Sprintf("%s: non-positive column count %d", path, cols), nil)
	}
	values, err := ReadVector(path)
	if err != nil {
		return Matrix{}, err
	}
	if len(values)%cols != 0 {
		return Matrix{}, faults.Wrap(
			faults.ErrShapeMismatch, "featio", "read",
			fmt.Sprintf("%s: %d values is not a multiple of %d columns", path, len(values), cols),
			nil,
		)
	}
	return Matrix{Rows: len(values) / cols, Cols: cols, Data: values}, nil
}

// ReadVector loads a raw float32 file as a flat slice.
func ReadVector(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "featio", "read", path, err)
	}
	if len(data)%float32Size != 0 {
		return nil, faults.Wrap(
			faults.ErrShapeMismatch, "featio", "read",
			fmt.Sprintf("%s: %d bytes is not a multiple of %d", path, len(data), float32Size),
			nil,
		)
	}
	out := make([]float32, len(data)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(data[i*float32Size:]))
	}
	return out, nil
}

// WriteMatrix replaces path with the raw float32 contents of m.
func WriteMatrix(path string, m Matrix) error {
	return WriteVector(path, m.Data)
}

// WriteVector replaces path with raw float32 values.
func WriteVector(path string, values []float32) error {
	buf := make([]byte, len(values)*float32Size)
	for i, v := range values {
		binary.NativeEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf, 0o644); err != nil {
		return faults.Wrap(faults.ErrIO, "featio", "write", path, err)
	}
	return nil
}

// WriteFloat64s narrows values to float32 before writing.
func WriteFloat64s(path string, values []float64) error {
	narrow := make([]float32, len(values))
	for i, v := range values {
		narrow[i] = float32(v)
	}
	return WriteVector(path, narrow)
}

// ReadInt32s loads a raw int32 file such as keepidx.dat.
func ReadInt32s(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "featio", "read", path, err)
	}
	if len(data)%int32Size != 0 {
		return nil, faults.Wrap(
			faults.ErrShapeMismatch, "featio", "read",
			fmt.Sprintf("%s: %d bytes is not a multiple of %d", path, len(data), int32Size),
			nil,
		)
	}
	out := make([]int, len(data)/int32Size)
	for i := range out {
		out[i] = int(int32(binary.NativeEndian.Uint32(data[i*int32Size:])))
	}
	return out, nil
}

// WriteInt32s replaces path with raw int32 values.
func WriteInt32s(path string, values []int) error {
	buf := make([]byte, len(values)*int32Size)
	for i, v := range values {
		binary.NativeEndian.PutUint32(buf[i*int32Size:], uint32(int32(v)))
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf, 0o644); err != nil {
		return faults.Wrap(faults.ErrIO, "featio", "write", path, err)
	}
	return nil
}

// EnsureDir creates dir, treating an existing directory as success.
func EnsureDir(dir string) error {
	if err := fileutil.EnsureDir(dir); err != nil {
		return faults.Wrap(faults.ErrIO, "featio", "mkdir", dir, err)
	}
	return nil
}
