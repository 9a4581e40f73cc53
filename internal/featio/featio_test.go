package featio_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"featmill/internal/faults"
	"featmill/internal/featio"
)

func TestWriteReadMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "u1.cmp")
	m := featio.FromRows([][]float32{{1, 2, 3}, {4, 5, 6}})

	if err := featio.WriteMatrix(path, m); err != nil {
		t.Fatalf("WriteMatrix returned error: %v", err)
	}
	got, err := featio.ReadMatrix(path, 3)
	if err != nil {
		t.Fatalf("ReadMatrix returned error: %v", err)
	}
	if got.Rows != 2 || got.Cols != 3 {
		t.Fatalf("unexpected shape %dx%d", got.Rows, got.Cols)
	}
	for i, v := range m.Data {
		if got.Data[i] != v {
			t.Fatalf("value %d = %v, want %v", i, got.Data[i], v)
		}
	}
}

func TestReadMatrixShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u1.sp")
	if err := featio.WriteVector(path, []float32{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := featio.ReadMatrix(path, 2); !errors.Is(err, faults.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestReadVectorTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := featio.ReadVector(path); !errors.Is(err, faults.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := featio.ReadMatrix(filepath.Join(t.TempDir(), "missing.lf0"), 1)
	if !errors.Is(err, faults.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestInt32RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepidx.dat")
	want := []int{0, 2, 5, 163}
	if err := featio.WriteInt32s(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := featio.ReadInt32s(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHStackAndCrop(t *testing.T) {
	a := featio.FromRows([][]float32{{1}, {2}, {3}})
	b := featio.FromRows([][]float32{{10, 11}, {20, 21}, {30, 31}})
	m, err := featio.HStack(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if m.Cols != 3 || m.Rows != 3 {
		t.Fatalf("unexpected shape %dx%d", m.Rows, m.Cols)
	}
	if m.At(2, 0) != 3 || m.At(2, 2) != 31 {
		t.Fatalf("unexpected row %v", m.Row(2))
	}

	cropped := m.CropRows(2)
	if cropped.Rows != 2 || len(cropped.Data) != 6 {
		t.Fatalf("unexpected crop %dx%d", cropped.Rows, cropped.Cols)
	}
	if _, err := featio.HStack(a, cropped); err == nil {
		t.Fatal("expected error for mismatched rows")
	}
}

func TestSelectCols(t *testing.T) {
	m := featio.FromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
	sel := m.SelectCols([]int{2, 0})
	if sel.Cols != 2 || sel.At(0, 0) != 3 || sel.At(1, 1) != 4 {
		t.Fatalf("unexpected selection %v", sel.Data)
	}
}
