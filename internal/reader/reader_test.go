package reader_test

import (
	"errors"
	"path/filepath"
	"testing"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/pathspec"
	"featmill/internal/reader"
)

func writeStream(t *testing.T, path string, rows [][]float32) {
	t.Helper()
	if err := featio.WriteMatrix(path, featio.FromRows(rows)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func setup(t *testing.T) (string, []pathspec.Descriptor) {
	t.Helper()
	dir := t.TempDir()
	writeStream(t, filepath.Join(dir, "f0", "u1.lf0"), [][]float32{{1}, {2}, {3}, {4}})
	writeStream(t, filepath.Join(dir, "sp", "u1.sp"), [][]float32{{10, 11}, {20, 21}, {30, 31}})
	streams, err := pathspec.ParseAll([]string{
		filepath.Join(dir, "f0", "*.lf0"),
		filepath.Join(dir, "sp", "*.sp") + ":(-1,2)",
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir, streams
}

func TestReadCropsToShortestStream(t *testing.T) {
	_, streams := setup(t)
	r, err := reader.New(streams, reader.Options{MaxDrift: reader.UnboundedDrift})
	if err != nil {
		t.Fatal(err)
	}
	m, report, err := r.Read("u1")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if m.Rows != 3 || m.Cols != 3 {
		t.Fatalf("unexpected shape %dx%d", m.Rows, m.Cols)
	}
	if got := m.Row(2); got[0] != 3 || got[1] != 30 || got[2] != 31 {
		t.Fatalf("unexpected last row %v", got)
	}
	if !report.Cropped() || report.CroppedFrames != 1 {
		t.Fatalf("unexpected crop report %+v", report)
	}
	sum := r.Summary()
	if sum.Utterances != 1 || sum.CroppedUtterances != 1 || sum.DroppedFrames != 1 || sum.MaxDrift != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if r.Cols() != 3 {
		t.Fatalf("Cols = %d, want 3", r.Cols())
	}
}

func TestReadEnforcesDriftTolerance(t *testing.T) {
	_, streams := setup(t)
	r, err := reader.New(streams, reader.Options{MaxDrift: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Read("u1"); !errors.Is(err, faults.ErrFrameDrift) {
		t.Fatalf("expected frame drift error, got %v", err)
	}

	r, err = reader.New(streams, reader.Options{MaxDrift: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Read("u1"); err != nil {
		t.Fatalf("drift within tolerance must pass, got %v", err)
	}
}

func TestReadShapeMismatchAborts(t *testing.T) {
	dir, _ := setup(t)
	streams := []pathspec.Descriptor{pathspec.MustParse(filepath.Join(dir, "sp", "*.sp") + ":(-1,4)")}
	r, err := reader.New(streams, reader.Options{MaxDrift: reader.UnboundedDrift})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Read("u1"); !errors.Is(err, faults.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestReadMissingStream(t *testing.T) {
	_, streams := setup(t)
	r, err := reader.New(streams, reader.Options{MaxDrift: reader.UnboundedDrift})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Read("u2"); !errors.Is(err, faults.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := reader.New(nil, reader.Options{}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, streams := setup(t)
	if _, err := reader.New(streams, reader.Options{MaxDrift: -2}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
