package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featmill/internal/featio"
)

// WriteStream writes rows as a raw float32 feature file, creating parent
// directories.
func WriteStream(t testing.TB, path string, rows [][]float32) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := featio.WriteMatrix(path, featio.FromRows(rows)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Column builds a single-column stream from values.
func Column(values ...float32) [][]float32 {
	rows := make([][]float32, len(values))
	for i, v := range values {
		rows[i] = []float32{v}
	}
	return rows
}

// Fill builds a frames x cols stream whose cell (i, j) is fn(i, j).
func Fill(frames, cols int, fn func(i, j int) float32) [][]float32 {
	rows := make([][]float32, frames)
	for i := range rows {
		rows[i] = make([]float32, cols)
		for j := range rows[i] {
			rows[i][j] = fn(i, j)
		}
	}
	return rows
}

// WriteIDs writes one id per line and returns path.
func WriteIDs(t testing.TB, path string, ids []string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(ids, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadMatrix loads a feature file or fails the test.
func ReadMatrix(t testing.TB, path string, cols int) featio.Matrix {
	t.Helper()
	m, err := featio.ReadMatrix(path, cols)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return m
}
