package stats

import (
	"fmt"
	"path/filepath"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/fileutil"
)

// Fixed artifact names read by downstream consumers.
const (
	MinFile       = "min.dat"
	MaxFile       = "max.dat"
	MeanFile      = "mean.dat"
	StdFile       = "std.dat"
	KeepIndexFile = "keepidx.dat"
)

// CorpusStatistics holds unrestricted per-dimension statistics over the
// training prefix.
type CorpusStatistics struct {
	Min    []float32
	Max    []float32
	Mean   []float32
	Std    []float32
	Frames int
}

// Dims returns the statistics width.
func (s CorpusStatistics) Dims() int { return len(s.Mean) }

// ZeroVarianceDims lists the dimensions whose training values never vary.
func (s CorpusStatistics) ZeroVarianceDims() []int {
	var out []int
	for d := range s.Max {
		if s.Max[d] == s.Min[d] {
			out = append(out, d)
		}
	}
	return out
}

// KeepIndex returns the retained dimensions. Without drop every dimension is
// kept.
func (s CorpusStatistics) KeepIndex(drop bool) []int {
	out := make([]int, 0, s.Dims())
	for d := 0; d < s.Dims(); d++ {
		if drop && s.Max[d] == s.Min[d] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Clone deep-copies the vectors.
func (s CorpusStatistics) Clone() CorpusStatistics {
	return CorpusStatistics{
		Min:    append([]float32(nil), s.Min...),
		Max:    append([]float32(nil), s.Max...),
		Mean:   append([]float32(nil), s.Mean...),
		Std:    append([]float32(nil), s.Std...),
		Frames: s.Frames,
	}
}

// Save writes min.dat, max.dat, mean.dat and std.dat into dir, replacing
// prior values.
func (s CorpusStatistics) Save(dir string) error {
	for _, f := range s.files() {
		if err := featio.WriteVector(filepath.Join(dir, f.name), *f.values); err != nil {
			return err
		}
	}
	return nil
}

// Load reads statistics persisted by Save.
func Load(dir string) (CorpusStatistics, error) {
	var s CorpusStatistics
	for _, f := range s.files() {
		values, err := featio.ReadVector(filepath.Join(dir, f.name))
		if err != nil {
			return CorpusStatistics{}, err
		}
		*f.values = values
	}
	n := len(s.Mean)
	if len(s.Min) != n || len(s.Max) != n || len(s.Std) != n {
		return CorpusStatistics{}, faults.Wrap(faults.ErrShapeMismatch, "stats", "load",
			fmt.Sprintf("statistics in %s have inconsistent widths", dir), nil)
	}
	return s, nil
}

// SaveKeepIndex writes keepidx.dat.
func SaveKeepIndex(dir string, keep []int) error {
	return featio.WriteInt32s(filepath.Join(dir, KeepIndexFile), keep)
}

// LoadKeepIndex reads keepidx.dat. A missing file yields nil with no error.
func LoadKeepIndex(dir string) ([]int, error) {
	path := filepath.Join(dir, KeepIndexFile)
	ok, err := fileutil.Exists(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "stats", "load keep index", path, err)
	}
	if !ok {
		return nil, nil
	}
	return featio.ReadInt32s(path)
}

type namedVector struct {
	name   string
	values *[]float32
}

func (s *CorpusStatistics) files() []namedVector {
	return []namedVector{
		{MinFile, &s.Min},
		{MaxFile, &s.Max},
		{MeanFile, &s.Mean},
		{StdFile, &s.Std},
	}
}
