package normalize

import (
	"fmt"
	"strings"

	"featmill/internal/faults"
	"featmill/internal/pathspec"
	"featmill/internal/stats"
)

// Kind names a normalization strategy.
type Kind string

const (
	KindMinMax           Kind = "minmax"
	KindMeanStd          Kind = "meanstd"
	KindMeanStdProtected Kind = "meanstd_protected"
	KindNone             Kind = "none"
)

// MaxBandRepeats bounds how many layout repetitions the protected band covers.
const MaxBandRepeats = 3

// ParseKind maps a configuration string onto a Kind.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindMinMax, KindMeanStd, KindMeanStdProtected, KindNone:
		return k, nil
	case "":
		return KindNone, nil
	default:
		return "", faults.Wrap(faults.ErrConfiguration, "normalize", "parse kind",
			fmt.Sprintf("unknown normalization %q", raw), nil)
	}
}

// Strategy fits restricted normalization parameters.
type Strategy interface {
	Kind() Kind
	Fit(s stats.CorpusStatistics, keep []int) (Params, error)
}

// MinMax maps [min,max] onto [Lo,Hi].
type MinMax struct {
	Lo float32
	Hi float32
}

func (MinMax) Kind() Kind { return KindMinMax }

func (n MinMax) Fit(s stats.CorpusStatistics, keep []int) (Params, error) {
	if !(n.Lo < n.Hi) {
		return Params{}, faults.Wrap(faults.ErrConfiguration, "normalize", "fit",
			fmt.Sprintf("target range [%g,%g] is empty", n.Lo, n.Hi), nil)
	}
	keep, err := resolveKeep(s.Dims(), keep)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Kind: KindMinMax,
		Dims: s.Dims(),
		Keep: keep,
		Lo:   n.Lo,
		Hi:   n.Hi,
		Min:  restrict(s.Min, keep),
		Max:  restrict(s.Max, keep),
	}, nil
}

// MeanStd standardizes each kept dimension.
type MeanStd struct{}

func (MeanStd) Kind() Kind { return KindMeanStd }

func (MeanStd) Fit(s stats.CorpusStatistics, keep []int) (Params, error) {
	return fitMeanStd(KindMeanStd, s, keep)
}

// Band is a contiguous run of columns repeated every Block columns.
type Band struct {
	Offset int
	Width  int
	Block  int
}

// Columns lists the band columns within a layout of dims columns.
func (b Band) Columns(dims int) []int {
	var out []int
	for rep := 0; rep < MaxBandRepeats; rep++ {
		start := b.Offset + rep*b.Block
		if start >= dims || (rep > 0 && b.Block <= 0) {
			break
		}
		for c := start; c < start+b.Width && c < dims; c++ {
			out = append(out, c)
		}
	}
	return out
}

// BandFor derives the band of stream index from the ordered input streams.
// Block is the full static width so the band repeats across delta blocks.
func BandFor(streams []pathspec.Descriptor, index int) (Band, error) {
	if index < 0 || index >= len(streams) {
		return Band{}, faults.Wrap(faults.ErrConfiguration, "normalize", "band",
			fmt.Sprintf("protected stream %d outside %d input streams", index, len(streams)), nil)
	}
	return Band{
		Offset: pathspec.TotalCols(streams[:index]),
		Width:  streams[index].Cols(),
		Block:  pathspec.TotalCols(streams),
	}, nil
}

// MeanStdProtected standardizes everything except Band, which passes
// through unchanged.
type MeanStdProtected struct {
	Band Band
}

func (MeanStdProtected) Kind() Kind { return KindMeanStdProtected }

func (n MeanStdProtected) Fit(s stats.CorpusStatistics, keep []int) (Params, error) {
	if n.Band.Width <= 0 || n.Band.Offset < 0 {
		return Params{}, faults.Wrap(faults.ErrConfiguration, "normalize", "fit",
			fmt.Sprintf("invalid protected band offset=%d width=%d", n.Band.Offset, n.Band.Width), nil)
	}
	forced := s.Clone()
	for _, c := range n.Band.Columns(forced.Dims()) {
		forced.Mean[c] = 0
		forced.Std[c] = 1
	}
	return fitMeanStd(KindMeanStdProtected, forced, keep)
}

// None leaves values untouched apart from the keep-index.
type None struct{}

func (None) Kind() Kind { return KindNone }

func (None) Fit(s stats.CorpusStatistics, keep []int) (Params, error) {
	keep, err := resolveKeep(s.Dims(), keep)
	if err != nil {
		return Params{}, err
	}
	return Params{Kind: KindNone, Dims: s.Dims(), Keep: keep}, nil
}

// Options carries what New needs beyond the kind.
type Options struct {
	Lo      float32
	Hi      float32
	Streams []pathspec.Descriptor
	// Protected is the index into Streams of the band left unscaled.
	Protected int
}

// New builds the strategy for kind.
func New(kind Kind, opts Options) (Strategy, error) {
	switch kind {
	case KindMinMax:
		return MinMax{Lo: opts.Lo, Hi: opts.Hi}, nil
	case KindMeanStd:
		return MeanStd{}, nil
	case KindMeanStdProtected:
		band, err := BandFor(opts.Streams, opts.Protected)
		if err != nil {
			return nil, err
		}
		return MeanStdProtected{Band: band}, nil
	case KindNone, "":
		return None{}, nil
	default:
		return nil, faults.Wrap(faults.ErrConfiguration, "normalize", "new",
			fmt.Sprintf("unknown normalization %q", kind), nil)
	}
}

func fitMeanStd(kind Kind, s stats.CorpusStatistics, keep []int) (Params, error) {
	keep, err := resolveKeep(s.Dims(), keep)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Kind: kind,
		Dims: s.Dims(),
		Keep: keep,
		Mean: restrict(s.Mean, keep),
		Std:  restrict(s.Std, keep),
	}, nil
}

// resolveKeep validates keep against dims; nil keeps everything.
func resolveKeep(dims int, keep []int) ([]int, error) {
	if keep == nil {
		out := make([]int, dims)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	prev := -1
	for _, k := range keep {
		if k <= prev || k >= dims {
			return nil, faults.Wrap(faults.ErrShapeMismatch, "normalize", "keep index",
				fmt.Sprintf("index %d invalid for %d dims (must be ascending and in range)", k, dims), nil)
		}
		prev = k
	}
	return append([]int(nil), keep...), nil
}

func restrict(values []float32, keep []int) []float32 {
	out := make([]float32, len(keep))
	for i, k := range keep {
		out[i] = values[k]
	}
	return out
}
