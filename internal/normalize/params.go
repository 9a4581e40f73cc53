package normalize

import (
	"fmt"
	"path/filepath"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/fileutil"
	"featmill/internal/stats"
)

// Fixed names of the applied parameters.
const (
	MinNormFile  = "min4norm.dat"
	MaxNormFile  = "max4norm.dat"
	MeanNormFile = "mean4norm.dat"
	StdNormFile  = "std4norm.dat"

	// RangeNormFile holds the min-max target range [lo, hi] the corpus was
	// mapped onto.
	RangeNormFile = "range4norm.dat"
)

// Params are the restricted parameters actually applied. Dims is the
// unrestricted width of incoming matrices and Keep selects the retained
// columns.
type Params struct {
	Kind Kind
	Dims int
	Keep []int

	Lo, Hi   float32
	Min, Max []float32

	Mean, Std []float32
}

// Width is the restricted output width.
func (p Params) Width() int { return len(p.Keep) }

// Files lists the *4norm artifacts this kind persists.
func (p Params) Files() []string { return FilesFor(p.Kind) }

// FilesFor lists the *4norm artifacts persisted by kind.
func FilesFor(kind Kind) []string {
	switch kind {
	case KindMinMax:
		return []string{MinNormFile, MaxNormFile}
	case KindMeanStd, KindMeanStdProtected:
		return []string{MeanNormFile, StdNormFile}
	default:
		return nil
	}
}

// Apply restricts m to the kept columns and normalizes it into a new matrix.
func (p Params) Apply(m featio.Matrix) (featio.Matrix, error) {
	if m.Cols != p.Dims {
		return featio.Matrix{}, faults.Wrap(faults.ErrShapeMismatch, "normalize", "apply",
			fmt.Sprintf("matrix has %d dims, parameters expect %d", m.Cols, p.Dims), nil)
	}
	out := m.SelectCols(p.Keep)
	switch p.Kind {
	case KindMinMax:
		mid := 0.5 * (float64(p.Lo) + float64(p.Hi))
		span := float64(p.Hi) - float64(p.Lo)
		for i := 0; i < out.Rows; i++ {
			row := out.Row(i)
			for d, v := range row {
				lo, hi := float64(p.Min[d]), float64(p.Max[d])
				if hi == lo {
					row[d] = float32(mid)
					continue
				}
				row[d] = float32((float64(v)-lo)/(hi-lo)*span + float64(p.Lo))
			}
		}
	case KindMeanStd, KindMeanStdProtected:
		for i := 0; i < out.Rows; i++ {
			row := out.Row(i)
			for d, v := range row {
				std := float64(p.Std[d])
				if std == 0 {
					std = 1
				}
				row[d] = float32((float64(v) - float64(p.Mean[d])) / std)
			}
		}
	}
	return out, nil
}

// Denormalize maps restricted normalized values back to the feature domain.
// Degenerate min-max dimensions return min and zero-std dimensions return
// the mean.
func Denormalize(m featio.Matrix, p Params) (featio.Matrix, error) {
	if m.Cols != p.Width() {
		return featio.Matrix{}, faults.Wrap(faults.ErrShapeMismatch, "normalize", "denormalize",
			fmt.Sprintf("matrix has %d dims, parameters cover %d", m.Cols, p.Width()), nil)
	}
	out := featio.NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	switch p.Kind {
	case KindMinMax:
		span := float64(p.Hi) - float64(p.Lo)
		for i := 0; i < out.Rows; i++ {
			row := out.Row(i)
			for d, v := range row {
				lo, hi := float64(p.Min[d]), float64(p.Max[d])
				if hi == lo {
					row[d] = p.Min[d]
					continue
				}
				row[d] = float32((float64(v)-float64(p.Lo))/span*(hi-lo) + lo)
			}
		}
	case KindMeanStd, KindMeanStdProtected:
		for i := 0; i < out.Rows; i++ {
			row := out.Row(i)
			for d, v := range row {
				row[d] = float32(float64(v)*float64(p.Std[d]) + float64(p.Mean[d]))
			}
		}
	}
	return out, nil
}

// Save writes the kind's *4norm pair into dir. Zero std values are kept as
// zero so inversion restores zero variance.
func (p Params) Save(dir string) error {
	var pairs [][]float32
	switch p.Kind {
	case KindMinMax:
		pairs = [][]float32{p.Min, p.Max}
	case KindMeanStd, KindMeanStdProtected:
		pairs = [][]float32{p.Mean, p.Std}
	default:
		return nil
	}
	for i, name := range p.Files() {
		if err := featio.WriteVector(filepath.Join(dir, name), pairs[i]); err != nil {
			return err
		}
	}
	if p.Kind == KindMinMax {
		return featio.WriteVector(filepath.Join(dir, RangeNormFile), []float32{p.Lo, p.Hi})
	}
	return nil
}

// LoadParams reads the applied parameters for strategy from dir. The
// keep-index is read from keepidx.dat when present. A persisted min-max
// target range takes precedence over the one carried by strategy.
func LoadParams(dir string, strategy Strategy) (Params, error) {
	kind := strategy.Kind()
	p := Params{Kind: kind}
	if mm, ok := strategy.(MinMax); ok {
		p.Lo, p.Hi = mm.Lo, mm.Hi
	}
	files := FilesFor(kind)
	if len(files) == 0 {
		return Params{}, faults.Wrap(faults.ErrConfiguration, "normalize", "load params",
			fmt.Sprintf("normalization %q persists no parameters", kind), nil)
	}
	first, err := featio.ReadVector(filepath.Join(dir, files[0]))
	if err != nil {
		return Params{}, err
	}
	second, err := featio.ReadVector(filepath.Join(dir, files[1]))
	if err != nil {
		return Params{}, err
	}
	if len(first) != len(second) {
		return Params{}, faults.Wrap(faults.ErrShapeMismatch, "normalize", "load params",
			fmt.Sprintf("%s has %d values, %s has %d", files[0], len(first), files[1], len(second)), nil)
	}
	if kind == KindMinMax {
		p.Min, p.Max = first, second
		if p.Lo, p.Hi, err = loadRange(dir, p.Lo, p.Hi); err != nil {
			return Params{}, err
		}
	} else {
		p.Mean, p.Std = first, second
	}

	keep, err := stats.LoadKeepIndex(dir)
	if err != nil {
		return Params{}, err
	}
	if keep == nil {
		keep, _ = resolveKeep(len(first), nil)
		p.Dims = len(first)
	} else {
		if len(keep) != len(first) {
			return Params{}, faults.Wrap(faults.ErrShapeMismatch, "normalize", "load params",
				fmt.Sprintf("keep index has %d entries, parameters have %d", len(keep), len(first)), nil)
		}
		p.Dims, err = unrestrictedDims(dir, keep)
		if err != nil {
			return Params{}, err
		}
	}
	p.Keep = keep
	return p, nil
}

// unrestrictedDims takes the width from mean.dat when it sits beside the
// parameters, falling back to the highest kept index.
func unrestrictedDims(dir string, keep []int) (int, error) {
	path := filepath.Join(dir, stats.MeanFile)
	ok, err := fileutil.Exists(path)
	if err != nil {
		return 0, faults.Wrap(faults.ErrIO, "normalize", "load params", path, err)
	}
	if ok {
		mean, err := featio.ReadVector(path)
		if err != nil {
			return 0, err
		}
		return len(mean), nil
	}
	if len(keep) == 0 {
		return 0, nil
	}
	return keep[len(keep)-1] + 1, nil
}

// loadRange reads range4norm.dat, keeping lo and hi when the file is absent.
func loadRange(dir string, lo, hi float32) (float32, float32, error) {
	path := filepath.Join(dir, RangeNormFile)
	ok, err := fileutil.Exists(path)
	if err != nil {
		return 0, 0, faults.Wrap(faults.ErrIO, "normalize", "load range", path, err)
	}
	if !ok {
		return lo, hi, nil
	}
	r, err := featio.ReadVector(path)
	if err != nil {
		return 0, 0, err
	}
	if len(r) != 2 || !(r[0] < r[1]) {
		return 0, 0, faults.Wrap(faults.ErrShapeMismatch, "normalize", "load range",
			fmt.Sprintf("%s must hold [lo, hi] with lo < hi, got %v", path, r), nil)
	}
	return r[0], r[1], nil
}
