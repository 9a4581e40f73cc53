package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"featmill/internal/faults"
	"featmill/internal/featio"
)

// Phase is the accumulator state.
type Phase int

const (
	Idle Phase = iota
	AccumulatingMoments
	MomentsFinal
	AccumulatingVariance
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AccumulatingMoments:
		return "accumulating_moments"
	case MomentsFinal:
		return "moments_final"
	case AccumulatingVariance:
		return "accumulating_variance"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Accumulator runs the two-pass estimation for a known number of training
// utterances.
type Accumulator struct {
	phase    Phase
	expected int
	dims     int

	min    []float32
	max    []float32
	sum    []float64
	sumSq  []float64
	mean   []float64
	frames int

	momentUtts   int
	varianceUtts int
	varFrames    int

	row  []float64
	diff []float64
}

// NewAccumulator prepares an accumulator expecting exactly expected training
// utterances in each pass.
func NewAccumulator(expected int) *Accumulator {
	return &Accumulator{expected: expected}
}

// Phase reports the current state.
func (a *Accumulator) Phase() Phase { return a.phase }

// Frames is the number of training frames consumed in pass 1.
func (a *Accumulator) Frames() int { return a.frames }

// Dims is the width fixed by the first matrix.
func (a *Accumulator) Dims() int { return a.dims }

// AddMoments folds one training utterance into the pass 1 moments.
func (a *Accumulator) AddMoments(m featio.Matrix) error {
	switch a.phase {
	case Idle:
		a.start(m.Cols)
	case AccumulatingMoments:
	default:
		return a.phaseErr("add moments")
	}
	if m.Cols != a.dims {
		return dimsErr("add moments", m.Cols, a.dims)
	}
	if a.momentUtts >= a.expected {
		return faults.Wrap(faults.ErrPhase, "stats", "add moments",
			fmt.Sprintf("received more than the %d expected training utterances", a.expected), nil)
	}

	for i := 0; i < m.Rows; i++ {
		r := m.Row(i)
		for d, v := range r {
			if v < a.min[d] {
				a.min[d] = v
			}
			if v > a.max[d] {
				a.max[d] = v
			}
			a.row[d] = float64(v)
		}
		floats.Add(a.sum, a.row)
	}
	a.frames += m.Rows
	a.momentUtts++
	return nil
}

// FinalizeMoments closes pass 1 and derives the mean.
func (a *Accumulator) FinalizeMoments() error {
	if a.expected <= 0 {
		return faults.Wrap(faults.ErrEmptyTrainingSet, "stats", "finalize moments", "training split is empty", nil)
	}
	if a.phase != AccumulatingMoments {
		return a.phaseErr("finalize moments")
	}
	if a.momentUtts != a.expected {
		return faults.Wrap(faults.ErrPhase, "stats", "finalize moments",
			fmt.Sprintf("consumed %d of %d training utterances", a.momentUtts, a.expected), nil)
	}
	if a.frames == 0 {
		return faults.Wrap(faults.ErrEmptyTrainingSet, "stats", "finalize moments", "training utterances hold no frames", nil)
	}
	a.mean = make([]float64, a.dims)
	floats.ScaleTo(a.mean, 1/float64(a.frames), a.sum)
	a.phase = MomentsFinal
	return nil
}

// Mean returns the pass 1 mean once moments are final.
func (a *Accumulator) Mean() ([]float64, error) {
	if a.phase < MomentsFinal {
		return nil, a.phaseErr("mean")
	}
	out := make([]float64, len(a.mean))
	copy(out, a.mean)
	return out, nil
}

// AddVariance folds one re-read training utterance into pass 2.
func (a *Accumulator) AddVariance(m featio.Matrix) error {
	switch a.phase {
	case MomentsFinal:
		a.phase = AccumulatingVariance
	case AccumulatingVariance:
	default:
		return a.phaseErr("add variance")
	}
	if m.Cols != a.dims {
		return dimsErr("add variance", m.Cols, a.dims)
	}
	if a.varianceUtts >= a.momentUtts {
		return faults.Wrap(faults.ErrPhase, "stats", "add variance",
			fmt.Sprintf("received more than the %d training utterances of pass 1", a.momentUtts), nil)
	}
	for i := 0; i < m.Rows; i++ {
		for d, v := range m.Row(i) {
			a.row[d] = float64(v)
		}
		floats.SubTo(a.diff, a.row, a.mean)
		floats.Mul(a.diff, a.diff)
		floats.Add(a.sumSq, a.diff)
	}
	a.varFrames += m.Rows
	a.varianceUtts++
	return nil
}

// Finalize closes pass 2 and returns the unbiased statistics.
func (a *Accumulator) Finalize() (CorpusStatistics, error) {
	if a.phase != AccumulatingVariance {
		return CorpusStatistics{}, a.phaseErr("finalize")
	}
	if a.varianceUtts != a.momentUtts || a.varFrames != a.frames {
		return CorpusStatistics{}, faults.Wrap(faults.ErrPhase, "stats", "finalize",
			fmt.Sprintf("pass 2 saw %d utterances/%d frames, pass 1 saw %d/%d",
				a.varianceUtts, a.varFrames, a.momentUtts, a.frames), nil)
	}
	if a.frames <= 1 {
		return CorpusStatistics{}, faults.Wrap(faults.ErrDegenerateSample, "stats", "finalize",
			fmt.Sprintf("%d training frame(s) cannot give an unbiased variance", a.frames), nil)
	}

	out := CorpusStatistics{
		Min:    append([]float32(nil), a.min...),
		Max:    append([]float32(nil), a.max...),
		Mean:   make([]float32, a.dims),
		Std:    make([]float32, a.dims),
		Frames: a.frames,
	}
	denom := float64(a.frames - 1)
	for d := 0; d < a.dims; d++ {
		out.Mean[d] = float32(a.mean[d])
		if a.max[d] == a.min[d] {
			continue
		}
		out.Std[d] = float32(math.Sqrt(a.sumSq[d] / denom))
	}
	a.phase = Done
	return out, nil
}

func (a *Accumulator) start(dims int) {
	a.dims = dims
	a.min = make([]float32, dims)
	a.max = make([]float32, dims)
	for d := range a.min {
		a.min[d] = float32(math.Inf(1))
		a.max[d] = float32(math.Inf(-1))
	}
	a.sum = make([]float64, dims)
	a.sumSq = make([]float64, dims)
	a.row = make([]float64, dims)
	a.diff = make([]float64, dims)
	a.phase = AccumulatingMoments
}

func (a *Accumulator) phaseErr(op string) error {
	return faults.Wrap(faults.ErrPhase, "stats", op, fmt.Sprintf("not allowed in phase %s", a.phase), nil)
}

func dimsErr(op string, got, want int) error {
	return faults.Wrap(faults.ErrShapeMismatch, "stats", op, fmt.Sprintf("matrix has %d dims, want %d", got, want), nil)
}
