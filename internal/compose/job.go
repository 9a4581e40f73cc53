package compose

import (
	"fmt"
	"strconv"
	"strings"

	"featmill/internal/faults"
	"featmill/internal/normalize"
	"featmill/internal/pathspec"
	"featmill/internal/reader"
	"featmill/internal/window"
)

// Job is one fully parsed composition.
type Job struct {
	Name     string
	Inputs   []pathspec.Descriptor
	Output   pathspec.Descriptor
	Kernels  []window.Kernel
	Strategy normalize.Strategy
	// DropZeroVariance removes constant dimensions from the normalized output
	// and persists the surviving indices as keepidx.dat.
	DropZeroVariance bool
	FinalCheck       bool
	// MaxDrift is the per-utterance stream length tolerance in frames;
	// reader.UnboundedDrift accepts any difference.
	MaxDrift int
}

// StaticCols is the fused width before window augmentation.
func (j Job) StaticCols() int { return pathspec.TotalCols(j.Inputs) }

// ComposedCols is the width written by pass 1.
func (j Job) ComposedCols() int { return window.OutputCols(j.StaticCols(), len(j.Kernels)) }

// Layout renders the stream widths and the window repetition, e.g. "(1+129+33)x3".
func (j Job) Layout() string {
	widths := make([]string, 0, len(j.Inputs))
	for _, in := range j.Inputs {
		widths = append(widths, strconv.Itoa(in.Cols()))
	}
	return fmt.Sprintf("(%s)x%d", strings.Join(widths, "+"), 1+len(j.Kernels))
}

// Validate checks the job before any file is touched.
func (j Job) Validate() error {
	switch {
	case strings.TrimSpace(j.Name) == "":
		return invalid("job name is required")
	case len(j.Inputs) == 0:
		return invalid(j.Name + ": at least one input stream is required")
	case j.Output.IsZero():
		return invalid(j.Name + ": output descriptor is required")
	case j.Strategy == nil:
		return invalid(j.Name + ": normalization strategy is required")
	case j.MaxDrift < reader.UnboundedDrift:
		return invalid(fmt.Sprintf("%s: max drift must be >= -1, got %d", j.Name, j.MaxDrift))
	}
	for i, k := range j.Kernels {
		if len(k) == 0 || len(k)%2 == 0 {
			return invalid(fmt.Sprintf("%s: window %d must have odd length, got %d", j.Name, i, len(k)))
		}
	}
	for _, in := range j.Inputs {
		if in.Template() == j.Output.Template() {
			return invalid(fmt.Sprintf("%s: output %s overwrites an input stream", j.Name, j.Output.Template()))
		}
	}
	if j.Output.HasShape() && j.Output.Cols() != j.ComposedCols() {
		return faults.Wrap(faults.ErrShapeMismatch, "compose", "validate",
			fmt.Sprintf("%s: output declares %d columns, composition %s yields %d",
				j.Name, j.Output.Cols(), j.Layout(), j.ComposedCols()), nil)
	}
	return nil
}

func invalid(msg string) error {
	return faults.Wrap(faults.ErrConfiguration, "compose", "validate", msg, nil)
}
