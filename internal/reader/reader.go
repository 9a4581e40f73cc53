// Package reader loads the raw streams of one utterance and fuses them into a
// single static feature matrix.
//
// Independently extracted streams routinely disagree by a frame or two, so
// every stream is cropped from the start to the shortest one before the
// horizontal concatenation. The crop is silent by default but counted, and
// MaxDrift turns unbounded disagreement into an error.
package reader

import (
	"fmt"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/pathspec"
)

// UnboundedDrift disables the frame drift check.
const UnboundedDrift = -1

// Options tunes stream fusion.
type Options struct {
	// MaxDrift is the largest tolerated difference between the longest and
	// the shortest stream of an utterance, in frames. UnboundedDrift accepts
	// any difference.
	MaxDrift int
}

// CropReport describes the crop applied to one utterance.
type CropReport struct {
	MinFrames     int
	MaxFrames     int
	CroppedFrames int
}

// Cropped reports whether any stream lost frames.
func (r CropReport) Cropped() bool { return r.MaxFrames > r.MinFrames }

// Summary aggregates crop reports for the processing summary.
type Summary struct {
	Utterances        int
	CroppedUtterances int
	DroppedFrames     int
	MaxDrift          int
}

// Reader fuses a fixed, ordered list of streams.
type Reader struct {
	streams []pathspec.Descriptor
	opts    Options
	summary Summary
}

// New builds a reader over the given streams.
func New(streams []pathspec.Descriptor, opts Options) (*Reader, error) {
	if len(streams) == 0 {
		return nil, faults.Wrap(faults.ErrConfiguration, "reader", "new", "at least one input stream is required", nil)
	}
	if opts.MaxDrift < UnboundedDrift {
		return nil, faults.Wrap(faults.ErrConfiguration, "reader", "new", fmt.Sprintf("max drift must be >= -1, got %d", opts.MaxDrift), nil)
	}
	cp := make([]pathspec.Descriptor, len(streams))
	copy(cp, streams)
	return &Reader{streams: cp, opts: opts}, nil
}

// Cols is the width of the fused static matrix.
func (r *Reader) Cols() int { return pathspec.TotalCols(r.streams) }

// Streams returns the ordered stream descriptors.
func (r *Reader) Streams() []pathspec.Descriptor { return r.streams }

// Read loads, crops and concatenates every stream of utterance id.
func (r *Reader) Read(id string) (featio.Matrix, CropReport, error) {
	parts := make([]featio.Matrix, 0, len(r.streams))
	report := CropReport{MinFrames: -1}
	for _, stream := range r.streams {
		m, err := featio.ReadMatrix(stream.Resolve(id), stream.Cols())
		if err != nil {
			return featio.Matrix{}, CropReport{}, err
		}
		if report.MinFrames < 0 || m.Rows < report.MinFrames {
			report.MinFrames = m.Rows
		}
		if m.Rows > report.MaxFrames {
			report.MaxFrames = m.Rows
		}
		parts = append(parts, m)
	}

	drift := report.MaxFrames - report.MinFrames
	if r.opts.MaxDrift != UnboundedDrift && drift > r.opts.MaxDrift {
		return featio.Matrix{}, report, faults.Wrap(
			faults.ErrFrameDrift, "reader", "crop",
			fmt.Sprintf("%s: streams differ by %d frames (%d..%d), tolerance %d", id, drift, report.MinFrames, report.MaxFrames, r.opts.MaxDrift),
			nil,
		)
	}

	for i := range parts {
		report.CroppedFrames += parts[i].Rows - report.MinFrames
		parts[i] = parts[i].CropRows(report.MinFrames)
	}
	fused, err := featio.HStack(parts...)
	if err != nil {
		return featio.Matrix{}, report, faults.Wrap(faults.ErrShapeMismatch, "reader", "concatenate", id, err)
	}

	r.summary.Utterances++
	if report.Cropped() {
		r.summary.CroppedUtterances++
		r.summary.DroppedFrames += report.CroppedFrames
		if drift > r.summary.MaxDrift {
			r.summary.MaxDrift = drift
		}
	}
	return fused, report, nil
}

// Summary returns the running crop totals.
func (r *Reader) Summary() Summary { return r.summary }
