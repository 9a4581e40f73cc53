package weights

import (
	"context"
	"fmt"
	"log/slog"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/logging"
	"featmill/internal/pathspec"
	"featmill/internal/reader"
)

// Generator produces the weight vector of one utterance.
type Generator interface {
	Name() string
	Weights(id string) ([]float32, error)
}

// Options tunes Generate.
type Options struct {
	// Reference, when set, names the composed matrices whose frame counts the
	// weights must follow.
	Reference     pathspec.Descriptor
	ReferenceCols int
	// MaxDrift bounds the frame difference against Reference; reader.UnboundedDrift
	// disables the check.
	MaxDrift    int
	Logger      *slog.Logger
	OnUtterance func(done int, id string)
}

// Summary totals a weight generation run.
type Summary struct {
	Utterances int
	Frames     int
	Zeroed     int
	Adjusted   int
}

// Generate writes one (-1,1) float32 weight file per utterance to output.
func Generate(ctx context.Context, gen Generator, ids []string, output pathspec.Descriptor, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "weights")
	logger.Info("weight generation started",
		logging.String(logging.FieldEventType, "weights_start"),
		logging.String("generator", gen.Name()),
		logging.Int("utterances", len(ids)),
		logging.String("output", output.Template()),
	)

	var summary Summary
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		w, err := gen.Weights(id)
		if err != nil {
			return summary, err
		}
		if !opts.Reference.IsZero() {
			ref, err := featio.ReadMatrix(opts.Reference.Resolve(id), opts.ReferenceCols)
			if err != nil {
				return summary, err
			}
			adjusted, err := fitLength(w, ref.Rows, opts.MaxDrift)
			if err != nil {
				return summary, faults.Wrap(faults.ErrFrameDrift, "weights", "align to reference", id, err)
			}
			if len(adjusted) != len(w) {
				summary.Adjusted++
			}
			w = adjusted
		}
		if err := featio.WriteVector(output.Resolve(id), w); err != nil {
			return summary, err
		}
		summary.Utterances++
		summary.Frames += len(w)
		for _, v := range w {
			if v == 0 {
				summary.Zeroed++
			}
		}
		logger.Debug("weights written", logging.String(logging.FieldUtterance, id), logging.Int("frames", len(w)))
		if opts.OnUtterance != nil {
			opts.OnUtterance(i+1, id)
		}
	}
	logger.Info("weight generation finished",
		logging.String(logging.FieldEventType, "weights_complete"),
		logging.Int("utterances", summary.Utterances),
		logging.Int("frames", summary.Frames),
		logging.Int("zeroed_frames", summary.Zeroed),
		logging.Int("adjusted_utterances", summary.Adjusted),
	)
	return summary, nil
}

// fitLength crops w to n frames, or extends it by repeating its last value
// when it is short by no more than maxDrift frames.
func fitLength(w []float32, n, maxDrift int) ([]float32, error) {
	diff := len(w) - n
	if diff < 0 {
		diff = -diff
	}
	if maxDrift != reader.UnboundedDrift && diff > maxDrift {
		return nil, fmt.Errorf("weights have %d frames, reference has %d (tolerance %d)", len(w), n, maxDrift)
	}
	if len(w) >= n {
		return w[:n], nil
	}
	out := make([]float32, n)
	copy(out, w)
	var last float32 = 1
	if len(w) > 0 {
		last = w[len(w)-1]
	}
	for i := len(w); i < n; i++ {
		out[i] = last
	}
	return out, nil
}
