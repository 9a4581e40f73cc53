package normalize

import (
	"context"
	"log/slog"

	"featmill/internal/featio"
	"featmill/internal/logging"
	"featmill/internal/pathspec"
	"featmill/internal/stats"
)

// RunOptions configures a streaming normalization pass.
type RunOptions struct {
	Input pathspec.Descriptor
	// Output defaults to Input, rewriting files in place.
	Output pathspec.Descriptor
	IDs    []string
	Params Params
	Logger *slog.Logger
	// OnUtterance is called after each utterance is written.
	OnUtterance func(done int, id string)
}

// Run normalizes every utterance one at a time. Each output file is replaced
// atomically, so an interrupted run leaves whole files that a re-run
// overwrites.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "normalize")
	output := opts.Output
	if output.IsZero() {
		output = opts.Input
	}

	logger.Info("normalization started",
		logging.String(logging.FieldEventType, "normalize_start"),
		logging.String("strategy", string(opts.Params.Kind)),
		logging.Int("utterances", len(opts.IDs)),
		logging.Int("input_dims", opts.Params.Dims),
		logging.Int("output_dims", opts.Params.Width()),
		logging.String("output", output.Template()),
	)
	for i, id := range opts.IDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := featio.ReadMatrix(opts.Input.Resolve(id), opts.Params.Dims)
		if err != nil {
			return err
		}
		normed, err := opts.Params.Apply(m)
		if err != nil {
			return err
		}
		if err := featio.WriteMatrix(output.Resolve(id), normed); err != nil {
			return err
		}
		logger.Debug("utterance normalized", logging.String(logging.FieldUtterance, id), logging.Int("frames", m.Rows))
		if opts.OnUtterance != nil {
			opts.OnUtterance(i+1, id)
		}
	}
	logger.Info("normalization finished",
		logging.String(logging.FieldEventType, "normalize_complete"),
		logging.Int("utterances", len(opts.IDs)),
	)
	return nil
}

// Verify recomputes statistics over the normalized training utterances with
// the same two-pass accumulator used during composition.
func Verify(ctx context.Context, desc pathspec.Descriptor, training []string, cols int) (stats.CorpusStatistics, error) {
	acc := stats.NewAccumulator(len(training))
	for _, id := range training {
		if err := ctx.Err(); err != nil {
			return stats.CorpusStatistics{}, err
		}
		m, err := featio.ReadMatrix(desc.Resolve(id), cols)
		if err != nil {
			return stats.CorpusStatistics{}, err
		}
		if err := acc.AddMoments(m); err != nil {
			return stats.CorpusStatistics{}, err
		}
	}
	if err := acc.FinalizeMoments(); err != nil {
		return stats.CorpusStatistics{}, err
	}
	for _, id := range training {
		if err := ctx.Err(); err != nil {
			return stats.CorpusStatistics{}, err
		}
		m, err := featio.ReadMatrix(desc.Resolve(id), cols)
		if err != nil {
			return stats.CorpusStatistics{}, err
		}
		if err := acc.AddVariance(m); err != nil {
			return stats.CorpusStatistics{}, err
		}
	}
	return acc.Finalize()
}
