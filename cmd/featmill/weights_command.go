package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"featmill/internal/config"
	"featmill/internal/corpus"
	"featmill/internal/ledger"
	"featmill/internal/logging"
	"featmill/internal/pathspec"
	"featmill/internal/preflight"
	"featmill/internal/weights"
)

func newWeightsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Generate per-frame training weights",
		Long: "Weights writes one weight per frame for every utterance, using either the\n" +
			"peak-relative energy of a spectral stream or the silence segments of the\n" +
			"alignment labels, as selected by weights.method.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			gen, inputs, err := buildGenerator(cfg)
			if err != nil {
				return err
			}
			output, err := pathspec.Parse(cfg.Weights.Output)
			if err != nil {
				return fmt.Errorf("weights.output: %w", err)
			}
			if err := preflight.Failures(preflight.ForJob("weights", inputs, output)); err != nil {
				return err
			}
			ids, err := corpus.LoadIDs(cfg.Corpus.FileIDs)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts := weights.Options{MaxDrift: cfg.Weights.MaxFrameDrift}
			if cfg.Weights.Reference != "" {
				ref, err := loadJob(cfg, cfg.Weights.Reference)
				if err != nil {
					return err
				}
				if opts.ReferenceCols, err = outputWidth(ref); err != nil {
					return err
				}
				opts.Reference = ref.Output
			}

			var summary weights.Summary
			var runID string
			err = ctx.withLedger(func(store *ledger.Store) error {
				reporter := ctx.progress(cmd.ErrOrStderr())
				defer reporter.Wait()
				var runErr error
				runID, runErr = recordRun(cmd.Context(), store, "weights", ledger.KindWeights, func(id string) (ledger.Totals, error) {
					tracker := reporter.Start("weights", len(ids))
					defer tracker.Finish()
					opts.Logger = logging.WithContext(logging.WithRunID(cmd.Context(), id), logger)
					opts.OnUtterance = tracker.Step
					var err error
					summary, err = weights.Generate(cmd.Context(), gen, ids, output, opts)
					return ledger.Totals{Utterances: summary.Utterances, Frames: summary.Frames, Dims: 1, Cropped: summary.Adjusted}, err
				})
				return runErr
			})
			if err != nil {
				return fmt.Errorf("weights: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderFields([]field{
				{"method", gen.Name()},
				{"run", runID},
				{"utterances", strconv.Itoa(summary.Utterances)},
				{"frames", strconv.Itoa(summary.Frames)},
				{"zeroed_frames", strconv.Itoa(summary.Zeroed)},
				{"adjusted_utterances", strconv.Itoa(summary.Adjusted)},
				{"output", output.Template()},
			}))
			return nil
		},
	}
}

// buildGenerator returns the configured generator and the streams it reads.
func buildGenerator(cfg *config.Config) (weights.Generator, []pathspec.Descriptor, error) {
	switch cfg.Weights.Method {
	case "energy":
		input, err := pathspec.Parse(cfg.Weights.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("weights.input: %w", err)
		}
		spectrum, err := weights.ParseSpectrum(cfg.Weights.Spectrum)
		if err != nil {
			return nil, nil, err
		}
		return weights.Energy{Input: input, Spectrum: spectrum, ThresholdDB: cfg.Weights.ThresholdDB},
			[]pathspec.Descriptor{input}, nil
	case "alignment":
		labels, err := pathspec.Parse(cfg.Weights.Labels)
		if err != nil {
			return nil, nil, fmt.Errorf("weights.labels: %w", err)
		}
		gen, err := weights.NewAlignment(labels, cfg.Weights.LabelPattern, cfg.Weights.PhoneGroup, cfg.Weights.Silence, cfg.Corpus.Shift)
		if err != nil {
			return nil, nil, err
		}
		return gen, []pathspec.Descriptor{labels}, nil
	default:
		return nil, nil, fmt.Errorf("weights.method is not set; choose energy or alignment")
	}
}
