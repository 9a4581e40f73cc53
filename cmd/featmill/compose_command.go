package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"featmill/internal/compose"
	"featmill/internal/ledger"
)

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "compose [job...]",
		Short: "Compose, analyze and normalize the configured feature corpora",
		Long: "Compose reads every utterance of the corpus, fuses its input streams, appends\n" +
			"the window features, accumulates statistics over the training split and\n" +
			"normalizes the result in place. Without arguments every configured job runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			specs, err := selectJobs(cfg, args)
			if err != nil {
				return err
			}
			jobs := make([]compose.Job, 0, len(specs))
			for _, spec := range specs {
				job, err := buildJob(spec)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
			}
			set, err := ctx.loadCorpus()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var summaries []compose.Summary
			err = ctx.withLedger(func(store *ledger.Store) error {
				reporter := ctx.progress(cmd.ErrOrStderr())
				defer reporter.Wait()
				for _, job := range jobs {
					summary, err := compose.Run(cmd.Context(), job, set, compose.Deps{
						Logger:   logger,
						Ledger:   store,
						Progress: reporter,
						Shift:    cfg.Corpus.Shift,
					})
					if err != nil {
						return fmt.Errorf("compose %s: %w", job.Name, err)
					}
					summaries = append(summaries, summary)
				}
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			for _, summary := range summaries {
				fmt.Fprintln(out, renderFields(summaryFields(summary)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run summaries as JSON")
	return cmd
}

func summaryFields(s compose.Summary) []field {
	fields := []field{
		{"job", s.Job},
		{"run", s.RunID},
		{"layout", s.Layout},
		{"utterances", fmt.Sprintf("%d (%d training, %d held out)", s.Utterances, s.TrainingUtterances, s.HeldOutUtterances)},
		{"training_frames", strconv.Itoa(s.TrainingFrames)},
		{"training_duration", s.TrainingDuration.String()},
		{"dimensions", fmt.Sprintf("%d composed, %d written", s.ComposedDims, s.OutputDims)},
		{"zero_variance", formatDims(s.ZeroVariance)},
		{"cropped_utterances", fmt.Sprintf("%d (%d frames dropped, max drift %d)", s.Crop.CroppedUtterances, s.Crop.DroppedFrames, s.Crop.MaxDrift)},
		{"normalization", string(s.Strategy)},
	}
	if s.Check != nil {
		maxMean, minStd, maxStd := compose.CheckRanges(*s.Check)
		fields = append(fields, field{"final_check", fmt.Sprintf("max |mean| %.4g, std %.4g..%.4g", maxMean, minStd, maxStd)})
	}
	return fields
}

func formatDims(dims []int) string {
	if len(dims) == 0 {
		return "none"
	}
	const shown = 12
	parts := make([]string, 0, shown+1)
	for i, d := range dims {
		if i == shown {
			parts = append(parts, fmt.Sprintf("+%d more", len(dims)-shown))
			break
		}
		parts = append(parts, strconv.Itoa(d))
	}
	return fmt.Sprintf("%d: %s", len(dims), strings.Join(parts, ", "))
}
