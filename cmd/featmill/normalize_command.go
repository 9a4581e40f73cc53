package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"featmill/internal/corpus"
	"featmill/internal/ledger"
	"featmill/internal/logging"
	"featmill/internal/normalize"
	"featmill/internal/pathspec"
)

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var inputFlag string
	var outputFlag string
	var idsFlag string

	cmd := &cobra.Command{
		Use:   "normalize <job>",
		Short: "Apply the persisted normalization of a composed job to other features",
		Long: "Normalize reads the parameters a previous compose run of <job> saved next to its\n" +
			"output (and its keep-index, when present) and applies them to the files matched\n" +
			"by --input. Files are rewritten in place unless --output is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			job, err := loadJob(cfg, args[0])
			if err != nil {
				return err
			}
			params, err := normalize.LoadParams(job.Output.Dir(), job.Strategy)
			if err != nil {
				return fmt.Errorf("load %s parameters: %w", job.Name, err)
			}

			input, err := pathspec.Parse(strings.TrimSpace(inputFlag))
			if err != nil {
				return fmt.Errorf("--input: %w", err)
			}
			var output pathspec.Descriptor
			if strings.TrimSpace(outputFlag) != "" {
				if output, err = pathspec.Parse(outputFlag); err != nil {
					return fmt.Errorf("--output: %w", err)
				}
			}
			ids, err := normalizeIDs(ctx, idsFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var runID string
			err = ctx.withLedger(func(store *ledger.Store) error {
				reporter := ctx.progress(cmd.ErrOrStderr())
				defer reporter.Wait()
				runID, err = recordRun(cmd.Context(), store, job.Name, ledger.KindNormalize, func(id string) (ledger.Totals, error) {
					tracker := reporter.Start(job.Name+" normalize", len(ids))
					defer tracker.Finish()
					runLogger := logging.WithContext(logging.WithRunID(logging.WithJob(cmd.Context(), job.Name), id), logger)
					err := normalize.Run(cmd.Context(), normalize.RunOptions{
						Input:       input,
						Output:      output,
						IDs:         ids,
						Params:      params,
						Logger:      runLogger,
						OnUtterance: tracker.Step,
					})
					return ledger.Totals{Utterances: len(ids), Dims: params.Width()}, err
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("normalize %s: %w", job.Name, err)
			}

			target := output
			if target.IsZero() {
				target = input
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields([]field{
				{"job", job.Name},
				{"run", runID},
				{"normalization", string(params.Kind)},
				{"utterances", strconv.Itoa(len(ids))},
				{"dimensions", fmt.Sprintf("%d read, %d written", params.Dims, params.Width())},
				{"output", target.Template()},
			}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Descriptor of the features to normalize (required)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Descriptor to write to (default: rewrite --input in place)")
	cmd.Flags().StringVar(&idsFlag, "ids", "", "Utterance id list (default: corpus.file_ids)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func normalizeIDs(ctx *commandContext, idsPath string) ([]string, error) {
	if strings.TrimSpace(idsPath) != "" {
		return corpus.LoadIDs(strings.TrimSpace(idsPath))
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return corpus.LoadIDs(cfg.Corpus.FileIDs)
}
