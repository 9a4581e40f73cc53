package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"featmill/internal/config"
	"featmill/internal/ledger"
	"featmill/internal/publish"
)

// newPublishAPI builds the S3 client. Tests replace it with a fake.
var newPublishAPI = func(ctx context.Context, cfg publish.Config) (publish.API, error) {
	return publish.NewClient(ctx, cfg)
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "publish <job>",
		Short: "Upload the statistics and normalization parameters of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.PublishEnabled() {
				return fmt.Errorf("publish.bucket is not configured")
			}
			job, err := loadJob(cfg, args[0])
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			api, err := newPublishAPI(cmd.Context(), publishConfig(cfg))
			if err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			publisher := publish.New(api, cfg.Publish.Bucket, cfg.Publish.Prefix, logger)
			if !skipCheck {
				if err := publisher.Check(cmd.Context()); err != nil {
					return err
				}
			}

			var report publish.Report
			var runID string
			err = ctx.withLedger(func(store *ledger.Store) error {
				var runErr error
				runID, runErr = recordRun(cmd.Context(), store, job.Name, ledger.KindPublish, func(string) (ledger.Totals, error) {
					var err error
					report, err = publisher.Publish(cmd.Context(), job.Name, job.Output.Dir(), job.Strategy.Kind())
					return ledger.Totals{}, err
				})
				return runErr
			})
			if err != nil {
				return fmt.Errorf("publish %s: %w", job.Name, err)
			}

			fields := []field{
				{"job", job.Name},
				{"run", runID},
				{"bucket", cfg.Publish.Bucket},
				{"objects", strconv.Itoa(len(report.Keys))},
				{"uploaded", formatByteCount(report.Bytes)},
			}
			if len(report.Skipped) > 0 {
				fields = append(fields, field{"skipped", strings.Join(report.Skipped, ", ")})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields(fields))
			for _, key := range report.Keys {
				fmt.Fprintln(out, key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Do not verify bucket access before uploading")
	return cmd
}

func publishConfig(cfg *config.Config) publish.Config {
	return publish.Config{
		Bucket:          cfg.Publish.Bucket,
		Prefix:          cfg.Publish.Prefix,
		Region:          cfg.Publish.Region,
		Endpoint:        cfg.Publish.Endpoint,
		AccessKeyID:     cfg.Publish.AccessKeyID,
		SecretAccessKey: cfg.Publish.SecretAccessKey,
	}
}

func formatByteCount(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
