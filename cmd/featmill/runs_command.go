package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"featmill/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Job,
						string(run.Kind),
						string(run.Status),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						formatRunDuration(run),
						strconv.Itoa(run.Totals.Utterances),
						strconv.Itoa(run.Totals.Frames),
						strconv.Itoa(run.Totals.Dims),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Job", "Kind", "Status", "Started", "Duration", "Utterances", "Frames", "Dims"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the runs as JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var showUtterances bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run by id or unique id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no run matches %q", args[0])
				}
				var utterances []ledger.UtteranceRecord
				if showUtterances || jsonOut {
					if utterances, err = store.Utterances(cmd.Context(), run.ID); err != nil {
						return err
					}
				}
				if jsonOut {
					return writeJSON(cmd, struct {
						*ledger.Run
						Utterances []ledger.UtteranceRecord `json:"utterances"`
					}{run, utterances})
				}

				out := cmd.OutOrStdout()
				fields := []field{
					{"id", run.ID},
					{"job", run.Job},
					{"kind", string(run.Kind)},
					{"status", string(run.Status)},
					{"started_at", run.StartedAt.Local().Format(time.RFC3339)},
					{"duration", formatRunDuration(run)},
					{"utterances", strconv.Itoa(run.Totals.Utterances)},
					{"frames", strconv.Itoa(run.Totals.Frames)},
					{"dims", strconv.Itoa(run.Totals.Dims)},
					{"zero_variance", strconv.Itoa(run.Totals.ZeroVariance)},
					{"cropped", strconv.Itoa(run.Totals.Cropped)},
				}
				if run.Status == ledger.StatusFailed {
					fields = append(fields, field{"error_kind", run.ErrorKind}, field{"error", run.ErrorMessage})
				}
				fmt.Fprintln(out, renderFields(fields))

				if showUtterances {
					rows := make([][]string, 0, len(utterances))
					for _, u := range utterances {
						rows = append(rows, []string{u.Utterance, string(u.Split), strconv.Itoa(u.Frames), yesNo(u.Cropped)})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Utterance", "Split", "Frames", "Cropped"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&showUtterances, "utterances", "u", false, "List the per-utterance records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRunDuration(run *ledger.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}
