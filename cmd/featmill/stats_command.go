package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"featmill/internal/stats"
)

type statRow struct {
	Dim    int     `json:"dim"`
	Stream string  `json:"stream"`
	Block  string  `json:"block"`
	Min    float32 `json:"min"`
	Max    float32 `json:"max"`
	Mean   float32 `json:"mean"`
	Std    float32 `json:"std"`
	Kept   bool    `json:"kept"`
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var zeroOnly bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats <job>",
		Short: "Show the corpus statistics of a composed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			job, err := loadJob(cfg, args[0])
			if err != nil {
				return err
			}
			dir := job.Output.Dir()
			s, err := stats.Load(dir)
			if err != nil {
				return fmt.Errorf("load %s statistics (run `featmill compose %s` first): %w", job.Name, job.Name, err)
			}
			keep, err := stats.LoadKeepIndex(dir)
			if err != nil {
				return err
			}
			kept := make(map[int]bool, s.Dims())
			if keep == nil {
				keep = s.KeepIndex(false)
			}
			for _, d := range keep {
				kept[d] = true
			}

			rows := make([]statRow, 0, s.Dims())
			zero := 0
			for d := 0; d < s.Dims(); d++ {
				degenerate := s.Max[d] == s.Min[d]
				if degenerate {
					zero++
				}
				if zeroOnly && !degenerate {
					continue
				}
				stream, block := dimLabel(job, d)
				rows = append(rows, statRow{
					Dim: d, Stream: stream, Block: block,
					Min: s.Min[d], Max: s.Max[d], Mean: s.Mean[d], Std: s.Std[d],
					Kept: kept[d],
				})
			}

			if jsonOut {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.Itoa(r.Dim), r.Stream, r.Block,
					formatStat(r.Min), formatStat(r.Max), formatStat(r.Mean), formatStat(r.Std),
					yesNo(r.Kept),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Dim", "Stream", "Block", "Min", "Max", "Mean", "Std", "Kept"},
				table,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%s: %d dimensions (%s), %d zero-variance, %d kept\n", job.Name, s.Dims(), job.Layout(), zero, len(keep))
			return nil
		},
	}
	cmd.Flags().BoolVar(&zeroOnly, "zero-only", false, "List only zero-variance dimensions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the statistics as JSON")
	return cmd
}

func formatStat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}
