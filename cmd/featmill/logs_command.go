package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"featmill/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var runFlag string
	var jobFlag string
	var levelFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(fileFlag)
			if path == "" {
				if path, err = logs.Latest(cfg.Paths.LogDir); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			return logs.Tail(cmd.Context(), path, logs.TailOptions{
				Lines:  lines,
				Follow: follow,
				Filter: logs.Filter{
					RunID: strings.TrimSpace(runFlag),
					Job:   strings.TrimSpace(jobFlag),
					Level: logs.ParseLevel(levelFlag),
				},
			}, func(e logs.Entry) {
				if raw {
					fmt.Fprintln(out, e.Raw)
					return
				}
				fmt.Fprintln(out, logs.Format(e))
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing records as they are appended")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON records unchanged")
	cmd.Flags().StringVar(&runFlag, "run", "", "Only records of this run id (prefix)")
	cmd.Flags().StringVar(&jobFlag, "job", "", "Only records of this compose job")
	cmd.Flags().StringVar(&levelFlag, "level", "info", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&fileFlag, "file", "", "Log file to read (default: newest in log_dir)")
	return cmd
}
