package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"featmill/internal/featio"
	"featmill/internal/normalize"
)

func newDenormCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "denorm <job> <input> <output>",
		Short: "Map a normalized feature file back to the feature domain",
		Long: "Denorm reads a raw float32 file normalized with the parameters of <job>, such\n" +
			"as a model prediction, and writes its de-normalized values to <output>.",
		Args: cobra.ExactArgs(3),
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
			in, err := featio.ReadMatrix(args[1], params.Width())
			if err != nil {
				return err
			}
			out, err := normalize.Denormalize(in, params)
			if err != nil {
				return err
			}
			if err := featio.WriteMatrix(args[2], out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d frames x %d dims to %s\n", out.Rows, out.Cols, args[2])
			return nil
		},
	}
}
