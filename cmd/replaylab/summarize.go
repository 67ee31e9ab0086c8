package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/app"
)

type summarizeFlags struct {
	inputFile string
}

func newSummarizeCmd() *cobra.Command {
	flags := &summarizeFlags{}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the output of a previous run",
		Long: `Reads the per-run CSV (--csv-out) or the JSON report (--json-out) of a
previous replaylab run and prints its summary statistics again.

If --input is omitted, the first positional argument is used.`,
		Example: `  # Recompute per-mode statistics from the run records
  replaylab summarize --input runs.csv

  # Render a saved report
  replaylab summarize report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.inputFile == "" && len(args) > 0 {
				flags.inputFile = args[0]
			}
			if flags.inputFile == "" {
				return missingFlagError(cmd, "--input")
			}
			return app.Summarize(app.SummarizeOptions{
				InputFile: flags.inputFile,
				Stdout:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.inputFile, "input", "", "Run CSV or report JSON (required)")

	return cmd
}
