package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/app"
)

type traceFlags struct {
	experiment experimentFlags

	mode  string
	limit int
	debug bool
}

func newTraceCmd() *cobra.Command {
	flags := &traceFlags{}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show every frame verdict of a single run",
		Long: `Simulate one run of a single defense mode and print each frame the
receiver saw, in delivery order, with the verdict it got. Accepted replays
and rejected legitimate frames are highlighted.`,
		Example: `  # Watch replays bounce off the window defense
  replaylab trace --mode window --num-legit 10 --num-replay 5 --seed 7

  # Inline attacks on a reordering channel, first 40 deliveries
  replaylab trace --mode rolling --attack-mode inline --p-reorder 0.3 --limit 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.mode == "" {
				return missingFlagError(cmd, "--mode")
			}

			opts := app.TraceOptions{
				ConfigPath: flags.experiment.configPath,
				Preset:     flags.experiment.preset,
				Override:   flags.experiment.override(cmd),
				Mode:       flags.mode,
				Limit:      flags.limit,
				Debug:      flags.debug,
				Stdout:     cmd.OutOrStdout(),
			}
			if cmd.Flags().Changed("seed") {
				seed := flags.experiment.seed
				opts.Seed = &seed
			}
			_, err := app.RunTrace(opts)
			return err
		},
	}

	flags.experiment.register(cmd)
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Defense mode to trace: no_def, rolling, window, challenge (required)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Show at most this many deliveries (0 = all)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Also log every delivery")

	return cmd
}
