package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/app"
	"github.com/tturner/replaylab/internal/config"
)

type runFlags struct {
	experiment experimentFlags

	modes   string
	workers int

	outDir          string
	jsonOut         string
	csvOut          string
	runsJSONOut     string
	metricsTextfile string
	textOut         string

	logFile   string
	logFormat string
	logEvery  int
	quiet     bool
	verbose   bool
	debug     bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo experiment across defense modes",
		Long: `Run every selected defense mode the configured number of times and report
the mean and standard deviation of the legitimate acceptance rate and the
attack success rate per mode.

Parameters come from the defaults, then --config, then --preset, then any
flag given on the command line. Run r of every mode uses seed + r, so a fixed
--seed reproduces the whole experiment.`,
		Example: `  # Compare all four defenses on a lossy channel
  replaylab run --modes all --runs 200 --p-loss 0.1 --seed 42

  # Window defense under heavy reordering with inline attacks
  replaylab run --modes window --p-reorder 0.3 --attack-mode inline --window-size 8

  # Run a preset and keep the per-run records
  replaylab run --preset harsh --csv-out runs.csv --json-out report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return runExperiment(cmd, flags)
		},
	}

	flags.experiment.register(cmd)
	cmd.Flags().StringVar(&flags.modes, "modes", "all", "Comma-separated modes: no_def, rolling, window, challenge, or all")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Parallel runs (0 = one per CPU)")
	cmd.Flags().StringVar(&flags.outDir, "out-dir", "", "Write every artifact plus run.json and a config snapshot to this directory")
	cmd.Flags().StringVar(&flags.jsonOut, "json-out", "", "Write the experiment report as JSON")
	cmd.Flags().StringVar(&flags.csvOut, "csv-out", "", "Write one CSV row per run")
	cmd.Flags().StringVar(&flags.runsJSONOut, "runs-json-out", "", "Write one JSON object per run")
	cmd.Flags().StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics in textfile format")
	cmd.Flags().StringVar(&flags.textOut, "text-out", "", "Also write the text report to this file")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Log file path")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")
	cmd.Flags().IntVar(&flags.logEvery, "log-every", 1, "Print only every Nth log line to the console")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Enable verbose output")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug output (one line per run)")

	return cmd
}

func runExperiment(cmd *cobra.Command, flags *runFlags) error {
	changed := cmd.Flags().Changed
	experiment := flags.experiment.override(cmd)

	_, err := app.RunExperiment(cmd.Context(), app.RunOptions{
		ConfigPath: flags.experiment.configPath,
		Preset:     flags.experiment.preset,
		Override: func(cfg *config.Config) {
			experiment(cfg)
			if changed("modes") {
				cfg.Experiment.Modes = splitList(flags.modes)
			}
			if changed("workers") {
				cfg.Experiment.Workers = flags.workers
			}
			if changed("out-dir") {
				cfg.Output.Dir = flags.outDir
			}
			if changed("json-out") {
				cfg.Output.JSONFile = flags.jsonOut
			}
			if changed("csv-out") {
				cfg.Output.CSVFile = flags.csvOut
			}
			if changed("runs-json-out") {
				cfg.Output.RunsJSONFile = flags.runsJSONOut
			}
			if changed("metrics-textfile") {
				cfg.Output.MetricsTextfile = flags.metricsTextfile
			}
			if changed("text-out") {
				cfg.Output.TextFile = flags.textOut
			}
			if changed("log-file") {
				cfg.Logging.File = flags.logFile
			}
			if changed("log-format") {
				cfg.Logging.Format = flags.logFormat
			}
			if changed("log-every") {
				cfg.Logging.LogEvery = flags.logEvery
			}
		},
		Quiet:   flags.quiet,
		Verbose: flags.verbose,
		Debug:   flags.debug,
		Version: version,
		Commit:  commit,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	})
	return err
}
