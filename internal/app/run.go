package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tturner/replaylab/internal/artifact"
	"github.com/tturner/replaylab/internal/config"
	replayErrors "github.com/tturner/replaylab/internal/errors"
	"github.com/tturner/replaylab/internal/logging"
	"github.com/tturner/replaylab/internal/metrics"
	"github.com/tturner/replaylab/internal/progress"
	"github.com/tturner/replaylab/internal/report"
	"github.com/tturner/replaylab/internal/sim"
)

// RunOptions selects the experiment to run. The config is resolved as
// defaults, then ConfigPath, then Preset, then Override.
type RunOptions struct {
	ConfigPath string
	Preset     string
	// Override applies command line flags on top of the file.
	Override func(*config.Config)

	Quiet   bool
	Verbose bool
	Debug   bool

	Version string
	Commit  string

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// RunExperiment runs the Monte Carlo experiment described by opts, prints
// the text report and writes every configured artifact.
func RunExperiment(ctx context.Context, opts RunOptions) (*report.ExperimentReport, error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := ResolveConfig(opts.ConfigPath, opts.Preset, opts.Override)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, replayErrors.WrapConfigError(err, opts.ConfigPath)
	}
	switch {
	case opts.Debug:
		level = logging.LogLevelDebug
	case opts.Verbose:
		level = logging.LogLevelVerbose
	case opts.Quiet:
		level = logging.LogLevelError
	}

	logger, err := logging.NewLoggerWithOptions(level, cfg.Logging.File, cfg.Logging.Format, cfg.Logging.LogEvery)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	var commands []string
	if cfg.Traffic.CommandsFile != "" {
		commands, err = config.LoadCommandTrace(cfg.Traffic.CommandsFile)
		if err != nil {
			return nil, err
		}
		logger.Verbose("Loaded %d commands from %s", len(commands), cfg.Traffic.CommandsFile)
	}

	simCfg, err := cfg.SimulationConfig(commands)
	if err != nil {
		return nil, replayErrors.WrapConfigError(err, opts.ConfigPath)
	}
	modes, err := cfg.Modes()
	if err != nil {
		return nil, replayErrors.WrapConfigError(err, opts.ConfigPath)
	}

	seed := time.Now().UnixNano()
	if cfg.Experiment.Seed != nil {
		seed = *cfg.Experiment.Seed
	}
	runs := cfg.Experiment.Runs

	logger.LogStartup(modes, runs, simCfg, &seed, opts.ConfigPath)

	var bundle *artifact.OutputManager
	if cfg.Output.Dir != "" {
		bundle, err = artifact.NewOutputManager(cfg.Output.Dir)
		if err != nil {
			return nil, replayErrors.WrapOutputError(err, cfg.Output.Dir)
		}
		bundle.Bind(&cfg.Output)
		bundle.SetExperiment(opts.Version, opts.ConfigPath, opts.Preset, seed, modes, runs)
		if err := bundle.WriteConfig(cfg); err != nil {
			return nil, replayErrors.WrapOutputError(err, bundle.ConfigPath())
		}
		logger.Info("Writing artifacts to %s (run %s)", bundle.OutputDir(), bundle.RunID())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("Received interrupt signal, stopping after the running batch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	sink := metrics.NewSink()
	collector := metrics.NewCollector()

	bar := progress.NewProgressBar(int64(len(modes)*runs), "Simulating")
	bar.SetOutput(stderr)
	if opts.Quiet || runs == 0 {
		bar.Disable()
	}

	started := time.Now()
	stats, err := sim.RunManyExperiments(ctx, simCfg, modes, runs, sim.ExperimentOptions{
		Seed:     &seed,
		Workers:  cfg.Experiment.Workers,
		Progress: bar.Callback(),
		Observe: func(r sim.RunResult) {
			sink.RecordRun(r)
			collector.ObserveRun(r)
			logger.LogRun(r)
		},
	})
	bar.Finish()
	if err != nil {
		logger.Error("Experiment failed: %v", err)
		err = replayErrors.WrapSimulationError(err, modeList(modes))
		if bundle != nil {
			if ferr := bundle.Finalize(sink.GetSummary(), err); ferr != nil {
				logger.Error("Finalize %s: %v", bundle.RunJSONPath(), ferr)
			}
		}
		return nil, err
	}
	logger.Verbose("Finished %d runs in %s", len(modes)*runs, time.Since(started).Round(time.Millisecond))

	for _, s := range stats {
		logger.LogAggregate(s)
		collector.SetAggregate(s)
	}

	rep := &report.ExperimentReport{
		GeneratedAt:      report.Timestamp(time.Now()),
		ReplaylabVersion: opts.Version,
		ReplaylabCommit:  opts.Commit,
		ConfigPath:       opts.ConfigPath,
		Preset:           opts.Preset,
		Seed:             seed,
		RunsPerMode:      runs,
		Parameters:       report.ParametersFrom(simCfg),
		Modes:            report.BuildModes(stats, sink),
	}

	if err := writeArtifacts(cfg.Output, rep, sink, collector, logger); err != nil {
		return rep, err
	}

	if err := renderReport(stdout, cfg.Output.TextFile, rep); err != nil {
		return rep, err
	}

	if bundle != nil {
		if err := bundle.Finalize(sink.GetSummary(), nil); err != nil {
			return rep, replayErrors.WrapOutputError(err, bundle.RunJSONPath())
		}
	}

	return rep, nil
}

// ResolveConfig builds the effective config and validates it. An empty
// path starts from the defaults.
func ResolveConfig(path, preset string, override func(*config.Config)) (*config.Config, error) {
	cfg := config.CreateDefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path, false)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if preset != "" {
		if err := config.ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}
	if override != nil {
		override(cfg)
	}

	if err := config.Validate(cfg); err != nil {
		if path == "" {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		return nil, replayErrors.WrapConfigError(err, path)
	}
	return cfg, nil
}

func writeArtifacts(out config.OutputConfig, rep *report.ExperimentReport, sink *metrics.Sink, collector *metrics.Collector, logger *logging.Logger) error {
	if out.CSVFile != "" || out.RunsJSONFile != "" {
		path := out.CSVFile
		if path == "" {
			path = out.RunsJSONFile
		}
		writer, err := metrics.NewWriter(out.CSVFile, out.RunsJSONFile)
		if err != nil {
			return replayErrors.WrapOutputError(err, path)
		}
		for _, m := range sink.GetMetrics() {
			if err := writer.WriteMetric(m); err != nil {
				writer.Close()
				return replayErrors.WrapOutputError(err, path)
			}
		}
		if err := writer.Close(); err != nil {
			return replayErrors.WrapOutputError(err, path)
		}
		logger.Info("Wrote %d run records", len(sink.GetMetrics()))
	}

	if out.MetricsTextfile != "" {
		if err := collector.WriteTextfile(out.MetricsTextfile); err != nil {
			return replayErrors.WrapOutputError(err, out.MetricsTextfile)
		}
		logger.Info("Wrote Prometheus metrics to %s", out.MetricsTextfile)
	}

	if out.JSONFile != "" {
		if err := report.WriteJSONFile(out.JSONFile, rep); err != nil {
			return replayErrors.WrapOutputError(err, out.JSONFile)
		}
		logger.Info("Wrote experiment report to %s", out.JSONFile)
	}
	return nil
}

func renderReport(stdout io.Writer, textFile string, rep *report.ExperimentReport) error {
	if textFile == "" {
		return report.RenderText(stdout, rep)
	}

	f, err := os.Create(textFile)
	if err != nil {
		return replayErrors.WrapOutputError(fmt.Errorf("create text report: %w", err), textFile)
	}
	defer f.Close()

	if err := report.RenderText(logging.NewMultiWriter(stdout, f), rep); err != nil {
		return replayErrors.WrapOutputError(err, textFile)
	}
	return nil
}
