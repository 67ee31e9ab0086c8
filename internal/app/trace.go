package app

import (
	"fmt"
	"io"
	"os"

	"github.com/tturner/replaylab/internal/config"
	replayErrors "github.com/tturner/replaylab/internal/errors"
	"github.com/tturner/replaylab/internal/logging"
	"github.com/tturner/replaylab/internal/report"
	"github.com/tturner/replaylab/internal/sim"
)

// TraceOptions selects the single run to trace.
type TraceOptions struct {
	ConfigPath string
	Preset     string
	Override   func(*config.Config)

	Mode  string
	Seed  *int64
	Limit int
	Debug bool

	Stdout io.Writer
}

// RunTrace simulates one run of a single mode and prints every delivery
// the receiver saw with its verdict.
func RunTrace(opts TraceOptions) (sim.RunResult, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	mode, err := config.ParseMode(opts.Mode)
	if err != nil {
		return sim.RunResult{}, err
	}

	// Only the traced mode is validated; the file's mode list does not run.
	cfg, err := ResolveConfig(opts.ConfigPath, opts.Preset, func(cfg *config.Config) {
		if opts.Override != nil {
			opts.Override(cfg)
		}
		cfg.Experiment.Modes = []string{string(mode)}
	})
	if err != nil {
		return sim.RunResult{}, err
	}

	level := logging.LogLevelError
	if opts.Debug {
		level = logging.LogLevelDebug
	}
	logger, err := logging.NewLoggerWithOptions(level, cfg.Logging.File, cfg.Logging.Format, 1)
	if err != nil {
		return sim.RunResult{}, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	var commands []string
	if cfg.Traffic.CommandsFile != "" {
		commands, err = config.LoadCommandTrace(cfg.Traffic.CommandsFile)
		if err != nil {
			return sim.RunResult{}, err
		}
	}

	simCfg, err := cfg.SimulationConfig(commands)
	if err != nil {
		return sim.RunResult{}, err
	}
	simCfg = simCfg.WithMode(mode)
	if opts.Seed != nil {
		simCfg = simCfg.WithSeed(*opts.Seed)
	}

	var deliveries []sim.Delivery
	result, err := sim.SimulateOneRunObserved(simCfg, func(d sim.Delivery) {
		deliveries = append(deliveries, d)
		logger.LogDelivery(d)
	})
	if err != nil {
		return sim.RunResult{}, replayErrors.WrapSimulationError(err, string(mode))
	}

	if err := report.RenderTrace(stdout, deliveries, result, opts.Limit); err != nil {
		return result, fmt.Errorf("render trace: %w", err)
	}
	return result, nil
}
