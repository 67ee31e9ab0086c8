package app

import (
	"fmt"
	"io"
	"os"

	"github.com/tturner/replaylab/internal/config"
	replayErrors "github.com/tturner/replaylab/internal/errors"
)

// InitConfig writes the default experiment config to path. An existing
// file is only replaced with force.
func InitConfig(path string, force bool, stdout io.Writer) error {
	if stdout == nil {
		stdout = os.Stdout
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return replayErrors.WrapOutputError(err, path)
	}
	fmt.Fprintf(stdout, "Created default config file: %s\n", path)
	fmt.Fprintf(stdout, "Run it with: replaylab run --config %s\n", path)
	return nil
}

// ValidateConfig loads and validates a config file and prints what it
// would run.
func ValidateConfig(path string, stdout io.Writer) error {
	if stdout == nil {
		stdout = os.Stdout
	}
	cfg, err := config.LoadConfig(path, false)
	if err != nil {
		return err
	}
	modes, err := cfg.Modes()
	if err != nil {
		return replayErrors.WrapConfigError(err, path)
	}
	if cfg.Traffic.CommandsFile != "" {
		commands, err := config.LoadCommandTrace(cfg.Traffic.CommandsFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Command trace: %s (%d commands)\n", cfg.Traffic.CommandsFile, len(commands))
	}

	fmt.Fprintf(stdout, "Config OK: %s\n", path)
	fmt.Fprintf(stdout, "  Modes: %s\n", modeList(modes))
	fmt.Fprintf(stdout, "  Runs per mode: %d\n", cfg.Experiment.Runs)
	fmt.Fprintf(stdout, "  Traffic: %d legit, %d replay (%s)\n", cfg.Traffic.NumLegit, cfg.Traffic.NumReplay, cfg.Attacker.Timing)
	fmt.Fprintf(stdout, "  Channel: p_loss=%.3f p_reorder=%.3f\n", cfg.Channel.PLoss, cfg.Channel.PReorder)
	return nil
}
