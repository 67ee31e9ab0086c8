package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/config"
)

// experimentFlags are the simulation parameters shared by run and trace.
// Only flags set on the command line override the config file.
type experimentFlags struct {
	configPath string
	preset     string

	runs       int
	seed       int64
	numLegit   int
	numReplay  int
	pLoss      float64
	pReorder   float64
	windowSize int
	macLength  int

	attackMode       string
	attackerLoss     float64
	inlineAttackProb float64
	inlineBurst      int
	targetCommands   string
	commandsFile     string
}

func (f *experimentFlags) register(cmd *cobra.Command) {
	def := config.CreateDefaultConfig()
	fs := cmd.Flags()

	fs.StringVar(&f.configPath, "config", "", "Experiment config file (.yaml or .lua)")
	fs.StringVar(&f.preset, "preset", "", "Scenario preset (baseline, harsh, packet_loss, quick, reorder)")

	fs.IntVar(&f.runs, "runs", def.Experiment.Runs, "Monte Carlo runs per mode")
	fs.Int64Var(&f.seed, "seed", 0, "Base seed; run r uses seed+r (default: clock)")
	fs.IntVar(&f.numLegit, "num-legit", def.Traffic.NumLegit, "Legitimate frames per run")
	fs.IntVar(&f.numReplay, "num-replay", def.Traffic.NumReplay, "Replay attempts per run")
	fs.Float64Var(&f.pLoss, "p-loss", def.Channel.PLoss, "Channel loss probability")
	fs.Float64Var(&f.pReorder, "p-reorder", def.Channel.PReorder, "Channel reorder probability")
	fs.IntVar(&f.windowSize, "window-size", def.Protocol.WindowSize, "Acceptance window for window mode")
	fs.IntVar(&f.macLength, "mac-length", def.Protocol.MACLength, "MAC length in hex characters (0 = full digest)")

	fs.StringVar(&f.attackMode, "attack-mode", def.Attacker.Timing, "Attack timing: post or inline")
	fs.Float64Var(&f.attackerLoss, "attacker-loss", def.Attacker.RecordLoss, "Probability the attacker misses a frame")
	fs.Float64Var(&f.inlineAttackProb, "inline-attack-prob", def.Attacker.InlineProbability, "Inline timing: burst probability after each legitimate frame")
	fs.IntVar(&f.inlineBurst, "inline-burst", def.Attacker.InlineBurst, "Inline timing: largest burst")
	fs.StringVar(&f.targetCommands, "target-commands", "", "Comma-separated commands the attacker replays (default: all)")
	fs.StringVar(&f.commandsFile, "commands-file", "", "Command trace, one command per line")
}

// override returns the config mutation for every flag set on cmd.
func (f *experimentFlags) override(cmd *cobra.Command) func(*config.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		if changed("runs") {
			cfg.Experiment.Runs = f.runs
		}
		if changed("seed") {
			seed := f.seed
			cfg.Experiment.Seed = &seed
		}
		if changed("num-legit") {
			cfg.Traffic.NumLegit = f.numLegit
		}
		if changed("num-replay") {
			cfg.Traffic.NumReplay = f.numReplay
		}
		if changed("p-loss") {
			cfg.Channel.PLoss = f.pLoss
		}
		if changed("p-reorder") {
			cfg.Channel.PReorder = f.pReorder
		}
		if changed("window-size") {
			cfg.Protocol.WindowSize = f.windowSize
		}
		if changed("mac-length") {
			cfg.Protocol.MACLength = f.macLength
		}
		if changed("attack-mode") {
			cfg.Attacker.Timing = f.attackMode
		}
		if changed("attacker-loss") {
			cfg.Attacker.RecordLoss = f.attackerLoss
		}
		if changed("inline-attack-prob") {
			cfg.Attacker.InlineProbability = f.inlineAttackProb
		}
		if changed("inline-burst") {
			cfg.Attacker.InlineBurst = f.inlineBurst
		}
		if changed("target-commands") {
			cfg.Attacker.TargetCommands = splitList(f.targetCommands)
		}
		if changed("commands-file") {
			cfg.Traffic.CommandsFile = f.commandsFile
		}
	}
}
