package config

// Configuration loading and validation for replaylab experiments

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tturner/replaylab/internal/errors"
	"github.com/tturner/replaylab/internal/sim"
)

// ExperimentConfig selects what is run and how often
type ExperimentConfig struct {
	Modes   []string `yaml:"modes"`
	Runs    int      `yaml:"runs"`
	Seed    *int64   `yaml:"seed,omitempty"`
	Workers int      `yaml:"workers,omitempty"` // 0 = one per CPU
}

// TrafficConfig describes the legitimate and replayed frame volume
type TrafficConfig struct {
	NumLegit     int      `yaml:"num_legit"`
	NumReplay    int      `yaml:"num_replay"`
	Commands     []string `yaml:"commands,omitempty"`
	CommandsFile string   `yaml:"commands_file,omitempty"`
}

// ChannelConfig describes the lossy link between sender and receiver
type ChannelConfig struct {
	PLoss    float64 `yaml:"p_loss"`
	PReorder float64 `yaml:"p_reorder"`
}

// AttackerConfig describes the eavesdropper
type AttackerConfig struct {
	Timing            string   `yaml:"timing"` // "post" or "inline"
	RecordLoss        float64  `yaml:"record_loss"`
	InlineProbability float64  `yaml:"inline_probability"`
	InlineBurst       int      `yaml:"inline_burst"`
	TargetCommands    []string `yaml:"target_commands,omitempty"`
}

// ProtocolConfig holds the shared protocol parameters
type ProtocolConfig struct {
	WindowSize int    `yaml:"window_size"`
	SharedKey  string `yaml:"shared_key"`
	MACLength  int    `yaml:"mac_length"` // hex chars, 0 = full digest
	NonceBits  int    `yaml:"nonce_bits"`
}

// OutputConfig lists optional result artifacts
type OutputConfig struct {
	Dir             string `yaml:"dir,omitempty"`            // bundle directory, fills empty paths
	JSONFile        string `yaml:"json_file,omitempty"`      // experiment report
	CSVFile         string `yaml:"csv_file,omitempty"`       // one row per run
	RunsJSONFile    string `yaml:"runs_json_file,omitempty"` // one object per run
	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`
	TextFile        string `yaml:"text_file,omitempty"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file,omitempty"`
	Format   string `yaml:"format"`
	LogEvery int    `yaml:"log_every,omitempty"`
}

// Config represents a replay experiment
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Traffic    TrafficConfig    `yaml:"traffic"`
	Channel    ChannelConfig    `yaml:"channel"`
	Attacker   AttackerConfig   `yaml:"attacker"`
	Protocol   ProtocolConfig   `yaml:"protocol"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CreateDefaultConfig returns the stock experiment: every mode, 100 runs,
// an ideal channel and a perfect recorder
func CreateDefaultConfig() *Config {
	def := sim.DefaultSimulationConfig()
	modes := make([]string, len(sim.AllModes))
	for i, m := range sim.AllModes {
		modes[i] = string(m)
	}
	return &Config{
		Experiment: ExperimentConfig{
			Modes: modes,
			Runs:  100,
		},
		Traffic: TrafficConfig{
			NumLegit:  def.NumLegit,
			NumReplay: def.NumReplay,
		},
		Attacker: AttackerConfig{
			Timing:            string(def.AttackTiming),
			InlineProbability: def.InlineAttackProbability,
			InlineBurst:       def.InlineAttackBurst,
		},
		Protocol: ProtocolConfig{
			WindowSize: def.WindowSize,
			SharedKey:  def.SharedKey,
			MACLength:  def.MACLength,
			NonceBits:  def.NonceBits,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default config to path, as Lua when the
// path ends in .lua and YAML otherwise
func WriteDefaultConfig(path string) error {
	cfg := CreateDefaultConfig()

	var data []byte
	if isLuaPath(path) {
		var b strings.Builder
		if err := WriteLuaConfig(&b, cfg); err != nil {
			return err
		}
		data = []byte(b.String())
	} else {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}
		data = out
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfig loads and validates an experiment config. Keys missing from the
// file keep their default values. With autoCreate a missing file is created
// from the defaults first.
func LoadConfig(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}

	var cfg *Config
	if isLuaPath(path) {
		cfg, err = parseLua(path)
	} else {
		cfg, err = parseYAML(data)
	}
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("validate config: %w", err), path)
	}
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	cfg := CreateDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return cfg, nil
}

func isLuaPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lua")
}

// applyDefaults fills values that are invalid when left empty
func applyDefaults(cfg *Config) {
	if len(cfg.Experiment.Modes) == 0 {
		for _, m := range sim.AllModes {
			cfg.Experiment.Modes = append(cfg.Experiment.Modes, string(m))
		}
	}
	if cfg.Attacker.Timing == "" {
		cfg.Attacker.Timing = string(sim.AttackPostRun)
	}
	if cfg.Attacker.InlineBurst == 0 {
		cfg.Attacker.InlineBurst = 1
	}
	if cfg.Protocol.NonceBits == 0 {
		cfg.Protocol.NonceBits = 32
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks a config before any simulation runs
func Validate(cfg *Config) error {
	modes, err := ParseModes(cfg.Experiment.Modes)
	if err != nil {
		return err
	}
	if cfg.Experiment.Runs < 0 {
		return fmt.Errorf("experiment.runs must be >= 0, got %d", cfg.Experiment.Runs)
	}
	if cfg.Experiment.Workers < 0 {
		return fmt.Errorf("experiment.workers must be >= 0, got %d", cfg.Experiment.Workers)
	}

	if cfg.Traffic.NumLegit < 0 {
		return fmt.Errorf("traffic.num_legit must be >= 0, got %d", cfg.Traffic.NumLegit)
	}
	if cfg.Traffic.NumReplay < 0 {
		return fmt.Errorf("traffic.num_replay must be >= 0, got %d", cfg.Traffic.NumReplay)
	}
	for i, cmd := range cfg.Traffic.Commands {
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("traffic.commands[%d] is empty", i)
		}
	}

	probabilities := []struct {
		name  string
		value float64
	}{
		{"channel.p_loss", cfg.Channel.PLoss},
		{"channel.p_reorder", cfg.Channel.PReorder},
		{"attacker.record_loss", cfg.Attacker.RecordLoss},
		{"attacker.inline_probability", cfg.Attacker.InlineProbability},
	}
	for _, p := range probabilities {
		if err := validateProbability(p.name, p.value); err != nil {
			return err
		}
	}

	if _, err := ParseAttackTiming(cfg.Attacker.Timing); err != nil {
		return err
	}
	if cfg.Attacker.InlineBurst < 1 {
		return fmt.Errorf("attacker.inline_burst must be >= 1, got %d", cfg.Attacker.InlineBurst)
	}

	if err := ValidateWindowSize(cfg.Protocol.WindowSize, modes); err != nil {
		return err
	}
	if cfg.Protocol.SharedKey == "" {
		return fmt.Errorf("protocol.shared_key is required")
	}
	if cfg.Protocol.MACLength < 0 || cfg.Protocol.MACLength > 64 {
		return fmt.Errorf("protocol.mac_length must be between 0 and 64 hex characters, got %d", cfg.Protocol.MACLength)
	}
	if cfg.Protocol.NonceBits < 1 || cfg.Protocol.NonceBits > 64 {
		return fmt.Errorf("protocol.nonce_bits must be between 1 and 64, got %d", cfg.Protocol.NonceBits)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.LogEvery < 0 {
		return fmt.Errorf("logging.log_every must be >= 0, got %d", cfg.Logging.LogEvery)
	}

	return nil
}

func validateProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, p)
	}
	return nil
}

// ValidateWindowSize rejects a negative window outright and requires at least
// 1 when window mode is among modes
func ValidateWindowSize(size int, modes []sim.Mode) error {
	if size < 0 {
		return fmt.Errorf("protocol.window_size must be >= 0, got %d", size)
	}
	for _, m := range modes {
		if m == sim.ModeWindow && size < 1 {
			return fmt.Errorf("protocol.window_size must be >= 1 when window mode is selected")
		}
	}
	return nil
}

// ParseMode maps a mode name to a defense mode
func ParseMode(name string) (sim.Mode, error) {
	mode := sim.Mode(strings.ToLower(strings.TrimSpace(name)))
	for _, m := range sim.AllModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (valid: no_def, rolling, window, challenge)", name)
}

// ParseModes parses a list of mode names. Entries may themselves be
// comma-separated, "all" expands to every mode, and duplicates are dropped.
func ParseModes(names []string) ([]sim.Mode, error) {
	var modes []sim.Mode
	seen := make(map[sim.Mode]bool)
	add := func(m sim.Mode) {
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}

	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if strings.EqualFold(name, "all") {
				for _, m := range sim.AllModes {
					add(m)
				}
				continue
			}
			m, err := ParseMode(name)
			if err != nil {
				return nil, err
			}
			add(m)
		}
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("at least one mode is required")
	}
	return modes, nil
}

// ParseAttackTiming maps "post" or "inline" to an attack timing
func ParseAttackTiming(name string) (sim.AttackTiming, error) {
	switch sim.AttackTiming(strings.ToLower(strings.TrimSpace(name))) {
	case sim.AttackPostRun:
		return sim.AttackPostRun, nil
	case sim.AttackInline:
		return sim.AttackInline, nil
	}
	return "", fmt.Errorf("unknown attack timing %q (valid: post, inline)", name)
}

// Modes returns the parsed experiment modes
func (c *Config) Modes() ([]sim.Mode, error) {
	return ParseModes(c.Experiment.Modes)
}

// SimulationConfig converts the file representation into the engine's
// immutable config. commands overrides the configured command list when
// non-empty.
func (c *Config) SimulationConfig(commands []string) (sim.SimulationConfig, error) {
	timing, err := ParseAttackTiming(c.Attacker.Timing)
	if err != nil {
		return sim.SimulationConfig{}, err
	}

	cfg := sim.DefaultSimulationConfig()
	cfg.AttackTiming = timing
	cfg.NumLegit = c.Traffic.NumLegit
	cfg.NumReplay = c.Traffic.NumReplay
	cfg.PLoss = c.Channel.PLoss
	cfg.PReorder = c.Channel.PReorder
	cfg.AttackerRecordLoss = c.Attacker.RecordLoss
	cfg.InlineAttackProbability = c.Attacker.InlineProbability
	cfg.InlineAttackBurst = c.Attacker.InlineBurst
	cfg.TargetCommands = append([]string(nil), c.Attacker.TargetCommands...)
	cfg.WindowSize = c.Protocol.WindowSize
	cfg.SharedKey = c.Protocol.SharedKey
	cfg.MACLength = c.Protocol.MACLength
	cfg.NonceBits = c.Protocol.NonceBits
	if c.Experiment.Seed != nil {
		cfg = cfg.WithSeed(*c.Experiment.Seed)
	}

	switch {
	case len(commands) > 0:
		cfg.Commands = append([]string(nil), commands...)
	case len(c.Traffic.Commands) > 0:
		cfg.Commands = append([]string(nil), c.Traffic.Commands...)
	}
	return cfg, nil
}
