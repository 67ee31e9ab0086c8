package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// parseLua runs a Lua experiment file. The file returns a table with the
// same sections and snake_case keys as the YAML form; missing keys keep
// their defaults.
func parseLua(path string) (*Config, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("run lua config: %w", err)
	}

	table, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua file did not return a table")
	}

	cfg := CreateDefaultConfig()
	// A decoded list would only overwrite a prefix of a prefilled slice.
	cfg.Experiment.Modes = nil

	if err := gluamapper.Map(table, cfg); err != nil {
		return nil, fmt.Errorf("map lua config: %w", err)
	}
	return cfg, nil
}

// WriteLuaConfig renders cfg as a Lua experiment file
func WriteLuaConfig(w io.Writer, cfg *Config) error {
	var b strings.Builder

	b.WriteString("local config = {}\n\n")

	b.WriteString("-- EXPERIMENT ---------------------------------------\n")
	b.WriteString("config.experiment = {\n")
	fmt.Fprintf(&b, "\tmodes = %s,\n", luaList(cfg.Experiment.Modes))
	fmt.Fprintf(&b, "\truns = %d,\n", cfg.Experiment.Runs)
	if cfg.Experiment.Seed != nil {
		fmt.Fprintf(&b, "\tseed = %d,\n", *cfg.Experiment.Seed)
	}
	if cfg.Experiment.Workers > 0 {
		fmt.Fprintf(&b, "\tworkers = %d,\n", cfg.Experiment.Workers)
	}
	b.WriteString("}\n\n")

	b.WriteString("-- TRAFFIC ------------------------------------------\n")
	b.WriteString("config.traffic = {\n")
	fmt.Fprintf(&b, "\tnum_legit = %d,\n", cfg.Traffic.NumLegit)
	fmt.Fprintf(&b, "\tnum_replay = %d,\n", cfg.Traffic.NumReplay)
	if len(cfg.Traffic.Commands) > 0 {
		fmt.Fprintf(&b, "\tcommands = %s,\n", luaList(cfg.Traffic.Commands))
	}
	if cfg.Traffic.CommandsFile != "" {
		fmt.Fprintf(&b, "\tcommands_file = %q,\n", cfg.Traffic.CommandsFile)
	}
	b.WriteString("}\n\n")

	b.WriteString("-- CHANNEL ------------------------------------------\n")
	b.WriteString("config.channel = {\n")
	fmt.Fprintf(&b, "\tp_loss = %g,\n", cfg.Channel.PLoss)
	fmt.Fprintf(&b, "\tp_reorder = %g,\n", cfg.Channel.PReorder)
	b.WriteString("}\n\n")

	b.WriteString("-- ATTACKER -----------------------------------------\n")
	b.WriteString("config.attacker = {\n")
	fmt.Fprintf(&b, "\ttiming = %q,\n", cfg.Attacker.Timing)
	fmt.Fprintf(&b, "\trecord_loss = %g,\n", cfg.Attacker.RecordLoss)
	fmt.Fprintf(&b, "\tinline_probability = %g,\n", cfg.Attacker.InlineProbability)
	fmt.Fprintf(&b, "\tinline_burst = %d,\n", cfg.Attacker.InlineBurst)
	if len(cfg.Attacker.TargetCommands) > 0 {
		fmt.Fprintf(&b, "\ttarget_commands = %s,\n", luaList(cfg.Attacker.TargetCommands))
	}
	b.WriteString("}\n\n")

	b.WriteString("-- PROTOCOL -----------------------------------------\n")
	b.WriteString("config.protocol = {\n")
	fmt.Fprintf(&b, "\twindow_size = %d,\n", cfg.Protocol.WindowSize)
	fmt.Fprintf(&b, "\tshared_key = %q,\n", cfg.Protocol.SharedKey)
	fmt.Fprintf(&b, "\tmac_length = %d,\n", cfg.Protocol.MACLength)
	fmt.Fprintf(&b, "\tnonce_bits = %d,\n", cfg.Protocol.NonceBits)
	b.WriteString("}\n\n")

	b.WriteString("-- OUTPUT -------------------------------------------\n")
	b.WriteString("config.output = {\n")
	if cfg.Output.Dir != "" {
		fmt.Fprintf(&b, "\tdir = %q,\n", cfg.Output.Dir)
	}
	if cfg.Output.JSONFile != "" {
		fmt.Fprintf(&b, "\tjson_file = %q,\n", cfg.Output.JSONFile)
	}
	if cfg.Output.CSVFile != "" {
		fmt.Fprintf(&b, "\tcsv_file = %q,\n", cfg.Output.CSVFile)
	}
	if cfg.Output.RunsJSONFile != "" {
		fmt.Fprintf(&b, "\truns_json_file = %q,\n", cfg.Output.RunsJSONFile)
	}
	if cfg.Output.MetricsTextfile != "" {
		fmt.Fprintf(&b, "\tmetrics_textfile = %q,\n", cfg.Output.MetricsTextfile)
	}
	if cfg.Output.TextFile != "" {
		fmt.Fprintf(&b, "\ttext_file = %q,\n", cfg.Output.TextFile)
	}
	b.WriteString("}\n\n")

	b.WriteString("-- LOGGING ------------------------------------------\n")
	b.WriteString("config.logging = {\n")
	fmt.Fprintf(&b, "\tlevel = %q,\n", cfg.Logging.Level)
	fmt.Fprintf(&b, "\tformat = %q,\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		fmt.Fprintf(&b, "\tfile = %q,\n", cfg.Logging.File)
	}
	if cfg.Logging.LogEvery > 0 {
		fmt.Fprintf(&b, "\tlog_every = %d,\n", cfg.Logging.LogEvery)
	}
	b.WriteString("}\n\n")

	b.WriteString("return config\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func luaList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "{ " + strings.Join(quoted, ", ") + " }"
}
