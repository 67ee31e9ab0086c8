package config

import (
	"fmt"
	"sort"
)

// Preset is a named experiment setup.
type Preset struct {
	Name        string
	Description string
	Modes       []string
	Runs        int
	NumLegit    int
	NumReplay   int
	PLoss       float64
	PReorder    float64
}

var presets = map[string]Preset{
	"quick": {
		Name:        "quick",
		Description: "Fast sanity check of the window defense",
		Modes:       []string{"window"},
		Runs:        30,
		NumLegit:    10,
		NumReplay:   50,
		PLoss:       0.05,
	},
	"baseline": {
		Name:        "baseline",
		Description: "All defenses on an ideal channel",
		Modes:       []string{"no_def", "rolling", "window", "challenge"},
		Runs:        100,
		NumLegit:    20,
		NumReplay:   100,
	},
	"packet_loss": {
		Name:        "packet_loss",
		Description: "Defenses under 10% frame loss",
		Modes:       []string{"rolling", "window", "challenge"},
		Runs:        100,
		NumLegit:    20,
		NumReplay:   100,
		PLoss:       0.1,
	},
	"reorder": {
		Name:        "reorder",
		Description: "Counter defenses under 30% reordering",
		Modes:       []string{"rolling", "window"},
		Runs:        100,
		NumLegit:    20,
		NumReplay:   100,
		PReorder:    0.3,
	},
	"harsh": {
		Name:        "harsh",
		Description: "Window and challenge on a lossy, reordering link",
		Modes:       []string{"window", "challenge"},
		Runs:        100,
		NumLegit:    20,
		NumReplay:   100,
		PLoss:       0.15,
		PReorder:    0.3,
	},
}

// PresetNames returns the preset names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (valid: %v)", name, PresetNames())
	}
	return p, nil
}

// ApplyPreset overwrites the experiment, traffic and channel settings of cfg
// with the named preset. Other sections are left alone.
func ApplyPreset(cfg *Config, name string) error {
	p, err := LookupPreset(name)
	if err != nil {
		return err
	}
	cfg.Experiment.Modes = append([]string(nil), p.Modes...)
	cfg.Experiment.Runs = p.Runs
	cfg.Traffic.NumLegit = p.NumLegit
	cfg.Traffic.NumReplay = p.NumReplay
	cfg.Channel.PLoss = p.PLoss
	cfg.Channel.PReorder = p.PReorder
	return nil
}
