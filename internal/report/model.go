package report

import (
	"time"

	"github.com/tturner/replaylab/internal/metrics"
	"github.com/tturner/replaylab/internal/sim"
)

// Timestamp renders t the way GeneratedAt is stored: RFC3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ExperimentReport captures one Monte Carlo experiment across modes.
type ExperimentReport struct {
	GeneratedAt      string       `json:"generated_at"`
	ReplaylabVersion string       `json:"replaylab_version"`
	ReplaylabCommit  string       `json:"replaylab_commit,omitempty"`
	ConfigPath       string       `json:"config_path,omitempty"`
	Preset           string       `json:"preset,omitempty"`
	Seed             int64        `json:"seed"`
	RunsPerMode      int          `json:"runs_per_mode"`
	Parameters       Parameters   `json:"parameters"`
	Modes            []ModeReport `json:"modes"`
}

// Parameters are the shared simulation inputs of every mode.
type Parameters struct {
	AttackTiming            string   `json:"attack_timing"`
	NumLegit                int      `json:"num_legit"`
	NumReplay               int      `json:"num_replay"`
	PLoss                   float64  `json:"p_loss"`
	PReorder                float64  `json:"p_reorder"`
	AttackerRecordLoss      float64  `json:"attacker_record_loss"`
	WindowSize              int      `json:"window_size"`
	MACLength               int      `json:"mac_length"`
	NonceBits               int      `json:"nonce_bits"`
	InlineAttackProbability float64  `json:"inline_attack_probability,omitempty"`
	InlineAttackBurst       int      `json:"inline_attack_burst,omitempty"`
	Commands                []string `json:"commands,omitempty"`
	TargetCommands          []string `json:"target_commands,omitempty"`
}

// ModeReport is the outcome of one defense mode. The embedded aggregate
// keeps the flat avg/std keys at the top level of each entry.
type ModeReport struct {
	sim.AggregateStats

	LegitSent      int `json:"legit_sent"`
	LegitAccepted  int `json:"legit_accepted"`
	AttackAttempts int `json:"attack_attempts"`
	AttackAccepted int `json:"attack_accepted"`
	ChannelDropped int `json:"channel_dropped"`

	P50LegitRate  float64 `json:"p50_legit_rate"`
	P90LegitRate  float64 `json:"p90_legit_rate"`
	P50AttackRate float64 `json:"p50_attack_rate"`
	P90AttackRate float64 `json:"p90_attack_rate"`
	MaxAttackRate float64 `json:"max_attack_rate"`

	AttackRateBuckets map[string]int `json:"attack_rate_buckets,omitempty"`
	Verdicts          map[string]int `json:"verdicts,omitempty"`

	// AttackRates holds the per-run attack success rate in run order, for
	// runs that had attempts.
	AttackRates []float64 `json:"attack_rates,omitempty"`
}

// ParametersFrom copies the reportable fields of a simulation config.
func ParametersFrom(cfg sim.SimulationConfig) Parameters {
	p := Parameters{
		AttackTiming:       string(cfg.AttackTiming),
		NumLegit:           cfg.NumLegit,
		NumReplay:          cfg.NumReplay,
		PLoss:              cfg.PLoss,
		PReorder:           cfg.PReorder,
		AttackerRecordLoss: cfg.AttackerRecordLoss,
		WindowSize:         cfg.WindowSize,
		MACLength:          cfg.MACLength,
		NonceBits:          cfg.NonceBits,
		Commands:           append([]string(nil), cfg.Commands...),
		TargetCommands:     append([]string(nil), cfg.TargetCommands...),
	}
	if cfg.AttackTiming == sim.AttackInline {
		p.InlineAttackProbability = cfg.InlineAttackProbability
		p.InlineAttackBurst = cfg.InlineAttackBurst
	}
	return p
}

// BuildModes combines the driver's aggregates with the per-run records of a
// metrics sink. Modes keep the order of stats.
func BuildModes(stats []sim.AggregateStats, sink *metrics.Sink) []ModeReport {
	summary := sink.GetSummary()

	rates := make(map[sim.Mode][]float64)
	for _, m := range sink.GetMetrics() {
		if rate, ok := m.Run().AttackRate(); ok {
			rates[m.Mode] = append(rates[m.Mode], rate)
		}
	}

	modes := make([]ModeReport, 0, len(stats))
	for _, s := range stats {
		mr := ModeReport{AggregateStats: s, AttackRates: rates[s.Mode]}
		if ms, ok := summary.ByMode[s.Mode]; ok {
			mr.LegitSent = ms.LegitSent
			mr.LegitAccepted = ms.LegitAccepted
			mr.AttackAttempts = ms.AttackAttempts
			mr.AttackAccepted = ms.AttackAccepted
			mr.ChannelDropped = ms.ChannelDropped
			mr.P50LegitRate = ms.P50LegitRate
			mr.P90LegitRate = ms.P90LegitRate
			mr.P50AttackRate = ms.P50AttackRate
			mr.P90AttackRate = ms.P90AttackRate
			mr.MaxAttackRate = ms.MaxAttackRate
			mr.AttackRateBuckets = ms.AttackRateBuckets
			if len(ms.Verdicts) > 0 {
				mr.Verdicts = make(map[string]int, len(ms.Verdicts))
				for reason, n := range ms.Verdicts {
					mr.Verdicts[string(reason)] = n
				}
			}
		}
		modes = append(modes, mr)
	}
	return modes
}
