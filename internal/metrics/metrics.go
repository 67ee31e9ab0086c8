package metrics

// Per-run metrics collection for replay experiments

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tturner/replaylab/internal/sim"
)

// Metric is the record of one finished Monte Carlo run
type Metric struct {
	Timestamp      time.Time `json:"timestamp"`
	Mode           sim.Mode  `json:"mode"`
	RunIndex       int       `json:"run_index"`
	Seed           int64     `json:"seed"`
	LegitSent      int       `json:"legit_sent"`
	LegitAccepted  int       `json:"legit_accepted"`
	AttackAttempts int       `json:"attack_attempts"`
	AttackAccepted int       `json:"attack_accepted"`
	ChannelDropped int       `json:"channel_dropped"`
}

// FromRun converts a run result into a metric stamped with ts
func FromRun(r sim.RunResult, ts time.Time) Metric {
	return Metric{
		Timestamp:      ts,
		Mode:           r.Mode,
		RunIndex:       r.RunIndex,
		Seed:           r.Seed,
		LegitSent:      r.LegitSent,
		LegitAccepted:  r.LegitAccepted,
		AttackAttempts: r.AttackAttempts,
		AttackAccepted: r.AttackAccepted,
		ChannelDropped: r.ChannelDropped,
	}
}

// Run converts the metric back into a run result without verdict detail
func (m Metric) Run() sim.RunResult {
	return sim.RunResult{
		Mode:           m.Mode,
		RunIndex:       m.RunIndex,
		Seed:           m.Seed,
		LegitSent:      m.LegitSent,
		LegitAccepted:  m.LegitAccepted,
		AttackAttempts: m.AttackAttempts,
		AttackAccepted: m.AttackAccepted,
		ChannelDropped: m.ChannelDropped,
	}
}

// Sink collects run metrics and verdict tallies
type Sink struct {
	mu       sync.RWMutex
	metrics  []Metric
	verdicts map[sim.Mode]map[sim.Reason]int
	modes    []sim.Mode
}

// Summary contains totals and rate distributions per mode
type Summary struct {
	TotalRuns int
	Modes     []sim.Mode
	ByMode    map[sim.Mode]*ModeStats
}

// ModeStats contains the frame totals and rate percentiles of one mode
type ModeStats struct {
	Runs           int
	LegitSent      int
	LegitAccepted  int
	AttackAttempts int
	AttackAccepted int
	ChannelDropped int

	P50LegitRate  float64
	P90LegitRate  float64
	P50AttackRate float64
	P90AttackRate float64
	MaxAttackRate float64

	AttackRateBuckets map[string]int
	Verdicts          map[sim.Reason]int
}

// NewSink creates a new metrics sink
func NewSink() *Sink {
	return &Sink{
		metrics:  make([]Metric, 0),
		verdicts: make(map[sim.Mode]map[sim.Reason]int),
	}
}

// Record records a new metric
func (s *Sink) Record(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = append(s.metrics, m)
	s.noteMode(m.Mode)
}

// RecordRun records a run result including its verdict tallies
func (s *Sink) RecordRun(r sim.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = append(s.metrics, FromRun(r, time.Now().UTC()))
	s.noteMode(r.Mode)

	counts, ok := s.verdicts[r.Mode]
	if !ok {
		counts = make(map[sim.Reason]int)
		s.verdicts[r.Mode] = counts
	}
	for reason, n := range r.LegitVerdicts {
		counts[reason] += n
	}
	for reason, n := range r.AttackVerdicts {
		counts[reason] += n
	}
}

func (s *Sink) noteMode(mode sim.Mode) {
	for _, m := range s.modes {
		if m == mode {
			return
		}
	}
	s.modes = append(s.modes, mode)
}

// GetMetrics returns a copy of all recorded metrics ordered by mode (first
// seen first) and run index
func (s *Sink) GetMetrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make(map[sim.Mode]int, len(s.modes))
	for i, m := range s.modes {
		order[m] = i
	}

	metrics := make([]Metric, len(s.metrics))
	copy(metrics, s.metrics)
	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].Mode != metrics[j].Mode {
			return order[metrics[i].Mode] < order[metrics[j].Mode]
		}
		return metrics[i].RunIndex < metrics[j].RunIndex
	})
	return metrics
}

// Aggregates recomputes the per-mode experiment statistics from the
// recorded runs, in the order modes were first seen
func (s *Sink) Aggregates() []sim.AggregateStats {
	metrics := s.GetMetrics()

	s.mu.RLock()
	modes := append([]sim.Mode(nil), s.modes...)
	s.mu.RUnlock()

	byMode := make(map[sim.Mode][]sim.RunResult, len(modes))
	for _, m := range metrics {
		byMode[m.Mode] = append(byMode[m.Mode], m.Run())
	}

	stats := make([]sim.AggregateStats, len(modes))
	for i, mode := range modes {
		stats[i] = sim.Aggregate(mode, byMode[mode])
	}
	return stats
}

// GetSummary returns the aggregated summary
func (s *Sink) GetSummary() *Summary {
	metrics := s.GetMetrics()

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{
		TotalRuns: len(metrics),
		Modes:     append([]sim.Mode(nil), s.modes...),
		ByMode:    make(map[sim.Mode]*ModeStats, len(s.modes)),
	}

	legitRates := make(map[sim.Mode][]float64)
	attackRates := make(map[sim.Mode][]float64)

	for _, m := range metrics {
		stats, ok := summary.ByMode[m.Mode]
		if !ok {
			stats = &ModeStats{
				AttackRateBuckets: make(map[string]int),
				Verdicts:          make(map[sim.Reason]int),
			}
			summary.ByMode[m.Mode] = stats
		}
		stats.Runs++
		stats.LegitSent += m.LegitSent
		stats.LegitAccepted += m.LegitAccepted
		stats.AttackAttempts += m.AttackAttempts
		stats.AttackAccepted += m.AttackAccepted
		stats.ChannelDropped += m.ChannelDropped

		run := m.Run()
		if rate, ok := run.LegitRate(); ok {
			legitRates[m.Mode] = append(legitRates[m.Mode], rate)
		}
		if rate, ok := run.AttackRate(); ok {
			attackRates[m.Mode] = append(attackRates[m.Mode], rate)
			incrementBucket(stats.AttackRateBuckets, rate)
			if rate > stats.MaxAttackRate {
				stats.MaxAttackRate = rate
			}
		}
	}

	for mode, stats := range summary.ByMode {
		stats.P50LegitRate, stats.P90LegitRate = computePercentiles(legitRates[mode])
		stats.P50AttackRate, stats.P90AttackRate = computePercentiles(attackRates[mode])
		for reason, n := range s.verdicts[mode] {
			stats.Verdicts[reason] = n
		}
	}

	return summary
}

// incrementBucket files an acceptance rate into a coarse histogram
func incrementBucket(buckets map[string]int, rate float64) {
	switch {
	case rate == 0:
		buckets["zero"]++
	case rate < 0.1:
		buckets["lt_10pct"]++
	case rate < 0.5:
		buckets["10_50pct"]++
	case rate < 1:
		buckets["50_100pct"]++
	default:
		buckets["all"]++
	}
}

// computePercentiles returns the p50 and p90 of values
func computePercentiles(values []float64) (p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentile(sorted, 0.50), percentile(sorted, 0.90)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
