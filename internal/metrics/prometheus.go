package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tturner/replaylab/internal/sim"
)

// Collector exports experiment results in the Prometheus text format. It
// owns a private registry so repeated experiments never collide.
type Collector struct {
	registry *prometheus.Registry

	runs       *prometheus.CounterVec
	frames     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	legitRate  *prometheus.GaugeVec
	attackRate *prometheus.GaugeVec
}

// NewCollector creates a collector with every replaylab metric registered
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replaylab_runs_total",
			Help: "Finished Monte Carlo runs.",
		}, []string{"mode"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replaylab_frames_total",
			Help: "Frames processed by the receiver.",
		}, []string{"mode", "origin", "verdict"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replaylab_channel_dropped_total",
			Help: "Frames lost by the simulated channel.",
		}, []string{"mode"}),
		legitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replaylab_legit_acceptance_rate",
			Help: "Mean legitimate acceptance rate across runs.",
		}, []string{"mode", "stat"}),
		attackRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replaylab_attack_success_rate",
			Help: "Mean replay success rate across runs.",
		}, []string{"mode", "stat"}),
	}
	c.registry.MustRegister(c.runs, c.frames, c.dropped, c.legitRate, c.attackRate)
	return c
}

// ObserveRun adds one run's tallies to the counters
func (c *Collector) ObserveRun(r sim.RunResult) {
	mode := string(r.Mode)
	c.runs.WithLabelValues(mode).Inc()
	c.dropped.WithLabelValues(mode).Add(float64(r.ChannelDropped))
	for reason, n := range r.LegitVerdicts {
		c.frames.WithLabelValues(mode, "legit", string(reason)).Add(float64(n))
	}
	for reason, n := range r.AttackVerdicts {
		c.frames.WithLabelValues(mode, "attack", string(reason)).Add(float64(n))
	}
}

// SetAggregate publishes the mean and deviation of one mode
func (c *Collector) SetAggregate(s sim.AggregateStats) {
	mode := string(s.Mode)
	c.legitRate.WithLabelValues(mode, "mean").Set(s.AvgLegitRate)
	c.legitRate.WithLabelValues(mode, "std").Set(s.StdLegitRate)
	c.attackRate.WithLabelValues(mode, "mean").Set(s.AvgAttackRate)
	c.attackRate.WithLabelValues(mode, "std").Set(s.StdAttackRate)
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the node_exporter textfile
// format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
