package metrics

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/tturner/replaylab/internal/sim"
)

func sampleRuns() []sim.RunResult {
	return []sim.RunResult{
		{
			Mode: sim.ModeWindow, RunIndex: 1, Seed: 43,
			LegitSent: 10, LegitAccepted: 9, AttackAttempts: 4, AttackAccepted: 0, ChannelDropped: 1,
			LegitVerdicts:  map[sim.Reason]int{sim.ReasonWindowAccept: 9},
			AttackVerdicts: map[sim.Reason]int{sim.ReasonCounterReplay: 4},
		},
		{
			Mode: sim.ModeWindow, RunIndex: 0, Seed: 42,
			LegitSent: 10, LegitAccepted: 10, AttackAttempts: 4, AttackAccepted: 1,
			LegitVerdicts:  map[sim.Reason]int{sim.ReasonWindowAcceptInitial: 1, sim.ReasonWindowAccept: 9},
			AttackVerdicts: map[sim.Reason]int{sim.ReasonCounterReplay: 3, sim.ReasonWindowAccept: 1},
		},
		{
			Mode: sim.ModeNoDefense, RunIndex: 0, Seed: 42,
			LegitSent: 10, LegitAccepted: 10, AttackAttempts: 4, AttackAccepted: 4,
			LegitVerdicts:  map[sim.Reason]int{sim.ReasonNoDefenseAccept: 10},
			AttackVerdicts: map[sim.Reason]int{sim.ReasonNoDefenseAccept: 4},
		},
	}
}

func TestSinkSummary(t *testing.T) {
	sink := NewSink()
	for _, r := range sampleRuns() {
		sink.RecordRun(r)
	}

	summary := sink.GetSummary()
	if summary.TotalRuns != 3 {
		t.Fatalf("expected 3 runs, got %d", summary.TotalRuns)
	}
	if len(summary.Modes) != 2 || summary.Modes[0] != sim.ModeWindow {
		t.Fatalf("modes should keep first-seen order, got %v", summary.Modes)
	}

	w := summary.ByMode[sim.ModeWindow]
	if w.Runs != 2 || w.LegitSent != 20 || w.LegitAccepted != 19 || w.AttackAccepted != 1 || w.ChannelDropped != 1 {
		t.Fatalf("unexpected window totals: %+v", w)
	}
	if w.Verdicts[sim.ReasonCounterReplay] != 7 || w.Verdicts[sim.ReasonWindowAccept] != 19 {
		t.Fatalf("unexpected verdicts: %v", w.Verdicts)
	}
	if w.AttackRateBuckets["zero"] != 1 || w.AttackRateBuckets["10_50pct"] != 1 {
		t.Fatalf("unexpected buckets: %v", w.AttackRateBuckets)
	}
	if w.MaxAttackRate != 0.25 {
		t.Fatalf("max attack rate = %v", w.MaxAttackRate)
	}
	if w.P90LegitRate != 1 || w.P50LegitRate != 0.9 {
		t.Fatalf("legit percentiles p50=%v p90=%v", w.P50LegitRate, w.P90LegitRate)
	}

	n := summary.ByMode[sim.ModeNoDefense]
	if n.AttackRateBuckets["all"] != 1 {
		t.Fatalf("no_def replay should land in the 100%% bucket: %v", n.AttackRateBuckets)
	}
}

func TestSinkMetricsOrder(t *testing.T) {
	sink := NewSink()
	for _, r := range sampleRuns() {
		sink.RecordRun(r)
	}

	metrics := sink.GetMetrics()
	got := make([]string, len(metrics))
	for i, m := range metrics {
		got[i] = string(m.Mode) + "#" + string(rune('0'+m.RunIndex))
	}
	want := "window#0 window#1 no_def#0"
	if strings.Join(got, " ") != want {
		t.Fatalf("order = %v, want %s", got, want)
	}
}

func TestSinkAggregatesMatchSimulation(t *testing.T) {
	sink := NewSink()
	runs := sampleRuns()
	for _, r := range runs {
		sink.RecordRun(r)
	}

	stats := sink.Aggregates()
	if len(stats) != 2 {
		t.Fatalf("expected 2 modes, got %d", len(stats))
	}
	want := sim.Aggregate(sim.ModeWindow, []sim.RunResult{runs[1], runs[0]})
	if stats[0] != want {
		t.Fatalf("aggregate = %+v, want %+v", stats[0], want)
	}
}

func TestWriterAndReader(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "runs.csv")
	jsonPath := filepath.Join(dir, "runs.json")

	w, err := NewWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, r := range sampleRuns() {
		if err := w.WriteMetric(FromRun(r, ts.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("WriteMetric: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	metrics, first, last, err := ReadMetricsCSV(csvPath)
	if err != nil {
		t.Fatalf("ReadMetricsCSV: %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("read %d rows, want 3", len(metrics))
	}
	if !first.Equal(ts) || !last.Equal(ts.Add(2*time.Second)) {
		t.Fatalf("time range %v - %v", first, last)
	}
	if metrics[0].Mode != sim.ModeWindow || metrics[0].RunIndex != 1 || metrics[0].ChannelDropped != 1 || metrics[0].Seed != 43 {
		t.Fatalf("first row = %+v", metrics[0])
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded []Metric
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("JSON output is not a valid array: %v\n%s", err, data)
	}
	if len(decoded) != 3 || decoded[2].Mode != sim.ModeNoDefense {
		t.Fatalf("decoded %+v", decoded)
	}
}

func TestWriterRatesColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	w, err := NewWriter(path, "")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.WriteMetric(Metric{Mode: sim.ModeChallenge, LegitSent: 4, LegitAccepted: 3})
	w.Close()

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if rows[1][9] != "0.750000" {
		t.Errorf("legit_rate = %q", rows[1][9])
	}
	if rows[1][10] != "" {
		t.Errorf("attack_rate without attempts should be empty, got %q", rows[1][10])
	}
}

func TestReadMetricsCSVErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, _, err := ReadMetricsCSV(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}

	noCols := filepath.Join(dir, "nocols.csv")
	os.WriteFile(noCols, []byte("timestamp,mode\n2026-01-01T00:00:00Z,window\n"), 0o644)
	if _, _, _, err := ReadMetricsCSV(noCols); err == nil || !strings.Contains(err.Error(), "missing required column") {
		t.Errorf("expected missing column error, got %v", err)
	}

	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, []byte(strings.Join(csvHeader, ",")+"\n"), 0o644)
	if _, _, _, err := ReadMetricsCSV(empty); err == nil {
		t.Error("expected error for header-only file")
	}

	bad := filepath.Join(dir, "bad.csv")
	os.WriteFile(bad, []byte("mode,run_index,legit_sent,legit_accepted,attack_attempts,attack_accepted\nwindow,x,1,1,0,0\n"), 0o644)
	if _, _, _, err := ReadMetricsCSV(bad); err == nil {
		t.Error("expected error for non-numeric run_index")
	}
}

func TestFormatSummary(t *testing.T) {
	sink := NewSink()
	for _, r := range sampleRuns() {
		sink.RecordRun(r)
	}
	out := FormatSummary(sink.GetSummary())

	for _, want := range []string{"Total Runs: 3", "window (2 runs)", "Legit: 19/20 accepted", "Replay: 4/4 accepted", "counter_replay=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func counterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(vec *prometheus.GaugeVec, labels ...string) float64 {
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	for _, r := range sampleRuns() {
		c.ObserveRun(r)
	}
	c.SetAggregate(sim.AggregateStats{Mode: sim.ModeWindow, AvgLegitRate: 0.95, StdLegitRate: 0.05, AvgAttackRate: 0.125})

	if got := counterValue(c.runs, "window"); got != 2 {
		t.Errorf("runs{window} = %v", got)
	}
	if got := counterValue(c.frames, "window", "attack", string(sim.ReasonCounterReplay)); got != 7 {
		t.Errorf("frames{window,attack,counter_replay} = %v", got)
	}
	if got := counterValue(c.frames, "no_def", "legit", string(sim.ReasonNoDefenseAccept)); got != 10 {
		t.Errorf("frames{no_def,legit} = %v", got)
	}
	if got := counterValue(c.dropped, "window"); got != 1 {
		t.Errorf("dropped{window} = %v", got)
	}
	if got := gaugeValue(c.legitRate, "window", "mean"); got != 0.95 {
		t.Errorf("legit mean = %v", got)
	}
	if got := gaugeValue(c.attackRate, "window", "mean"); got != 0.125 {
		t.Errorf("attack mean = %v", got)
	}

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 5 {
		t.Errorf("gathered %d metric families, want 5", len(families))
	}
}

func TestCollectorWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveRun(sampleRuns()[0])

	path := filepath.Join(t.TempDir(), "replaylab.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# TYPE replaylab_runs_total counter", `replaylab_runs_total{mode="window"} 1`} {
		if !strings.Contains(content, want) {
			t.Errorf("textfile missing %q:\n%s", want, content)
		}
	}
}

func TestComputePercentiles(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p50, p90 float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{0.4}, 0.4, 0.4},
		{"unsorted", []float64{1, 0.2, 0.6, 0.4, 0.8}, 0.6, 1},
		{"ten values", []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}, 0.5, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p50, p90 := computePercentiles(tt.values)
			if p50 != tt.p50 || p90 != tt.p90 {
				t.Errorf("computePercentiles(%v) = %v, %v, want %v, %v", tt.values, p50, p90, tt.p50, tt.p90)
			}
		})
	}
}
