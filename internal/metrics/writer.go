package metrics

// Metrics output (CSV/JSON) and summary formatting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tturner/replaylab/internal/sim"
)

var csvHeader = []string{
	"timestamp",
	"mode",
	"run_index",
	"seed",
	"legit_sent",
	"legit_accepted",
	"attack_attempts",
	"attack_accepted",
	"channel_dropped",
	"legit_rate",
	"attack_rate",
}

// Writer streams run metrics to CSV and/or JSON files
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonCount int
}

// NewWriter creates a new metrics writer. Either path may be empty.
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)

		if err := w.csvWriter.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
		w.csvWriter.Flush()
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file

		if _, err := file.WriteString("[\n"); err != nil {
			file.Close()
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("write JSON start: %w", err)
		}
	}

	return w, nil
}

// WriteMetric writes a single metric
func (w *Writer) WriteMetric(m Metric) error {
	if w.csvWriter != nil {
		run := m.Run()
		legitRate, legitOK := run.LegitRate()
		attackRate, attackOK := run.AttackRate()
		record := []string{
			m.Timestamp.Format(time.RFC3339Nano),
			string(m.Mode),
			strconv.Itoa(m.RunIndex),
			strconv.FormatInt(m.Seed, 10),
			strconv.Itoa(m.LegitSent),
			strconv.Itoa(m.LegitAccepted),
			strconv.Itoa(m.AttackAttempts),
			strconv.Itoa(m.AttackAccepted),
			strconv.Itoa(m.ChannelDropped),
			formatRate(legitRate, legitOK),
			formatRate(attackRate, attackOK),
		}
		if err := w.csvWriter.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
		w.csvWriter.Flush()
	}

	if w.jsonFile != nil {
		jsonData, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}

		if w.jsonCount > 0 {
			if _, err := w.jsonFile.WriteString(",\n"); err != nil {
				return fmt.Errorf("write JSON comma: %w", err)
			}
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, jsonData, "  ", "  "); err != nil {
			return fmt.Errorf("indent JSON: %w", err)
		}
		if _, err := w.jsonFile.WriteString("  "); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		if _, err := w.jsonFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		w.jsonCount++
	}

	return nil
}

// Close closes the writer and flushes all data
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if w.jsonFile != nil {
		if _, err := w.jsonFile.WriteString("\n]\n"); err != nil {
			errs = append(errs, err)
		}
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}

	return nil
}

// formatRate formats a rate for CSV (empty string when there is no sample)
func formatRate(rate float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(rate, 'f', 6, 64)
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(summary *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Runs: %d\n", summary.TotalRuns)

	for _, mode := range summary.Modes {
		stats := summary.ByMode[mode]
		if stats == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d runs)\n", mode, stats.Runs)
		fmt.Fprintf(&b, "  Legit: %d/%d accepted", stats.LegitAccepted, stats.LegitSent)
		if stats.LegitSent > 0 {
			fmt.Fprintf(&b, " (%.1f%%) p50=%.3f p90=%.3f",
				float64(stats.LegitAccepted)/float64(stats.LegitSent)*100, stats.P50LegitRate, stats.P90LegitRate)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Replay: %d/%d accepted", stats.AttackAccepted, stats.AttackAttempts)
		if stats.AttackAttempts > 0 {
			fmt.Fprintf(&b, " (%.1f%%) p50=%.3f p90=%.3f max=%.3f",
				float64(stats.AttackAccepted)/float64(stats.AttackAttempts)*100, stats.P50AttackRate, stats.P90AttackRate, stats.MaxAttackRate)
		}
		b.WriteString("\n")
		if stats.ChannelDropped > 0 {
			fmt.Fprintf(&b, "  Dropped by channel: %d\n", stats.ChannelDropped)
		}
		if len(stats.AttackRateBuckets) > 0 {
			fmt.Fprintf(&b, "  Replay success buckets: 0=%d <10%%=%d 10-50%%=%d 50-100%%=%d 100%%=%d\n",
				stats.AttackRateBuckets["zero"],
				stats.AttackRateBuckets["lt_10pct"],
				stats.AttackRateBuckets["10_50pct"],
				stats.AttackRateBuckets["50_100pct"],
				stats.AttackRateBuckets["all"],
			)
		}
		if len(stats.Verdicts) > 0 {
			reasons := make([]string, 0, len(stats.Verdicts))
			for r := range stats.Verdicts {
				reasons = append(reasons, string(r))
			}
			sort.Strings(reasons)
			b.WriteString("  Verdicts:")
			for _, r := range reasons {
				fmt.Fprintf(&b, " %s=%d", r, stats.Verdicts[sim.Reason(r)])
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
