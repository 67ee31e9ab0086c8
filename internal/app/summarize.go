package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tturner/replaylab/internal/metrics"
	"github.com/tturner/replaylab/internal/report"
	"github.com/tturner/replaylab/internal/sim"
)

// SummarizeOptions names a previous run's output to summarize.
type SummarizeOptions struct {
	InputFile string
	Stdout    io.Writer
}

// Summarize re-renders the results of a previous experiment. A .json input
// is an experiment report; anything else is read as a per-run CSV.
func Summarize(opts SummarizeOptions) error {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if strings.EqualFold(filepath.Ext(opts.InputFile), ".json") {
		rep, err := report.ReadJSONFile(opts.InputFile)
		if err != nil {
			return err
		}
		return report.RenderText(stdout, rep)
	}

	records, first, last, err := metrics.ReadMetricsCSV(opts.InputFile)
	if err != nil {
		return err
	}

	sink := metrics.NewSink()
	for _, m := range records {
		sink.Record(m)
	}

	fmt.Fprintf(stdout, "Source: %s\n", opts.InputFile)
	if !first.IsZero() {
		fmt.Fprintf(stdout, "Time range: %s to %s\n", first.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(stdout, metrics.FormatSummary(sink.GetSummary()))

	fmt.Fprintln(stdout, "Aggregates (runs without a denominator are excluded):")
	for _, s := range sink.Aggregates() {
		fmt.Fprintln(stdout, formatAggregate(s))
	}
	return nil
}

func formatAggregate(s sim.AggregateStats) string {
	return fmt.Sprintf("  %-9s legit %.4f ± %.4f (%d samples)  attack %.4f ± %.4f (%d samples)",
		s.Mode, s.AvgLegitRate, s.StdLegitRate, s.LegitSamples, s.AvgAttackRate, s.StdAttackRate, s.AttackSamples)
}

func modeList(modes []sim.Mode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}
