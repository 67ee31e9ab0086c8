package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/replaylab/internal/sim"
)

// RenderTrace writes the frame-by-frame log of one run followed by its
// tallies. limit > 0 truncates the table to the first limit deliveries.
func RenderTrace(w io.Writer, deliveries []sim.Delivery, result sim.RunResult, limit int) error {
	s := NewStyles(w, DefaultTheme)

	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("Trace of one %s run", result.Mode)))
	b.WriteString("\n")
	b.WriteString(s.Dim.Render(fmt.Sprintf("seed %d", result.Seed)))
	b.WriteString("\n\n")

	shown := deliveries
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	header := fmt.Sprintf("%5s  %-6s  %-10s  %-8s  %s", "step", "origin", "command", "counter", "verdict")
	b.WriteString(s.Header.Render(header))
	b.WriteString("\n")
	for _, d := range shown {
		b.WriteString(traceRow(d, s))
		b.WriteString("\n")
	}
	if len(shown) < len(deliveries) {
		b.WriteString(s.Dim.Render(fmt.Sprintf("  … %d more deliveries", len(deliveries)-len(shown))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(MiniTable([][]string{
		{"legit", fmt.Sprintf("%d/%d accepted", result.LegitAccepted, result.LegitSent)},
		{"attack", fmt.Sprintf("%d/%d accepted", result.AttackAccepted, result.AttackAttempts)},
		{"dropped", fmt.Sprintf("%d", result.ChannelDropped)},
	}, s))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func traceRow(d sim.Delivery, s Styles) string {
	origin := "legit"
	if d.Frame.IsAttack {
		origin = "attack"
	}
	counter := "-"
	if d.Frame.Counter != nil {
		counter = fmt.Sprintf("%d", *d.Frame.Counter)
	}

	row := fmt.Sprintf("%5d  %-6s  %-10s  %-8s  ", d.Step, origin, d.Frame.Command, counter)
	return s.Base.Render(row) + verdictStyle(d, s).Render(string(d.Verdict.Reason))
}

// verdictStyle highlights what matters: accepted replays and rejected
// legitimate frames.
func verdictStyle(d sim.Delivery, s Styles) lipgloss.Style {
	switch {
	case d.Frame.IsAttack && d.Verdict.Accepted:
		return s.Error
	case !d.Frame.IsAttack && !d.Verdict.Accepted:
		return s.Warning
	case d.Frame.IsAttack:
		return s.Success
	default:
		return s.Dim
	}
}
