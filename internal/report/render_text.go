package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

const chartWidth = 60

// RenderText writes a terminal summary of the report to w. Colors are only
// emitted when w is a terminal.
func RenderText(w io.Writer, r *ExperimentReport) error {
	s := NewStyles(w, DefaultTheme)

	var b strings.Builder

	b.WriteString(s.Title.Render("Replay defense experiment"))
	b.WriteString("\n")
	b.WriteString(s.Dim.Render(fmt.Sprintf("seed %d · %s runs per mode · generated %s",
		r.Seed, humanize.Comma(int64(r.RunsPerMode)), r.GeneratedAt)))
	b.WriteString("\n\n")

	b.WriteString(s.Box.Render(MiniTable(parameterRows(r), s)))
	b.WriteString("\n\n")

	if len(r.Modes) == 0 {
		b.WriteString(s.Warning.Render("No modes were run."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	legit := BarChart{Width: chartWidth}
	attack := BarChart{Width: chartWidth}
	for _, m := range r.Modes {
		legit.Items = append(legit.Items, BarChartItem{
			Label:  string(m.Mode),
			Value:  m.AvgLegitRate,
			Spread: m.StdLegitRate,
			Color:  s.legitColor(m.AvgLegitRate),
		})
		attack.Items = append(attack.Items, BarChartItem{
			Label:  string(m.Mode),
			Value:  m.AvgAttackRate,
			Spread: m.StdAttackRate,
			Color:  s.attackColor(m.AvgAttackRate),
		})
	}

	b.WriteString(s.Header.Render("Legitimate acceptance"))
	b.WriteString("\n")
	b.WriteString(legit.Render(s))
	b.WriteString("\n\n")
	b.WriteString(s.Header.Render("Attack success"))
	b.WriteString("\n")
	b.WriteString(attack.Render(s))
	b.WriteString("\n")

	for _, m := range r.Modes {
		b.WriteString("\n")
		writeModeDetail(&b, m, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func parameterRows(r *ExperimentReport) [][]string {
	p := r.Parameters
	rows := [][]string{
		{"traffic", fmt.Sprintf("%s legit, %s replay", humanize.Comma(int64(p.NumLegit)), humanize.Comma(int64(p.NumReplay)))},
		{"channel", fmt.Sprintf("loss %s, reorder %s", formatProbability(p.PLoss), formatProbability(p.PReorder))},
		{"attacker", attackerLine(p)},
		{"protocol", fmt.Sprintf("window %d, mac %d hex, nonce %d bits", p.WindowSize, p.MACLength, p.NonceBits)},
	}
	if len(p.Commands) > 0 {
		rows = append(rows, []string{"commands", commandList(p.Commands)})
	}
	if r.Preset != "" {
		rows = append(rows, []string{"preset", r.Preset})
	}
	if r.ConfigPath != "" {
		rows = append(rows, []string{"config", r.ConfigPath})
	}
	return rows
}

func attackerLine(p Parameters) string {
	line := p.AttackTiming
	if p.AttackTiming == "inline" {
		line += fmt.Sprintf(" (p=%s, burst %d)", formatProbability(p.InlineAttackProbability), p.InlineAttackBurst)
	}
	line += ", record loss " + formatProbability(p.AttackerRecordLoss)
	if len(p.TargetCommands) > 0 {
		line += ", targets " + strings.Join(p.TargetCommands, ",")
	}
	return line
}

func commandList(commands []string) string {
	const maxShown = 8
	if len(commands) <= maxShown {
		return strings.Join(commands, " ")
	}
	return fmt.Sprintf("%s … (%d total)", strings.Join(commands[:maxShown], " "), len(commands))
}

func formatProbability(p float64) string {
	return strings.TrimSpace(formatPercent(p))
}

func writeModeDetail(b *strings.Builder, m ModeReport, s Styles) {
	b.WriteString(s.Bold.Render(string(m.Mode)))
	b.WriteString(s.Dim.Render(fmt.Sprintf("  %s runs, %s legit samples, %s attack samples",
		humanize.Comma(int64(m.Runs)), humanize.Comma(int64(m.LegitSamples)), humanize.Comma(int64(m.AttackSamples)))))
	b.WriteString("\n")

	fmt.Fprintf(b, "  legit   %s/%s accepted",
		humanize.Comma(int64(m.LegitAccepted)), humanize.Comma(int64(m.LegitSent)))
	if m.ChannelDropped > 0 {
		fmt.Fprintf(b, ", %s dropped by channel", humanize.Comma(int64(m.ChannelDropped)))
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "  attack  %s/%s accepted",
		humanize.Comma(int64(m.AttackAccepted)), humanize.Comma(int64(m.AttackAttempts)))
	if m.AttackSamples > 0 {
		fmt.Fprintf(b, ", p90 %s, max %s", formatProbability(m.P90AttackRate), formatProbability(m.MaxAttackRate))
	}
	b.WriteString("\n")

	if len(m.AttackRates) > 0 {
		b.WriteString("  per run ")
		b.WriteString(Sparkline(m.AttackRates, chartWidth-10, s))
		b.WriteString("\n")
	}

	if len(m.Verdicts) > 0 {
		reasons := make([]string, 0, len(m.Verdicts))
		for reason := range m.Verdicts {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		parts := make([]string, len(reasons))
		for i, reason := range reasons {
			parts[i] = fmt.Sprintf("%s=%s", reason, humanize.Comma(int64(m.Verdicts[reason])))
		}
		b.WriteString(s.Dim.Render("  " + strings.Join(parts, " ")))
		b.WriteString("\n")
	}
}
