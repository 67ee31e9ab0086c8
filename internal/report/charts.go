package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders a mini line chart using braille characters.
// Values are rates in [0, 1]; they are not rescaled so that sparklines of
// different modes stay comparable.
func Sparkline(values []float64, width int, s Styles) string {
	if len(values) == 0 || width < 1 {
		return ""
	}

	// Braille patterns for 5 vertical levels (bottom to top)
	blocks := []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}

	// Downsample by averaging buckets, never pad
	if len(values) < width {
		width = len(values)
	}
	sampled := make([]float64, width)
	step := float64(len(values)) / float64(width)
	for i := 0; i < width; i++ {
		start := int(float64(i) * step)
		end := int(float64(i+1) * step)
		if end <= start {
			end = start + 1
		}
		if end > len(values) {
			end = len(values)
		}
		sum := 0.0
		for _, v := range values[start:end] {
			sum += v
		}
		sampled[i] = sum / float64(end-start)
	}

	var result strings.Builder
	for _, v := range sampled {
		level := 0
		if v > 0 {
			level = 1 + int(v*float64(len(blocks)-2)+0.5)
		}
		if level >= len(blocks) {
			level = len(blocks) - 1
		}
		result.WriteRune(blocks[level])
	}

	return s.Info.Render(result.String())
}

// BarChart renders a horizontal bar chart of rates.
type BarChart struct {
	Items []BarChartItem
	Width int
}

// BarChartItem is a single bar in the chart. Value is a rate in [0, 1],
// Spread is drawn as a ± suffix when non-zero.
type BarChartItem struct {
	Label  string
	Value  float64
	Spread float64
	Color  lipgloss.Color
}

// Render renders the bar chart.
func (b BarChart) Render(s Styles) string {
	if len(b.Items) == 0 {
		return ""
	}

	maxLabelLen := 0
	for _, item := range b.Items {
		if len(item.Label) > maxLabelLen {
			maxLabelLen = len(item.Label)
		}
	}

	barWidth := b.Width - maxLabelLen - 18 // Space for label and value
	if barWidth < 10 {
		barWidth = 10
	}

	var lines []string
	for _, item := range b.Items {
		label := padRight(item.Label, maxLabelLen)

		value := item.Value
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		filled := int(value*float64(barWidth) + 0.5)
		bar := s.color(item.Color).Render(strings.Repeat("█", filled)) +
			s.Muted.Render(strings.Repeat("░", barWidth-filled))

		text := formatPercent(item.Value)
		if item.Spread > 0 {
			text += " ± " + formatPercent(item.Spread)
		}

		lines = append(lines, fmt.Sprintf("%s %s %s", s.Dim.Render(label), bar, s.Base.Render(text)))
	}

	return strings.Join(lines, "\n")
}

// MiniTable renders a compact key-value table.
func MiniTable(items [][]string, s Styles) string {
	if len(items) == 0 {
		return ""
	}

	maxKeyLen := 0
	for _, item := range items {
		if len(item) > 0 && len(item[0]) > maxKeyLen {
			maxKeyLen = len(item[0])
		}
	}

	var lines []string
	for _, item := range items {
		if len(item) < 2 {
			continue
		}
		key := padRight(item[0], maxKeyLen)
		lines = append(lines, s.Dim.Render(key)+"  "+s.Base.Render(item[1]))
	}

	return strings.Join(lines, "\n")
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%5.1f%%", rate*100)
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
