package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for text reports.
// Inspired by btop and Tokyo Night color scheme.
type Theme struct {
	TextPrimary lipgloss.Color
	TextDim     lipgloss.Color
	TextMuted   lipgloss.Color

	Border lipgloss.Color

	Accent  lipgloss.Color // Primary accent (blue)
	Success lipgloss.Color // Success/positive (green)
	Warning lipgloss.Color // Warning/caution (amber)
	Error   lipgloss.Color // Error/danger (red/pink)
	Info    lipgloss.Color // Info/neutral (cyan)
	Purple  lipgloss.Color
}

// DefaultTheme is the dark theme used for terminal reports.
var DefaultTheme = Theme{
	TextPrimary: lipgloss.Color("#c0caf5"),
	TextDim:     lipgloss.Color("#565f89"),
	TextMuted:   lipgloss.Color("#414868"),

	Border: lipgloss.Color("#414868"),

	Accent:  lipgloss.Color("#7aa2f7"),
	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7dcfff"),
	Purple:  lipgloss.Color("#bb9af7"),
}

// Styles holds the lipgloss styles of one output. Styles built for a
// non-terminal writer render plain text.
type Styles struct {
	renderer *lipgloss.Renderer
	theme    Theme

	Base    lipgloss.Style
	Dim     lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Title   lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles creates styles for output written to w.
func NewStyles(w io.Writer, t Theme) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		renderer: r,
		theme:    t,

		Base:  r.NewStyle().Foreground(t.TextPrimary),
		Dim:   r.NewStyle().Foreground(t.TextDim),
		Muted: r.NewStyle().Foreground(t.TextMuted),
		Bold:  r.NewStyle().Foreground(t.TextPrimary).Bold(true),
		Title: r.NewStyle().
			Foreground(t.Accent).
			Bold(true),
		Header: r.NewStyle().
			Foreground(t.Purple).
			Bold(true),
		Success: r.NewStyle().Foreground(t.Success),
		Warning: r.NewStyle().Foreground(t.Warning),
		Error:   r.NewStyle().Foreground(t.Error),
		Info:    r.NewStyle().Foreground(t.Info),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
	}
}

func (s Styles) color(c lipgloss.Color) lipgloss.Style {
	return s.renderer.NewStyle().Foreground(c)
}

// legitColor grades a legitimate acceptance rate: high is good.
func (s Styles) legitColor(rate float64) lipgloss.Color {
	switch {
	case rate >= 0.9:
		return s.theme.Success
	case rate >= 0.6:
		return s.theme.Warning
	default:
		return s.theme.Error
	}
}

// attackColor grades an attack success rate: low is good.
func (s Styles) attackColor(rate float64) lipgloss.Color {
	switch {
	case rate <= 0.01:
		return s.theme.Success
	case rate <= 0.2:
		return s.theme.Warning
	default:
		return s.theme.Error
	}
}
