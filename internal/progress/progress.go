package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const barWidth = 40

// ProgressBar tracks finished Monte Carlo runs on stderr. It is safe for
// use from the experiment workers.
type ProgressBar struct {
	mu          sync.Mutex
	total       int64
	current     int64
	startTime   time.Time
	lastUpdate  time.Time
	output      io.Writer
	enabled     bool
	description string
	unit        string
}

// NewProgressBar creates a progress bar counting total runs
func NewProgressBar(total int64, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		output:      os.Stderr, // keep stdout clean for the results table
		enabled:     true,
		description: description,
		unit:        "runs",
	}
}

// SetOutput redirects the bar, which defaults to stderr
func (p *ProgressBar) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// Disable disables the progress bar
func (p *ProgressBar) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

// Callback adapts the bar to the experiment progress hook.
func (p *ProgressBar) Callback() func(done, total int) {
	return func(done, total int) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.total = int64(total)
		p.current = int64(done)
		p.render()
	}
}

// render draws the bar; callers hold p.mu
func (p *ProgressBar) render() {
	if !p.enabled {
		return
	}

	now := time.Now()
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && p.current < p.total {
		return
	}
	p.lastUpdate = now

	var percent float64
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total) * 100
	}

	elapsed := time.Since(p.startTime)

	var eta time.Duration
	var rate float64
	if p.current > 0 && elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
		if rate > 0 && p.total > 0 {
			remaining := float64(p.total-p.current) / rate
			eta = time.Duration(remaining * float64(time.Second))
		}
	}

	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	var b strings.Builder
	b.WriteString("\r")
	if p.description != "" {
		b.WriteString(p.description + " ")
	}
	fmt.Fprintf(&b, "[%s] %s/%s %s (%.1f%%) | Elapsed: %s",
		bar, humanize.Comma(p.current), humanize.Comma(p.total), p.unit, percent, formatDuration(elapsed))
	if rate > 0 {
		fmt.Fprintf(&b, " | %s %s/s", humanize.CommafWithDigits(rate, 1), p.unit)
	}
	if eta > 0 && p.current < p.total {
		fmt.Fprintf(&b, " | ETA: %s", formatDuration(eta))
	}

	fmt.Fprint(p.output, b.String())
}

// Finish marks every run done and ends the line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}

	p.current = p.total
	p.render()
	fmt.Fprint(p.output, "\n")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
