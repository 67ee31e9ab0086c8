package logging

// Structured logging for replaylab

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tturner/replaylab/internal/sim"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// Logger provides structured logging
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	format   string
	logEvery int
	counter  int
	file     *os.File
	fileLog  *log.Logger
	stdout   *log.Logger
	stderr   *log.Logger
}

// NewLogger creates a new text logger that writes every message
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	return NewLoggerWithOptions(level, logFile, "text", 1)
}

// NewLoggerWithOptions creates a logger with an output format ("text" or
// "json") and console sampling. With logEvery > 1 only every logEvery-th
// non-error message reaches the console; the log file always gets all of them.
func NewLoggerWithOptions(level LogLevel, logFile, format string, logEvery int) (*Logger, error) {
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unsupported log format %q (use text or json)", format)
	}
	if logEvery < 1 {
		logEvery = 1
	}

	l := &Logger{
		level:    level,
		format:   format,
		logEvery: logEvery,
		stdout:   log.New(os.Stdout, "", 0),
		stderr:   log.New(os.Stderr, "", 0),
	}

	// Open log file if specified
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		flags := log.LstdFlags
		if format == "json" {
			flags = 0
		}
		l.fileLog = log.New(file, "", flags)
	}

	return l, nil
}

// ParseLevel maps a CLI level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "quiet":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.write("ERROR", fmt.Sprintf(format, v...), true)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.write("INFO", fmt.Sprintf(format, v...), false)
	}
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.write("VERBOSE", fmt.Sprintf(format, v...), false)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.write("DEBUG", fmt.Sprintf(format, v...), false)
	}
}

type jsonLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func levelLabel(isError bool) string {
	if isError {
		return "error"
	}
	return "info"
}

func (l *Logger) render(tag, msg string, isError bool) string {
	if l.format != "json" {
		return tag + ": " + msg
	}
	data, err := json.Marshal(jsonLine{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Level:   levelLabel(isError),
		Tag:     strings.ToLower(tag),
		Message: msg,
	})
	if err != nil {
		return tag + ": " + msg
	}
	return string(data)
}

// write writes a message to the appropriate outputs
func (l *Logger) write(tag, msg string, isError bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := l.render(tag, msg, isError)

	// Always write to log file if available
	if l.fileLog != nil {
		l.fileLog.Println(line)
	}

	if isError {
		l.stderr.Println(line)
		return
	}

	l.counter++
	if l.counter%l.logEvery != 0 {
		return
	}
	// Only print to stdout if verbose or debug
	if l.level >= LogLevelVerbose {
		l.stdout.Println(line)
	}
}

// LogStartup logs the experiment parameters
func (l *Logger) LogStartup(modes []sim.Mode, runs int, cfg sim.SimulationConfig, seed *int64, configPath string) {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	l.Info("Starting replaylab experiment")
	l.Verbose("  Modes: %s", strings.Join(names, ", "))
	l.Verbose("  Runs per mode: %d", runs)
	l.Verbose("  Traffic: %d legit, %d replay (%s)", cfg.NumLegit, cfg.NumReplay, cfg.AttackTiming)
	l.Verbose("  Channel: p_loss=%.3f p_reorder=%.3f", cfg.PLoss, cfg.PReorder)
	l.Verbose("  Attacker record loss: %.3f", cfg.AttackerRecordLoss)
	l.Verbose("  Window size: %d", cfg.WindowSize)
	if seed != nil {
		l.Verbose("  Seed: %d", *seed)
	} else {
		l.Verbose("  Seed: (clock)")
	}
	if configPath != "" {
		l.Verbose("  Config: %s", configPath)
	}
}

// LogRun logs one finished Monte Carlo run
func (l *Logger) LogRun(r sim.RunResult) {
	l.Debug("run %s #%d seed=%d legit %d/%d attack %d/%d dropped=%d",
		r.Mode, r.RunIndex, r.Seed, r.LegitAccepted, r.LegitSent, r.AttackAccepted, r.AttackAttempts, r.ChannelDropped)
	if l.level >= LogLevelDebug && len(r.AttackVerdicts) > 0 {
		l.Debug("  attack verdicts: %s", formatVerdicts(r.AttackVerdicts))
	}
}

// LogAggregate logs per-mode summary statistics
func (l *Logger) LogAggregate(s sim.AggregateStats) {
	l.Info("%-9s legit %.3f ± %.3f  attack %.3f ± %.3f (%d runs)",
		s.Mode, s.AvgLegitRate, s.StdLegitRate, s.AvgAttackRate, s.StdAttackRate, s.Runs)
}

// LogDelivery logs one frame verdict from a traced run
func (l *Logger) LogDelivery(d sim.Delivery) {
	if l.level < LogLevelDebug {
		return
	}
	origin := "legit"
	if d.Frame.IsAttack {
		origin = "attack"
	}
	l.Debug("step %d %s %s -> %s", d.Step, origin, d.Frame.Command, d.Verdict.Reason)
}

func formatVerdicts(counts map[sim.Reason]int) string {
	keys := make([]string, 0, len(counts))
	for r := range counts {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[sim.Reason(k)])
	}
	return strings.Join(parts, " ")
}

// MultiWriter creates an io.Writer that writes to multiple writers
type MultiWriter struct {
	writers []io.Writer
}

// NewMultiWriter creates a new multi-writer
func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes to all writers
func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		n, err = w.Write(p)
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}
