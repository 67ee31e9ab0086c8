package errors

import (
	"fmt"
	"strings"

	"github.com/tturner/replaylab/internal/sim"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Run 'replaylab init-config' to see every key with its default value",
		Try:     fmt.Sprintf("Validate your config: replaylab validate-config --config %s", configPath),
		Err:     err,
	}
}

// WrapTraceError wraps command trace loading errors
func WrapTraceError(err error, tracePath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Cannot use command trace %s", tracePath),
		Reason:  extractTraceReason(err),
		Hint:    "A trace lists one command per line; blank lines and lines starting with # are skipped",
		Try:     "Drop --commands-file to use the built-in FWD/BACK/LEFT/RIGHT/STOP set",
		Err:     err,
	}
}

// WrapSimulationError wraps errors returned while running experiments
func WrapSimulationError(err error, mode string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Experiment failed for mode %s", mode),
		Reason:  extractSimulationReason(err),
		Hint:    "Check the protocol and experiment parameters for this mode",
		Try:     "replaylab run --help",
		Err:     err,
	}
}

// WrapOutputError wraps failures writing result artifacts
func WrapOutputError(err error, path string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to write results to %s", path),
		Reason:  extractOutputReason(err),
		Hint:    "Make sure the parent directory exists and is writable",
		Err:     err,
	}
}

func extractTraceReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "cannot find") {
		return "Trace file does not exist"
	}
	if strings.Contains(errStr, "no commands") {
		return "Trace file contains no commands"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Trace file is not readable"
	}

	return "Trace file could not be read"
}

func extractSimulationReason(err error) string {
	switch {
	case sim.IsKind(err, sim.KindInvalidWindow):
		return "Window mode needs a window size of at least 1"
	case sim.IsKind(err, sim.KindInvalidNonceBits):
		return "Nonce size must be between 1 and 64 bits"
	case sim.IsKind(err, sim.KindUnknownMode):
		return "Unknown defense mode"
	case sim.IsKind(err, sim.KindMissingToken), sim.IsKind(err, sim.KindMissingNonce):
		return "Frame could not be authenticated"
	}
	if strings.Contains(err.Error(), "context canceled") {
		return "Experiment was interrupted"
	}

	return "Simulation error occurred"
}

func extractOutputReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "no such file") {
		return "Output directory does not exist"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Output location is not writable"
	}

	return "Output could not be written"
}
