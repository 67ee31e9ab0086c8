package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tturner/replaylab/internal/errors"
)

// LoadCommandTrace reads one command per line. Blank lines and lines
// starting with # are skipped; a trace without commands is an error.
func LoadCommandTrace(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapTraceError(fmt.Errorf("open command trace: %w", err), path)
	}
	defer file.Close()

	var commands []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTraceError(fmt.Errorf("read command trace: %w", err), path)
	}
	if len(commands) == 0 {
		return nil, errors.WrapTraceError(fmt.Errorf("%s: no commands found", path), path)
	}
	return commands, nil
}
