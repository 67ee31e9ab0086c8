package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONFile writes the report as indented JSON to path.
func WriteJSONFile(path string, report *ExperimentReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteJSON writes the report as JSON to an io.Writer.
func WriteJSON(w io.Writer, report *ExperimentReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ReadJSONFile loads a report written by WriteJSONFile.
func ReadJSONFile(path string) (*ExperimentReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report ExperimentReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}
