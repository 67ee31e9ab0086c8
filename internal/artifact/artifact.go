// Package artifact lays out the output directory of one experiment.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/replaylab/internal/config"
	"github.com/tturner/replaylab/internal/metrics"
	"github.com/tturner/replaylab/internal/sim"
)

// RunMetadata describes one experiment and where its artifacts went.
type RunMetadata struct {
	// Run identification
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`
	Version   string    `json:"version,omitempty"`

	// Experiment
	ConfigFile  string   `json:"config_file,omitempty"`
	Preset      string   `json:"preset,omitempty"`
	Seed        int64    `json:"seed"`
	Modes       []string `json:"modes"`
	RunsPerMode int      `json:"runs_per_mode"`

	// Results
	Stats    RunStats `json:"stats"`
	ExitCode int      `json:"exit_code"`
	Error    string   `json:"error,omitempty"`

	// Artifact paths (relative to output directory)
	Artifacts ArtifactPaths `json:"artifacts"`
}

// RunStats are the frame totals over every mode.
type RunStats struct {
	TotalRuns      int `json:"total_runs"`
	LegitSent      int `json:"legit_sent"`
	LegitAccepted  int `json:"legit_accepted"`
	AttackAttempts int `json:"attack_attempts"`
	AttackAccepted int `json:"attack_accepted"`
	ChannelDropped int `json:"channel_dropped"`
}

// ArtifactPaths contains the paths of generated artifacts.
type ArtifactPaths struct {
	RunJSON     string `json:"run_json"`
	ConfigYAML  string `json:"config_yaml,omitempty"`
	ReportJSON  string `json:"report_json,omitempty"`
	RunsCSV     string `json:"runs_csv,omitempty"`
	RunsJSON    string `json:"runs_json,omitempty"`
	MetricsProm string `json:"metrics_prom,omitempty"`
	SummaryTxt  string `json:"summary_txt,omitempty"`
}

const (
	runJSONName     = "run.json"
	configYAMLName  = "config.yaml"
	reportJSONName  = "report.json"
	runsCSVName     = "runs.csv"
	metricsPromName = "metrics.prom"
	summaryTxtName  = "summary.txt"
)

// OutputManager manages the artifact directory of one experiment.
type OutputManager struct {
	outputDir string
	runID     string
	metadata  *RunMetadata
}

// NewOutputManager creates outputDir and starts the run clock.
func NewOutputManager(outputDir string) (*OutputManager, error) {
	runID := time.Now().Format("20060102-150405")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &OutputManager{
		outputDir: outputDir,
		runID:     runID,
		metadata: &RunMetadata{
			RunID:     runID,
			StartTime: time.Now(),
			Artifacts: ArtifactPaths{
				RunJSON: runJSONName,
			},
		},
	}, nil
}

// OutputDir returns the output directory path.
func (m *OutputManager) OutputDir() string {
	return m.outputDir
}

// RunID returns the run identifier.
func (m *OutputManager) RunID() string {
	return m.runID
}

// Bind points every output left empty in out at the output directory.
// Outputs already set elsewhere are kept and recorded as given.
func (m *OutputManager) Bind(out *config.OutputConfig) {
	bind := func(field *string, name string, record *string) {
		if *field == "" {
			*field = filepath.Join(m.outputDir, name)
			*record = name
			return
		}
		*record = m.relative(*field)
	}
	bind(&out.JSONFile, reportJSONName, &m.metadata.Artifacts.ReportJSON)
	bind(&out.CSVFile, runsCSVName, &m.metadata.Artifacts.RunsCSV)
	bind(&out.MetricsTextfile, metricsPromName, &m.metadata.Artifacts.MetricsProm)
	bind(&out.TextFile, summaryTxtName, &m.metadata.Artifacts.SummaryTxt)
	if out.RunsJSONFile != "" {
		m.metadata.Artifacts.RunsJSON = m.relative(out.RunsJSONFile)
	}
}

// SetExperiment records what is being run.
func (m *OutputManager) SetExperiment(version, configFile, preset string, seed int64, modes []sim.Mode, runs int) {
	m.metadata.Version = version
	m.metadata.ConfigFile = configFile
	m.metadata.Preset = preset
	m.metadata.Seed = seed
	m.metadata.RunsPerMode = runs
	m.metadata.Modes = make([]string, len(modes))
	for i, mode := range modes {
		m.metadata.Modes[i] = string(mode)
	}
}

// WriteConfig snapshots the resolved config so the experiment can be rerun
// with --config.
func (m *OutputManager) WriteConfig(cfg *config.Config) error {
	snapshot := *cfg
	snapshot.Output = config.OutputConfig{}
	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.ConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("write config snapshot: %w", err)
	}
	m.metadata.Artifacts.ConfigYAML = configYAMLName
	return nil
}

// ConfigPath returns the full path for the config snapshot.
func (m *OutputManager) ConfigPath() string {
	return filepath.Join(m.outputDir, configYAMLName)
}

// RunJSONPath returns the full path for the run.json file.
func (m *OutputManager) RunJSONPath() string {
	return filepath.Join(m.outputDir, runJSONName)
}

// Metadata returns a copy of the collected metadata.
func (m *OutputManager) Metadata() RunMetadata {
	return *m.metadata
}

// Finalize stops the clock and writes run.json.
func (m *OutputManager) Finalize(summary *metrics.Summary, runErr error) error {
	m.metadata.EndTime = time.Now()
	m.metadata.Duration = m.metadata.EndTime.Sub(m.metadata.StartTime).String()

	if runErr != nil {
		m.metadata.ExitCode = 1
		m.metadata.Error = runErr.Error()
	}

	if summary != nil {
		stats := RunStats{TotalRuns: summary.TotalRuns}
		for _, ms := range summary.ByMode {
			stats.LegitSent += ms.LegitSent
			stats.LegitAccepted += ms.LegitAccepted
			stats.AttackAttempts += ms.AttackAttempts
			stats.AttackAccepted += ms.AttackAccepted
			stats.ChannelDropped += ms.ChannelDropped
		}
		m.metadata.Stats = stats
	}

	data, err := json.MarshalIndent(m.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run.json: %w", err)
	}
	if err := os.WriteFile(m.RunJSONPath(), data, 0644); err != nil {
		return fmt.Errorf("write run.json: %w", err)
	}
	return nil
}

func (m *OutputManager) relative(path string) string {
	if rel, err := filepath.Rel(m.outputDir, path); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return path
}
