package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRequiredFlagsErrors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     func() *cobra.Command
		args    []string
		wantErr string
	}{
		{
			name:    "trace missing mode",
			cmd:     newTraceCmd,
			args:    nil,
			wantErr: "required flag --mode not set",
		},
		{
			name:    "summarize missing input",
			cmd:     newSummarizeCmd,
			args:    nil,
			wantErr: "required flag --input not set",
		},
		{
			name:    "validate-config missing config",
			cmd:     newValidateConfigCmd,
			args:    nil,
			wantErr: "required flag --config not set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestInvalidParameterErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "negative runs",
			args:    []string{"--runs=-1", "--quiet"},
			wantErr: "invalid parameters",
		},
		{
			name:    "loss out of range",
			args:    []string{"--p-loss", "1.5", "--quiet"},
			wantErr: "invalid parameters",
		},
		{
			name:    "unknown mode",
			args:    []string{"--modes", "hmac", "--quiet"},
			wantErr: "hmac",
		},
		{
			name:    "unknown preset",
			args:    []string{"--preset", "stormy", "--quiet"},
			wantErr: "stormy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRunCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "replaylab version dev") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunCmdWritesReport(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	csvPath := filepath.Join(dir, "runs.csv")

	var out bytes.Buffer
	cmd := newRunCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"--modes", "no_def,window",
		"--runs", "4",
		"--num-legit", "5",
		"--num-replay", "5",
		"--seed", "11",
		"--workers", "2",
		"--json-out", jsonPath,
		"--csv-out", csvPath,
		"--quiet",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Replay defense experiment") {
		t.Fatalf("missing report title in output: %q", out.String())
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep struct {
		Seed  int64 `json:"seed"`
		Modes []struct {
			Mode string `json:"mode"`
		} `json:"modes"`
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Seed != 11 {
		t.Fatalf("seed: got %d want 11", rep.Seed)
	}
	if len(rep.Modes) != 2 || rep.Modes[0].Mode != "no_def" || rep.Modes[1].Mode != "window" {
		t.Fatalf("unexpected modes: %+v", rep.Modes)
	}

	if _, err := os.Stat(csvPath); err != nil {
		t.Fatalf("csv not written: %v", err)
	}
}

func TestTraceCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newTraceCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--mode", "challenge", "--num-legit", "3", "--num-replay", "2", "--seed", "5"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !strings.Contains(out.String(), "Trace of one challenge run") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestTraceCmdWindowSizeOnlyForWindowMode(t *testing.T) {
	cmd := newTraceCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--mode", "rolling", "--window-size", "0", "--num-legit", "3", "--num-replay", "1", "--seed", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("trace rolling with window size 0: %v", err)
	}

	cmd = newTraceCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--mode", "window", "--window-size", "0"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "window_size") {
		t.Fatalf("expected window size error, got %v", err)
	}
}

func TestInitAndValidateConfigCmds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")

	initCmd := newInitConfigCmd()
	initCmd.SetOut(io.Discard)
	initCmd.SetErr(io.Discard)
	initCmd.SetArgs([]string{"--output", path})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("init-config: %v", err)
	}

	again := newInitConfigCmd()
	again.SetOut(io.Discard)
	again.SetErr(io.Discard)
	again.SetArgs([]string{"--output", path})
	if err := again.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}

	var out bytes.Buffer
	validateCmd := newValidateConfigCmd()
	validateCmd.SetOut(&out)
	validateCmd.SetErr(io.Discard)
	validateCmd.SetArgs([]string{path})
	if err := validateCmd.Execute(); err != nil {
		t.Fatalf("validate-config: %v", err)
	}
	if !strings.Contains(out.String(), "Config OK") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
