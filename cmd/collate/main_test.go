package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/synaptica-ai/labcollate/pkg/common/config"
)

func parseRun(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cmd, _, err := newRootCmd().Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	applyRunFlags(cmd, cfg)
	return cfg
}

func TestRunFlagsOverrideFileAndEnv(t *testing.T) {
	t.Setenv("COLLATE_CODES_PATH", "env-codes.csv")
	t.Setenv("COLLATE_OUTPUT_PATH", "env-output.json")

	job := filepath.Join(t.TempDir(), "job.yaml")
	content := "results_path: yaml-results.csv\noutput_path: yaml-output.json\nprofile_code_column: 6\n"
	if err := os.WriteFile(job, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := parseRun(t, "--config", job, "--output", "flag-output.json", "--profile-code-column", "5", "--sinks", "file,redis")

	if cfg.CodesPath != "env-codes.csv" {
		t.Fatalf("expected env codes path, got %s", cfg.CodesPath)
	}
	if cfg.ResultsPath != "yaml-results.csv" {
		t.Fatalf("expected job file results path, got %s", cfg.ResultsPath)
	}
	if cfg.OutputPath != "flag-output.json" {
		t.Fatalf("expected flag output path, got %s", cfg.OutputPath)
	}
	if cfg.ProfileCodeIndex != 5 {
		t.Fatalf("expected profile code column 5, got %d", cfg.ProfileCodeIndex)
	}
	if len(cfg.Sinks) != 2 || !cfg.HasSink("redis") {
		t.Fatalf("unexpected sinks %v", cfg.Sinks)
	}
}

func TestRunWithoutFlagsKeepsConfig(t *testing.T) {
	t.Setenv("COLLATE_PROFILE_CODE_COLUMN", "7")

	cfg := parseRun(t)

	if cfg.ProfileCodeIndex != 7 {
		t.Fatalf("expected env profile code column, got %d", cfg.ProfileCodeIndex)
	}
	if cfg.OutputPath != "data/output.json" || len(cfg.Sinks) != 1 || !cfg.HasSink("file") {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestMissingJobFile(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd); err == nil {
		t.Fatal("expected error for missing job file")
	}
}

func TestBuildServiceUnknownSink(t *testing.T) {
	cfg := config.Load()
	cfg.Sinks = []string{"file", "s3"}

	_, _, err := buildService(cfg)
	if err == nil || !strings.Contains(err.Error(), "s3") {
		t.Fatalf("expected unknown sink error, got %v", err)
	}
}

func TestBuildServiceFileSink(t *testing.T) {
	cfg := config.Load()
	cfg.Sinks = []string{" File "}
	cfg.OutputPath = filepath.Join(t.TempDir(), "output.json")

	svc, cleanup, err := buildService(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if svc == nil {
		t.Fatal("expected service")
	}
}
