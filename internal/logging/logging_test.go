package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if dir == "" {
		t.Error("DefaultLogDir returned empty string")
	}
	if !contains(dir, "logs") {
		t.Errorf("DefaultLogDir should contain logs, got: %s", dir)
	}
}

func TestDefaultLogPath(t *testing.T) {
	now := time.Date(2026, 3, 5, 13, 4, 5, 0, time.UTC)
	path := DefaultLogPath(now)

	if filepath.Base(path) != "ingestion_20260305T130405Z.log" {
		t.Errorf("unexpected log file name: %s", filepath.Base(path))
	}
}

func TestEnsureLogDir_CreatesParent(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "nested", "run.log")

	if err := EnsureLogDir(logPath); err != nil {
		t.Fatalf("EnsureLogDir failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "nested")); err != nil {
		t.Errorf("expected nested dir to exist: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/run.log")

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB 10, got: %d", cfg.MaxSizeMB)
	}
	if cfg.MaxFiles != 5 {
		t.Errorf("expected MaxFiles 5, got: %d", cfg.MaxFiles)
	}
	if !cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be true")
	}
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig("/tmp/run.log")

	if cfg.Level != "debug" {
		t.Errorf("expected level 'debug', got: %s", cfg.Level)
	}
}

func TestSetup_WritesJSONRecords(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	cfg := Config{
		Level:         "debug",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      3,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("ingestion started", "pages", 42)
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if record["msg"] != "ingestion started" {
		t.Errorf("unexpected msg: %v", record["msg"])
	}
	if record["pages"] != float64(42) {
		t.Errorf("unexpected pages attr: %v", record["pages"])
	}
}

func TestSetup_FlushesAfterEveryRecord(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "flush.log")

	logger, cleanup, err := Setup(DefaultConfig(logPath))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	logger.Info("first record")

	// Without calling cleanup, the record must already be durable on disk
	// because every Handle call syncs the underlying file.
	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("failed to open log file before cleanup: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected at least one line to be durable before cleanup")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "level.log")

	cfg := DefaultConfig(logPath)
	cfg.Level = "warn"

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should be kept")
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	if contains(string(data), "should be dropped") {
		t.Error("info record should have been filtered out")
	}
	if !contains(string(data), "should be kept") {
		t.Error("warn record should have been written")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input).String(); got != tt.want {
				t.Errorf("LevelFromString(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
