package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLogDir returns the default log directory (./logs).
// Falls back to the temp directory if the current directory is unusable.
func DefaultLogDir() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "logs")
	}
	return filepath.Join(os.TempDir(), "process-wiki", "logs")
}

// DefaultLogPath returns the default per-run log path,
// "ingestion_<UTC-timestamp>.log" as named in the CLI contract.
func DefaultLogPath(now time.Time) string {
	name := fmt.Sprintf("ingestion_%s.log", now.UTC().Format("20060102T150405Z"))
	return filepath.Join(DefaultLogDir(), name)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
