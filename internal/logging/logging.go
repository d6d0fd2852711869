package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration for a single run.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr additionally mirrors log records to stderr.
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging at the given path.
func DefaultConfig(filePath string) Config {
	return Config{
		Level:         "info",
		FilePath:      filePath,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig returns DefaultConfig with debug-level logging.
func DebugConfig(filePath string) Config {
	cfg := DefaultConfig(filePath)
	cfg.Level = "debug"
	return cfg
}

// Setup initializes file-based logging and returns a cleanup function that
// must be called to close the log file. Every record is synced to disk as
// it is written, so an interrupted run leaves a complete log tail.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(cfg.FilePath); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := &syncingHandler{
		inner:  slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}),
		writer: writer,
	}
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// syncingHandler wraps a slog.Handler and syncs the underlying file after
// every record, so the log's on-disk tail is always complete even if the
// process is killed mid-run.
type syncingHandler struct {
	inner  slog.Handler
	writer *RotatingWriter
}

func (h *syncingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *syncingHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	return h.writer.Sync()
}

func (h *syncingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syncingHandler{inner: h.inner.WithAttrs(attrs), writer: h.writer}
}

func (h *syncingHandler) WithGroup(name string) slog.Handler {
	return &syncingHandler{inner: h.inner.WithGroup(name), writer: h.writer}
}

// parseLevel converts a string level to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts a string level to slog.Level (exported for CLI flag validation).
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
