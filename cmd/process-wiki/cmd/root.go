// Package cmd provides the process-wiki CLI: a single entry point that
// decodes a MediaWiki XML dump, chunks and enriches its articles, and
// ingests the result into a persistent vector store.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wikivault/process-wiki/internal/config"
	"github.com/wikivault/process-wiki/internal/embed"
	"github.com/wikivault/process-wiki/internal/errs"
	"github.com/wikivault/process-wiki/internal/ingest"
	"github.com/wikivault/process-wiki/internal/logging"
	"github.com/wikivault/process-wiki/internal/stats"
	"github.com/wikivault/process-wiki/internal/store"
	"github.com/wikivault/process-wiki/pkg/version"
)

// runFlags mirrors the full process-wiki CLI surface; each has a
// WIKI_PIPELINE_ environment equivalent applied by config.Load before
// these flags are overlaid on top.
type runFlags struct {
	outputDir          string
	collection         string
	maxTokens          int
	overlapTokens      int
	batchSize          int
	embeddingBatchSize int
	limit              int
	logFile            string
	logLevel           string
	configFile         string
	resume             bool
	accelerator        string
}

// chunkDefaultTargetTokens and chunkDefaultOverlapTokens mirror
// chunk.DefaultTargetTokens/DefaultOverlapTokens without importing the
// chunk package just for flag defaults.
const (
	chunkDefaultTargetTokens  = 800
	chunkDefaultOverlapTokens = 100
)

// NewRootCmd creates the process-wiki root command.
func NewRootCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:     "process-wiki <xml_path>",
		Short:   "Stream a MediaWiki XML dump into a filtered vector store",
		Version: version.Version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("process-wiki version {{.Version}}\n")

	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "./vector_store", "Directory holding the vector store and metadata database")
	cmd.Flags().StringVar(&flags.collection, "collection", "fallout_wiki", "Collection name for the vector store")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", chunkDefaultTargetTokens, "Target token budget per chunk")
	cmd.Flags().IntVar(&flags.overlapTokens, "overlap-tokens", chunkDefaultOverlapTokens, "Token overlap between adjacent chunks")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 500, "Number of chunks written to the store per ingestion batch")
	cmd.Flags().IntVar(&flags.embeddingBatchSize, "embedding-batch-size", 128, "Number of chunks embedded per request")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Stop after N pages (0 = unlimited)")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Path to the run's log file (default: ingestion_<UTC>.log)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "INFO", "Log level: DEBUG, INFO, WARNING, ERROR")
	cmd.Flags().StringVar(&flags.configFile, "config", "", "Optional process-wiki.yaml config file")
	cmd.Flags().BoolVar(&flags.resume, "resume", false, "Resume from the collection's last checkpoint")
	cmd.Flags().StringVar(&flags.accelerator, "accelerator", "auto", "Embedding backend: auto, native, cpu")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command and returns an error carrying the exit
// code the process should use (see ExitCode).
func Execute() error {
	return NewRootCmd().Execute()
}

// runPipeline builds the configuration, wires C1-C8's collaborators, and
// drives one ingestion run to completion or interruption, mapping the
// outcome to the process's exit code.
func runPipeline(cmd *cobra.Command, dumpPath string, flags runFlags) error {
	cfg, err := buildConfig(dumpPath, flags)
	if err != nil {
		return withExitCode(1, err)
	}

	logPath := flags.logFile
	if logPath == "" {
		logPath = logging.DefaultLogPath(time.Now())
	}
	logCfg := logging.DefaultConfig(logPath)
	logCfg.Level = cfg.Logging.Level
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return withExitCode(1, fmt.Errorf("setup logging: %w", err))
	}
	defer cleanup()

	if err := os.MkdirAll(cfg.Store.OutputDir, 0o755); err != nil {
		return withExitCode(1, errs.New(errs.CodeDumpNotFound, "create output dir", err))
	}

	collectionLock := embed.NewNamedFileLock(cfg.Store.OutputDir, cfg.Store.Collection+".lock")
	acquired, err := collectionLock.TryLock()
	if err != nil {
		return withExitCode(1, fmt.Errorf("acquire collection lock: %w", err))
	}
	if !acquired {
		return withExitCode(1, fmt.Errorf("collection %q is locked by another process at %s", cfg.Store.Collection, cfg.Store.OutputDir))
	}
	defer collectionLock.Unlock()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := stats.NewRun()

	acceleratorCfg := embed.DefaultAcceleratorConfig()
	acceleratorCfg.SubBatchSize = cfg.Embeddings.BatchSize

	embedder, err := embed.NewEmbedder(ctx, embed.ParseAccelerator(cfg.Embeddings.Accelerator),
		acceleratorCfg, embed.NativeLibraryConfig{})
	if err != nil {
		return withExitCode(1, fmt.Errorf("build embedder: %w", err))
	}
	defer embedder.Close()

	info := embed.GetInfo(ctx, embedder)
	logger.Info("resolved embedder", slog.String("model", info.ModelName), slog.Int("dimensions", info.Dimensions))

	vectorPath := filepath.Join(cfg.Store.OutputDir, cfg.Store.Collection+".hnsw")
	vectors, err := openVectorStore(vectorPath, info.Dimensions)
	if err != nil {
		return withExitCode(1, err)
	}
	defer func() {
		_ = vectors.Save(vectorPath)
		_ = vectors.Close()
	}()

	metadataPath := filepath.Join(cfg.Store.OutputDir, cfg.Store.Collection+".db")
	metadata, err := store.NewSQLiteMetadataStore(metadataPath)
	if err != nil {
		return withExitCode(1, fmt.Errorf("open metadata store: %w", err))
	}
	defer metadata.Close()

	if err := checkEmbedderConsistency(ctx, metadata, info); err != nil {
		return withExitCode(1, err)
	}

	manager := ingest.New(cfg, embedder, vectors, metadata, run, logger)

	stopProgress := startProgressIndicator(cmd.ErrOrStderr(), run)
	result, runErr := manager.Run(ctx)
	stopProgress()

	statsPath := filepath.Join(cfg.Store.OutputDir, "processing_stats.json")
	if writeErr := run.WriteFile(statsPath); writeErr != nil {
		logger.Warn("failed to write stats file", slog.String("error", writeErr.Error()))
	}

	snap := result.Snapshot
	logger.Info("run complete",
		slog.Bool("interrupted", result.Interrupted),
		slog.Int64("pages_seen", snap.PagesSeen),
		slog.Int64("pages_skipped", snap.PagesSkipped),
		slog.Int64("pages_failed", snap.PagesFailed),
		slog.Int64("chunks_created", snap.ChunksCreated),
		slog.Int64("chunks_ingested", snap.ChunksIngested),
		slog.Int64("batches_written", snap.BatchesWritten),
		slog.String("log_file", logPath),
		slog.String("stats_file", statsPath),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "pages seen=%d skipped=%d failed=%d | chunks created=%d ingested=%d | batches=%d | %s\n",
		snap.PagesSeen, snap.PagesSkipped, snap.PagesFailed, snap.ChunksCreated, snap.ChunksIngested, snap.BatchesWritten, logPath)

	if runErr != nil {
		return withExitCode(1, runErr)
	}
	if result.Interrupted {
		return withExitCode(2, fmt.Errorf("run interrupted"))
	}
	return nil
}

// buildConfig loads defaults/file/env (config.Load), then overlays CLI
// flags, which sit at the top of the precedence order.
func buildConfig(dumpPath string, flags runFlags) (*config.Config, error) {
	configPath := flags.configFile
	if configPath == "" {
		configPath = config.FindConfigFile(".")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	cfg.Dump.Path = dumpPath
	cfg.Store.OutputDir = flags.outputDir
	cfg.Store.Collection = flags.collection
	cfg.Chunking.TargetTokens = flags.maxTokens
	cfg.Chunking.OverlapTokens = flags.overlapTokens
	cfg.Ingestion.BatchSize = flags.batchSize
	cfg.Embeddings.BatchSize = flags.embeddingBatchSize
	cfg.Ingestion.Limit = flags.limit
	cfg.Ingestion.Resume = flags.resume
	cfg.Logging.File = flags.logFile
	cfg.Logging.Level = normalizeLogLevel(flags.logLevel)
	cfg.Embeddings.Accelerator = flags.accelerator

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeLogLevel maps the CLI's upper-case levels onto the
// lower-case levels config.Validate and logging.Setup expect.
func normalizeLogLevel(level string) string {
	switch level {
	case "DEBUG", "debug":
		return "debug"
	case "WARNING", "warn", "WARN":
		return "warn"
	case "ERROR", "error":
		return "error"
	default:
		return "info"
	}
}

// openVectorStore loads an existing HNSW index at path, or creates a
// fresh one sized for dimensions if none exists yet.
func openVectorStore(path string, dimensions int) (store.VectorStore, error) {
	vs, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := vs.Load(path); err != nil {
			return nil, fmt.Errorf("load vector store %s: %w", path, err)
		}
	}
	return vs, nil
}

// checkEmbedderConsistency refuses to mix embeddings from two different
// models in the same collection: swapping models invalidates prior
// embeddings, so a mismatch here means the caller needs a fresh
// collection rather than a continued run.
func checkEmbedderConsistency(ctx context.Context, metadata store.MetadataStore, info embed.EmbedderInfo) error {
	existing, err := metadata.GetState(ctx, store.StateKeyIndexModel)
	if err != nil {
		return fmt.Errorf("read index model state: %w", err)
	}
	if existing == "" {
		if err := metadata.SetState(ctx, store.StateKeyIndexModel, info.ModelName); err != nil {
			return fmt.Errorf("record index model: %w", err)
		}
		return metadata.SetState(ctx, store.StateKeyIndexDimension, fmt.Sprintf("%d", info.Dimensions))
	}
	if existing != info.ModelName {
		return errs.New(errs.CodeDimensionMismatch,
			fmt.Sprintf("collection was embedded with %q, current embedder is %q; use a fresh collection", existing, info.ModelName), nil)
	}
	return nil
}

// exitCodeError carries the process exit code a failure should map to:
// 0 success, 1 fatal error, 2 user interrupt.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitCodeError{code: code, err: err}
}

// ExitCode extracts the process exit code from an error returned by
// Execute, defaulting to 1 for any other non-nil error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if asExitCodeError(err, &ec) {
		return ec.code
	}
	return 1
}

func asExitCodeError(err error, target **exitCodeError) bool {
	for err != nil {
		if ec, ok := err.(*exitCodeError); ok {
			*target = ec
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
