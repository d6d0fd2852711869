package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete process-wiki run configuration.
//
// Precedence, lowest to highest:
//  1. NewConfig defaults
//  2. an optional process-wiki.yaml file
//  3. WIKI_PIPELINE_* environment variables
//  4. CLI flags (applied by the caller after Load)
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Dump       DumpConfig       `yaml:"dump" json:"dump"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Ingestion  IngestionConfig  `yaml:"ingestion" json:"ingestion"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// DumpConfig configures the MediaWiki XML dump source.
type DumpConfig struct {
	Path string `yaml:"path" json:"path"`
}

// StoreConfig configures where ingested vectors and metadata are written.
type StoreConfig struct {
	OutputDir  string `yaml:"output_dir" json:"output_dir"`
	Collection string `yaml:"collection" json:"collection"`
}

// ChunkingConfig configures section-aware token-budgeted chunking.
type ChunkingConfig struct {
	// TargetTokens is the preferred chunk size in tokens.
	TargetTokens int `yaml:"target_tokens" json:"target_tokens"`
	// MinTokens is the minimum viable chunk size; trailing fragments below
	// this are merged into the previous chunk (within the tolerance factor).
	MinTokens int `yaml:"min_tokens" json:"min_tokens"`
	// OverlapTokens is the sliding-window overlap between consecutive chunks.
	OverlapTokens int `yaml:"overlap_tokens" json:"overlap_tokens"`
}

// EmbeddingsConfig configures the embedding engine.
type EmbeddingsConfig struct {
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// Accelerator selects the embedding backend: "auto", "native", or "cpu".
	Accelerator string `yaml:"accelerator" json:"accelerator"`
}

// IngestionConfig configures the ingestion manager.
type IngestionConfig struct {
	// BatchSize is the number of chunks written to the store per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Workers is the number of concurrent embedding workers.
	Workers int `yaml:"workers" json:"workers"`
	// Resume continues an interrupted run from its last checkpoint.
	Resume bool `yaml:"resume" json:"resume"`
	// Limit caps the number of pages processed (0 = unlimited), for smoke runs.
	Limit int `yaml:"limit" json:"limit"`
}

// LoggingConfig configures run logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Dump:    DumpConfig{},
		Store: StoreConfig{
			OutputDir:  "./data",
			Collection: "wiki",
		},
		Chunking: ChunkingConfig{
			TargetTokens:  800,
			MinTokens:     500,
			OverlapTokens: 100,
		},
		Embeddings: EmbeddingsConfig{
			Model:       "static-768",
			Dimensions:  768,
			BatchSize:   128,
			Accelerator: "auto",
		},
		Ingestion: IngestionConfig{
			BatchSize: 500,
			Workers:   runtime.NumCPU(),
			Resume:    false,
			Limit:     0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// WIKI_PIPELINE_* environment variables, in that order of precedence.
// configPath may be empty, in which case only defaults and env vars apply.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		if err := cfg.loadYAML(configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Dump.Path != "" {
		c.Dump.Path = other.Dump.Path
	}

	if other.Store.OutputDir != "" {
		c.Store.OutputDir = other.Store.OutputDir
	}
	if other.Store.Collection != "" {
		c.Store.Collection = other.Store.Collection
	}

	if other.Chunking.TargetTokens != 0 {
		c.Chunking.TargetTokens = other.Chunking.TargetTokens
	}
	if other.Chunking.MinTokens != 0 {
		c.Chunking.MinTokens = other.Chunking.MinTokens
	}
	if other.Chunking.OverlapTokens != 0 {
		c.Chunking.OverlapTokens = other.Chunking.OverlapTokens
	}

	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.Accelerator != "" {
		c.Embeddings.Accelerator = other.Embeddings.Accelerator
	}

	if other.Ingestion.BatchSize != 0 {
		c.Ingestion.BatchSize = other.Ingestion.BatchSize
	}
	if other.Ingestion.Workers != 0 {
		c.Ingestion.Workers = other.Ingestion.Workers
	}
	if other.Ingestion.Resume {
		c.Ingestion.Resume = other.Ingestion.Resume
	}
	if other.Ingestion.Limit != 0 {
		c.Ingestion.Limit = other.Ingestion.Limit
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies WIKI_PIPELINE_* environment variable overrides.
// Nested fields use a double underscore, e.g. WIKI_PIPELINE_CHUNKING__TARGET_TOKENS.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WIKI_PIPELINE_DUMP__PATH"); v != "" {
		c.Dump.Path = v
	}

	if v := os.Getenv("WIKI_PIPELINE_STORE__OUTPUT_DIR"); v != "" {
		c.Store.OutputDir = v
	}
	if v := os.Getenv("WIKI_PIPELINE_STORE__COLLECTION"); v != "" {
		c.Store.Collection = v
	}

	if v := os.Getenv("WIKI_PIPELINE_CHUNKING__TARGET_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.TargetTokens = n
		}
	}
	if v := os.Getenv("WIKI_PIPELINE_CHUNKING__MIN_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.MinTokens = n
		}
	}
	if v := os.Getenv("WIKI_PIPELINE_CHUNKING__OVERLAP_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.OverlapTokens = n
		}
	}

	if v := os.Getenv("WIKI_PIPELINE_EMBEDDINGS__MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("WIKI_PIPELINE_EMBEDDINGS__BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.BatchSize = n
		}
	}
	if v := os.Getenv("WIKI_PIPELINE_EMBEDDINGS__ACCELERATOR"); v != "" {
		c.Embeddings.Accelerator = v
	}

	if v := os.Getenv("WIKI_PIPELINE_INGESTION__BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingestion.BatchSize = n
		}
	}
	if v := os.Getenv("WIKI_PIPELINE_INGESTION__WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingestion.Workers = n
		}
	}
	if v := os.Getenv("WIKI_PIPELINE_INGESTION__RESUME"); v != "" {
		c.Ingestion.Resume = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("WIKI_PIPELINE_INGESTION__LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingestion.Limit = n
		}
	}

	if v := os.Getenv("WIKI_PIPELINE_LOGGING__LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WIKI_PIPELINE_LOGGING__FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration and returns every violation found,
// joined into a single error, rather than stopping at the first one.
func (c *Config) Validate() error {
	var errs []error

	if c.Dump.Path == "" {
		errs = append(errs, fmt.Errorf("dump.path is required"))
	}
	if c.Store.OutputDir == "" {
		errs = append(errs, fmt.Errorf("store.output_dir must not be empty"))
	}
	if c.Store.Collection == "" {
		errs = append(errs, fmt.Errorf("store.collection must not be empty"))
	}

	if c.Chunking.TargetTokens <= 0 {
		errs = append(errs, fmt.Errorf("chunking.target_tokens must be positive, got %d", c.Chunking.TargetTokens))
	}
	if c.Chunking.MinTokens < 0 {
		errs = append(errs, fmt.Errorf("chunking.min_tokens must be non-negative, got %d", c.Chunking.MinTokens))
	}
	if c.Chunking.OverlapTokens < 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap_tokens must be non-negative, got %d", c.Chunking.OverlapTokens))
	}
	if c.Chunking.TargetTokens > 0 && c.Chunking.OverlapTokens >= c.Chunking.TargetTokens {
		errs = append(errs, fmt.Errorf("chunking.overlap_tokens (%d) must be smaller than target_tokens (%d)",
			c.Chunking.OverlapTokens, c.Chunking.TargetTokens))
	}

	if c.Embeddings.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize))
	}
	validAccelerators := map[string]bool{"auto": true, "native": true, "cpu": true}
	if !validAccelerators[strings.ToLower(c.Embeddings.Accelerator)] {
		errs = append(errs, fmt.Errorf("embeddings.accelerator must be 'auto', 'native', or 'cpu', got %q", c.Embeddings.Accelerator))
	}

	if c.Ingestion.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingestion.batch_size must be positive, got %d", c.Ingestion.BatchSize))
	}
	if c.Ingestion.Workers <= 0 {
		errs = append(errs, fmt.Errorf("ingestion.workers must be positive, got %d", c.Ingestion.Workers))
	}
	if c.Ingestion.Limit < 0 {
		errs = append(errs, fmt.Errorf("ingestion.limit must be non-negative, got %d", c.Ingestion.Limit))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// FindConfigFile looks for process-wiki.yaml or process-wiki.yml in dir.
// Returns an empty string if neither is present.
func FindConfigFile(dir string) string {
	for _, name := range []string{"process-wiki.yaml", "process-wiki.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}
