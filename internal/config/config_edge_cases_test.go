package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CollectsAllViolationsAtOnce(t *testing.T) {
	cfg := &Config{
		Chunking: ChunkingConfig{
			TargetTokens:  0,
			MinTokens:     -1,
			OverlapTokens: -1,
		},
		Embeddings: EmbeddingsConfig{
			BatchSize:   0,
			Accelerator: "quantum",
		},
		Ingestion: IngestionConfig{
			BatchSize: 0,
			Workers:   0,
			Limit:     -1,
		},
		Logging: LoggingConfig{
			Level: "verbose",
		},
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"dump.path is required",
		"store.output_dir",
		"store.collection",
		"chunking.target_tokens",
		"chunking.min_tokens",
		"chunking.overlap_tokens",
		"embeddings.batch_size",
		"embeddings.accelerator",
		"ingestion.batch_size",
		"ingestion.workers",
		"ingestion.limit",
		"logging.level",
	} {
		assert.True(t, strings.Contains(msg, want), "expected validation error to mention %q, got: %s", want, msg)
	}
}

func TestValidate_OverlapMustBeSmallerThanTarget(t *testing.T) {
	cfg := NewConfig()
	cfg.Dump.Path = "/data/wiki.xml"
	cfg.Chunking.TargetTokens = 100
	cfg.Chunking.OverlapTokens = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_tokens")
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Dump.Path = "/data/wiki.xml"

	assert.NoError(t, cfg.Validate())
}

func TestMergeWith_EmptyOtherLeavesDefaultsUntouched(t *testing.T) {
	cfg := NewConfig()
	cfg.mergeWith(&Config{})

	defaults := NewConfig()
	assert.Equal(t, defaults.Chunking, cfg.Chunking)
	assert.Equal(t, defaults.Embeddings, cfg.Embeddings)
}

func TestApplyEnvOverrides_InvalidIntIsIgnored(t *testing.T) {
	t.Setenv("WIKI_PIPELINE_CHUNKING__TARGET_TOKENS", "not-a-number")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, 800, cfg.Chunking.TargetTokens)
}

func TestApplyEnvOverrides_ResumeAcceptsBoolAndOne(t *testing.T) {
	t.Setenv("WIKI_PIPELINE_INGESTION__RESUME", "1")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	assert.True(t, cfg.Ingestion.Resume)
}
