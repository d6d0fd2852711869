// Package store provides vector storage (HNSW) and metadata/checkpoint
// persistence (SQLite) for ingested wiki chunks.
package store

import (
	"context"
	"fmt"
	"time"
)

// Record is a single chunk as persisted to the metadata store: its text,
// its flattened filterable metadata, and (via the companion VectorStore)
// its embedding.
type Record struct {
	ID       string
	Document string
	Metadata map[string]any
}

// State keys for run-level bookkeeping.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the store.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the store.
	StateKeyIndexModel = "index_embedding_model"
)

// Checkpoint state keys for resumable ingestion runs.
const (
	// StateKeyCheckpointStage stores the stage label (the ingestion manager writes "processing").
	StateKeyCheckpointStage = "checkpoint_stage"
	// StateKeyCheckpointTotal stores the total number of chunks produced so far.
	StateKeyCheckpointTotal = "checkpoint_total"
	// StateKeyCheckpointEmbedded stores the count of chunks that have been embedded and written.
	StateKeyCheckpointEmbedded = "checkpoint_embedded"
	// StateKeyCheckpointTimestamp stores when the checkpoint was last updated.
	StateKeyCheckpointTimestamp = "checkpoint_timestamp"
	// StateKeyCheckpointEmbedderModel stores the embedder model used for this checkpoint,
	// validated on resume to prevent silently mixing incompatible embeddings.
	StateKeyCheckpointEmbedderModel = "checkpoint_embedder_model"
	// StateKeyCheckpointLastPageID stores the title of the last page whose chunks were all written.
	StateKeyCheckpointLastPageID = "checkpoint_last_page_id"
)

// MetadataStore persists chunk text, flattened metadata, and run checkpoints in SQLite.
type MetadataStore interface {
	// SaveRecords upserts chunk records (text + flattened metadata).
	SaveRecords(ctx context.Context, records []*Record) error

	// GetMetadata batch-retrieves flattened metadata by chunk ID, for
	// persona post-filtering over vector search results.
	GetMetadata(ctx context.Context, ids []string) (map[string]map[string]any, error)

	// GetDocument retrieves the chunk text by ID.
	GetDocument(ctx context.Context, id string) (string, error)

	// State operations (key-value store for runtime state).
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Checkpoint operations (for resumable ingestion).
	SaveCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel, lastPageID string) error
	LoadCheckpoint(ctx context.Context) (*Checkpoint, error)
	ClearCheckpoint(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Checkpoint represents the saved state of an ingestion run, for resume.
type Checkpoint struct {
	Stage         string    // Stage label; the ingestion manager writes "processing"
	Total         int       // Total chunks produced so far
	EmbeddedCount int       // Number of chunks embedded and written
	Timestamp     time.Time // When the checkpoint was last updated
	EmbedderModel string    // Embedder model used for this checkpoint
	LastPageID    string    // Title of the last page whose chunks were all written
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (e.g. 768 for the default embedder).
	Dimensions int

	// Quantization is the vector precision: "f32", "f16", "i8" (default: "f16").
	Quantization string

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos").
	Metric string

	// M is HNSW max connections per layer (default: 32).
	M int

	// EfConstruction is HNSW build-time search width (default: 128).
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64).
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides semantic search over chunk embeddings.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks).
	AllIDs() []string

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates an embedding dimension mismatch against the store's configuration.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (the embedding model changed since this store was created)", e.Expected, e.Got)
}
