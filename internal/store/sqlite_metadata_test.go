package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMetadataStore_SaveAndGetMetadata(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	records := []*Record{
		{ID: "chunk-1", Document: "the history of go", Metadata: map[string]any{"temporal_tier": "historical", "tokens": float64(120)}},
		{ID: "chunk-2", Document: "current release notes", Metadata: map[string]any{"temporal_tier": "current", "tokens": float64(80)}},
	}

	require.NoError(t, store.SaveRecords(ctx, records))

	meta, err := store.GetMetadata(ctx, []string{"chunk-1", "chunk-2", "missing"})
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, "historical", meta["chunk-1"]["temporal_tier"])
	assert.Equal(t, "current", meta["chunk-2"]["temporal_tier"])
}

func TestSQLiteMetadataStore_SaveRecords_UpdatesExisting(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveRecords(ctx, []*Record{
		{ID: "chunk-1", Document: "v1", Metadata: map[string]any{"version": float64(1)}},
	}))
	require.NoError(t, store.SaveRecords(ctx, []*Record{
		{ID: "chunk-1", Document: "v2", Metadata: map[string]any{"version": float64(2)}},
	}))

	doc, err := store.GetDocument(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", doc)

	meta, err := store.GetMetadata(ctx, []string{"chunk-1"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), meta["chunk-1"]["version"])
}

func TestSQLiteMetadataStore_SaveRecords_Empty(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.SaveRecords(context.Background(), nil))
}

func TestSQLiteMetadataStore_StateRoundTrip(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	v, err := store.GetState(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, store.SetState(ctx, "index_embedding_model", "static-768"))
	v, err = store.GetState(ctx, "index_embedding_model")
	require.NoError(t, err)
	assert.Equal(t, "static-768", v)
}

func TestSQLiteMetadataStore_Checkpoint_RoundTrip(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	cp, err := store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, store.SaveCheckpoint(ctx, "embedding", 500, 320, "static-768", "Q12345"))

	cp, err = store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "embedding", cp.Stage)
	assert.Equal(t, 500, cp.Total)
	assert.Equal(t, 320, cp.EmbeddedCount)
	assert.Equal(t, "static-768", cp.EmbedderModel)
	assert.Equal(t, "Q12345", cp.LastPageID)
	assert.False(t, cp.Timestamp.IsZero())

	require.NoError(t, store.ClearCheckpoint(ctx))
	cp, err = store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestSQLiteMetadataStore_Close_Idempotent(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteMetadataStore_OperationsAfterClose(t *testing.T) {
	store, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	err = store.SaveRecords(ctx, []*Record{{ID: "x", Document: "y", Metadata: map[string]any{}}})
	assert.Error(t, err)
}

func TestSQLiteMetadataStore_PersistentPath_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "metadata.db")

	store, err := NewSQLiteMetadataStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)
}

func TestSQLiteMetadataStore_Persistence_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "metadata.db")

	store1, err := NewSQLiteMetadataStore(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store1.SaveRecords(ctx, []*Record{
		{ID: "chunk-1", Document: "persisted", Metadata: map[string]any{"tier": "current"}},
	}))
	require.NoError(t, store1.Close())

	store2, err := NewSQLiteMetadataStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	doc, err := store2.GetDocument(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", doc)
}

func TestSQLiteMetadataStore_CorruptedEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "corrupt.db")

	require.NoError(t, os.WriteFile(dbPath, []byte("not a sqlite file"), 0o644))

	store, err := NewSQLiteMetadataStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	assert.NoError(t, store.SaveRecords(ctx, []*Record{{ID: "a", Document: "b", Metadata: map[string]any{}}}))
}
