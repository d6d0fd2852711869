// Package ingest implements the Ingestion Manager (C7): it drives pages
// through the cleaner, extractor, chunker, and enricher, buffers the
// resulting chunks, and writes them to the vector and metadata stores in
// idempotent, backpressure-aware batches.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wikivault/process-wiki/internal/chunk"
	"github.com/wikivault/process-wiki/internal/config"
	"github.com/wikivault/process-wiki/internal/embed"
	"github.com/wikivault/process-wiki/internal/enrich"
	"github.com/wikivault/process-wiki/internal/stats"
	"github.com/wikivault/process-wiki/internal/store"
	"github.com/wikivault/process-wiki/internal/wiki"
	"github.com/wikivault/process-wiki/internal/wikitext"
)

// bisectionDepth is how many times a rejected batch is halved before its
// surviving half is written one record at a time and stubborn records
// are isolated and skipped: up to two levels of bisection.
const bisectionDepth = 2

// Manager buffers enriched chunks across pages and flushes them to the
// embedding engine and stores in fixed-size batches.
type Manager struct {
	cfg       *config.Config
	embedder  embed.Embedder
	vectors   store.VectorStore
	metadata  store.MetadataStore
	stats     *stats.Run
	logger    *slog.Logger
	cleanCfg  wikitext.Config
	chunker   *chunk.Chunker

	buffer []*chunk.Chunk
}

// New builds an Ingestion Manager from its already-constructed collaborators.
func New(cfg *config.Config, embedder embed.Embedder, vectors store.VectorStore, metadata store.MetadataStore, run *stats.Run, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	tokenizer := chunk.NewWordTokenizer()
	return &Manager{
		cfg:      cfg,
		embedder: embedder,
		vectors:  vectors,
		metadata: metadata,
		stats:    run,
		logger:   logger,
		cleanCfg: wikitext.DefaultConfig(),
		chunker: chunk.New(tokenizer, chunk.Config{
			TargetTokens:  cfg.Chunking.TargetTokens,
			MinTokens:     cfg.Chunking.MinTokens,
			OverlapTokens: cfg.Chunking.OverlapTokens,
		}),
	}
}

// Result summarises one completed (or interrupted) run.
type Result struct {
	Interrupted bool
	Snapshot    stats.Snapshot
}

// Run decodes the dump at cfg.Dump.Path and drives every article page
// through C2-C5, buffering chunks and flushing them through C6/C7 in
// batch_size groups. A context cancellation lets the current page finish
// (so no partial page is ever emitted), flushes the buffer if it holds a
// complete batch, and returns with Interrupted set rather than an error.
func (m *Manager) Run(ctx context.Context) (Result, error) {
	resumeFrom, err := m.resumeMarker(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}

	dec, err := wiki.Open(m.cfg.Dump.Path, wiki.Options{Logger: m.logger})
	if err != nil {
		return Result{}, fmt.Errorf("open dump: %w", err)
	}
	defer dec.Close()

	processed := 0
	seekingResume := resumeFrom != ""

	for {
		if ctx.Err() != nil {
			return m.finish(ctx, true)
		}

		page, ok, err := dec.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return m.finish(ctx, true)
			}
			return Result{}, fmt.Errorf("decode next page: %w", err)
		}
		if !ok {
			break
		}

		m.stats.PagesSeen.Add(1)

		if seekingResume {
			if page.Title == resumeFrom {
				seekingResume = false
			}
			continue
		}

		if m.cfg.Ingestion.Limit > 0 && processed >= m.cfg.Ingestion.Limit {
			break
		}

		m.processPage(ctx, page)
		processed++

		// Checkpoint only when nothing is buffered, so every page up to and
		// including this one has had its chunks written.
		if len(m.buffer) == 0 {
			if err := m.metadata.SaveCheckpoint(ctx, "processing", 0, 0, m.embedder.ModelName(), page.Title); err != nil {
				m.logger.Warn("checkpoint save failed", slog.String("error", err.Error()))
			}
		}
	}

	return m.finish(ctx, false)
}

// resumeMarker returns the title of the last page whose chunks were all
// written, from a prior
// run's checkpoint, or "" when not resuming. Resume is a throughput
// optimisation, not a correctness requirement: because chunk ids are
// deterministic, reprocessing every page from scratch is always safe,
// so a checkpoint mismatch (different embedder model, missing
// checkpoint) simply falls back to a full run.
func (m *Manager) resumeMarker(ctx context.Context) (string, error) {
	if !m.cfg.Ingestion.Resume {
		return "", nil
	}
	cp, err := m.metadata.LoadCheckpoint(ctx)
	if err != nil {
		return "", err
	}
	if cp == nil || cp.LastPageID == "" {
		return "", nil
	}
	if cp.EmbedderModel != "" && cp.EmbedderModel != m.embedder.ModelName() {
		m.logger.Warn("checkpoint embedder model mismatch, ignoring checkpoint",
			slog.String("checkpoint_model", cp.EmbedderModel),
			slog.String("current_model", m.embedder.ModelName()))
		return "", nil
	}
	return cp.LastPageID, nil
}

// processPage runs one page through C2-C5 and appends its chunks to the
// pending buffer, flushing whenever the buffer reaches batch_size.
func (m *Manager) processPage(ctx context.Context, page wiki.Page) {
	if !page.IsArticle() {
		m.stats.PagesSkipped.Add(1)
		return
	}
	if page.IsRedirect() {
		// Counted in stats but never chunked.
		m.stats.PagesSkipped.Add(1)
		return
	}
	if page.Wikitext == "" {
		m.stats.PagesSkipped.Add(1)
		return
	}

	cleaned, err := wikitext.Clean(page, m.cleanCfg)
	if err != nil {
		m.stats.PagesFailed.Add(1)
		m.logger.Warn("wikitext clean failed", slog.String("title", page.Title), slog.String("error", err.Error()))
		return
	}
	if cleaned.PlainText == "" {
		m.stats.PagesSkipped.Add(1)
		return
	}

	chunks := m.chunker.Chunk(cleaned)
	if len(chunks) == 0 {
		return
	}

	extraText := extraTextOf(cleaned)
	for _, c := range chunks {
		c.Metadata.Enriched = enrich.Enrich(c.Text, c.Metadata.Structural, extraText)
	}

	m.stats.ChunksCreated.Add(int64(len(chunks)))
	m.buffer = append(m.buffer, chunks...)

	for len(m.buffer) >= m.cfg.Ingestion.BatchSize {
		batch := m.buffer[:m.cfg.Ingestion.BatchSize]
		m.buffer = append([]*chunk.Chunk{}, m.buffer[m.cfg.Ingestion.BatchSize:]...)
		m.flush(ctx, batch)
	}
}

// extraTextOf collects infobox and template parameter values, the
// secondary source of temporal signal C5 scans alongside chunk prose.
func extraTextOf(cp wikitext.CleanedPage) []string {
	var out []string
	for _, ib := range cp.Infoboxes {
		for _, p := range ib.Parameters {
			out = append(out, p.Value)
		}
	}
	for _, t := range cp.Templates {
		for _, p := range t.Parameters {
			out = append(out, p.Value)
		}
	}
	return out
}

// finish flushes any partial buffer (only when the run completed
// cleanly; an interrupted run discards an incomplete trailing buffer)
// and returns the run's final snapshot.
func (m *Manager) finish(ctx context.Context, interrupted bool) (Result, error) {
	if !interrupted && len(m.buffer) > 0 {
		m.flush(ctx, m.buffer)
		m.buffer = nil
	}
	return Result{Interrupted: interrupted, Snapshot: m.stats.Snapshot()}, nil
}

// flush embeds and writes one batch, applying C6's retry policy and C7's
// bisecting backpressure policy. Failures are isolated to the chunks that
// caused them; the rest of the batch, and every later batch, is
// unaffected.
func (m *Manager) flush(ctx context.Context, batch []*chunk.Chunk) {
	if len(batch) == 0 {
		return
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	embedded, err := embed.EmbedBatchWithRetry(ctx, m.embedder, texts)
	if err != nil {
		m.logger.Error("embedding batch aborted", slog.String("error", err.Error()), slog.Int("batch_size", len(batch)))
		return
	}

	failedIdx := make(map[int]bool, len(embedded.Failed))
	for _, idx := range embedded.Failed {
		failedIdx[idx] = true
	}

	survivors := make([]*chunk.Chunk, 0, len(batch))
	vectors := make([][]float32, 0, len(batch))
	for i, c := range batch {
		if failedIdx[i] {
			m.logger.Warn("chunk embedding failed, skipping", slog.String("id", c.ID), slog.String("title", c.Metadata.Structural.WikiTitle))
			continue
		}
		survivors = append(survivors, c)
		vectors = append(vectors, embedded.Vectors[i])
	}

	written := m.writeBatch(ctx, survivors, vectors, bisectionDepth)
	m.stats.ChunksIngested.Add(int64(written))
	m.stats.BatchesWritten.Add(1)
}

// writeBatch attempts to write chunks and their embeddings as one unit.
// If the store rejects the batch, it is bisected and each half retried,
// down to depth levels; beyond that, surviving records are written one
// at a time and any record the store still refuses is logged and
// skipped as poison.
func (m *Manager) writeBatch(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32, depth int) int {
	if len(chunks) == 0 {
		return 0
	}

	if err := m.writeOne(ctx, chunks, vectors); err == nil {
		return len(chunks)
	}

	if len(chunks) == 1 || depth <= 0 {
		m.logger.Error("bisection exhausted, writing records individually", slog.String("id", chunks[0].ID), slog.String("title", chunks[0].Metadata.Structural.WikiTitle))
		return m.writeIndividually(ctx, chunks, vectors)
	}

	mid := len(chunks) / 2
	written := m.writeBatch(ctx, chunks[:mid], vectors[:mid], depth-1)
	written += m.writeBatch(ctx, chunks[mid:], vectors[mid:], depth-1)
	return written
}

// writeIndividually is the last-resort path once bisection is exhausted:
// each record is attempted on its own so a single stubborn record never
// sinks its siblings.
func (m *Manager) writeIndividually(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) int {
	written := 0
	for i, c := range chunks {
		if err := m.writeOne(ctx, chunks[i:i+1], vectors[i:i+1]); err != nil {
			m.logger.Error("poison record rejected by store", slog.String("id", c.ID), slog.String("error", err.Error()))
			continue
		}
		written++
	}
	return written
}

// writeOne commits one group of chunks to the vector store and the
// metadata store. A batch is only considered committed once both stores
// acknowledge every id.
func (m *Manager) writeOne(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) error {
	ids := make([]string, len(chunks))
	records := make([]*store.Record, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		records[i] = &store.Record{
			ID:       c.ID,
			Document: c.Text,
			Metadata: c.Metadata.ToFlat(),
		}
	}

	if err := m.vectors.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("vector store add: %w", err)
	}
	if err := m.metadata.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("metadata store save: %w", err)
	}
	return nil
}
