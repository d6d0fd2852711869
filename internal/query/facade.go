package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/wikivault/process-wiki/internal/embed"
	"github.com/wikivault/process-wiki/internal/store"
)

// defaultOverfetchFactor and maxOverfetchFactor bound how many extra
// candidates the facade requests from the vector store before persona
// filtering. The HNSW store's Search takes no filter parameter, so
// over-fetch-then-post-filter-then-truncate is how persona scoping is
// layered on top of unfiltered ANN search (see DESIGN.md for the
// resolved Open Question).
const (
	defaultOverfetchFactor = 4
	maxOverfetchFactor     = 16
)

// Result is one retrieved record: its source text, full flattened
// metadata, and distance from the query embedding.
type Result struct {
	ID       string
	Text     string
	Metadata map[string]any
	Distance float32
}

// Facade exposes persona-filtered retrieval over a vector store and its
// companion metadata store.
type Facade struct {
	vectors  store.VectorStore
	metadata store.MetadataStore
	embedder embed.Embedder
}

// New creates a query Facade.
func New(vectors store.VectorStore, metadata store.MetadataStore, embedder embed.Embedder) *Facade {
	return &Facade{vectors: vectors, metadata: metadata, embedder: embedder}
}

// Query embeds text, applies persona's conjunctive filter over an
// over-fetched nearest-neighbour set, and returns up to k results
// ordered by ascending distance, with chunk_index then id as tiebreaks.
func (f *Facade) Query(ctx context.Context, persona Persona, text string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := f.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filters := BuildFilters(persona)

	factor := defaultOverfetchFactor
	for {
		candidates, err := f.vectors.Search(ctx, queryVec, k*factor)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}

		results, err := f.filterAndHydrate(ctx, candidates, filters)
		if err != nil {
			return nil, err
		}

		if len(results) >= k || factor >= maxOverfetchFactor || len(candidates) < k*factor {
			sortResults(results)
			if len(results) > k {
				results = results[:k]
			}
			return results, nil
		}
		factor *= 2
	}
}

func (f *Facade) filterAndHydrate(ctx context.Context, candidates []*store.VectorResult, filters []FilterFunc) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	metas, err := f.metadata.GetMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		meta, ok := metas[c.ID]
		if !ok || !MatchesAll(meta, filters) {
			continue
		}
		text, err := f.metadata.GetDocument(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", c.ID, err)
		}
		results = append(results, Result{
			ID:       c.ID,
			Text:     text,
			Metadata: meta,
			Distance: c.Distance,
		})
	}
	return results, nil
}

func sortResults(results []Result) {
	// chunk_index is int in memory and float64 once JSON-decoded from SQLite.
	chunkIndex := func(m map[string]any) (int, bool) {
		switch v := m["chunk_index"].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		}
		return 0, false
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		ai, aok := chunkIndex(a.Metadata)
		bi, bok := chunkIndex(b.Metadata)
		if aok && bok && ai != bi {
			return ai < bi
		}
		return a.ID < b.ID
	})
}
