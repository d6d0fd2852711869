package query

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wikivault/process-wiki/internal/store"
)

type fakeVectorStore struct {
	results []*store.VectorResult
}

func (f *fakeVectorStore) Add(context.Context, []string, [][]float32) error { return nil }
func (f *fakeVectorStore) Search(_ context.Context, _ []float32, k int) ([]*store.VectorResult, error) {
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}
func (f *fakeVectorStore) Delete(context.Context, []string) error { return nil }
func (f *fakeVectorStore) AllIDs() []string                       { return nil }
func (f *fakeVectorStore) Contains(string) bool                  { return false }
func (f *fakeVectorStore) Count() int                             { return len(f.results) }
func (f *fakeVectorStore) Save(string) error                      { return nil }
func (f *fakeVectorStore) Load(string) error                      { return nil }
func (f *fakeVectorStore) Close() error                           { return nil }

type fakeMetadataStore struct {
	docs  map[string]string
	metas map[string]map[string]any
}

func (f *fakeMetadataStore) SaveRecords(context.Context, []*store.Record) error { return nil }
func (f *fakeMetadataStore) GetMetadata(_ context.Context, ids []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(ids))
	for _, id := range ids {
		if m, ok := f.metas[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) GetDocument(_ context.Context, id string) (string, error) {
	return f.docs[id], nil
}
func (f *fakeMetadataStore) GetState(context.Context, string) (string, error)       { return "", nil }
func (f *fakeMetadataStore) SetState(context.Context, string, string) error         { return nil }
func (f *fakeMetadataStore) SaveCheckpoint(context.Context, string, int, int, string, string) error {
	return nil
}
func (f *fakeMetadataStore) LoadCheckpoint(context.Context) (*store.Checkpoint, error) { return nil, nil }
func (f *fakeMetadataStore) ClearCheckpoint(context.Context) error                     { return nil }
func (f *fakeMetadataStore) Close() error                                             { return nil }

type fakeEmbedder struct{ dims int }

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, e.dims), nil
}
func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dims)
	}
	return out, nil
}
func (e *fakeEmbedder) Dimensions() int              { return e.dims }
func (e *fakeEmbedder) ModelName() string            { return "fake" }
func (e *fakeEmbedder) Available(context.Context) bool { return true }
func (e *fakeEmbedder) Close() error                 { return nil }

func buildFixture() (*fakeVectorStore, *fakeMetadataStore) {
	vs := &fakeVectorStore{results: []*store.VectorResult{
		{ID: "east-old", Distance: 0.1},
		{ID: "west-new", Distance: 0.2},
		{ID: "east-new", Distance: 0.3},
		{ID: "east-far-future", Distance: 0.4},
	}}
	ms := &fakeMetadataStore{
		docs: map[string]string{
			"east-old":        "Vault 101 text",
			"west-new":        "NCR text",
			"east-new":        "Commonwealth text",
			"east-far-future": "Far future east coast text",
		},
		metas: map[string]map[string]any{
			"east-old":        {"region_type": "East Coast", "year_max": 2102, "info_source": "vault-tec", "chunk_index": 0},
			"west-new":        {"region_type": "West Coast", "year_max": 2189, "info_source": "public", "chunk_index": 0},
			"east-new":        {"region_type": "East Coast", "year_max": 2287, "info_source": "public", "chunk_index": 0},
			"east-far-future": {"region_type": "East Coast", "year_max": 2287, "info_source": "public", "chunk_index": 1},
		},
	}
	return vs, ms
}

func TestQueryFiltersByPersona(t *testing.T) {
	vs, ms := buildFixture()
	f := New(vs, ms, &fakeEmbedder{dims: 4})

	persona := Persona{
		YearMax:            2102,
		AllowedRegions:     []string{"East Coast"},
		AllowedInfoSources: []string{"vault-tec", "public"},
	}

	results, err := f.Query(context.Background(), persona, "who lived in the capital wasteland", 10)
	require.NoError(t, err)

	for _, r := range results {
		require.LessOrEqual(t, r.Metadata["year_max"], 2102)
		require.Equal(t, "East Coast", r.Metadata["region_type"])
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	require.Contains(t, ids, "east-old")
	require.NotContains(t, ids, "west-new")
	require.NotContains(t, ids, "east-new")
}

func TestQueryOrdersByDistanceThenChunkIndexThenID(t *testing.T) {
	vs := &fakeVectorStore{results: []*store.VectorResult{
		{ID: "b", Distance: 0.5},
		{ID: "a", Distance: 0.5},
		{ID: "c", Distance: 0.1},
	}}
	ms := &fakeMetadataStore{
		docs: map[string]string{"a": "a", "b": "b", "c": "c"},
		metas: map[string]map[string]any{
			"a": {"chunk_index": 0, "info_source": "public"},
			"b": {"chunk_index": 0, "info_source": "public"},
			"c": {"chunk_index": 0, "info_source": "public"},
		},
	}
	f := New(vs, ms, &fakeEmbedder{dims: 4})

	results, err := f.Query(context.Background(), Persona{AllowedInfoSources: []string{"public"}}, "q", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, []string{"c", "a", "b"}, []string{results[0].ID, results[1].ID, results[2].ID})
}

func TestQueryReturnsAtMostK(t *testing.T) {
	vs, ms := buildFixture()
	f := New(vs, ms, &fakeEmbedder{dims: 4})

	results, err := f.Query(context.Background(), Persona{AllowedInfoSources: []string{"vault-tec", "public"}}, "q", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSortResultsIsStableOnTies(t *testing.T) {
	results := []Result{
		{ID: "z", Distance: 0.1, Metadata: map[string]any{"chunk_index": 1}},
		{ID: "a", Distance: 0.1, Metadata: map[string]any{"chunk_index": 0}},
	}
	sortResults(results)
	require.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Metadata["chunk_index"].(int) < results[j].Metadata["chunk_index"].(int)
	}))
}
