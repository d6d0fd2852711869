package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockAcceleratorServer returns a test server answering /health, /embed,
// and /embed_batch, and a counter of how many /embed_batch requests it
// received (so a test can check the sub-batch fan-out split count).
func mockAcceleratorServer(t *testing.T, dims int) (*httptest.Server, *int32) {
	t.Helper()
	var batchRequests int32

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(acceleratorHealthResponse{Status: "healthy"})
	})
	mux.HandleFunc("/embed_batch", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&batchRequests, 1)
		var req acceleratorEmbedBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		embeddings := make([][]float64, len(req.Texts))
		for i := range req.Texts {
			embeddings[i] = make([]float64, dims)
		}
		json.NewEncoder(w).Encode(acceleratorEmbedBatchResponse{Embeddings: embeddings})
	})
	return httptest.NewServer(mux), &batchRequests
}

func TestEmbedBatchSplitsAccordingToConfiguredSubBatchSize(t *testing.T) {
	srv, batchRequests := mockAcceleratorServer(t, 4)
	defer srv.Close()

	cfg := DefaultAcceleratorConfig()
	cfg.Endpoint = srv.URL
	cfg.Dimensions = 4
	cfg.SubBatchSize = 2

	e, err := NewAcceleratorEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// 5 texts split into sub-batches of 2 -> 3 requests (2, 2, 1).
	require.EqualValues(t, 3, atomic.LoadInt32(batchRequests))
}

func TestEmbedBatchUsesDefaultSubBatchSizeWhenUnset(t *testing.T) {
	srv, batchRequests := mockAcceleratorServer(t, 4)
	defer srv.Close()

	cfg := DefaultAcceleratorConfig()
	cfg.Endpoint = srv.URL
	cfg.Dimensions = 4
	cfg.SubBatchSize = 0

	e, err := NewAcceleratorEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()
	require.Equal(t, defaultSubBatchSize, e.config.SubBatchSize)

	texts := make([]string, 5)
	for i := range texts {
		texts[i] = "text"
	}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Well under defaultSubBatchSize (32): exactly one request.
	require.EqualValues(t, 1, atomic.LoadInt32(batchRequests))
}
