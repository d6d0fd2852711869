package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// flakyEmbedder fails EmbedBatch for any batch containing one of its
// poisoned texts, but always succeeds on single-text Embed calls whose
// text is not itself poisoned. This lets tests drive the bisection
// policy deterministically.
type flakyEmbedder struct {
	poisoned    map[string]bool
	batchCalls  int
	singleCalls int
}

func newFlakyEmbedder(poisoned ...string) *flakyEmbedder {
	m := map[string]bool{}
	for _, p := range poisoned {
		m[p] = true
	}
	return &flakyEmbedder{poisoned: m}
}

func (f *flakyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.singleCalls++
	if f.poisoned[text] {
		return nil, errors.New("poisoned text")
	}
	return []float32{1}, nil
}

func (f *flakyEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	for _, t := range texts {
		if f.poisoned[t] {
			return nil, errors.New("batch contains poisoned text")
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *flakyEmbedder) Dimensions() int                { return 1 }
func (f *flakyEmbedder) ModelName() string              { return "flaky" }
func (f *flakyEmbedder) Available(context.Context) bool { return true }
func (f *flakyEmbedder) Close() error                   { return nil }

func TestEmbedBatchWithRetrySucceedsOnFirstTry(t *testing.T) {
	e := newFlakyEmbedder()
	result, err := EmbedBatchWithRetry(context.Background(), e, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Empty(t, result.Failed)
	require.Len(t, result.Vectors, 3)
}

// A poisoned text in a 2-item batch isolates cleanly because halving a
// batch of 2 produces two single-item halves — C6's coarser one-shot
// halving policy, unlike C7's finer two-level bisection over store-write
// batches.
func TestEmbedBatchWithRetryIsolatesPoisonedRecordInPairBatch(t *testing.T) {
	e := newFlakyEmbedder("bad")
	result, err := EmbedBatchWithRetry(context.Background(), e, []string{"good1", "bad"})
	require.NoError(t, err)

	require.Equal(t, []int{1}, result.Failed)
	require.NotNil(t, result.Vectors[0])
}

// A larger batch with a poisoned record inside it: the single halving
// retry isolates failure to the half containing the bad record, not
// necessarily to the record alone — the other half still succeeds.
func TestEmbedBatchWithRetryFailsWholeHalfContainingPoisonedRecord(t *testing.T) {
	e := newFlakyEmbedder("bad")
	result, err := EmbedBatchWithRetry(context.Background(), e, []string{"good1", "bad", "good2", "good3"})
	require.NoError(t, err)

	require.ElementsMatch(t, []int{0, 1}, result.Failed)
	require.NotNil(t, result.Vectors[2])
	require.NotNil(t, result.Vectors[3])
}

func TestEmbedBatchWithRetryEmptyInput(t *testing.T) {
	e := newFlakyEmbedder()
	result, err := EmbedBatchWithRetry(context.Background(), e, nil)
	require.NoError(t, err)
	require.Empty(t, result.Vectors)
	require.Empty(t, result.Failed)
}

func TestEmbedBatchWithRetryRespectsCancelledContext(t *testing.T) {
	e := newFlakyEmbedder("bad")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EmbedBatchWithRetry(ctx, e, []string{"bad"})
	require.Error(t, err)
}
