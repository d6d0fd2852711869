package embed

import (
	"context"
	"fmt"
)

// EmbedBatchResult is the outcome of embedding one batch: the vectors
// that succeeded, aligned with their original indices, and the indices
// that were abandoned after the retry policy below was exhausted.
type EmbedBatchResult struct {
	Vectors [][]float32
	Failed  []int
}

// EmbedBatchWithRetry implements the embedding engine's failure policy:
// a transient accelerator error triggers a single retry with the batch
// halved; persistent failure aborts the current half and marks its
// texts failed, but the other half and the rest of the pipeline
// continue. Halving happens at most once per call — this is one-shot
// bisection, not general exponential backoff.
func EmbedBatchWithRetry(ctx context.Context, embedder Embedder, texts []string) (EmbedBatchResult, error) {
	if len(texts) == 0 {
		return EmbedBatchResult{}, nil
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return EmbedBatchResult{Vectors: vectors}, nil
	}
	if ctx.Err() != nil {
		return EmbedBatchResult{}, fmt.Errorf("embed batch: %w", ctx.Err())
	}

	if len(texts) == 1 {
		// Nothing left to halve: one retry of the single text, then give up on it.
		if vec, retryErr := embedder.Embed(ctx, texts[0]); retryErr == nil {
			return EmbedBatchResult{Vectors: [][]float32{vec}}, nil
		}
		return EmbedBatchResult{Failed: []int{0}}, nil
	}

	mid := len(texts) / 2
	result := EmbedBatchResult{
		Vectors: make([][]float32, len(texts)),
	}

	first, err1 := embedHalfWithRetry(ctx, embedder, texts[:mid], 0)
	second, err2 := embedHalfWithRetry(ctx, embedder, texts[mid:], mid)
	if err1 != nil {
		return EmbedBatchResult{}, err1
	}
	if err2 != nil {
		return EmbedBatchResult{}, err2
	}

	for i, v := range first.Vectors {
		result.Vectors[i] = v
	}
	for i, v := range second.Vectors {
		result.Vectors[mid+i] = v
	}
	result.Failed = append(result.Failed, first.Failed...)
	for _, idx := range second.Failed {
		result.Failed = append(result.Failed, mid+idx)
	}
	return result, nil
}

// embedHalfWithRetry makes the single halved retry for one half-batch; it
// is not retried again. A failure marks every text in this half as failed
// rather than propagating the error, so the sibling half and subsequent
// batches are unaffected.
func embedHalfWithRetry(ctx context.Context, embedder Embedder, texts []string, offset int) (EmbedBatchResult, error) {
	if len(texts) == 0 {
		return EmbedBatchResult{}, nil
	}
	if ctx.Err() != nil {
		return EmbedBatchResult{}, ctx.Err()
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return EmbedBatchResult{Vectors: vectors}, nil
	}

	failed := make([]int, len(texts))
	for i := range texts {
		failed[i] = i
	}
	return EmbedBatchResult{Vectors: make([][]float32, len(texts)), Failed: failed}, nil
}
