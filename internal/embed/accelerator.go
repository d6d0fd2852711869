package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// subBatchWorkers bounds how many sub-batch requests EmbedBatch keeps in
// flight against the accelerator server at once; defaultSubBatchSize is
// the sub-batch size used when AcceleratorConfig.SubBatchSize is unset.
// A batch larger than the configured sub-batch size is split and its
// pieces requested concurrently, bounded to subBatchWorkers in flight,
// then reassembled in input order before returning. The rest of the
// pipeline only ever sees one blocking call.
const (
	defaultSubBatchSize = 32
	subBatchWorkers     = 4
)

// Accelerator default configuration: a small local HTTP server exposing
// /health, /embed, and /embed_batch, so a native embedding process can
// run out-of-tree while this package stays a thin client.
const (
	DefaultAcceleratorEndpoint = "http://localhost:9659"
	DefaultAcceleratorModel    = "default"
	DefaultTimeout             = 60 * time.Second
)

// AcceleratorConfig configures the native accelerator client.
type AcceleratorConfig struct {
	Endpoint        string
	Model           string
	Dimensions      int
	Timeout         time.Duration
	SkipHealthCheck bool
	// SubBatchSize overrides how many texts EmbedBatch sends per HTTP
	// request; the configured embeddings.batch_size flows in here so one
	// setting governs both how many chunks the manager hands to
	// EmbedBatch and how the accelerator client fans them out. 0 uses
	// defaultSubBatchSize.
	SubBatchSize int
}

// DefaultAcceleratorConfig returns sane defaults for the accelerator client.
func DefaultAcceleratorConfig() AcceleratorConfig {
	return AcceleratorConfig{
		Endpoint:     DefaultAcceleratorEndpoint,
		Model:        DefaultAcceleratorModel,
		Dimensions:   DefaultDimensions,
		Timeout:      DefaultTimeout,
		SubBatchSize: defaultSubBatchSize,
	}
}

// AcceleratorEmbedder embeds text via a locally running hardware-accelerated
// embedding server (e.g. an on-box native process serving a GPU or neural
// engine model). It is one of C6's three embedding paths; the others are
// the dlopen'd NativeLibraryEmbedder and the CPU-only StaticEmbedder768
// fallback.
type AcceleratorEmbedder struct {
	client *http.Client
	config AcceleratorConfig
	dims   int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*AcceleratorEmbedder)(nil)

type acceleratorHealthResponse struct {
	Status string `json:"status"`
}

type acceleratorEmbedRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type acceleratorEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type acceleratorEmbedBatchRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type acceleratorEmbedBatchResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewAcceleratorEmbedder dials the accelerator server and verifies it is
// healthy, unless SkipHealthCheck is set (used by tests).
func NewAcceleratorEmbedder(ctx context.Context, cfg AcceleratorConfig) (*AcceleratorEmbedder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultAcceleratorEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAcceleratorModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = defaultSubBatchSize
	}

	e := &AcceleratorEmbedder{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config: cfg,
		dims:   cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := e.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("accelerator health check failed: %w", err)
		}
	}

	slog.Debug("accelerator_embedder_created",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("model", cfg.Model),
		slog.Int("dimensions", e.dims))

	return e, nil
}

func (e *AcceleratorEmbedder) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to accelerator server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("accelerator server unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	var health acceleratorHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if health.Status != "healthy" {
		return fmt.Errorf("accelerator server status: %s", health.Status)
	}
	return nil
}

// Embed generates an embedding for a single text.
func (e *AcceleratorEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	body, err := json.Marshal(acceleratorEmbedRequest{Text: text, Model: e.config.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, e.config.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding failed (status %d): %s", resp.StatusCode, string(b))
	}

	var result acceleratorEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toFloat32(result.Embedding), nil
}

// EmbedBatch generates embeddings for multiple texts. Batches larger than
// the configured sub-batch size are split into sub-batches and requested
// concurrently (bounded by subBatchWorkers), then reassembled in input
// order so the caller never observes the fan-out.
func (e *AcceleratorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	subBatchSize := e.config.SubBatchSize
	if subBatchSize <= 0 {
		subBatchSize = defaultSubBatchSize
	}

	if len(texts) <= subBatchSize {
		return e.embedBatchOne(ctx, texts)
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subBatchWorkers)

	for start := 0; start < len(texts); start += subBatchSize {
		start := start
		end := start + subBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			sub, err := e.embedBatchOne(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], sub)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embedBatchOne issues one HTTP request for a batch no larger than the
// configured sub-batch size.
func (e *AcceleratorEmbedder) embedBatchOne(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(acceleratorEmbedBatchRequest{Texts: texts, Model: e.config.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, e.config.Endpoint+"/embed_batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch embedding failed (status %d): %s", resp.StatusCode, string(b))
	}

	var result acceleratorEmbedBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e64 := range result.Embeddings {
		out[i] = toFloat32(e64)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *AcceleratorEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *AcceleratorEmbedder) ModelName() string { return "accelerator-" + e.config.Model }

// Available reports whether the accelerator still answers health checks.
func (e *AcceleratorEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()
	return e.healthCheck(ctx) == nil
}

// Close releases the underlying HTTP transport's idle connections.
func (e *AcceleratorEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
