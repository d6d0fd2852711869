package embed

import (
	"context"
	"fmt"
	"strings"
)

// Accelerator selects which embedding backend NewEmbedder builds.
type Accelerator string

const (
	// AcceleratorAuto tries the native accelerator first and falls back to
	// the CPU static embedder if it is unreachable.
	AcceleratorAuto Accelerator = "auto"
	// AcceleratorNative requires the accelerator server; failure is fatal.
	AcceleratorNative Accelerator = "native"
	// AcceleratorCPU always uses the hash-based static embedder.
	AcceleratorCPU Accelerator = "cpu"
)

// ParseAccelerator converts a config/CLI string to an Accelerator,
// defaulting to AcceleratorAuto for unrecognised values.
func ParseAccelerator(s string) Accelerator {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native":
		return AcceleratorNative
	case "cpu", "static":
		return AcceleratorCPU
	default:
		return AcceleratorAuto
	}
}

// NewEmbedder builds the embedder for C6 according to the configured
// accelerator mode, wrapping the result with an LRU cache so re-running
// the pipeline over unchanged chunk text never recomputes an embedding.
//
// Resolution order for AcceleratorAuto: a dlopen'd native library (if
// nativeLib.LibraryPath is set), then the HTTP accelerator server, then
// the CPU static embedder. Each step's unavailability is expected, not
// fatal, except under AcceleratorNative where the HTTP server is required.
func NewEmbedder(ctx context.Context, accel Accelerator, cfg AcceleratorConfig, nativeLib NativeLibraryConfig) (Embedder, error) {
	var embedder Embedder
	var err error

	switch accel {
	case AcceleratorNative:
		embedder, err = NewAcceleratorEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("accelerator embedder required but unavailable: %w", err)
		}
	case AcceleratorCPU:
		embedder = NewStaticEmbedder768()
	default: // AcceleratorAuto
		if nativeLib.LibraryPath != "" {
			if native, nerr := NewNativeLibraryEmbedder(nativeLib); nerr == nil {
				embedder = native
			}
		}
		if embedder == nil {
			embedder, err = NewAcceleratorEmbedder(ctx, cfg)
			if err != nil {
				embedder = NewStaticEmbedder768()
			}
		}
	}

	return NewCachedEmbedderWithDefaults(embedder), nil
}

// MustNewEmbedder creates an embedder and panics on failure. Use only in
// tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, accel Accelerator, cfg AcceleratorConfig, nativeLib NativeLibraryConfig) Embedder {
	embedder, err := NewEmbedder(ctx, accel, cfg, nativeLib)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}

// EmbedderInfo describes a resolved embedder for stats and diagnostics.
type EmbedderInfo struct {
	ModelName  string
	Dimensions int
	Available  bool
}

// GetInfo inspects an embedder (unwrapping the cache layer) and reports
// its identity for the run's processing stats.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}
	return EmbedderInfo{
		ModelName:  inner.ModelName(),
		Dimensions: inner.Dimensions(),
		Available:  embedder.Available(ctx),
	}
}
