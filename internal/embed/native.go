package embed

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// NativeLibraryConfig configures the dlopen'd native embedding path: a
// locally available shared library exporting a C ABI embed function.
// Absence of the library at this path is expected on most machines and
// is not an error at the call site — NewEmbedder falls back to the HTTP
// accelerator, then to the CPU static embedder.
type NativeLibraryConfig struct {
	// LibraryPath is the shared library path, e.g. "./libwikiembed.so".
	LibraryPath string
	Dimensions  int
}

// nativeEmbedTextFunc matches the expected C export:
//
//	int32_t wiki_embed_text(const char *text, int32_t text_len, float *out, int32_t out_len);
//
// returning 0 on success and a negative value on failure.
type nativeEmbedTextFunc func(text uintptr, textLen int32, out uintptr, outLen int32) int32

// NativeLibraryEmbedder embeds text via a dlopen'd native library,
// avoiding any network hop to an accelerator server. Grounded on the
// purego dlopen pattern used elsewhere in this module's dependency
// stack for calling locally installed native code without cgo.
type NativeLibraryEmbedder struct {
	handle  uintptr
	embedFn nativeEmbedTextFunc
	dims    int
	mu      sync.RWMutex
	closed  bool
}

var _ Embedder = (*NativeLibraryEmbedder)(nil)

// NewNativeLibraryEmbedder dlopens cfg.LibraryPath and resolves its embed
// symbol. A missing library or symbol is returned as an error so callers
// can fall back, not treated as a panic-worthy condition.
func NewNativeLibraryEmbedder(cfg NativeLibraryConfig) (*NativeLibraryEmbedder, error) {
	if cfg.LibraryPath == "" {
		return nil, fmt.Errorf("native embedder: no library path configured")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	handle, err := purego.Dlopen(cfg.LibraryPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("native embedder: dlopen %s: %w", cfg.LibraryPath, err)
	}

	var embedFn nativeEmbedTextFunc
	purego.RegisterLibFunc(&embedFn, handle, "wiki_embed_text")

	return &NativeLibraryEmbedder{
		handle:  handle,
		embedFn: embedFn,
		dims:    cfg.Dimensions,
	}, nil
}

// Embed calls into the native library for a single text.
func (e *NativeLibraryEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	out := make([]float32, e.dims)
	textBytes := append([]byte(text), 0) // NUL-terminate for the C ABI
	rc := e.embedFn(
		uintptr(unsafe.Pointer(&textBytes[0])),
		int32(len(text)),
		uintptr(unsafe.Pointer(&out[0])),
		int32(len(out)),
	)
	if rc != 0 {
		return nil, fmt.Errorf("native embed failed with code %d", rc)
	}
	return normalizeVector(out), nil
}

// EmbedBatch calls Embed once per text; the native library's ABI in this
// module only exposes a single-text entry point.
func (e *NativeLibraryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *NativeLibraryEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *NativeLibraryEmbedder) ModelName() string { return "native-library" }

// Available reports whether the embedder has been closed.
func (e *NativeLibraryEmbedder) Available(context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close unloads the native library.
func (e *NativeLibraryEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return purego.Dlclose(e.handle)
}
