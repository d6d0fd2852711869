package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAccelerator(t *testing.T) {
	require.Equal(t, AcceleratorNative, ParseAccelerator("native"))
	require.Equal(t, AcceleratorCPU, ParseAccelerator("cpu"))
	require.Equal(t, AcceleratorCPU, ParseAccelerator("static"))
	require.Equal(t, AcceleratorAuto, ParseAccelerator("auto"))
	require.Equal(t, AcceleratorAuto, ParseAccelerator(""))
	require.Equal(t, AcceleratorAuto, ParseAccelerator("nonsense"))
}

func TestNewEmbedderCPUAlwaysUsesStaticBackend(t *testing.T) {
	e, err := NewEmbedder(context.Background(), AcceleratorCPU, DefaultAcceleratorConfig(), NativeLibraryConfig{})
	require.NoError(t, err)
	defer e.Close()

	info := GetInfo(context.Background(), e)
	require.Equal(t, "static-768", info.ModelName)
	require.Equal(t, DefaultDimensions, info.Dimensions)
}

func TestNewEmbedderAutoFallsBackToStaticWhenAcceleratorUnreachable(t *testing.T) {
	cfg := DefaultAcceleratorConfig()
	cfg.Endpoint = "http://127.0.0.1:1" // nothing listens here

	e, err := NewEmbedder(context.Background(), AcceleratorAuto, cfg, NativeLibraryConfig{})
	require.NoError(t, err)
	defer e.Close()

	info := GetInfo(context.Background(), e)
	require.Equal(t, "static-768", info.ModelName)
}

func TestNewEmbedderAutoFallsBackToStaticWhenNativeLibraryAbsent(t *testing.T) {
	cfg := DefaultAcceleratorConfig()
	cfg.Endpoint = "http://127.0.0.1:1"

	e, err := NewEmbedder(context.Background(), AcceleratorAuto, cfg, NativeLibraryConfig{LibraryPath: "/nonexistent/libwikiembed.so"})
	require.NoError(t, err)
	defer e.Close()

	info := GetInfo(context.Background(), e)
	require.Equal(t, "static-768", info.ModelName, "a missing native library must fall through to the HTTP accelerator, then static")
}

func TestNewEmbedderNativeFailsHardWhenAcceleratorUnreachable(t *testing.T) {
	cfg := DefaultAcceleratorConfig()
	cfg.Endpoint = "http://127.0.0.1:1"

	_, err := NewEmbedder(context.Background(), AcceleratorNative, cfg, NativeLibraryConfig{})
	require.Error(t, err)
}

func TestNewEmbedderWrapsWithCache(t *testing.T) {
	e, err := NewEmbedder(context.Background(), AcceleratorCPU, DefaultAcceleratorConfig(), NativeLibraryConfig{})
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.(*CachedEmbedder)
	require.True(t, ok, "NewEmbedder should wrap the resolved embedder with a cache")
}

func TestNewNativeLibraryEmbedderErrorsOnMissingLibrary(t *testing.T) {
	_, err := NewNativeLibraryEmbedder(NativeLibraryConfig{LibraryPath: "/nonexistent/libwikiembed.so"})
	require.Error(t, err)
}

func TestNewNativeLibraryEmbedderErrorsOnEmptyPath(t *testing.T) {
	_, err := NewNativeLibraryEmbedder(NativeLibraryConfig{})
	require.Error(t, err)
}
