// Package embeddings provides embedding generation via multiple providers.
//
// Supports FastEmbed (local ONNX) and Ollama (remote HTTP) providers.
// Factory pattern enables provider selection at runtime with automatic
// dimension detection for common models.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyInput indicates empty or nil input text.
	ErrEmptyInput = errors.New("empty or nil input text")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrNotInitialized indicates Embed was called before Init.
	ErrNotInitialized = errors.New("provider not initialized")
)

// ProgressStatus reports model load progress phases.
type ProgressStatus string

const (
	StatusDownloading ProgressStatus = "downloading"
	StatusReady       ProgressStatus = "ready"
)

// Progress describes provider initialization progress.
type Progress struct {
	Status ProgressStatus
	Loaded int64
	Total  int64
}

// ProgressFunc receives initialization progress updates.
type ProgressFunc func(Progress)

// Provider is the interface for embedding providers.
//
// A provider handle may be shared process-wide: it is stateless given input
// text. Init must be called once before Embed.
type Provider interface {
	// Init loads the model, reporting progress to the optional callback.
	Init(ctx context.Context, progress ProgressFunc) error
	// Embed generates a fixed-length unit-normalized vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "fastembed" or "ollama".
	Provider string
	// Model is the embedding model name.
	Model string
	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string
	// BaseURL is the Ollama server URL (Ollama only).
	BaseURL string
	// ShowProgress enables progress reporting for model downloads.
	ShowProgress bool
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:        cfg.Model,
			CacheDir:     cfg.CacheDir,
			ShowProgress: cfg.ShowProgress,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// normalize scales v to unit length in place and returns it.
// A zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
