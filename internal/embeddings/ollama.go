package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig holds configuration for the Ollama provider.
type OllamaConfig struct {
	// Model is the embedding model name. Defaults to nomic-embed-text.
	Model string

	// BaseURL is the Ollama server URL. Defaults to http://localhost:11434.
	BaseURL string
}

// OllamaProvider generates embeddings via a remote Ollama server.
type OllamaProvider struct {
	cfg       OllamaConfig
	llm       *ollama.LLM
	dimension int
	mu        sync.RWMutex
}

// NewOllamaProvider creates an Ollama embedding provider. The connection is
// not established until Init.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &OllamaProvider{cfg: cfg}, nil
}

// Init connects to the Ollama server and probes the model dimension with a
// throwaway embedding. There is no download phase to report: the model lives
// server-side.
func (p *OllamaProvider) Init(ctx context.Context, progress ProgressFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.llm != nil {
		return nil
	}

	llm, err := ollama.New(
		ollama.WithModel(p.cfg.Model),
		ollama.WithServerURL(p.cfg.BaseURL),
	)
	if err != nil {
		return fmt.Errorf("connecting to Ollama at %s: %w", p.cfg.BaseURL, err)
	}

	vecs, err := llm.CreateEmbedding(ctx, []string{"dimension probe"})
	if err != nil {
		return fmt.Errorf("probing Ollama model %s: %w", p.cfg.Model, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("%w: Ollama returned empty probe embedding", ErrEmbeddingFailed)
	}

	p.llm = llm
	p.dimension = len(vecs[0])

	if progress != nil {
		progress(Progress{Status: StatusReady})
	}
	return nil
}

// Embed generates a unit-normalized embedding for a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.llm == nil {
		return nil, ErrNotInitialized
	}

	vecs, err := p.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingFailed)
	}
	return normalize(vecs[0]), nil
}

// Dimension returns the probed embedding dimension, or 0 before Init.
func (p *OllamaProvider) Dimension() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimension
}

// Close is a no-op for Ollama since it uses HTTP.
func (p *OllamaProvider) Close() error {
	return nil
}
