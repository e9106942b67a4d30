// Package similarity scores text against a baseline embedding.
//
// The Engine wraps an embedding provider with a bounded content-addressed
// vector cache, long-text chunking, and cosine similarity. Engine state
// (baseline, cache) is scoped to one filtering run or one explicitly
// long-lived instance; it must never be shared across runs backed by
// different context documents.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrBaselineNotSet indicates Similarity was called before SetBaseline.
	// This is a programmer error, not a degradable condition.
	ErrBaselineNotSet = errors.New("baseline not set")

	// ErrEmptyText indicates an empty input text.
	ErrEmptyText = errors.New("empty input text")
)

// Embedder generates a fixed-length unit-normalized vector for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Text is one unit of input to batch scoring.
type Text struct {
	ID      string
	Content string
}

// Config holds Engine tuning parameters.
type Config struct {
	// ChunkSize is the character threshold above which text is split
	// into overlapping chunks before embedding.
	ChunkSize int

	// ChunkOverlap is the character overlap between adjacent chunks.
	ChunkOverlap int

	// ChunkDecay is the geometric weight decay per chunk position:
	// earlier chunks carry more weight in the combined vector.
	ChunkDecay float64

	// CacheSize bounds the vector cache entry count.
	CacheSize int

	// BatchSize is the default concurrency width for BatchSimilarity.
	BatchSize int
}

// NewDefaultConfig returns Engine defaults.
func NewDefaultConfig() Config {
	return Config{
		ChunkSize:    1800,
		ChunkOverlap: 200,
		ChunkDecay:   0.8,
		CacheSize:    512,
		BatchSize:    10,
	}
}

// ProgressFunc is invoked after each concurrent group completes.
type ProgressFunc func(completed, total int)

// Engine computes baseline-relative similarity scores.
type Engine struct {
	embedder Embedder
	cfg      Config
	cache    *vectorCache
	metrics  *Metrics
	logger   *zap.Logger

	mu       sync.RWMutex
	baseline []float32
	points   []contextPoint
}

// contextPoint is one independently embedded context bullet or question.
type contextPoint struct {
	text   string
	vector []float32
}

// NewEngine creates an Engine around the given embedder.
func NewEngine(embedder Embedder, cfg Config) *Engine {
	def := NewDefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.ChunkDecay <= 0 || cfg.ChunkDecay > 1 {
		cfg.ChunkDecay = def.ChunkDecay
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Engine{
		embedder: embedder,
		cfg:      cfg,
		cache:    newVectorCache(cfg.CacheSize),
		metrics:  NewMetrics(zap.NewNop()),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for this engine.
func (e *Engine) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
		e.metrics.logger = l
	}
}

// SetBaseline embeds the context document and stores it as the comparison
// point for every subsequent Similarity call.
func (e *Engine) SetBaseline(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: baseline text", ErrEmptyText)
	}
	vec, err := e.embedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding baseline: %w", err)
	}

	e.mu.Lock()
	e.baseline = vec
	e.mu.Unlock()
	return vec, nil
}

// SetContextPoints embeds each context point independently for fine-grained
// match explanations. Points that fail to embed are skipped.
func (e *Engine) SetContextPoints(ctx context.Context, points []string) error {
	embedded := make([]contextPoint, 0, len(points))
	for _, p := range points {
		if p == "" {
			continue
		}
		vec, err := e.embedText(ctx, p)
		if err != nil {
			e.logger.Warn("skipping context point", zap.String("point", p), zap.Error(err))
			continue
		}
		embedded = append(embedded, contextPoint{text: p, vector: vec})
	}

	e.mu.Lock()
	e.points = embedded
	e.mu.Unlock()
	return nil
}

// Similarity returns the cosine similarity between text and the baseline,
// clamped to [0,1]. Fails with ErrBaselineNotSet if SetBaseline has not run.
func (e *Engine) Similarity(ctx context.Context, text string) (float64, error) {
	e.mu.RLock()
	baseline := e.baseline
	e.mu.RUnlock()

	if baseline == nil {
		return 0, ErrBaselineNotSet
	}
	if text == "" {
		return 0, fmt.Errorf("%w: similarity input", ErrEmptyText)
	}

	vec, err := e.embedText(ctx, text)
	if err != nil {
		return 0, err
	}

	sim := cosine(baseline, vec)
	if sim < 0 {
		sim = 0
	}
	return sim, nil
}

// BestMatchingPoint returns the context point most similar to text, with its
// score. Returns empty when no points are set or the text cannot be embedded.
func (e *Engine) BestMatchingPoint(ctx context.Context, text string) (string, float64) {
	e.mu.RLock()
	points := e.points
	e.mu.RUnlock()

	if len(points) == 0 || text == "" {
		return "", 0
	}

	vec, err := e.embedText(ctx, text)
	if err != nil {
		return "", 0
	}

	best, bestScore := "", -1.0
	for _, p := range points {
		if s := cosine(p.vector, vec); s > bestScore {
			best, bestScore = p.text, s
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

// BatchSimilarity scores texts against the baseline in fixed-size concurrent
// groups of at most width, waiting for each group before starting the next.
// An embedding failure for one text degrades that text's score to 0 rather
// than aborting the batch; the failure policy keeps one bad item from
// cancelling an entire run. Progress, if non-nil, is reported after each
// group completes.
func (e *Engine) BatchSimilarity(ctx context.Context, texts []Text, width int, progress ProgressFunc) (map[string]float64, error) {
	e.mu.RLock()
	baseline := e.baseline
	e.mu.RUnlock()

	if baseline == nil {
		return nil, ErrBaselineNotSet
	}
	if width <= 0 {
		width = e.cfg.BatchSize
	}

	results := make(map[string]float64, len(texts))
	var resultsMu sync.Mutex

	for start := 0; start < len(texts); start += width {
		end := start + width
		if end > len(texts) {
			end = len(texts)
		}

		var wg sync.WaitGroup
		for _, t := range texts[start:end] {
			wg.Add(1)
			go func(t Text) {
				defer wg.Done()

				score, err := e.Similarity(ctx, t.Content)
				if err != nil {
					e.logger.Warn("similarity failed, defaulting to 0",
						zap.String("id", t.ID),
						zap.Error(err))
					score = 0
				}

				resultsMu.Lock()
				results[t.ID] = score
				resultsMu.Unlock()
			}(t)
		}
		wg.Wait()

		if progress != nil {
			progress(end, len(texts))
		}
	}
	return results, nil
}

// CacheSize returns the current vector cache entry count.
func (e *Engine) CacheSize() int {
	return e.cache.Len()
}

// embedText returns the embedding for text, consulting the cache first.
// Text longer than the chunk threshold is embedded chunk-wise and combined
// via a geometrically decaying weighted average, re-normalized to unit
// length.
func (e *Engine) embedText(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		e.metrics.RecordCacheHit(ctx)
		return vec, nil
	}
	e.metrics.RecordCacheMiss(ctx)

	start := time.Now()
	vec, err := e.embedChunked(ctx, text)
	e.metrics.RecordEmbedding(ctx, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec)
	return vec, nil
}

func (e *Engine) embedChunked(ctx context.Context, text string) ([]float32, error) {
	chunks := splitChunks(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
	if len(chunks) == 1 {
		return e.embedder.Embed(ctx, chunks[0])
	}

	var combined []float32
	var totalWeight float64
	weight := 1.0
	for _, chunk := range chunks {
		vec, err := e.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk: %w", err)
		}
		if combined == nil {
			combined = make([]float32, len(vec))
		}
		for i := range vec {
			combined[i] += float32(weight) * vec[i]
		}
		totalWeight += weight
		weight *= e.cfg.ChunkDecay
	}

	for i := range combined {
		combined[i] /= float32(totalWeight)
	}
	return normalizeVector(combined), nil
}

// cosine returns dot(a,b) / (||a||*||b||), clamped to [-1,1].
// Mismatched or zero-length vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

func normalizeVector(v []float32) []float32 {
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
