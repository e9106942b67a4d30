package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed vectors per text and counts invocations.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
	failOn  string
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: make(map[string][]float32),
		calls:   make(map[string]int),
	}
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[text]++
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("provider exploded")
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	// Deterministic default: direction derived from text length.
	if len(text)%2 == 0 {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func (s *stubEmbedder) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func TestSimilarityRequiresBaseline(t *testing.T) {
	engine := NewEngine(newStubEmbedder(), Config{})

	_, err := engine.Similarity(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrBaselineNotSet)

	_, err = engine.BatchSimilarity(context.Background(), []Text{{ID: "a", Content: "x"}}, 2, nil)
	assert.ErrorIs(t, err, ErrBaselineNotSet)
}

func TestSimilarityIdenticalAndOrthogonal(t *testing.T) {
	stub := newStubEmbedder()
	stub.vectors["baseline"] = []float32{1, 0, 0}
	stub.vectors["same direction"] = []float32{1, 0, 0}
	stub.vectors["orthogonal"] = []float32{0, 0, 1}
	stub.vectors["opposite"] = []float32{-1, 0, 0}

	engine := NewEngine(stub, Config{})
	_, err := engine.SetBaseline(context.Background(), "baseline")
	require.NoError(t, err)

	sim, err := engine.Similarity(context.Background(), "same direction")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-6)

	sim, err = engine.Similarity(context.Background(), "orthogonal")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-6)

	// Negative cosine clamps to 0 at the contract boundary.
	sim, err = engine.Similarity(context.Background(), "opposite")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCacheDeduplicatesEmbeddingCalls(t *testing.T) {
	stub := newStubEmbedder()
	engine := NewEngine(stub, Config{})
	_, err := engine.SetBaseline(context.Background(), "baseline text")
	require.NoError(t, err)

	first, err := engine.Similarity(context.Background(), "repeated text")
	require.NoError(t, err)
	second, err := engine.Similarity(context.Background(), "repeated text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls["repeated text"], "embedder invoked at most once per distinct text")
}

func TestBatchSimilarity(t *testing.T) {
	stub := newStubEmbedder()
	stub.vectors["baseline"] = []float32{1, 0, 0}
	engine := NewEngine(stub, Config{})
	_, err := engine.SetBaseline(context.Background(), "baseline")
	require.NoError(t, err)

	texts := make([]Text, 25)
	for i := range texts {
		texts[i] = Text{ID: fmt.Sprintf("item-%d", i), Content: fmt.Sprintf("content number %d", i)}
	}

	var progressCalls [][2]int
	results, err := engine.BatchSimilarity(context.Background(), texts, 10, func(done, total int) {
		progressCalls = append(progressCalls, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Len(t, results, 25)
	for _, tx := range texts {
		_, ok := results[tx.ID]
		assert.True(t, ok, "missing result for %s", tx.ID)
	}
	// Three groups of width 10 over 25 items.
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, progressCalls)
}

func TestBatchSimilarityDegradesOnFailure(t *testing.T) {
	stub := newStubEmbedder()
	stub.vectors["baseline"] = []float32{1, 0, 0}
	stub.failOn = "poison"

	engine := NewEngine(stub, Config{})
	_, err := engine.SetBaseline(context.Background(), "baseline")
	require.NoError(t, err)

	results, err := engine.BatchSimilarity(context.Background(), []Text{
		{ID: "good", Content: "fine text"},
		{ID: "bad", Content: "poison text"},
	}, 10, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, results["bad"], "failed embedding defaults to 0")
	assert.Contains(t, results, "good")
}

func TestChunkedEmbeddingCombinesVectors(t *testing.T) {
	stub := newStubEmbedder()
	engine := NewEngine(stub, Config{ChunkSize: 10, ChunkOverlap: 2})

	long := strings.Repeat("abcdefghij", 5)
	vec, err := engine.embedText(context.Background(), long)
	require.NoError(t, err)
	require.NotEmpty(t, vec)

	// Result is unit-normalized.
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	// Multiple chunk embeddings occurred, one cache entry stored.
	assert.Greater(t, stub.totalCalls(), 1)
	assert.Equal(t, 1, engine.CacheSize())
}

func TestBestMatchingPoint(t *testing.T) {
	stub := newStubEmbedder()
	stub.vectors["point about latency"] = []float32{1, 0, 0}
	stub.vectors["point about pricing"] = []float32{0, 1, 0}
	stub.vectors["latency regression report"] = []float32{0.9, 0.1, 0}

	engine := NewEngine(stub, Config{})
	require.NoError(t, engine.SetContextPoints(context.Background(), []string{
		"point about latency",
		"point about pricing",
	}))

	point, score := engine.BestMatchingPoint(context.Background(), "latency regression report")
	assert.Equal(t, "point about latency", point)
	assert.Greater(t, score, 0.5)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosine(tt.a, tt.b), 1e-6)
		})
	}
}
