package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.30, cfg.Pipeline.RelevanceThreshold)
	assert.Equal(t, 0.5, cfg.Pipeline.NoveltyThreshold)
	assert.Equal(t, 10, cfg.Pipeline.Concurrency)
	assert.Equal(t, "composite", cfg.Pipeline.SortBy)
	assert.Equal(t, "memory", cfg.Novelty.Backend)
	assert.Equal(t, 7.0, cfg.Novelty.HalfLifeDays)
	assert.Equal(t, "fastembed", cfg.Embedding.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
pipeline:
  relevance_threshold: 0.4
  concurrency: 5
novelty:
  backend: file
  path: /tmp/novelty.json
  half_life_days: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.4, cfg.Pipeline.RelevanceThreshold)
	assert.Equal(t, 5, cfg.Pipeline.Concurrency)
	assert.Equal(t, "file", cfg.Novelty.Backend)
	assert.Equal(t, 3.0, cfg.Novelty.HalfLifeDays)
	// Untouched fields keep defaults.
	assert.Equal(t, 0.5, cfg.Pipeline.NoveltyThreshold)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SIGNALD_PIPELINE_SORT_BY", "recency")
	t.Setenv("SIGNALD_NOVELTY_BACKEND", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "recency", cfg.Pipeline.SortBy)
	assert.Equal(t, "sqlite", cfg.Novelty.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relevance threshold out of range", func(c *Config) { c.Pipeline.RelevanceThreshold = 1.5 }},
		{"novelty threshold negative", func(c *Config) { c.Pipeline.NoveltyThreshold = -0.1 }},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"unknown sort key", func(c *Config) { c.Pipeline.SortBy = "alphabetical" }},
		{"unknown backend", func(c *Config) { c.Novelty.Backend = "redis" }},
		{"min score >= 1", func(c *Config) { c.Novelty.MinScore = 1.0 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "openai" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
