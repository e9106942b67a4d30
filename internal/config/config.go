// Package config provides configuration loading for signald.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/signald/internal/logging"
)

// Config is the root signald configuration.
type Config struct {
	Logging   logging.Config  `koanf:"logging"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Novelty   NoveltyConfig   `koanf:"novelty"`
	Feeds     FeedsConfig     `koanf:"feeds"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "fastembed" (local ONNX, default) or "ollama".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// CacheDir is the model download directory (fastembed only).
	CacheDir string `koanf:"cache_dir"`

	// BaseURL is the Ollama server URL (ollama only).
	BaseURL string `koanf:"base_url"`

	// ShowProgress enables download progress reporting during Init.
	ShowProgress bool `koanf:"show_progress"`
}

// PipelineConfig holds filtering thresholds and limits.
type PipelineConfig struct {
	// RelevanceThreshold drops items scoring below it (0..1).
	RelevanceThreshold float64 `koanf:"relevance_threshold"`

	// NoveltyThreshold drops items whose novelty decayed below it (0..1).
	NoveltyThreshold float64 `koanf:"novelty_threshold"`

	// Concurrency bounds parallel similarity computations per batch.
	Concurrency int `koanf:"concurrency"`

	// SortBy selects the output ordering: composite, relevance,
	// recency or engagement.
	SortBy string `koanf:"sort_by"`

	// WatchKeywords are user-declared global keywords; any item
	// matching one is always flagged as watched.
	WatchKeywords []string `koanf:"watch_keywords"`
}

// NoveltyConfig configures decay and the persistence backend.
type NoveltyConfig struct {
	// Backend is "memory" (default), "file", "sqlite" or "nats".
	Backend string `koanf:"backend"`

	// HalfLifeDays is the novelty decay half-life.
	HalfLifeDays float64 `koanf:"half_life_days"`

	// MinScore is the decay floor; novelty never falls below it.
	MinScore float64 `koanf:"min_score"`

	// Path is the file path or SQLite database path.
	Path string `koanf:"path"`

	// MaxEntries caps file/sqlite backends; oldest-by-lastSeen records
	// are evicted when exceeded.
	MaxEntries int `koanf:"max_entries"`

	// NATSURL and Bucket configure the NATS JetStream KV backend.
	NATSURL string `koanf:"nats_url"`
	Bucket  string `koanf:"bucket"`
}

// FeedsConfig configures the bundled source adapters.
type FeedsConfig struct {
	GitHub GitHubFeedConfig `koanf:"github"`
	HN     HNFeedConfig     `koanf:"hn"`
	RSS    RSSFeedConfig    `koanf:"rss"`
}

// GitHubFeedConfig configures the GitHub repository search adapter.
type GitHubFeedConfig struct {
	Enabled    bool     `koanf:"enabled"`
	Token      string   `koanf:"token"`
	Queries    []string `koanf:"queries"`
	MaxResults int      `koanf:"max_results"`
}

// HNFeedConfig configures the Hacker News search adapter.
type HNFeedConfig struct {
	Enabled    bool     `koanf:"enabled"`
	Queries    []string `koanf:"queries"`
	MaxResults int      `koanf:"max_results"`
	MaxAgeDays int      `koanf:"max_age_days"`
}

// RSSFeedConfig configures the RSS adapter.
type RSSFeedConfig struct {
	Enabled    bool     `koanf:"enabled"`
	URLs       []string `koanf:"urls"`
	MaxAgeDays int      `koanf:"max_age_days"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Pipeline.RelevanceThreshold < 0 || c.Pipeline.RelevanceThreshold > 1 {
		return fmt.Errorf("pipeline.relevance_threshold must be in [0,1], got %v", c.Pipeline.RelevanceThreshold)
	}
	if c.Pipeline.NoveltyThreshold < 0 || c.Pipeline.NoveltyThreshold > 1 {
		return fmt.Errorf("pipeline.novelty_threshold must be in [0,1], got %v", c.Pipeline.NoveltyThreshold)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	switch c.Pipeline.SortBy {
	case "composite", "relevance", "recency", "engagement":
	default:
		return fmt.Errorf("pipeline.sort_by must be composite, relevance, recency or engagement, got %q", c.Pipeline.SortBy)
	}
	if c.Novelty.HalfLifeDays <= 0 {
		return fmt.Errorf("novelty.half_life_days must be > 0, got %v", c.Novelty.HalfLifeDays)
	}
	if c.Novelty.MinScore < 0 || c.Novelty.MinScore >= 1 {
		return fmt.Errorf("novelty.min_score must be in [0,1), got %v", c.Novelty.MinScore)
	}
	switch c.Novelty.Backend {
	case "memory", "file", "sqlite", "nats":
	default:
		return fmt.Errorf("novelty.backend must be memory, file, sqlite or nats, got %q", c.Novelty.Backend)
	}
	switch c.Embedding.Provider {
	case "fastembed", "ollama":
	default:
		return fmt.Errorf("embedding.provider must be fastembed or ollama, got %q", c.Embedding.Provider)
	}
	return nil
}
