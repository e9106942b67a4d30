package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/signald/internal/logging"
)

const envPrefix = "SIGNALD_"

// Load reads configuration from an optional YAML file, then overrides with
// SIGNALD_-prefixed environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (SIGNALD_PIPELINE_RELEVANCE_THRESHOLD, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// An empty configPath skips the file layer entirely.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// Environment variables map SIGNALD_SECTION_FIELD_NAME to
	// section.field_name: split on the first underscore after the prefix.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging = logging.NewDefaultConfig()
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "fastembed"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Pipeline.RelevanceThreshold == 0 {
		cfg.Pipeline.RelevanceThreshold = 0.30
	}
	if cfg.Pipeline.NoveltyThreshold == 0 {
		cfg.Pipeline.NoveltyThreshold = 0.5
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 10
	}
	if cfg.Pipeline.SortBy == "" {
		cfg.Pipeline.SortBy = "composite"
	}
	if cfg.Novelty.Backend == "" {
		cfg.Novelty.Backend = "memory"
	}
	if cfg.Novelty.HalfLifeDays == 0 {
		cfg.Novelty.HalfLifeDays = 7
	}
	if cfg.Novelty.MinScore == 0 {
		cfg.Novelty.MinScore = 0.05
	}
	if cfg.Novelty.MaxEntries == 0 {
		cfg.Novelty.MaxEntries = 10000
	}
	if cfg.Novelty.Bucket == "" {
		cfg.Novelty.Bucket = "signald-novelty"
	}
	if cfg.Feeds.GitHub.MaxResults == 0 {
		cfg.Feeds.GitHub.MaxResults = 30
	}
	if cfg.Feeds.HN.MaxResults == 0 {
		cfg.Feeds.HN.MaxResults = 30
	}
	if cfg.Feeds.HN.MaxAgeDays == 0 {
		cfg.Feeds.HN.MaxAgeDays = 7
	}
	if cfg.Feeds.RSS.MaxAgeDays == 0 {
		cfg.Feeds.RSS.MaxAgeDays = 7
	}
}
