package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/signald/internal/config"
	"github.com/fyrsmithlabs/signald/internal/embeddings"
	"github.com/fyrsmithlabs/signald/internal/feeds"
	"github.com/fyrsmithlabs/signald/internal/logging"
	"github.com/fyrsmithlabs/signald/internal/novelty"
	"github.com/fyrsmithlabs/signald/internal/pipeline"
)

var (
	contextFile string
	inputFile   string
	sortFlag    string
	verboseFlag bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Fetch items and filter them against a context document",
	Long: `Scan fetches items from the configured feeds (and/or a JSON input
file), ranks them against the context document and prints surviving
signals as JSON.

Examples:
  # Scan configured feeds against a context file
  signald scan --context CONTEXT.md

  # Filter a pre-fetched item dump instead
  signald scan --context CONTEXT.md --input items.json

  # Sort by recency and show per-item progress
  signald scan --context CONTEXT.md --sort recency --verbose`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&contextFile, "context", "", "context document path (required)")
	scanCmd.Flags().StringVar(&inputFile, "input", "", "JSON file with items to filter instead of fetching feeds")
	scanCmd.Flags().StringVar(&sortFlag, "sort", "", "sort order: composite, relevance, recency, engagement")
	scanCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "log per-item drops and progress")
	_ = scanCmd.MarkFlagRequired("context")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	contextText, err := os.ReadFile(contextFile)
	if err != nil {
		return fmt.Errorf("reading context document: %w", err)
	}

	items, err := collectItems(ctx, cfg, logger)
	if err != nil {
		return err
	}

	provider, err := embeddings.NewProvider(embeddings.Config{
		Provider:     cfg.Embedding.Provider,
		Model:        cfg.Embedding.Model,
		CacheDir:     cfg.Embedding.CacheDir,
		BaseURL:      cfg.Embedding.BaseURL,
		ShowProgress: cfg.Embedding.ShowProgress,
	})
	if err != nil {
		return err
	}
	defer provider.Close() //nolint:errcheck

	var progress embeddings.ProgressFunc
	if cfg.Embedding.ShowProgress {
		progress = func(p embeddings.Progress) {
			fmt.Fprintf(os.Stderr, "embedding model: %s\n", p.Status)
		}
	}
	if err := provider.Init(ctx, progress); err != nil {
		return fmt.Errorf("initializing embedding provider: %w", err)
	}

	store, closeStore, err := newNoveltyStore(cfg.Novelty)
	if err != nil {
		return err
	}
	defer closeStore()

	sortBy := cfg.Pipeline.SortBy
	if sortFlag != "" {
		sortBy = sortFlag
	}
	sortKey, err := pipeline.ParseSortKey(sortBy)
	if err != nil {
		return err
	}

	p := pipeline.New(provider)
	p.SetLogger(logger)

	result, err := p.Filter(ctx, items, string(contextText), pipeline.Options{
		RelevanceThreshold: cfg.Pipeline.RelevanceThreshold,
		NoveltyThreshold:   cfg.Pipeline.NoveltyThreshold,
		Concurrency:        cfg.Pipeline.Concurrency,
		SortBy:             sortKey,
		WatchKeywords:      cfg.Pipeline.WatchKeywords,
		Novelty:            store,
		Verbose:            verboseFlag,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// collectItems gathers items from the --input file and enabled feeds. At
// least one of the two must yield items; feed errors are non-fatal as long
// as something was fetched.
func collectItems(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]pipeline.Item, error) {
	var items []pipeline.Item

	if inputFile != "" {
		loaded, err := readItems(inputFile)
		if err != nil {
			return nil, err
		}
		items = append(items, loaded...)
	}

	sources, err := buildSources(ctx, cfg.Feeds)
	if err != nil {
		return nil, err
	}
	if len(sources) > 0 {
		fetched, err := feeds.FetchAll(ctx, sources, logger)
		if err != nil {
			return nil, err
		}
		if len(fetched.Errors) > 0 && len(fetched.Items) == 0 && len(items) == 0 {
			return nil, fmt.Errorf("all feeds failed: %v", fetched.Errors[0])
		}
		items = append(items, fetched.Items...)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no items: enable a feed in config or pass --input")
	}
	return items, nil
}

func readItems(path string) ([]pipeline.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var items []pipeline.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

func buildSources(ctx context.Context, cfg config.FeedsConfig) ([]feeds.Source, error) {
	var sources []feeds.Source

	if cfg.GitHub.Enabled {
		src, err := feeds.NewGitHubSource(ctx, feeds.GitHubConfig{
			Token:      cfg.GitHub.Token,
			Queries:    cfg.GitHub.Queries,
			MaxResults: cfg.GitHub.MaxResults,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if cfg.HN.Enabled {
		sources = append(sources, feeds.NewHackerNewsSource(feeds.HackerNewsConfig{
			Queries:    cfg.HN.Queries,
			MaxResults: cfg.HN.MaxResults,
			MaxAgeDays: cfg.HN.MaxAgeDays,
		}))
	}

	if cfg.RSS.Enabled {
		for _, url := range cfg.RSS.URLs {
			src, err := feeds.NewRSSSource(feeds.RSSConfig{
				URL:        url,
				MaxAgeDays: cfg.RSS.MaxAgeDays,
			})
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}

	return sources, nil
}

// newNoveltyStore builds the store around the configured persistence
// backend. The returned close function releases backend resources after
// the run.
func newNoveltyStore(cfg config.NoveltyConfig) (*novelty.Store, func(), error) {
	backend, closeBackend, err := newNoveltyBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	storeCfg := novelty.Config{HalfLifeDays: cfg.HalfLifeDays, MinScore: cfg.MinScore}
	return novelty.NewStore(backend, storeCfg), closeBackend, nil
}

func newNoveltyBackend(cfg config.NoveltyConfig) (novelty.Backend, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "memory":
		return novelty.NewMemoryBackend(), noop, nil
	case "file":
		backend, err := novelty.NewFileBackend(cfg.Path, cfg.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		return backend, noop, nil
	case "sqlite":
		backend, err := novelty.NewSQLiteBackend(cfg.Path, cfg.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	case "nats":
		backend, err := novelty.NewNATSBackend(novelty.NATSConfig{
			URL:    cfg.NATSURL,
			Bucket: cfg.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown novelty backend %q", cfg.Backend)
	}
}
