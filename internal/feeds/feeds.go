// Package feeds fetches candidate items from external sources: GitHub
// repository search, the Hacker News Algolia API and arbitrary RSS/Atom
// feeds. Each source maps its native records to pipeline items carrying the
// metadata the scorer's engagement formulas expect.
package feeds

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/signald/internal/pipeline"
)

// ErrNoSources indicates FetchAll was called with nothing to fetch.
var ErrNoSources = errors.New("no feed sources configured")

// Source produces items for one upstream feed.
type Source interface {
	// Name identifies the source in item records and statistics.
	Name() string

	// Fetch retrieves the current batch of items.
	Fetch(ctx context.Context) ([]pipeline.Item, error)
}

// FetchResult aggregates items across sources. Per-source failures are
// collected rather than aborting the whole fetch.
type FetchResult struct {
	Items  []pipeline.Item
	Errors []error
}

// FetchAll fetches every source concurrently and merges the results.
func FetchAll(ctx context.Context, sources []Source, logger *zap.Logger) (FetchResult, error) {
	if len(sources) == 0 {
		return FetchResult{}, ErrNoSources
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		mu     sync.Mutex
		result FetchResult
		wg     sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			items, err := s.Fetch(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("feed fetch failed",
					zap.String("source", s.Name()), zap.Error(err))
				result.Errors = append(result.Errors, err)
				return
			}
			result.Items = append(result.Items, items...)
		}(src)
	}
	wg.Wait()

	return result, nil
}
