package feeds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/signald/internal/pipeline"
)

// GitHubConfig configures the GitHub repository search source.
type GitHubConfig struct {
	// Token authenticates API calls. Unauthenticated requests work but
	// hit much lower rate limits.
	Token string `koanf:"token"`

	// Queries are search expressions, e.g. "topic:vector-database".
	Queries []string `koanf:"queries"`

	// MaxResults caps results per query. Default 30.
	MaxResults int `koanf:"max_results"`

	// RateLimit is requests per second against the search API.
	// Default 0.5, well inside GitHub's search quota.
	RateLimit float64 `koanf:"rate_limit"`
}

// GitHubSource searches GitHub repositories and emits them as items.
type GitHubSource struct {
	cfg     GitHubConfig
	client  *github.Client
	limiter *rate.Limiter
}

// NewGitHubSource creates a GitHub search source.
func NewGitHubSource(ctx context.Context, cfg GitHubConfig) (*GitHubSource, error) {
	if len(cfg.Queries) == 0 {
		return nil, fmt.Errorf("github source: at least one query required")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 30
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 0.5
	}

	httpClient := oauth2.NewClient(ctx, nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	return &GitHubSource{
		cfg:     cfg,
		client:  github.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}, nil
}

func (s *GitHubSource) Name() string { return "github" }

// Fetch runs every configured search query, paginating up to MaxResults
// per query, sorted by most recent push.
func (s *GitHubSource) Fetch(ctx context.Context) ([]pipeline.Item, error) {
	var items []pipeline.Item
	for _, query := range s.cfg.Queries {
		opts := &github.SearchOptions{
			Sort:        "updated",
			Order:       "desc",
			ListOptions: github.ListOptions{PerPage: min(s.cfg.MaxResults, 100)},
		}

		remaining := s.cfg.MaxResults
		for remaining > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			res, resp, err := s.client.Search.Repositories(ctx, query, opts)
			if err != nil {
				return nil, fmt.Errorf("github search %q: %w", query, err)
			}
			for _, repo := range res.Repositories {
				if remaining == 0 {
					break
				}
				items = append(items, itemFromRepo(repo))
				remaining--
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return items, nil
}

func itemFromRepo(repo *github.Repository) pipeline.Item {
	item := pipeline.Item{
		ID:          "github:" + strconv.FormatInt(repo.GetID(), 10),
		Source:      "github",
		Title:       repo.GetFullName(),
		Description: repo.GetDescription(),
		URL:         repo.GetHTMLURL(),
		Metadata: map[string]any{
			"stars": float64(repo.GetStargazersCount()),
			"forks": float64(repo.GetForksCount()),
		},
	}
	if ts := repo.GetPushedAt(); !ts.IsZero() {
		item.Metadata["pushed_at"] = ts.Format(time.RFC3339)
	}
	return item
}
