package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/signald/internal/pipeline"
)

const defaultAlgoliaURL = "https://hn.algolia.com/api/v1"

// HackerNewsConfig configures the Hacker News source, backed by the
// Algolia search API.
type HackerNewsConfig struct {
	// Queries are full-text search terms; empty means the front page.
	Queries []string `koanf:"queries"`

	// MaxResults caps results per query. Default 30, API max 100.
	MaxResults int `koanf:"max_results"`

	// MaxAgeDays drops stories older than this. Default 7.
	MaxAgeDays int `koanf:"max_age_days"`

	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string `koanf:"base_url"`

	// RateLimit is requests per second. Default 2.
	RateLimit float64 `koanf:"rate_limit"`
}

// HackerNewsSource fetches stories via the Algolia HN API.
type HackerNewsSource struct {
	cfg     HackerNewsConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHackerNewsSource creates a Hacker News source.
func NewHackerNewsSource(cfg HackerNewsConfig) *HackerNewsSource {
	if cfg.MaxResults <= 0 || cfg.MaxResults > 100 {
		cfg.MaxResults = 30
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 7
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAlgoliaURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	return &HackerNewsSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

func (s *HackerNewsSource) Name() string { return "hackernews" }

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

// Fetch runs every query against search_by_date, filtered to recent
// stories with a minimum score.
func (s *HackerNewsSource) Fetch(ctx context.Context) ([]pipeline.Item, error) {
	queries := s.cfg.Queries
	if len(queries) == 0 {
		queries = []string{""}
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.MaxAgeDays).Unix()

	var items []pipeline.Item
	for _, query := range queries {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{
			"tags":           {"story"},
			"hitsPerPage":    {strconv.Itoa(s.cfg.MaxResults)},
			"numericFilters": {"created_at_i>" + strconv.FormatInt(cutoff, 10)},
		}
		if query != "" {
			params.Set("query", query)
		}

		hits, err := s.search(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			items = append(items, itemFromHit(hit))
		}
	}
	return items, nil
}

func (s *HackerNewsSource) search(ctx context.Context, params url.Values) ([]algoliaHit, error) {
	endpoint := s.cfg.BaseURL + "/search_by_date?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hackernews search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews search: unexpected status %d", resp.StatusCode)
	}

	var parsed algoliaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("hackernews search: decoding response: %w", err)
	}
	return parsed.Hits, nil
}

func itemFromHit(hit algoliaHit) pipeline.Item {
	itemURL := hit.URL
	if itemURL == "" {
		itemURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
	}
	return pipeline.Item{
		ID:     "hn:" + hit.ObjectID,
		Source: "hackernews",
		Title:  hit.Title,
		URL:    itemURL,
		Metadata: map[string]any{
			"points":     float64(hit.Points),
			"comments":   float64(hit.NumComments),
			"created_at": hit.CreatedAt,
		},
	}
}
