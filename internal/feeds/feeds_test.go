package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/signald/internal/pipeline"
)

type staticSource struct {
	name  string
	items []pipeline.Item
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Fetch(context.Context) ([]pipeline.Item, error) {
	return s.items, s.err
}

func TestFetchAllMergesAndCollectsErrors(t *testing.T) {
	sources := []Source{
		staticSource{name: "a", items: []pipeline.Item{{ID: "1"}, {ID: "2"}}},
		staticSource{name: "b", err: errors.New("upstream down")},
		staticSource{name: "c", items: []pipeline.Item{{ID: "3"}}},
	}

	result, err := FetchAll(context.Background(), sources, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, result.Items, 3)
	assert.Len(t, result.Errors, 1)
}

func TestFetchAllNoSources(t *testing.T) {
	_, err := FetchAll(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestHackerNewsFetch(t *testing.T) {
	createdAt := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search_by_date", r.URL.Path)
		assert.Equal(t, "story", r.URL.Query().Get("tags"))
		assert.Equal(t, "vector database", r.URL.Query().Get("query"))

		fmt.Fprintf(w, `{"hits":[
			{"objectID":"41001","title":"Show HN: Fast vector search","url":"https://example.com/post","points":245,"num_comments":87,"created_at":%q},
			{"objectID":"41002","title":"Ask HN: Embeddings at scale?","url":"","points":12,"num_comments":4,"created_at":%q}
		]}`, createdAt, createdAt)
	}))
	defer srv.Close()

	src := NewHackerNewsSource(HackerNewsConfig{
		Queries: []string{"vector database"},
		BaseURL: srv.URL,
	})

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "hn:41001", first.ID)
	assert.Equal(t, "hackernews", first.Source)
	assert.Equal(t, "Show HN: Fast vector search", first.Title)
	assert.Equal(t, "https://example.com/post", first.URL)
	assert.Equal(t, 245.0, first.Metadata["points"])
	assert.Equal(t, 87.0, first.Metadata["comments"])
	assert.Equal(t, createdAt, first.Metadata["created_at"])

	// Linkless posts get the HN discussion URL.
	assert.Equal(t, "https://news.ycombinator.com/item?id=41002", items[1].URL)
}

func TestHackerNewsFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewHackerNewsSource(HackerNewsConfig{BaseURL: srv.URL})
	_, err := src.Fetch(context.Background())
	assert.ErrorContains(t, err, "unexpected status 429")
}

func TestRSSFetch(t *testing.T) {
	recent := time.Now().Add(-12 * time.Hour).UTC().Format(time.RFC1123Z)
	stale := time.Now().AddDate(0, 0, -30).UTC().Format(time.RFC1123Z)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Engineering Blog</title>
  <item>
    <title>Shipping faster embeddings</title>
    <link>https://blog.example.com/embeddings</link>
    <description>&lt;p&gt;We cut   latency in half.&lt;/p&gt;</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Old news</title>
    <link>https://blog.example.com/old</link>
    <pubDate>%s</pubDate>
  </item>
</channel></rss>`, recent, stale)
	}))
	defer srv.Close()

	src, err := NewRSSSource(RSSConfig{Name: "engblog", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "engblog", src.Name())

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1, "entries past the age window are dropped")

	item := items[0]
	assert.Equal(t, "engblog", item.Source)
	assert.Equal(t, "Shipping faster embeddings", item.Title)
	assert.Equal(t, "We cut latency in half.", item.Description, "HTML stripped, whitespace collapsed")
	assert.Contains(t, item.ID, "rss:")
	assert.NotEmpty(t, item.Metadata["published"])
}

func TestNewRSSSourceRequiresURL(t *testing.T) {
	_, err := NewRSSSource(RSSConfig{})
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hello world", stripHTML("<p>hello <b>world</b></p>"))
	assert.Equal(t, "plain", stripHTML("plain"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 300))
	long := truncate(string(make([]rune, 400)), 10)
	assert.Len(t, []rune(long), 10)
}
