package novelty

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id string, lastSeen time.Time) Record {
	return Record{
		ItemID:    id,
		FirstSeen: lastSeen.Add(-time.Hour),
		LastSeen:  lastSeen,
		SeenCount: 1,
		Metadata:  map[string]string{"source": "test"},
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novelty.json")
	backend, err := NewFileBackend(path, 0)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, backend.Save(context.Background(), []Record{
		testRecord("a", now),
		testRecord("b", now),
	}))

	loaded, err := backend.Load(context.Background(), []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "test", loaded["a"].Metadata["source"])
	assert.Equal(t, 1, loaded["a"].SeenCount)

	// Save overwrites affected keys idempotently.
	updated := testRecord("a", now.Add(time.Hour))
	updated.SeenCount = 5
	require.NoError(t, backend.Save(context.Background(), []Record{updated}))

	loaded, err = backend.Load(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 5, loaded["a"].SeenCount)
}

func TestFileBackendLoadMissingFile(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "nope.json"), 0)
	require.NoError(t, err)

	loaded, err := backend.Load(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileBackendCapEvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novelty.json")
	backend, err := NewFileBackend(path, 3)
	require.NoError(t, err)

	now := time.Now().UTC()
	var records []Record
	for i := 0; i < 5; i++ {
		records = append(records, testRecord(fmt.Sprintf("item-%d", i), now.Add(time.Duration(i)*time.Hour)))
	}
	require.NoError(t, backend.Save(context.Background(), records))

	ids := []string{"item-0", "item-1", "item-2", "item-3", "item-4"}
	loaded, err := backend.Load(context.Background(), ids)
	require.NoError(t, err)

	assert.Len(t, loaded, 3)
	assert.NotContains(t, loaded, "item-0", "oldest by lastSeen evicted")
	assert.NotContains(t, loaded, "item-1")
	assert.Contains(t, loaded, "item-4")
}

func TestFileBackendClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novelty.json")
	backend, err := NewFileBackend(path, 0)
	require.NoError(t, err)

	require.NoError(t, backend.Save(context.Background(), []Record{testRecord("a", time.Now())}))
	require.NoError(t, backend.Clear(context.Background()))

	loaded, err := backend.Load(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Clearing twice is fine.
	require.NoError(t, backend.Clear(context.Background()))
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "novelty.db"), 0)
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, backend.Save(context.Background(), []Record{
		testRecord("a", now),
		testRecord("b", now),
	}))

	loaded, err := backend.Load(context.Background(), []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded["a"].ItemID)
	assert.Equal(t, "test", loaded["a"].Metadata["source"])

	// Upsert path: firstSeen keeps its original value on conflict.
	updated := loaded["a"]
	updated.LastSeen = now.Add(2 * time.Hour)
	updated.SeenCount = 7
	require.NoError(t, backend.Save(context.Background(), []Record{updated}))

	loaded, err = backend.Load(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 7, loaded["a"].SeenCount)
	assert.True(t, loaded["a"].FirstSeen.Equal(now.Add(-time.Hour)))
}

func TestSQLiteBackendCapEvictsOldest(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "novelty.db"), 2)
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now().UTC()
	var records []Record
	for i := 0; i < 4; i++ {
		records = append(records, testRecord(fmt.Sprintf("item-%d", i), now.Add(time.Duration(i)*time.Hour)))
	}
	require.NoError(t, backend.Save(context.Background(), records))

	loaded, err := backend.Load(context.Background(), []string{"item-0", "item-1", "item-2", "item-3"})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Contains(t, loaded, "item-2")
	assert.Contains(t, loaded, "item-3")
}

func TestSQLiteBackendPrune(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "novelty.db"), 0)
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now().UTC()
	require.NoError(t, backend.Save(context.Background(), []Record{
		testRecord("stale", now.Add(-30*24*time.Hour)),
		testRecord("fresh", now),
	}))

	pruned, err := backend.Prune(context.Background(), now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	loaded, err := backend.Load(context.Background(), []string{"stale", "fresh"})
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, "fresh")
}

func TestKVKeyEncodesUnsafeIDs(t *testing.T) {
	key := kvKey("https://example.com/some path?q=1")
	for _, r := range key {
		valid := r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, valid, "invalid NATS key rune %q", r)
	}
	assert.Equal(t, kvKey("same"), kvKey("same"))
	assert.NotEqual(t, kvKey("a"), kvKey("b"))
}
