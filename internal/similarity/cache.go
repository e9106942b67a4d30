package similarity

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

// cacheEntry holds one cached embedding vector.
type cacheEntry struct {
	vector []float32

	// lastAccessed tracks LRU eviction (internal use only)
	lastAccessed time.Time
}

// vectorCache provides thread-safe, content-addressed caching of embedding
// vectors with LRU eviction. Entries are keyed by a cheap FNV-1a hash of the
// input text; hash collisions surface as a stale vector, which is acceptable
// at this cache's scale. Entries are never invalidated except by eviction.
type vectorCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int
}

// newVectorCache creates a cache bounded at maxEntries.
func newVectorCache(maxEntries int) *vectorCache {
	return &vectorCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// cacheKey returns the content-addressed key for text.
func cacheKey(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached vector for text, if present.
func (c *vectorCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(text)]
	if !ok {
		return nil, false
	}
	entry.lastAccessed = time.Now()
	return entry.vector, true
}

// Set stores a vector for text, evicting the least recently used entry when
// the cache is at capacity.
func (c *vectorCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}
	c.entries[key] = &cacheEntry{
		vector:       vector,
		lastAccessed: time.Now(),
	}
}

// Len returns the current entry count.
func (c *vectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLRU removes the least recently accessed entry.
// Caller must hold c.mu.
func (c *vectorCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
