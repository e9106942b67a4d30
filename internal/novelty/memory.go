package novelty

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory. Non-durable; the default
// backend when no persistence is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

// Load returns stored records for the given ids.
func (b *MemoryBackend) Load(_ context.Context, ids []string) (map[string]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Record)
	for _, id := range ids {
		if rec, ok := b.records[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

// Save overwrites records by id.
func (b *MemoryBackend) Save(_ context.Context, records []Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range records {
		b.records[rec.ItemID] = rec
	}
	return nil
}

// Clear wipes all records.
func (b *MemoryBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = make(map[string]Record)
	return nil
}

// Len returns the stored record count.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}
