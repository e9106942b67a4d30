package novelty

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileBackend persists records to a single JSON file. Every save rewrites
// the file atomically (temp file + rename), so a crash mid-save never
// corrupts previously stored state. When the entry cap is exceeded the
// records with the oldest LastSeen are evicted.
type FileBackend struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

// NewFileBackend creates a file backend at path, creating the parent
// directory if needed. maxEntries <= 0 means unbounded.
func NewFileBackend(path string, maxEntries int) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating novelty dir: %w", err)
	}
	return &FileBackend{path: path, maxEntries: maxEntries}, nil
}

// Load returns stored records for the given ids.
func (b *FileBackend) Load(_ context.Context, ids []string) (map[string]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.readAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Record)
	for _, id := range ids {
		if rec, ok := all[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

// Save merges records into the file and rewrites it.
func (b *FileBackend) Save(_ context.Context, records []Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.readAll()
	if err != nil {
		return err
	}
	for _, rec := range records {
		all[rec.ItemID] = rec
	}

	if b.maxEntries > 0 && len(all) > b.maxEntries {
		evictOldest(all, len(all)-b.maxEntries)
	}

	return b.writeAll(all)
}

// Clear removes the backing file.
func (b *FileBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing novelty file: %w", err)
	}
	return nil
}

func (b *FileBackend) readAll() (map[string]Record, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading novelty file: %w", err)
	}

	var all map[string]Record
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing novelty file %s: %w", b.path, err)
	}
	if all == nil {
		all = make(map[string]Record)
	}
	return all, nil
}

func (b *FileBackend) writeAll(all map[string]Record) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding novelty records: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing novelty file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replacing novelty file: %w", err)
	}
	return nil
}

// evictOldest removes n records with the oldest LastSeen.
func evictOldest(all map[string]Record, n int) {
	type entry struct {
		id  string
		rec Record
	}
	entries := make([]entry, 0, len(all))
	for id, rec := range all {
		entries = append(entries, entry{id: id, rec: rec})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].rec.LastSeen.Before(entries[j].rec.LastSeen)
	})
	for i := 0; i < n && i < len(entries); i++ {
		delete(all, entries[i].id)
	}
}
