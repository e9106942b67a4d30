// Package novelty tracks how recently items were first observed and scores
// their staleness with an exponential decay model.
//
// Decay is anchored to the first sighting, not the last: an item seen once a
// week ago and never since still decays toward staleness, and a re-surfacing
// item does not reset the clock. This separates "actually new" from
// "perpetually trending".
package novelty

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBackendUnavailable indicates the persistence backend failed; novelty
// load/save errors propagate rather than degrade because partial novelty
// state would be misleading.
var ErrBackendUnavailable = errors.New("novelty backend unavailable")

// Record tracks sightings of one item. FirstSeen never changes after
// creation.
type Record struct {
	ItemID    string            `json:"item_id"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	SeenCount int               `json:"seen_count"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Backend is the pluggable persistence port. Implementations only move
// records in bulk; all decay logic stays in the Store.
type Backend interface {
	// Load returns stored records for the given ids. Unknown ids are
	// simply absent from the result.
	Load(ctx context.Context, ids []string) (map[string]Record, error)

	// Save persists records, overwriting any existing entries for the
	// same ids. Each save is a full idempotent overwrite of the affected
	// keys.
	Save(ctx context.Context, records []Record) error
}

// Clearer is an optional Backend extension for wiping stored state.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Config holds decay parameters.
type Config struct {
	// HalfLifeDays is the time for novelty to fall to half its value.
	HalfLifeDays float64

	// MinScore is the decay floor.
	MinScore float64
}

// NewDefaultConfig returns decay defaults.
func NewDefaultConfig() Config {
	return Config{
		HalfLifeDays: 7,
		MinScore:     0.05,
	}
}

// Store scores item novelty over a pluggable backend with buffered writes.
// Writes reach the backend only on an explicit Flush; a crash before Flush
// loses only updates since the last one.
type Store struct {
	backend Backend
	cfg     Config
	logger  *zap.Logger

	mu      sync.Mutex
	records map[string]*Record
	pending map[string]struct{}

	// now is swapped in tests.
	now func() time.Time
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, cfg Config) *Store {
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = NewDefaultConfig().HalfLifeDays
	}
	if cfg.MinScore < 0 {
		cfg.MinScore = 0
	}
	return &Store{
		backend: backend,
		cfg:     cfg,
		logger:  zap.NewNop(),
		records: make(map[string]*Record),
		pending: make(map[string]struct{}),
		now:     time.Now,
	}
}

// SetLogger sets the logger for this store.
func (s *Store) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// LoadBatch pre-warms the in-memory cache from the backend for the given
// ids. Unknown ids are a no-op. Records already touched in this process are
// not overwritten.
func (s *Store) LoadBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	loaded, err := s.backend.Load(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range loaded {
		if _, exists := s.records[id]; !exists {
			r := rec
			s.records[id] = &r
		}
	}
	return nil
}

// Score returns the novelty of id in [MinScore, 1.0]. Never-seen items score
// 1.0; seen items decay as exp(-ln2/halfLife * daysSinceFirstSeen).
func (s *Store) Score(id string) float64 {
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()

	if !ok {
		return 1.0
	}

	days := s.now().Sub(rec.FirstSeen).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := math.Exp(-math.Ln2 / s.cfg.HalfLifeDays * days)
	return math.Max(s.cfg.MinScore, score)
}

// MarkSeen records a sighting of id, creating the record on first sight and
// otherwise refreshing LastSeen and incrementing SeenCount. FirstSeen is
// immutable. The change is buffered until Flush.
func (s *Store) MarkSeen(id string, metadata map[string]string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		rec = &Record{
			ItemID:    id,
			FirstSeen: now,
			SeenCount: 0,
		}
		s.records[id] = rec
	}
	rec.LastSeen = now
	rec.SeenCount++
	if len(metadata) > 0 {
		rec.Metadata = metadata
	}
	s.pending[id] = struct{}{}
}

// SeenCount returns how many times id has been marked seen, 0 if never.
func (s *Store) SeenCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.SeenCount
	}
	return 0
}

// Flush persists all records touched since the last flush, then clears the
// pending set. Flushing an empty pending set is a no-op and does not call
// the backend.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	records := make([]Record, 0, len(s.pending))
	for id := range s.pending {
		records = append(records, *s.records[id])
	}
	s.mu.Unlock()

	if err := s.backend.Save(ctx, records); err != nil {
		return fmt.Errorf("%w: save: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	s.pending = make(map[string]struct{})
	s.mu.Unlock()

	s.logger.Debug("flushed novelty records", zap.Int("count", len(records)))
	return nil
}
