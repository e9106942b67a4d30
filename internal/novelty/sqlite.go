package novelty

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists records to an embedded SQLite database. It fills
// the local key-value store role: durable, single-process, with the same
// entry cap and oldest-by-lastSeen eviction as the file backend.
type SQLiteBackend struct {
	db         *sql.DB
	maxEntries int
}

// NewSQLiteBackend opens (or creates) the database at dbPath.
// maxEntries <= 0 means unbounded.
func NewSQLiteBackend(dbPath string, maxEntries int) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite backend path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating novelty dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening novelty db: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, maxEntries: maxEntries}
	if err := b.init(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) init() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS novelty (
			item_id    TEXT PRIMARY KEY,
			first_seen DATETIME NOT NULL,
			last_seen  DATETIME NOT NULL,
			seen_count INTEGER NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_novelty_last_seen ON novelty(last_seen);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load returns stored records for the given ids.
func (b *SQLiteBackend) Load(ctx context.Context, ids []string) (map[string]Record, error) {
	if len(ids) == 0 {
		return map[string]Record{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT item_id, first_seen, last_seen, seen_count, metadata
		 FROM novelty WHERE item_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying novelty records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		var rec Record
		var meta string
		if err := rows.Scan(&rec.ItemID, &rec.FirstSeen, &rec.LastSeen, &rec.SeenCount, &meta); err != nil {
			return nil, fmt.Errorf("scanning novelty record: %w", err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("parsing metadata for %s: %w", rec.ItemID, err)
			}
		}
		out[rec.ItemID] = rec
	}
	return out, rows.Err()
}

// Save upserts records in one transaction, then enforces the entry cap.
func (b *SQLiteBackend) Save(ctx context.Context, records []Record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO novelty (item_id, first_seen, last_seen, seen_count, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			seen_count = excluded.seen_count,
			metadata = excluded.metadata
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		meta := "{}"
		if len(rec.Metadata) > 0 {
			data, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", rec.ItemID, err)
			}
			meta = string(data)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ItemID, rec.FirstSeen.UTC(), rec.LastSeen.UTC(), rec.SeenCount, meta); err != nil {
			return fmt.Errorf("upserting novelty record %s: %w", rec.ItemID, err)
		}
	}

	if b.maxEntries > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM novelty WHERE item_id IN (
				SELECT item_id FROM novelty
				ORDER BY last_seen ASC
				LIMIT max(0, (SELECT count(*) FROM novelty) - ?)
			)`, b.maxEntries); err != nil {
			return fmt.Errorf("evicting novelty records: %w", err)
		}
	}

	return tx.Commit()
}

// Clear deletes all records.
func (b *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM novelty`)
	return err
}

// Prune deletes records whose LastSeen is before cutoff. Useful as a
// maintenance hook outside the filtering run.
func (b *SQLiteBackend) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM novelty WHERE last_seen < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning novelty records: %w", err)
	}
	return res.RowsAffected()
}
