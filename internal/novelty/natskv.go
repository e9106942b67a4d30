package novelty

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS JetStream key-value backend.
type NATSConfig struct {
	// URL is the NATS server URL. Defaults to nats.DefaultURL.
	URL string

	// Bucket is the KV bucket name.
	Bucket string

	// TTL expires records server-side; zero disables expiry. Eviction is
	// delegated to the bucket rather than enforced client-side.
	TTL time.Duration
}

// NATSBackend persists records in a NATS JetStream key-value bucket. It is
// the remote-cache-with-TTL example of the Backend port: decay logic in the
// Store stays untouched while storage lives on a shared server.
type NATSBackend struct {
	nc *nats.Conn
	kv nats.KeyValue
}

// NewNATSBackend connects to NATS and creates the bucket if needed.
func NewNATSBackend(cfg NATSConfig) (*NATSBackend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("nats backend bucket required")
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: cfg.Bucket,
			TTL:    cfg.TTL,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSBackend{nc: nc, kv: kv}, nil
}

// Close drains the NATS connection.
func (b *NATSBackend) Close() error {
	b.nc.Close()
	return nil
}

// Load fetches records for the given ids; expired or unknown keys are
// simply absent.
func (b *NATSBackend) Load(ctx context.Context, ids []string) (map[string]Record, error) {
	out := make(map[string]Record)
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry, err := b.kv.Get(kvKey(id))
		if errors.Is(err, nats.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("getting novelty key for %s: %w", id, err)
		}

		var rec Record
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			return nil, fmt.Errorf("parsing novelty record for %s: %w", id, err)
		}
		out[id] = rec
	}
	return out, nil
}

// Save writes each record under its id key.
func (b *NATSBackend) Save(ctx context.Context, records []Record) error {
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding novelty record %s: %w", rec.ItemID, err)
		}
		if _, err := b.kv.Put(kvKey(rec.ItemID), data); err != nil {
			return fmt.Errorf("putting novelty record %s: %w", rec.ItemID, err)
		}
	}
	return nil
}

// kvKey encodes an item id as a valid NATS KV key. Item ids are
// caller-supplied and may contain characters NATS rejects (slashes from
// URLs, spaces), so keys are base64url-encoded.
func kvKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}
