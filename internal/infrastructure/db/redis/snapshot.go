package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amy/portal-client/internal/core/ports"
)

const defaultSnapshotTTL = 10 * time.Minute

// Record is what the mirror stores per cache key.
type Record struct {
	Generation uint64          `json:"generation"`
	StoredAt   time.Time       `json:"storedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// SnapshotMirror copies the last good payload of each cache cell to Redis.
// Key format: snapshot:<cache key>
type SnapshotMirror struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.SnapshotSink = (*SnapshotMirror)(nil)

// NewSnapshotMirror creates a SnapshotMirror wrapping the given Redis client.
func NewSnapshotMirror(client *redis.Client, ttl time.Duration) *SnapshotMirror {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotMirror{client: client, ttl: ttl}
}

// Publish stores payload as the latest snapshot of key.
func (m *SnapshotMirror) Publish(ctx context.Context, key string, generation uint64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("snapshot %s: encode: %w", key, err)
	}
	rec, err := json.Marshal(Record{Generation: generation, StoredAt: time.Now().UTC(), Payload: raw})
	if err != nil {
		return fmt.Errorf("snapshot %s: encode record: %w", key, err)
	}

	if err := m.client.Set(ctx, m.key(key), rec, m.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot %s: %w", key, err)
	}
	return nil
}

// Latest returns the stored record for key. found is false when nothing is
// stored or the record expired.
func (m *SnapshotMirror) Latest(ctx context.Context, key string) (rec Record, found bool, err error) {
	raw, err := m.client.Get(ctx, m.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("snapshot %s: decode: %w", key, err)
	}
	return rec, true, nil
}

func (m *SnapshotMirror) key(cacheKey string) string {
	return "snapshot:" + cacheKey
}
