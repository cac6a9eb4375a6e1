package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "event:dedup:"

	// DedupTTL is how long a processed event id is remembered.
	DedupTTL = 7 * 24 * time.Hour
)

// DedupStore remembers processed event ids so redelivered events are
// skipped. Entries expire on their own after DedupTTL, which doubles as
// the cleanup mechanism.
type DedupStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewDedupStore creates a dedup store with the default TTL.
func NewDedupStore(rdb redis.UniversalClient) *DedupStore {
	return &DedupStore{rdb: rdb, ttl: DedupTTL}
}

// IsProcessed reports whether the event id was already marked.
func (d *DedupStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id. SET NX makes the mark atomic: the
// first marker wins and the return value reports whether this call was
// the first.
func (d *DedupStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	first, err := d.rdb.SetNX(ctx, dedupKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup key: %w", err)
	}
	return first, nil
}
