package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDedupTTL = time.Hour
	dedupPrefix     = "sync:dedup:"
)

// DedupStore remembers broadcast event ids for a bounded window.
// Key format: sync:dedup:<event_id>
type DedupStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewDedupStore wraps client. A non-positive ttl falls back to one hour.
func NewDedupStore(client redis.UniversalClient, ttl time.Duration) *DedupStore {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupStore{client: client, ttl: ttl}
}

// IsDuplicate reports whether eventID was marked within the window.
func (d *DedupStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Mark records eventID as broadcast. An existing mark keeps its expiry.
func (d *DedupStore) Mark(ctx context.Context, eventID string) error {
	if err := d.client.SetNX(ctx, dedupPrefix+eventID, time.Now().UTC().Unix(), d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark %s: %w", eventID, err)
	}
	return nil
}
