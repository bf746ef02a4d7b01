package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adaptiveRouter/domain"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "learning:snapshot:latest"

// SnapshotCache keeps the newest engine snapshot in Redis so a restarting
// replica can warm up without touching Postgres.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *SnapshotCache) SaveSnapshot(ctx context.Context, snap domain.StoredSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in Redis: %w", err)
	}
	return nil
}

// LatestSnapshot returns nil, nil on a cache miss. An entry without a stamp
// cannot be ordered against Postgres and counts as a miss.
func (c *SnapshotCache) LatestSnapshot(ctx context.Context) (*domain.StoredSnapshot, error) {
	val, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var snap domain.StoredSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	if snap.TakenAt.IsZero() {
		return nil, nil
	}
	return &snap, nil
}
