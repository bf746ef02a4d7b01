//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"adaptiveRouter/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	cache := NewSnapshotCache(client, time.Minute)
	require.NoError(t, client.Del(ctx, snapshotKey).Err())

	snap, err := cache.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	takenAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.SaveSnapshot(ctx, domain.StoredSnapshot{
		TakenAt: takenAt,
		Domains: domain.LearningSnapshot{"routing": {"policyClassName": "EpsilonGreedy"}},
	}))
	snap, err = cache.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, takenAt.Equal(snap.TakenAt))
	assert.Equal(t, "EpsilonGreedy", snap.Domains["routing"]["policyClassName"])

	// unstamped entries written by older builds read as a miss
	require.NoError(t, client.Set(ctx, snapshotKey, `{"routing":{}}`, time.Minute).Err())
	snap, err = cache.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}
