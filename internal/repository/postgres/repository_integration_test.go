//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"adaptiveRouter/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(pg.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.EngineSnapshot{},
		&domain.RewardEvent{},
		&domain.DomainPolicyConfig{},
	))
	t.Cleanup(func() {
		db.Exec("TRUNCATE engine_snapshots, reward_events, domain_policy_configs")
	})
	return db
}

func TestSnapshotRepository(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))
	ctx := context.Background()

	snap, err := repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	older := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)
	newer := older.Add(30 * time.Second)
	require.NoError(t, repo.SaveSnapshot(ctx, domain.StoredSnapshot{
		TakenAt: newer,
		Domains: domain.LearningSnapshot{
			"routing": {"policyClassName": "UCB1", "version": float64(2), "totalPulls": float64(4)},
		},
	}))
	require.NoError(t, repo.SaveSnapshot(ctx, domain.StoredSnapshot{
		TakenAt: older,
		Domains: domain.LearningSnapshot{
			"routing": {"policyClassName": "UCB1", "version": float64(2)},
		},
	}))

	snap, err = repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, newer.Equal(snap.TakenAt), "ordered by stamp, not insertion")
	assert.Equal(t, float64(4), snap.Domains["routing"]["totalPulls"])

	deleted, err := repo.Prune(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestPolicyConfigRepository(t *testing.T) {
	repo := NewPolicyConfigRepository(openTestDB(t))
	ctx := context.Background()

	_, ok, err := repo.GetSpec(ctx, "routing")
	require.NoError(t, err)
	assert.False(t, ok)

	spec := domain.DomainSpec{
		Name:   "routing",
		Policy: domain.PolicySpec{Class: "UCB1"},
	}
	require.NoError(t, repo.UpsertSpec(ctx, spec))

	spec.Policy.Class = "ThompsonSampling"
	require.NoError(t, repo.UpsertSpec(ctx, spec))

	got, ok, err := repo.GetSpec(ctx, "routing")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ThompsonSampling", got.Policy.Class)

	all, err := repo.ListSpecs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRewardEventRepository(t *testing.T) {
	repo := NewRewardEventRepository(openTestDB(t))
	ctx := context.Background()

	for _, reward := range []float64{0.1, 0.9} {
		require.NoError(t, repo.SaveEvent(ctx, domain.RewardEvent{
			Domain: "routing", Choice: "fast", Reward: reward,
			Context: map[string]any{"tier": "pro"},
		}))
	}

	events, err := repo.ListRecent(ctx, "routing", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
