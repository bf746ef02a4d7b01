package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptiveRouter/business/learning"
	"adaptiveRouter/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SnapshotRepository struct {
	DB *gorm.DB
}

var _ learning.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

// SaveSnapshot stores the domains as the payload and the stamp as created_at.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snap domain.StoredSnapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(snap.Domains)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	row := domain.EngineSnapshot{
		ID:        uuid.New(),
		Domains:   len(snap.Domains),
		Payload:   datatypes.JSON(raw),
		CreatedAt: snap.TakenAt,
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save engine snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot returns nil, nil when no snapshot has been stored.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context) (*domain.StoredSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var row domain.EngineSnapshot
	err := r.DB.WithContext(ctx).Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query engine snapshot: %w", err)
	}

	var snap domain.LearningSnapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot payload: %w", err)
	}
	return &domain.StoredSnapshot{TakenAt: row.CreatedAt, Domains: snap}, nil
}

// Prune keeps the newest keep snapshots and deletes the rest.
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	newest := r.DB.Model(&domain.EngineSnapshot{}).
		Select("id").
		Order("created_at DESC").
		Limit(keep)

	res := r.DB.WithContext(ctx).
		Where("id NOT IN (?)", newest).
		Delete(&domain.EngineSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune engine snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
