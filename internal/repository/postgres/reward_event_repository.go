package postgres

import (
	"context"
	"fmt"

	"adaptiveRouter/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RewardEventRepository struct {
	DB *gorm.DB
}

func NewRewardEventRepository(db *gorm.DB) *RewardEventRepository {
	return &RewardEventRepository{DB: db}
}

func (r *RewardEventRepository) SaveEvent(ctx context.Context, event domain.RewardEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to save reward event: %w", err)
	}

	return nil
}

// ListRecent returns up to limit events for domainName, newest first.
func (r *RewardEventRepository) ListRecent(ctx context.Context, domainName string, limit int) ([]domain.RewardEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []domain.RewardEvent
	err := r.DB.WithContext(ctx).
		Where("domain = ?", domainName).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reward events: %w", err)
	}
	return events, nil
}
