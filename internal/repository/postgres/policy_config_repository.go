package postgres

import (
	"context"
	"errors"
	"fmt"

	"adaptiveRouter/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PolicyConfigRepository struct {
	DB *gorm.DB
}

func NewPolicyConfigRepository(db *gorm.DB) *PolicyConfigRepository {
	return &PolicyConfigRepository{DB: db}
}

func (r *PolicyConfigRepository) GetSpec(ctx context.Context, domainName string) (domain.DomainSpec, bool, error) {
	var row domain.DomainPolicyConfig

	err := r.DB.WithContext(ctx).
		Where("domain = ?", domainName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DomainSpec{}, false, nil
	}
	if err != nil {
		return domain.DomainSpec{}, false, fmt.Errorf("failed to query policy config: %w", err)
	}

	return row.Spec.Data(), true, nil
}

func (r *PolicyConfigRepository) ListSpecs(ctx context.Context) ([]domain.DomainSpec, error) {
	var rows []domain.DomainPolicyConfig
	if err := r.DB.WithContext(ctx).Order("domain").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list policy configs: %w", err)
	}

	specs := make([]domain.DomainSpec, 0, len(rows))
	for _, row := range rows {
		specs = append(specs, row.Spec.Data())
	}
	return specs, nil
}

func (r *PolicyConfigRepository) UpsertSpec(ctx context.Context, spec domain.DomainSpec) error {
	row := domain.DomainPolicyConfig{
		Domain: spec.Name,
		Spec:   datatypes.NewJSONType(spec),
	}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"spec", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert policy config: %w", err)
	}
	return nil
}
