package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// AnalyticsRepository is the analytics read-model store
type AnalyticsRepository interface {
	Upsert(ctx context.Context, row *models.AnalyticsReadModel) error
	GetByScope(ctx context.Context, scopeID string) (*models.AnalyticsReadModel, error)
	ListScopes(ctx context.Context) ([]models.AnalyticsReadModel, error)
	Truncate(ctx context.Context) error
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics read-model repository
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// Upsert inserts or replaces the row keyed by scope_id
func (r *analyticsRepository) Upsert(ctx context.Context, row *models.AnalyticsReadModel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetByScope gets the analytics row for one scope
func (r *analyticsRepository) GetByScope(ctx context.Context, scopeID string) (*models.AnalyticsReadModel, error) {
	var row models.AnalyticsReadModel
	err := r.db.WithContext(ctx).Where("scope_id = ?", scopeID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListScopes returns all analytics rows
func (r *analyticsRepository) ListScopes(ctx context.Context) ([]models.AnalyticsReadModel, error) {
	var rows []models.AnalyticsReadModel
	if err := r.db.WithContext(ctx).Order("scope_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Truncate deletes all rows, for projection rebuild
func (r *analyticsRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AnalyticsReadModel{}).Error
}
