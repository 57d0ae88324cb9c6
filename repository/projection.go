package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// ProjectionRepository tracks projection progress and dead-lettered fold
// failures.
type ProjectionRepository interface {
	Save(ctx context.Context, projection *models.Projection) error
	Get(ctx context.Context, projectionID string) (*models.Projection, error)
	ListAll(ctx context.Context) ([]models.Projection, error)

	RecordFoldError(ctx context.Context, foldError *models.ProjectionFoldError) error
	UnresolvedErrors(ctx context.Context, maxRetries, limit int) ([]models.ProjectionFoldError, error)
	MarkErrorResolved(ctx context.Context, id uint) error
	IncrementErrorRetry(ctx context.Context, id uint) error
	UnresolvedErrorCount(ctx context.Context, projectionID string) (int64, error)
}

type projectionRepository struct {
	db *gorm.DB
}

// NewProjectionRepository creates a new projection bookkeeping repository
func NewProjectionRepository(db *gorm.DB) ProjectionRepository {
	return &projectionRepository{db: db}
}

// Save inserts or replaces a projection row keyed by projection_id
func (r *projectionRepository) Save(ctx context.Context, projection *models.Projection) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "projection_id"}},
			UpdateAll: true,
		}).
		Create(projection).Error
}

// Get gets a projection row by its projection ID
func (r *projectionRepository) Get(ctx context.Context, projectionID string) (*models.Projection, error) {
	var row models.Projection
	err := r.db.WithContext(ctx).Where("projection_id = ?", projectionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListAll returns all projection rows
func (r *projectionRepository) ListAll(ctx context.Context) ([]models.Projection, error) {
	var rows []models.Projection
	if err := r.db.WithContext(ctx).Order("projection_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordFoldError appends a dead-letter entry for a failed fold
func (r *projectionRepository) RecordFoldError(ctx context.Context, foldError *models.ProjectionFoldError) error {
	return r.db.WithContext(ctx).Create(foldError).Error
}

// UnresolvedErrors returns unresolved dead-letters still under the retry limit
func (r *projectionRepository) UnresolvedErrors(ctx context.Context, maxRetries, limit int) ([]models.ProjectionFoldError, error) {
	var rows []models.ProjectionFoldError
	if err := r.db.WithContext(ctx).
		Where("resolved = ? AND retry_count < ?", false, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkErrorResolved marks a dead-letter entry as resolved
func (r *projectionRepository) MarkErrorResolved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ProjectionFoldError{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolved":   true,
			"updated_at": time.Now(),
		}).Error
}

// IncrementErrorRetry bumps the retry counter on a dead-letter entry
func (r *projectionRepository) IncrementErrorRetry(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ProjectionFoldError{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  time.Now(),
		}).Error
}

// UnresolvedErrorCount counts unresolved dead-letters for one projection
func (r *projectionRepository) UnresolvedErrorCount(ctx context.Context, projectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectionFoldError{}).
		Where("projection_id = ? AND resolved = ?", projectionID, false).
		Count(&count).Error
	return count, err
}
