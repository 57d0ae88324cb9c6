package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// BillFilter narrows bill list queries
type BillFilter struct {
	PatientID string
	Status    string
}

// BillingRepository is the billing read-model store
type BillingRepository interface {
	Upsert(ctx context.Context, row *models.BillingReadModel) error
	GetByID(ctx context.Context, billID string) (*models.BillingReadModel, error)
	List(ctx context.Context, filter BillFilter, page, pageSize int) ([]models.BillingReadModel, int64, error)
	Truncate(ctx context.Context) error
}

type billingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new billing read-model repository
func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

// Upsert inserts or replaces the row keyed by bill_id
func (r *billingRepository) Upsert(ctx context.Context, row *models.BillingReadModel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bill_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetByID gets a bill row by its bill ID
func (r *billingRepository) GetByID(ctx context.Context, billID string) (*models.BillingReadModel, error) {
	var row models.BillingReadModel
	err := r.db.WithContext(ctx).Where("bill_id = ?", billID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns a page of bills matching the filter plus the total count
func (r *billingRepository) List(ctx context.Context, filter BillFilter, page, pageSize int) ([]models.BillingReadModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingReadModel{})
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillingReadModel
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Truncate deletes all rows, for projection rebuild
func (r *billingRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.BillingReadModel{}).Error
}
