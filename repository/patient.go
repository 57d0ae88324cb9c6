package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// PatientFilter narrows patient list queries. Zero-value fields are ignored.
type PatientFilter struct {
	Status     string
	Department string
}

// PatientRepository is the patient read-model store. Writes come only from
// the projector; the query layer is read-only.
type PatientRepository interface {
	Upsert(ctx context.Context, row *models.PatientReadModel) error
	GetByID(ctx context.Context, patientID string) (*models.PatientReadModel, error)
	List(ctx context.Context, filter PatientFilter, page, pageSize int) ([]models.PatientReadModel, int64, error)
	Truncate(ctx context.Context) error
}

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient read-model repository
func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

// Upsert inserts or replaces the row keyed by patient_id
func (r *patientRepository) Upsert(ctx context.Context, row *models.PatientReadModel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "patient_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetByID gets a patient row by its patient ID
func (r *patientRepository) GetByID(ctx context.Context, patientID string) (*models.PatientReadModel, error) {
	var row models.PatientReadModel
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns a page of patients matching the filter plus the total count
func (r *patientRepository) List(ctx context.Context, filter PatientFilter, page, pageSize int) ([]models.PatientReadModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PatientReadModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PatientReadModel
	if err := query.Order("last_name ASC, first_name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Truncate deletes all rows, for projection rebuild
func (r *patientRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.PatientReadModel{}).Error
}
