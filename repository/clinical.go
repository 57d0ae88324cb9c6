package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// ClinicalNoteRepository is the clinical notes read-model store
type ClinicalNoteRepository interface {
	Upsert(ctx context.Context, row *models.ClinicalNoteReadModel) error
	GetByID(ctx context.Context, noteID string) (*models.ClinicalNoteReadModel, error)
	ListByPatient(ctx context.Context, patientID string, page, pageSize int) ([]models.ClinicalNoteReadModel, int64, error)
	Truncate(ctx context.Context) error
}

type clinicalNoteRepository struct {
	db *gorm.DB
}

// NewClinicalNoteRepository creates a new clinical notes read-model repository
func NewClinicalNoteRepository(db *gorm.DB) ClinicalNoteRepository {
	return &clinicalNoteRepository{db: db}
}

// Upsert inserts or replaces the row keyed by note_id
func (r *clinicalNoteRepository) Upsert(ctx context.Context, row *models.ClinicalNoteReadModel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetByID gets a note row by its note ID
func (r *clinicalNoteRepository) GetByID(ctx context.Context, noteID string) (*models.ClinicalNoteReadModel, error) {
	var row models.ClinicalNoteReadModel
	err := r.db.WithContext(ctx).Where("note_id = ?", noteID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListByPatient returns a page of a patient's notes, newest first
func (r *clinicalNoteRepository) ListByPatient(ctx context.Context, patientID string, page, pageSize int) ([]models.ClinicalNoteReadModel, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ClinicalNoteReadModel{}).
		Where("patient_id = ?", patientID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ClinicalNoteReadModel
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Truncate deletes all rows, for projection rebuild
func (r *clinicalNoteRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.ClinicalNoteReadModel{}).Error
}
