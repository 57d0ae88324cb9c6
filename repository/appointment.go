package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/hospital/services/emr/models"
)

// AppointmentFilter narrows appointment list queries
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    string
}

// AppointmentRepository is the appointment read-model store
type AppointmentRepository interface {
	Upsert(ctx context.Context, row *models.AppointmentReadModel) error
	GetByID(ctx context.Context, appointmentID string) (*models.AppointmentReadModel, error)
	List(ctx context.Context, filter AppointmentFilter, page, pageSize int) ([]models.AppointmentReadModel, int64, error)
	Truncate(ctx context.Context) error
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment read-model repository
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// Upsert inserts or replaces the row keyed by appointment_id
func (r *appointmentRepository) Upsert(ctx context.Context, row *models.AppointmentReadModel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "appointment_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetByID gets an appointment row by its appointment ID
func (r *appointmentRepository) GetByID(ctx context.Context, appointmentID string) (*models.AppointmentReadModel, error) {
	var row models.AppointmentReadModel
	err := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns a page of appointments matching the filter plus the total count
func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter, page, pageSize int) ([]models.AppointmentReadModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AppointmentReadModel{})
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AppointmentReadModel
	if err := query.Order("scheduled_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Truncate deletes all rows, for projection rebuild
func (r *appointmentRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AppointmentReadModel{}).Error
}
