package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/hospital/services/emr/models"
)

// In-memory repository implementations for development and tests. They
// keep the same upsert-by-natural-key and not-found semantics as the GORM
// implementations.

// MemoryPatientRepository is an in-memory PatientRepository.
type MemoryPatientRepository struct {
	mu   sync.RWMutex
	rows map[string]models.PatientReadModel
}

// NewMemoryPatientRepository creates an empty in-memory patient repository
func NewMemoryPatientRepository() *MemoryPatientRepository {
	return &MemoryPatientRepository{rows: make(map[string]models.PatientReadModel)}
}

func (r *MemoryPatientRepository) Upsert(_ context.Context, row *models.PatientReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.PatientID] = *row
	return nil
}

func (r *MemoryPatientRepository) GetByID(_ context.Context, patientID string) (*models.PatientReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryPatientRepository) List(_ context.Context, filter PatientFilter, page, pageSize int) ([]models.PatientReadModel, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.PatientReadModel
	for _, row := range r.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.Department != "" && row.Department != filter.Department {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *MemoryPatientRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.PatientReadModel)
	return nil
}

// MemoryAppointmentRepository is an in-memory AppointmentRepository.
type MemoryAppointmentRepository struct {
	mu   sync.RWMutex
	rows map[string]models.AppointmentReadModel
}

// NewMemoryAppointmentRepository creates an empty in-memory appointment repository
func NewMemoryAppointmentRepository() *MemoryAppointmentRepository {
	return &MemoryAppointmentRepository{rows: make(map[string]models.AppointmentReadModel)}
}

func (r *MemoryAppointmentRepository) Upsert(_ context.Context, row *models.AppointmentReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.AppointmentID] = *row
	return nil
}

func (r *MemoryAppointmentRepository) GetByID(_ context.Context, appointmentID string) (*models.AppointmentReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[appointmentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryAppointmentRepository) List(_ context.Context, filter AppointmentFilter, page, pageSize int) ([]models.AppointmentReadModel, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.AppointmentReadModel
	for _, row := range r.rows {
		if filter.PatientID != "" && row.PatientID != filter.PatientID {
			continue
		}
		if filter.DoctorID != "" && row.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScheduledAt < matched[j].ScheduledAt
	})
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *MemoryAppointmentRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.AppointmentReadModel)
	return nil
}

// MemoryClinicalNoteRepository is an in-memory ClinicalNoteRepository.
type MemoryClinicalNoteRepository struct {
	mu   sync.RWMutex
	rows map[string]models.ClinicalNoteReadModel
}

// NewMemoryClinicalNoteRepository creates an empty in-memory notes repository
func NewMemoryClinicalNoteRepository() *MemoryClinicalNoteRepository {
	return &MemoryClinicalNoteRepository{rows: make(map[string]models.ClinicalNoteReadModel)}
}

func (r *MemoryClinicalNoteRepository) Upsert(_ context.Context, row *models.ClinicalNoteReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.NoteID] = *row
	return nil
}

func (r *MemoryClinicalNoteRepository) GetByID(_ context.Context, noteID string) (*models.ClinicalNoteReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[noteID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryClinicalNoteRepository) ListByPatient(_ context.Context, patientID string, page, pageSize int) ([]models.ClinicalNoteReadModel, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.ClinicalNoteReadModel
	for _, row := range r.rows {
		if row.PatientID == patientID {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *MemoryClinicalNoteRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.ClinicalNoteReadModel)
	return nil
}

// MemoryBillingRepository is an in-memory BillingRepository.
type MemoryBillingRepository struct {
	mu   sync.RWMutex
	rows map[string]models.BillingReadModel
}

// NewMemoryBillingRepository creates an empty in-memory billing repository
func NewMemoryBillingRepository() *MemoryBillingRepository {
	return &MemoryBillingRepository{rows: make(map[string]models.BillingReadModel)}
}

func (r *MemoryBillingRepository) Upsert(_ context.Context, row *models.BillingReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.BillID] = *row
	return nil
}

func (r *MemoryBillingRepository) GetByID(_ context.Context, billID string) (*models.BillingReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[billID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryBillingRepository) List(_ context.Context, filter BillFilter, page, pageSize int) ([]models.BillingReadModel, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.BillingReadModel
	for _, row := range r.rows {
		if filter.PatientID != "" && row.PatientID != filter.PatientID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].BillID < matched[j].BillID
	})
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *MemoryBillingRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.BillingReadModel)
	return nil
}

// MemoryAnalyticsRepository is an in-memory AnalyticsRepository.
type MemoryAnalyticsRepository struct {
	mu   sync.RWMutex
	rows map[string]models.AnalyticsReadModel
}

// NewMemoryAnalyticsRepository creates an empty in-memory analytics repository
func NewMemoryAnalyticsRepository() *MemoryAnalyticsRepository {
	return &MemoryAnalyticsRepository{rows: make(map[string]models.AnalyticsReadModel)}
}

func (r *MemoryAnalyticsRepository) Upsert(_ context.Context, row *models.AnalyticsReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ScopeID] = *row
	return nil
}

func (r *MemoryAnalyticsRepository) GetByScope(_ context.Context, scopeID string) (*models.AnalyticsReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[scopeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryAnalyticsRepository) ListScopes(_ context.Context) ([]models.AnalyticsReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.AnalyticsReadModel, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ScopeID < rows[j].ScopeID
	})
	return rows, nil
}

func (r *MemoryAnalyticsRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.AnalyticsReadModel)
	return nil
}

// MemoryProjectionRepository is an in-memory ProjectionRepository.
type MemoryProjectionRepository struct {
	mu     sync.RWMutex
	rows   map[string]models.Projection
	errors []models.ProjectionFoldError
	nextID uint
}

// NewMemoryProjectionRepository creates an empty in-memory projection repository
func NewMemoryProjectionRepository() *MemoryProjectionRepository {
	return &MemoryProjectionRepository{rows: make(map[string]models.Projection), nextID: 1}
}

func (r *MemoryProjectionRepository) Save(_ context.Context, projection *models.Projection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[projection.ProjectionID] = *projection
	return nil
}

func (r *MemoryProjectionRepository) Get(_ context.Context, projectionID string) (*models.Projection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[projectionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryProjectionRepository) ListAll(_ context.Context) ([]models.Projection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.Projection, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ProjectionID < rows[j].ProjectionID
	})
	return rows, nil
}

func (r *MemoryProjectionRepository) RecordFoldError(_ context.Context, foldError *models.ProjectionFoldError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	foldError.ID = r.nextID
	foldError.CreatedAt = time.Now()
	r.nextID++
	r.errors = append(r.errors, *foldError)
	return nil
}

func (r *MemoryProjectionRepository) UnresolvedErrors(_ context.Context, maxRetries, limit int) ([]models.ProjectionFoldError, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.ProjectionFoldError
	for _, e := range r.errors {
		if !e.Resolved && e.RetryCount < maxRetries {
			rows = append(rows, e)
		}
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}

func (r *MemoryProjectionRepository) MarkErrorResolved(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.errors {
		if r.errors[i].ID == id {
			r.errors[i].Resolved = true
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryProjectionRepository) IncrementErrorRetry(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.errors {
		if r.errors[i].ID == id {
			r.errors[i].RetryCount++
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryProjectionRepository) UnresolvedErrorCount(_ context.Context, projectionID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, e := range r.errors {
		if e.ProjectionID == projectionID && !e.Resolved {
			count++
		}
	}
	return count, nil
}

func paginate[T any](rows []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return rows
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
