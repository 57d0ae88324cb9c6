package queries

import (
	"context"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/projections"
	"example.com/hospital/services/emr/repository"
)

// PatientQueryHandler serves patient queries from the read model and the
// search index.
type PatientQueryHandler struct {
	repo   repository.PatientRepository
	search *projections.SearchIndexer
}

// NewPatientQueryHandler creates a patient query handler. search may be
// nil, in which case search_patients is rejected.
func NewPatientQueryHandler(repo repository.PatientRepository, search *projections.SearchIndexer) *PatientQueryHandler {
	return &PatientQueryHandler{repo: repo, search: search}
}

// Register binds the patient query types on the dispatcher
func (h *PatientQueryHandler) Register(d *Dispatcher) error {
	bindings := map[domain.QueryType]HandlerFunc{
		domain.QueryGetPatient:     h.HandleGetPatient,
		domain.QueryListPatients:   h.HandleListPatients,
		domain.QuerySearchPatients: h.HandleSearchPatients,
	}
	for queryType, handler := range bindings {
		if err := d.Register(queryType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleGetPatient returns one patient by ID, nil when unknown
func (h *PatientQueryHandler) HandleGetPatient(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	patientID, err := requireParam(q, "patient_id")
	if err != nil {
		return domain.QueryResult{}, err
	}

	row, err := h.repo.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.QueryResult{Data: nil}, nil
		}
		return domain.QueryResult{}, fmt.Errorf("failed to load patient: %w", err)
	}
	return domain.QueryResult{Data: row, TotalCount: 1}, nil
}

// HandleListPatients returns a filtered, paginated patient list
func (h *PatientQueryHandler) HandleListPatients(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	page, pageSize := pagination(q)
	filter := repository.PatientFilter{
		Status:     q.Param("status"),
		Department: q.Param("department"),
	}

	rows, total, err := h.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to list patients: %w", err)
	}
	return domain.QueryResult{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// HandleSearchPatients runs a full-text search over the patient index
func (h *PatientQueryHandler) HandleSearchPatients(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	term, err := requireParam(q, "term")
	if err != nil {
		return domain.QueryResult{}, err
	}
	if h.search == nil {
		return domain.QueryResult{}, fmt.Errorf("patient search is not enabled")
	}

	page, pageSize := pagination(q)
	rows, total, err := h.search.SearchPatients(ctx, term, page, pageSize)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to search patients: %w", err)
	}
	return domain.QueryResult{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
