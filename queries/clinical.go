package queries

import (
	"context"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/repository"
)

// ClinicalQueryHandler serves clinical documentation queries
type ClinicalQueryHandler struct {
	repo repository.ClinicalNoteRepository
}

// NewClinicalQueryHandler creates a clinical query handler
func NewClinicalQueryHandler(repo repository.ClinicalNoteRepository) *ClinicalQueryHandler {
	return &ClinicalQueryHandler{repo: repo}
}

// Register binds the clinical query types on the dispatcher
func (h *ClinicalQueryHandler) Register(d *Dispatcher) error {
	return d.Register(domain.QueryGetClinicalNotes, h.HandleGetClinicalNotes)
}

// HandleGetClinicalNotes returns a patient's notes and vitals, paginated
func (h *ClinicalQueryHandler) HandleGetClinicalNotes(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	patientID, err := requireParam(q, "patient_id")
	if err != nil {
		return domain.QueryResult{}, err
	}

	page, pageSize := pagination(q)
	rows, total, err := h.repo.ListByPatient(ctx, patientID, page, pageSize)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to list clinical notes: %w", err)
	}
	return domain.QueryResult{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
