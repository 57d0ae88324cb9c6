package projections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// ClinicalProjectionID identifies the clinical notes projection
const ClinicalProjectionID = "clinical"

type clinicalFold func(existing *models.ClinicalNoteReadModel, event domain.Event) (*models.ClinicalNoteReadModel, error)

var clinicalFolds = map[string]clinicalFold{
	domain.ClinicalNoteAdded:  foldClinicalNoteAdded,
	domain.VitalSignsRecorded: foldVitalSignsRecorded,
}

// ClinicalProjector folds clinical events into clinical_notes_read_model.
type ClinicalProjector struct {
	repo repository.ClinicalNoteRepository
}

// NewClinicalProjector creates a clinical notes projector
func NewClinicalProjector(repo repository.ClinicalNoteRepository) *ClinicalProjector {
	return &ClinicalProjector{repo: repo}
}

// ID returns the projection ID
func (p *ClinicalProjector) ID() string { return ClinicalProjectionID }

// Type returns the projection type
func (p *ClinicalProjector) Type() string { return "CLINICAL" }

// Name returns a human-readable name
func (p *ClinicalProjector) Name() string { return "Clinical notes read model" }

// EventTypes returns the event types this projection folds
func (p *ClinicalProjector) EventTypes() []string {
	types := make([]string, 0, len(clinicalFolds))
	for t := range clinicalFolds {
		types = append(types, t)
	}
	return types
}

// Fold applies one event to the clinical notes read model
func (p *ClinicalProjector) Fold(ctx context.Context, event domain.Event) error {
	existing, err := p.repo.GetByID(ctx, event.AggregateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load clinical note row: %w", err)
	}
	if existing != nil && event.Version <= existing.LastEventVersion {
		return nil
	}

	next, err := FoldClinicalEvent(existing, event)
	if err != nil {
		return err
	}
	if existing != nil {
		next.ID = existing.ID
	}
	if err := p.repo.Upsert(ctx, next); err != nil {
		return fmt.Errorf("failed to upsert clinical note row: %w", err)
	}
	return nil
}

// Truncate deletes the clinical notes read model, for rebuild
func (p *ClinicalProjector) Truncate(ctx context.Context) error {
	return p.repo.Truncate(ctx)
}

// FoldClinicalEvent computes the next note row from the prior row and one
// event. Pure and deterministic.
func FoldClinicalEvent(existing *models.ClinicalNoteReadModel, event domain.Event) (*models.ClinicalNoteReadModel, error) {
	fold, ok := clinicalFolds[event.Type]
	if !ok {
		return nil, fmt.Errorf("no clinical fold for event type %s", event.Type)
	}
	return fold(existing, event)
}

func foldClinicalNoteAdded(_ *models.ClinicalNoteReadModel, event domain.Event) (*models.ClinicalNoteReadModel, error) {
	var data domain.ClinicalNoteAddedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return &models.ClinicalNoteReadModel{
		NoteID:           data.NoteID,
		PatientID:        data.PatientID,
		DoctorID:         data.DoctorID,
		NoteType:         data.NoteType,
		Content:          data.Content,
		Diagnosis:        data.Diagnosis,
		LastEventVersion: event.Version,
		CreatedAt:        event.Timestamp,
		UpdatedAt:        event.Timestamp,
	}, nil
}

func foldVitalSignsRecorded(_ *models.ClinicalNoteReadModel, event domain.Event) (*models.ClinicalNoteReadModel, error) {
	var data domain.VitalSignsRecordedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	vitals, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vitals: %w", err)
	}

	return &models.ClinicalNoteReadModel{
		NoteID:           data.NoteID,
		PatientID:        data.PatientID,
		DoctorID:         data.RecordedBy,
		NoteType:         "vital_signs",
		Vitals:           vitals,
		LastEventVersion: event.Version,
		CreatedAt:        event.Timestamp,
		UpdatedAt:        event.Timestamp,
	}, nil
}
