package projections

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// PatientProjectionID identifies the patient projection
const PatientProjectionID = "patient"

type patientFold func(existing *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error)

// patientFolds maps event types to fold functions. Adding a patient event
// type means adding one entry here.
var patientFolds = map[string]patientFold{
	domain.PatientRegistered: foldPatientRegistered,
	domain.PatientAdmitted:   foldPatientAdmitted,
	domain.PatientDischarged: foldPatientDischarged,
	domain.PatientUpdated:    foldPatientUpdated,
}

// PatientProjector folds patient events into patient_read_model.
type PatientProjector struct {
	repo   repository.PatientRepository
	search *SearchIndexer
}

// NewPatientProjector creates a patient projector. search may be nil.
func NewPatientProjector(repo repository.PatientRepository, search *SearchIndexer) *PatientProjector {
	return &PatientProjector{repo: repo, search: search}
}

// ID returns the projection ID
func (p *PatientProjector) ID() string { return PatientProjectionID }

// Type returns the projection type
func (p *PatientProjector) Type() string { return "PATIENT" }

// Name returns a human-readable name
func (p *PatientProjector) Name() string { return "Patient read model" }

// EventTypes returns the event types this projection folds
func (p *PatientProjector) EventTypes() []string {
	types := make([]string, 0, len(patientFolds))
	for t := range patientFolds {
		types = append(types, t)
	}
	return types
}

// Fold applies one event to the patient read model. Events at or below
// the row's watermark are skipped, which makes re-delivery harmless.
func (p *PatientProjector) Fold(ctx context.Context, event domain.Event) error {
	existing, err := p.repo.GetByID(ctx, event.AggregateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load patient row: %w", err)
	}
	if existing != nil && event.Version <= existing.LastEventVersion {
		return nil
	}

	next, err := FoldPatientEvent(existing, event)
	if err != nil {
		return err
	}
	if existing != nil {
		next.ID = existing.ID
	}
	if err := p.repo.Upsert(ctx, next); err != nil {
		return fmt.Errorf("failed to upsert patient row: %w", err)
	}

	// Search indexing is a read optimization; a failed index never fails
	// the fold and is repaired by the next event or a rebuild.
	if p.search != nil {
		if err := p.search.IndexPatient(ctx, next); err != nil {
			log.Warn().Err(err).Str("patientID", next.PatientID).Msg("Failed to index patient")
		}
	}
	return nil
}

// Truncate deletes the patient read model, for rebuild
func (p *PatientProjector) Truncate(ctx context.Context) error {
	return p.repo.Truncate(ctx)
}

// FoldPatientEvent computes the next patient row from the prior row and
// one event. It is pure: no I/O, no clock, deterministic output.
func FoldPatientEvent(existing *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error) {
	fold, ok := patientFolds[event.Type]
	if !ok {
		return nil, fmt.Errorf("no patient fold for event type %s", event.Type)
	}
	return fold(existing, event)
}

func foldPatientRegistered(_ *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error) {
	var data domain.PatientRegisteredEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return &models.PatientReadModel{
		PatientID:        data.PatientID,
		FirstName:        data.FirstName,
		LastName:         data.LastName,
		DateOfBirth:      data.DateOfBirth,
		Gender:           data.Gender,
		Email:            data.Email,
		Phone:            data.Phone,
		Address:          data.Address,
		BloodType:        data.BloodType,
		Status:           models.PatientStatusRegistered,
		LastEventVersion: event.Version,
		CreatedAt:        event.Timestamp,
		UpdatedAt:        event.Timestamp,
	}, nil
}

func foldPatientAdmitted(existing *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no patient row for aggregate %s", event.AggregateID)
	}

	var data domain.PatientAdmittedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.PatientStatusAdmitted
	next.Department = data.Department
	next.WardNumber = data.WardNumber
	next.BedNumber = data.BedNumber
	next.AdmissionDate = data.AdmissionDate
	next.DischargeDate = ""
	next.AdmissionCount = existing.AdmissionCount + 1
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldPatientDischarged(existing *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no patient row for aggregate %s", event.AggregateID)
	}

	var data domain.PatientDischargedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.PatientStatusDischarged
	next.DischargeDate = data.DischargeDate
	next.WardNumber = ""
	next.BedNumber = ""
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldPatientUpdated(existing *models.PatientReadModel, event domain.Event) (*models.PatientReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no patient row for aggregate %s", event.AggregateID)
	}

	var data domain.PatientUpdatedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	if data.Email != "" {
		next.Email = data.Email
	}
	if data.Phone != "" {
		next.Phone = data.Phone
	}
	if data.Address != "" {
		next.Address = data.Address
	}
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}
