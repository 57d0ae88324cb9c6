package projections

import (
	"context"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// AppointmentProjectionID identifies the appointment projection
const AppointmentProjectionID = "appointment"

type appointmentFold func(existing *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error)

var appointmentFolds = map[string]appointmentFold{
	domain.AppointmentCreated:     foldAppointmentCreated,
	domain.AppointmentRescheduled: foldAppointmentRescheduled,
	domain.AppointmentCancelled:   foldAppointmentCancelled,
	domain.AppointmentCompleted:   foldAppointmentCompleted,
}

// AppointmentProjector folds appointment events into appointment_read_model.
type AppointmentProjector struct {
	repo repository.AppointmentRepository
}

// NewAppointmentProjector creates an appointment projector
func NewAppointmentProjector(repo repository.AppointmentRepository) *AppointmentProjector {
	return &AppointmentProjector{repo: repo}
}

// ID returns the projection ID
func (p *AppointmentProjector) ID() string { return AppointmentProjectionID }

// Type returns the projection type
func (p *AppointmentProjector) Type() string { return "APPOINTMENT" }

// Name returns a human-readable name
func (p *AppointmentProjector) Name() string { return "Appointment read model" }

// EventTypes returns the event types this projection folds
func (p *AppointmentProjector) EventTypes() []string {
	types := make([]string, 0, len(appointmentFolds))
	for t := range appointmentFolds {
		types = append(types, t)
	}
	return types
}

// Fold applies one event to the appointment read model
func (p *AppointmentProjector) Fold(ctx context.Context, event domain.Event) error {
	existing, err := p.repo.GetByID(ctx, event.AggregateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load appointment row: %w", err)
	}
	if existing != nil && event.Version <= existing.LastEventVersion {
		return nil
	}

	next, err := FoldAppointmentEvent(existing, event)
	if err != nil {
		return err
	}
	if existing != nil {
		next.ID = existing.ID
	}
	if err := p.repo.Upsert(ctx, next); err != nil {
		return fmt.Errorf("failed to upsert appointment row: %w", err)
	}
	return nil
}

// Truncate deletes the appointment read model, for rebuild
func (p *AppointmentProjector) Truncate(ctx context.Context) error {
	return p.repo.Truncate(ctx)
}

// FoldAppointmentEvent computes the next appointment row from the prior
// row and one event. Pure and deterministic.
func FoldAppointmentEvent(existing *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error) {
	fold, ok := appointmentFolds[event.Type]
	if !ok {
		return nil, fmt.Errorf("no appointment fold for event type %s", event.Type)
	}
	return fold(existing, event)
}

func foldAppointmentCreated(_ *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error) {
	var data domain.AppointmentCreatedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return &models.AppointmentReadModel{
		AppointmentID:    data.AppointmentID,
		PatientID:        data.PatientID,
		DoctorID:         data.DoctorID,
		Department:       data.Department,
		ScheduledAt:      data.ScheduledAt,
		DurationMins:     data.DurationMins,
		Status:           models.AppointmentStatusScheduled,
		Reason:           data.Reason,
		LastEventVersion: event.Version,
		CreatedAt:        event.Timestamp,
		UpdatedAt:        event.Timestamp,
	}, nil
}

func foldAppointmentRescheduled(existing *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no appointment row for aggregate %s", event.AggregateID)
	}

	var data domain.AppointmentRescheduledEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.ScheduledAt = data.ScheduledAt
	next.Status = models.AppointmentStatusScheduled
	next.RescheduleCount = existing.RescheduleCount + 1
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldAppointmentCancelled(existing *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no appointment row for aggregate %s", event.AggregateID)
	}

	var data domain.AppointmentCancelledEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.AppointmentStatusCancelled
	next.Notes = data.Reason
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

func foldAppointmentCompleted(existing *models.AppointmentReadModel, event domain.Event) (*models.AppointmentReadModel, error) {
	if existing == nil {
		return nil, fmt.Errorf("no appointment row for aggregate %s", event.AggregateID)
	}

	var data domain.AppointmentCompletedEvent
	if err := event.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	next := *existing
	next.Status = models.AppointmentStatusCompleted
	next.Notes = data.Notes
	next.LastEventVersion = event.Version
	next.UpdatedAt = event.Timestamp
	return &next, nil
}
