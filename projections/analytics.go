package projections

import (
	"context"
	"errors"
	"fmt"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// AnalyticsProjectionID identifies the analytics projection
const AnalyticsProjectionID = "analytics"

// GlobalScope is the scope ID of the hospital-wide analytics row
const GlobalScope = "global"

// AnalyticsProjector folds every event into running counters, one row per
// scope. The global row sees all events; department rows see the events
// that carry a department.
type AnalyticsProjector struct {
	repo repository.AnalyticsRepository
}

// NewAnalyticsProjector creates an analytics projector
func NewAnalyticsProjector(repo repository.AnalyticsRepository) *AnalyticsProjector {
	return &AnalyticsProjector{repo: repo}
}

// ID returns the projection ID
func (p *AnalyticsProjector) ID() string { return AnalyticsProjectionID }

// Type returns the projection type
func (p *AnalyticsProjector) Type() string { return "ANALYTICS" }

// Name returns a human-readable name
func (p *AnalyticsProjector) Name() string { return "Hospital analytics counters" }

// EventTypes returns the event types this projection folds
func (p *AnalyticsProjector) EventTypes() []string {
	return []string{
		domain.PatientRegistered,
		domain.PatientAdmitted,
		domain.PatientDischarged,
		domain.AppointmentCreated,
		domain.AppointmentCancelled,
		domain.AppointmentCompleted,
		domain.ClinicalNoteAdded,
		domain.VitalSignsRecorded,
		domain.BillCreated,
		domain.BillPaid,
	}
}

// Fold increments the counters touched by one event. The counters are
// additive rather than recomputed, so the guard here is the event ID on
// each scope row, not the aggregate version: the same event delivered
// twice must not count twice.
func (p *AnalyticsProjector) Fold(ctx context.Context, event domain.Event) error {
	scopes := []string{GlobalScope}
	if dept := analyticsDepartment(event); dept != "" {
		scopes = append(scopes, "department:"+dept)
	}

	for _, scope := range scopes {
		row, err := p.repo.GetByScope(ctx, scope)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to load analytics row %s: %w", scope, err)
		}
		if row != nil && row.LastEventID == event.ID {
			continue
		}

		next, err := FoldAnalyticsEvent(row, scope, event)
		if err != nil {
			return err
		}
		if row != nil {
			next.ID = row.ID
		}
		if err := p.repo.Upsert(ctx, next); err != nil {
			return fmt.Errorf("failed to upsert analytics row %s: %w", scope, err)
		}
	}
	return nil
}

// Truncate deletes the analytics read model, for rebuild
func (p *AnalyticsProjector) Truncate(ctx context.Context) error {
	return p.repo.Truncate(ctx)
}

// FoldAnalyticsEvent computes the next counter row for one scope from the
// prior row and one event. Pure and deterministic.
func FoldAnalyticsEvent(existing *models.AnalyticsReadModel, scope string, event domain.Event) (*models.AnalyticsReadModel, error) {
	var next models.AnalyticsReadModel
	if existing != nil {
		next = *existing
	} else {
		next = models.AnalyticsReadModel{
			ScopeID:   scope,
			CreatedAt: event.Timestamp,
		}
	}

	switch event.Type {
	case domain.PatientRegistered:
		next.PatientsRegistered++
	case domain.PatientAdmitted:
		next.PatientsAdmitted++
	case domain.PatientDischarged:
		next.PatientsDischarged++
	case domain.AppointmentCreated:
		next.AppointmentsCreated++
	case domain.AppointmentCancelled:
		next.AppointmentsCancelled++
	case domain.AppointmentCompleted:
		next.AppointmentsCompleted++
	case domain.ClinicalNoteAdded, domain.VitalSignsRecorded:
		next.NotesRecorded++
	case domain.BillCreated:
		next.BillsCreated++
	case domain.BillPaid:
		var data domain.BillPaidEvent
		if err := event.DecodeData(&data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		next.RevenueCollected += data.Amount
	default:
		return nil, fmt.Errorf("no analytics fold for event type %s", event.Type)
	}

	next.LastEventVersion = event.Version
	next.LastEventID = event.ID
	next.UpdatedAt = event.Timestamp
	return &next, nil
}

// analyticsDepartment extracts the department scope from events that carry
// one. Patient discharge events do not carry the department, so department
// rows count admissions only.
func analyticsDepartment(event domain.Event) string {
	switch event.Type {
	case domain.PatientAdmitted:
		var data domain.PatientAdmittedEvent
		if err := event.DecodeData(&data); err != nil {
			return ""
		}
		return data.Department
	case domain.AppointmentCreated:
		var data domain.AppointmentCreatedEvent
		if err := event.DecodeData(&data); err != nil {
			return ""
		}
		return data.Department
	}
	return ""
}
