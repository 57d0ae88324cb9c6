package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

// Command structs
type CreateAppointmentCommand struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id" validate:"required"`
	DoctorID      string `json:"doctor_id" validate:"required"`
	Department    string `json:"department"`
	ScheduledAt   string `json:"scheduled_at" validate:"required"`
	DurationMins  int    `json:"duration_mins" validate:"gte=0"`
	Reason        string `json:"reason"`
}

type RescheduleAppointmentCommand struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	ScheduledAt   string `json:"scheduled_at" validate:"required"`
	Reason        string `json:"reason"`
}

type CancelAppointmentCommand struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	CancelledBy   string `json:"cancelled_by"`
	Reason        string `json:"reason"`
}

type CompleteAppointmentCommand struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	CompletedAt   string `json:"completed_at" validate:"required"`
	Notes         string `json:"notes"`
}

// AppointmentHandler handles all appointment-related commands
type AppointmentHandler struct {
	store      eventstore.EventStore
	maxRetries int
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(store eventstore.EventStore, maxRetries int) *AppointmentHandler {
	return &AppointmentHandler{store: store, maxRetries: maxRetries}
}

// Register binds the appointment command types on the dispatcher
func (h *AppointmentHandler) Register(d *Dispatcher) error {
	bindings := map[domain.CommandType]HandlerFunc{
		domain.CmdAppointmentCreate:     h.HandleCreateAppointment,
		domain.CmdAppointmentReschedule: h.HandleRescheduleAppointment,
		domain.CmdAppointmentCancel:     h.HandleCancelAppointment,
		domain.CmdAppointmentComplete:   h.HandleCompleteAppointment,
	}
	for cmdType, handler := range bindings {
		if err := d.Register(cmdType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleCreateAppointment creates a new appointment aggregate
func (h *AppointmentHandler) HandleCreateAppointment(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload CreateAppointmentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.AppointmentID == "" {
		payload.AppointmentID = uuid.New().String()
	} else {
		version, err := h.store.CurrentVersion(ctx, payload.AppointmentID)
		if err != nil {
			return domain.CommandResult{}, fmt.Errorf("failed to check if appointment exists: %w", err)
		}
		if version > 0 {
			return domain.CommandResult{}, domain.NewValidationError("appointment_id", fmt.Sprintf("appointment already exists with ID %s", payload.AppointmentID))
		}
	}

	log.Info().Str("aggregateID", payload.AppointmentID).Msg("Handling CreateAppointment command")

	event := domain.AppointmentCreatedEvent{
		AppointmentID: payload.AppointmentID,
		PatientID:     payload.PatientID,
		DoctorID:      payload.DoctorID,
		Department:    payload.Department,
		ScheduledAt:   payload.ScheduledAt,
		DurationMins:  payload.DurationMins,
		Reason:        payload.Reason,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.AppointmentCreated, domain.AggregateAppointment, payload.AppointmentID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleRescheduleAppointment moves an appointment to a new time
func (h *AppointmentHandler) HandleRescheduleAppointment(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload RescheduleAppointmentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.AppointmentID).Msg("Handling RescheduleAppointment command")

	if err := h.requireAppointment(ctx, payload.AppointmentID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.AppointmentRescheduledEvent{
		AppointmentID: payload.AppointmentID,
		ScheduledAt:   payload.ScheduledAt,
		Reason:        payload.Reason,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.AppointmentRescheduled, domain.AggregateAppointment, payload.AppointmentID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleCancelAppointment cancels an appointment
func (h *AppointmentHandler) HandleCancelAppointment(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload CancelAppointmentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.AppointmentID).Msg("Handling CancelAppointment command")

	if err := h.requireAppointment(ctx, payload.AppointmentID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.AppointmentCancelledEvent{
		AppointmentID: payload.AppointmentID,
		CancelledBy:   payload.CancelledBy,
		Reason:        payload.Reason,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.AppointmentCancelled, domain.AggregateAppointment, payload.AppointmentID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleCompleteAppointment marks an appointment as completed
func (h *AppointmentHandler) HandleCompleteAppointment(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload CompleteAppointmentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.AppointmentID).Msg("Handling CompleteAppointment command")

	if err := h.requireAppointment(ctx, payload.AppointmentID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.AppointmentCompletedEvent{
		AppointmentID: payload.AppointmentID,
		CompletedAt:   payload.CompletedAt,
		Notes:         payload.Notes,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.AppointmentCompleted, domain.AggregateAppointment, payload.AppointmentID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

func (h *AppointmentHandler) requireAppointment(ctx context.Context, appointmentID string) error {
	version, err := h.store.CurrentVersion(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to check if appointment exists: %w", err)
	}
	if version == 0 {
		return domain.NewValidationError("appointment_id", fmt.Sprintf("no appointment with ID %s", appointmentID))
	}
	return nil
}
