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
type RegisterPatientCommand struct {
	PatientID   string `json:"patient_id"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
	Gender      string `json:"gender"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	BloodType   string `json:"blood_type"`
}

type AdmitPatientCommand struct {
	PatientID         string `json:"patient_id" validate:"required"`
	AdmissionDate     string `json:"admission_date" validate:"required"`
	Department        string `json:"department" validate:"required"`
	WardNumber        string `json:"ward_number"`
	BedNumber         string `json:"bed_number"`
	AttendingDoctorID string `json:"attending_doctor_id"`
	Reason            string `json:"reason"`
}

type DischargePatientCommand struct {
	PatientID        string `json:"patient_id" validate:"required"`
	DischargeDate    string `json:"discharge_date" validate:"required"`
	DischargeSummary string `json:"discharge_summary"`
	FollowUpDate     string `json:"follow_up_date"`
}

type UpdatePatientCommand struct {
	PatientID string `json:"patient_id" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// PatientHandler handles all patient-related commands
type PatientHandler struct {
	store      eventstore.EventStore
	maxRetries int
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(store eventstore.EventStore, maxRetries int) *PatientHandler {
	return &PatientHandler{store: store, maxRetries: maxRetries}
}

// Register binds the patient command types on the dispatcher
func (h *PatientHandler) Register(d *Dispatcher) error {
	bindings := map[domain.CommandType]HandlerFunc{
		domain.CmdPatientRegister:  h.HandleRegisterPatient,
		domain.CmdPatientAdmit:     h.HandleAdmitPatient,
		domain.CmdPatientDischarge: h.HandleDischargePatient,
		domain.CmdPatientUpdate:    h.HandleUpdatePatient,
	}
	for cmdType, handler := range bindings {
		if err := d.Register(cmdType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleRegisterPatient creates a new patient aggregate
func (h *PatientHandler) HandleRegisterPatient(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload RegisterPatientCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.PatientID == "" {
		payload.PatientID = uuid.New().String()
	} else {
		version, err := h.store.CurrentVersion(ctx, payload.PatientID)
		if err != nil {
			return domain.CommandResult{}, fmt.Errorf("failed to check if patient exists: %w", err)
		}
		if version > 0 {
			return domain.CommandResult{}, domain.NewValidationError("patient_id", fmt.Sprintf("patient already exists with ID %s", payload.PatientID))
		}
	}

	log.Info().Str("aggregateID", payload.PatientID).Msg("Handling RegisterPatient command")

	event := domain.PatientRegisteredEvent{
		PatientID:   payload.PatientID,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		DateOfBirth: payload.DateOfBirth,
		Gender:      payload.Gender,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Address:     payload.Address,
		BloodType:   payload.BloodType,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.PatientRegistered, domain.AggregatePatient, payload.PatientID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleAdmitPatient admits a registered patient
func (h *PatientHandler) HandleAdmitPatient(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload AdmitPatientCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.PatientID).Msg("Handling AdmitPatient command")

	if err := h.requirePatient(ctx, payload.PatientID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.PatientAdmittedEvent{
		PatientID:         payload.PatientID,
		AdmissionDate:     payload.AdmissionDate,
		Department:        payload.Department,
		WardNumber:        payload.WardNumber,
		BedNumber:         payload.BedNumber,
		AttendingDoctorID: payload.AttendingDoctorID,
		Reason:            payload.Reason,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.PatientAdmitted, domain.AggregatePatient, payload.PatientID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleDischargePatient discharges an admitted patient
func (h *PatientHandler) HandleDischargePatient(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload DischargePatientCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	log.Info().Str("aggregateID", payload.PatientID).Msg("Handling DischargePatient command")

	if err := h.requirePatient(ctx, payload.PatientID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.PatientDischargedEvent{
		PatientID:        payload.PatientID,
		DischargeDate:    payload.DischargeDate,
		DischargeSummary: payload.DischargeSummary,
		FollowUpDate:     payload.FollowUpDate,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.PatientDischarged, domain.AggregatePatient, payload.PatientID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleUpdatePatient updates patient contact details
func (h *PatientHandler) HandleUpdatePatient(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload UpdatePatientCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}
	if payload.Email == "" && payload.Phone == "" && payload.Address == "" {
		return domain.CommandResult{}, domain.NewValidationError("", "update carries no fields")
	}

	log.Info().Str("aggregateID", payload.PatientID).Msg("Handling UpdatePatient command")

	if err := h.requirePatient(ctx, payload.PatientID); err != nil {
		return domain.CommandResult{}, err
	}

	event := domain.PatientUpdatedEvent{
		PatientID: payload.PatientID,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Address:   payload.Address,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.PatientUpdated, domain.AggregatePatient, payload.PatientID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

func (h *PatientHandler) requirePatient(ctx context.Context, patientID string) error {
	version, err := h.store.CurrentVersion(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to check if patient exists: %w", err)
	}
	if version == 0 {
		return domain.NewValidationError("patient_id", fmt.Sprintf("no patient with ID %s", patientID))
	}
	return nil
}
