package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

// Command structs
type AddClinicalNoteCommand struct {
	NoteID    string `json:"note_id"`
	PatientID string `json:"patient_id" validate:"required"`
	DoctorID  string `json:"doctor_id" validate:"required"`
	NoteType  string `json:"note_type"`
	Content   string `json:"content" validate:"required"`
	Diagnosis string `json:"diagnosis"`
}

type RecordVitalSignsCommand struct {
	NoteID           string  `json:"note_id"`
	PatientID        string  `json:"patient_id" validate:"required"`
	RecordedBy       string  `json:"recorded_by" validate:"required"`
	TemperatureC     float64 `json:"temperature_c" validate:"gte=0"`
	HeartRate        int     `json:"heart_rate" validate:"gte=0"`
	SystolicBP       int     `json:"systolic_bp" validate:"gte=0"`
	DiastolicBP      int     `json:"diastolic_bp" validate:"gte=0"`
	RespiratoryRate  int     `json:"respiratory_rate" validate:"gte=0"`
	OxygenSaturation float64 `json:"oxygen_saturation" validate:"gte=0,lte=100"`
}

// ClinicalHandler handles clinical documentation commands. Each note or
// vitals record is its own single-event aggregate; clinical history is
// queried per patient through the read model.
type ClinicalHandler struct {
	store      eventstore.EventStore
	maxRetries int
}

// NewClinicalHandler creates a new clinical handler
func NewClinicalHandler(store eventstore.EventStore, maxRetries int) *ClinicalHandler {
	return &ClinicalHandler{store: store, maxRetries: maxRetries}
}

// Register binds the clinical command types on the dispatcher
func (h *ClinicalHandler) Register(d *Dispatcher) error {
	bindings := map[domain.CommandType]HandlerFunc{
		domain.CmdClinicalNoteAdd:  h.HandleAddClinicalNote,
		domain.CmdVitalSignsRecord: h.HandleRecordVitalSigns,
	}
	for cmdType, handler := range bindings {
		if err := d.Register(cmdType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleAddClinicalNote records a clinical note
func (h *ClinicalHandler) HandleAddClinicalNote(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload AddClinicalNoteCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.NoteID == "" {
		payload.NoteID = uuid.New().String()
	}
	if payload.NoteType == "" {
		payload.NoteType = "progress_note"
	}

	log.Info().Str("aggregateID", payload.NoteID).Msg("Handling AddClinicalNote command")

	event := domain.ClinicalNoteAddedEvent{
		NoteID:    payload.NoteID,
		PatientID: payload.PatientID,
		DoctorID:  payload.DoctorID,
		NoteType:  payload.NoteType,
		Content:   payload.Content,
		Diagnosis: payload.Diagnosis,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.ClinicalNoteAdded, domain.AggregateClinicalNote, payload.NoteID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}

// HandleRecordVitalSigns records a vital signs measurement
func (h *ClinicalHandler) HandleRecordVitalSigns(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var payload RecordVitalSignsCommand
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.CommandResult{}, err
	}

	if payload.NoteID == "" {
		payload.NoteID = uuid.New().String()
	}

	log.Info().Str("aggregateID", payload.NoteID).Msg("Handling RecordVitalSigns command")

	event := domain.VitalSignsRecordedEvent{
		NoteID:           payload.NoteID,
		PatientID:        payload.PatientID,
		RecordedBy:       payload.RecordedBy,
		TemperatureC:     payload.TemperatureC,
		HeartRate:        payload.HeartRate,
		SystolicBP:       payload.SystolicBP,
		DiastolicBP:      payload.DiastolicBP,
		RespiratoryRate:  payload.RespiratoryRate,
		OxygenSaturation: payload.OxygenSaturation,
	}

	stored, err := appendEvent(ctx, h.store, cmd, domain.VitalSignsRecorded, domain.AggregateClinicalNote, payload.NoteID, event, h.maxRetries)
	if err != nil {
		return domain.CommandResult{}, err
	}
	return singleEventResult(cmd, stored), nil
}
