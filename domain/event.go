package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregatePatient      = "patient"
	AggregateAppointment  = "appointment"
	AggregateClinicalNote = "clinical_note"
	AggregateBill         = "bill"
)

// EventType constants
const (
	// Patient events
	PatientRegistered = "V1_PATIENT_REGISTERED"
	PatientAdmitted   = "V1_PATIENT_ADMITTED"
	PatientDischarged = "V1_PATIENT_DISCHARGED"
	PatientUpdated    = "V1_PATIENT_UPDATED"

	// Appointment events
	AppointmentCreated     = "V1_APPOINTMENT_CREATED"
	AppointmentRescheduled = "V1_APPOINTMENT_RESCHEDULED"
	AppointmentCancelled   = "V1_APPOINTMENT_CANCELLED"
	AppointmentCompleted   = "V1_APPOINTMENT_COMPLETED"

	// Clinical events
	ClinicalNoteAdded  = "V1_CLINICAL_NOTE_ADDED"
	VitalSignsRecorded = "V1_VITAL_SIGNS_RECORDED"

	// Billing events
	BillCreated   = "V1_BILL_CREATED"
	BillItemAdded = "V1_BILL_ITEM_ADDED"
	BillPaid      = "V1_BILL_PAID"
	BillCancelled = "V1_BILL_CANCELLED"
)

// Event represents an immutable domain event. Events are the single source
// of truth: appended exactly once, never mutated, retained forever.
// Sequence is the store-assigned position in the global log; timestamps can
// collide, sequences cannot, so consumers page the log by sequence.
type Event struct {
	ID            string            `json:"id"`
	Sequence      int64             `json:"sequence,omitempty"`
	Type          string            `json:"type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	SchemaVersion int               `json:"schema_version"`
	Timestamp     time.Time         `json:"timestamp"`
	UserID        string            `json:"user_id"`
	CorrelationID string            `json:"correlation_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Data          json.RawMessage   `json:"data"`
}

// NewEvent builds an event envelope around a typed payload. Version is
// assigned by the caller from the aggregate's current version.
func NewEvent(eventType, aggregateType, aggregateID string, version int, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       version,
		SchemaVersion: 1,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}, nil
}

// DecodeData unmarshals the event payload into the given struct.
func (e Event) DecodeData(out interface{}) error {
	return json.Unmarshal(e.Data, out)
}
