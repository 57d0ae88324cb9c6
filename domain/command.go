package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CommandType identifies a command. The set of types is closed; the
// dispatcher rejects commands with no registered handler.
type CommandType string

// Command type constants
const (
	CmdPatientRegister       CommandType = "patient_register"
	CmdPatientAdmit          CommandType = "patient_admit"
	CmdPatientDischarge      CommandType = "patient_discharge"
	CmdPatientUpdate         CommandType = "patient_update"
	CmdAppointmentCreate     CommandType = "appointment_create"
	CmdAppointmentReschedule CommandType = "appointment_reschedule"
	CmdAppointmentCancel     CommandType = "appointment_cancel"
	CmdAppointmentComplete   CommandType = "appointment_complete"
	CmdClinicalNoteAdd       CommandType = "clinical_note_add"
	CmdVitalSignsRecord      CommandType = "vital_signs_record"
	CmdBillCreate            CommandType = "bill_create"
	CmdBillItemAdd           CommandType = "bill_item_add"
	CmdBillPay               CommandType = "bill_pay"
	CmdBillCancel            CommandType = "bill_cancel"
)

// CommandPriority for async dispatch ordering hints
type CommandPriority string

const (
	PriorityLow      CommandPriority = "LOW"
	PriorityNormal   CommandPriority = "NORMAL"
	PriorityHigh     CommandPriority = "HIGH"
	PriorityCritical CommandPriority = "CRITICAL"
)

// CommandStatus lifecycle
type CommandStatus string

const (
	StatusPending    CommandStatus = "PENDING"
	StatusProcessing CommandStatus = "PROCESSING"
	StatusCompleted  CommandStatus = "COMPLETED"
	StatusFailed     CommandStatus = "FAILED"
	StatusCancelled  CommandStatus = "CANCELLED"
)

// Command is a request to change state. It is consumed by exactly one
// handler and discarded after producing a CommandResult; only the events
// it produced are persisted.
type Command struct {
	ID            string            `json:"id"`
	Type          CommandType       `json:"type"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	UserID        string            `json:"user_id"`
	CorrelationID string            `json:"correlation_id"`
	Priority      CommandPriority   `json:"priority"`
	Status        CommandStatus     `json:"status"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewCommand creates a pending command with a fresh ID.
func NewCommand(cmdType CommandType, payload interface{}) (Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, err
	}

	return Command{
		ID:        uuid.New().String(),
		Type:      cmdType,
		Data:      data,
		Priority:  PriorityNormal,
		Status:    StatusPending,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CommandResult is the outcome of handling a command. Derived, not stored.
// Rejected marks a permanent failure: the command cannot validate or has
// no handler, so redelivering it can never succeed.
type CommandResult struct {
	CommandID      string                 `json:"command_id"`
	Status         CommandStatus          `json:"status"`
	Result         map[string]interface{} `json:"result,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Rejected       bool                   `json:"rejected,omitempty"`
	Events         []Event                `json:"events,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
}

// FailedResult builds a FAILED result for the given command.
func FailedResult(cmd Command, err error) CommandResult {
	return CommandResult{
		CommandID: cmd.ID,
		Status:    StatusFailed,
		Error:     err.Error(),
		Rejected:  IsValidationError(err) || errors.Is(err, ErrNoHandler),
	}
}
