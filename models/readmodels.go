package models

import (
	"time"
)

// Patient statuses as materialized in the read model
const (
	PatientStatusRegistered = "registered"
	PatientStatusAdmitted   = "admitted"
	PatientStatusDischarged = "discharged"
)

// PatientReadModel is the denormalized patient projection. Written only by
// the projector; LastEventVersion is the staleness watermark against the
// event log.
type PatientReadModel struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PatientID        string    `gorm:"uniqueIndex" json:"patient_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      string    `json:"date_of_birth"`
	Gender           string    `json:"gender"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	BloodType        string    `json:"blood_type"`
	Status           string    `gorm:"index" json:"status"`
	Department       string    `json:"department"`
	WardNumber       string    `json:"ward_number"`
	BedNumber        string    `json:"bed_number"`
	AdmissionDate    string    `json:"admission_date"`
	DischargeDate    string    `json:"discharge_date"`
	AdmissionCount   int       `json:"admission_count"`
	LastEventVersion int       `json:"last_event_version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (PatientReadModel) TableName() string {
	return "patient_read_model"
}

// Appointment statuses
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusCompleted = "completed"
)

// AppointmentReadModel is the denormalized appointment projection.
type AppointmentReadModel struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AppointmentID    string    `gorm:"uniqueIndex" json:"appointment_id"`
	PatientID        string    `gorm:"index" json:"patient_id"`
	DoctorID         string    `gorm:"index" json:"doctor_id"`
	Department       string    `json:"department"`
	ScheduledAt      string    `gorm:"index" json:"scheduled_at"`
	DurationMins     int       `json:"duration_mins"`
	Status           string    `gorm:"index" json:"status"`
	Reason           string    `json:"reason"`
	Notes            string    `json:"notes"`
	RescheduleCount  int       `json:"reschedule_count"`
	LastEventVersion int       `json:"last_event_version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (AppointmentReadModel) TableName() string {
	return "appointment_read_model"
}

// ClinicalNoteReadModel is the denormalized clinical notes projection.
// One row per note or vitals record.
type ClinicalNoteReadModel struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	NoteID           string    `gorm:"uniqueIndex" json:"note_id"`
	PatientID        string    `gorm:"index" json:"patient_id"`
	DoctorID         string    `json:"doctor_id"`
	NoteType         string    `json:"note_type"`
	Content          string    `json:"content"`
	Diagnosis        string    `json:"diagnosis"`
	Vitals           []byte    `json:"vitals"`
	LastEventVersion int       `json:"last_event_version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (ClinicalNoteReadModel) TableName() string {
	return "clinical_notes_read_model"
}

// Bill statuses
const (
	BillStatusOpen      = "open"
	BillStatusPaid      = "paid"
	BillStatusCancelled = "cancelled"
)

// BillingReadModel is the denormalized billing projection.
type BillingReadModel struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	BillID           string    `gorm:"uniqueIndex" json:"bill_id"`
	PatientID        string    `gorm:"index" json:"patient_id"`
	Currency         string    `json:"currency"`
	Status           string    `gorm:"index" json:"status"`
	TotalAmount      float64   `json:"total_amount"`
	PaidAmount       float64   `json:"paid_amount"`
	ItemCount        int       `json:"item_count"`
	Items            []byte    `json:"items"`
	PaymentMethod    string    `json:"payment_method"`
	PaidAt           string    `json:"paid_at"`
	LastEventVersion int       `json:"last_event_version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (BillingReadModel) TableName() string {
	return "billing_read_model"
}

// AnalyticsReadModel holds hospital-wide running aggregates, one row per
// metric scope keyed by ScopeID ("global" plus one row per department).
type AnalyticsReadModel struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ScopeID               string    `gorm:"uniqueIndex" json:"scope_id"`
	PatientsRegistered    int64     `json:"patients_registered"`
	PatientsAdmitted      int64     `json:"patients_admitted"`
	PatientsDischarged    int64     `json:"patients_discharged"`
	AppointmentsCreated   int64     `json:"appointments_created"`
	AppointmentsCancelled int64     `json:"appointments_cancelled"`
	AppointmentsCompleted int64     `json:"appointments_completed"`
	NotesRecorded         int64     `json:"notes_recorded"`
	BillsCreated          int64     `json:"bills_created"`
	RevenueCollected      float64   `json:"revenue_collected"`
	LastEventVersion      int       `json:"last_event_version"`
	LastEventID           string    `json:"last_event_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (AnalyticsReadModel) TableName() string {
	return "analytics_read_model"
}
