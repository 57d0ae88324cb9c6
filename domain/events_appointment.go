package domain

// AppointmentCreatedEvent represents an appointment created event
type AppointmentCreatedEvent struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	Department    string `json:"department"`
	ScheduledAt   string `json:"scheduled_at"`
	DurationMins  int    `json:"duration_mins"`
	Reason        string `json:"reason"`
}

// AppointmentRescheduledEvent represents an appointment rescheduled event
type AppointmentRescheduledEvent struct {
	AppointmentID string `json:"appointment_id"`
	ScheduledAt   string `json:"scheduled_at"`
	Reason        string `json:"reason"`
}

// AppointmentCancelledEvent represents an appointment cancelled event
type AppointmentCancelledEvent struct {
	AppointmentID string `json:"appointment_id"`
	CancelledBy   string `json:"cancelled_by"`
	Reason        string `json:"reason"`
}

// AppointmentCompletedEvent represents an appointment completed event
type AppointmentCompletedEvent struct {
	AppointmentID string `json:"appointment_id"`
	CompletedAt   string `json:"completed_at"`
	Notes         string `json:"notes"`
}
