package domain

// ClinicalNoteAddedEvent represents a clinical note added event
type ClinicalNoteAddedEvent struct {
	NoteID    string `json:"note_id"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	NoteType  string `json:"note_type"`
	Content   string `json:"content"`
	Diagnosis string `json:"diagnosis"`
}

// VitalSignsRecordedEvent represents a vital signs recorded event
type VitalSignsRecordedEvent struct {
	NoteID           string  `json:"note_id"`
	PatientID        string  `json:"patient_id"`
	RecordedBy       string  `json:"recorded_by"`
	TemperatureC     float64 `json:"temperature_c"`
	HeartRate        int     `json:"heart_rate"`
	SystolicBP       int     `json:"systolic_bp"`
	DiastolicBP      int     `json:"diastolic_bp"`
	RespiratoryRate  int     `json:"respiratory_rate"`
	OxygenSaturation float64 `json:"oxygen_saturation"`
}
