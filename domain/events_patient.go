package domain

// PatientRegisteredEvent represents a patient registered event
type PatientRegisteredEvent struct {
	PatientID   string `json:"patient_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	BloodType   string `json:"blood_type"`
}

// PatientAdmittedEvent represents a patient admitted event
type PatientAdmittedEvent struct {
	PatientID         string `json:"patient_id"`
	AdmissionDate     string `json:"admission_date"`
	Department        string `json:"department"`
	WardNumber        string `json:"ward_number"`
	BedNumber         string `json:"bed_number"`
	AttendingDoctorID string `json:"attending_doctor_id"`
	Reason            string `json:"reason"`
}

// PatientDischargedEvent represents a patient discharged event
type PatientDischargedEvent struct {
	PatientID        string `json:"patient_id"`
	DischargeDate    string `json:"discharge_date"`
	DischargeSummary string `json:"discharge_summary"`
	FollowUpDate     string `json:"follow_up_date"`
}

// PatientUpdatedEvent represents a patient demographics update event
type PatientUpdatedEvent struct {
	PatientID string `json:"patient_id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}
