package clinicapi

import "time"

// Patient is the backend's patient resource. The chronic history fields
// (diseases, allergies, medications) persist across encounters and are the
// read-modify-write half of an EMR save.
type Patient struct {
	ID          int    `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Diseases    string `json:"diseases"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
}

// FullName returns the patient's display name.
func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// ChronicUpdate is the partial patient update sent on EMR save.
type ChronicUpdate struct {
	Diseases    string `json:"diseases"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
}

// Dentist is the backend's dentist resource.
type Dentist struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Appointment is the backend's appointment resource.
type Appointment struct {
	ID              int    `json:"id"`
	Patient         int    `json:"patient"`
	Dentist         int    `json:"dentist"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
}

// MedicalRecord is one encounter's clinical note. Past records are never
// edited; an EMR save always creates a new one.
type MedicalRecord struct {
	ID              int       `json:"id,omitempty"`
	Patient         int       `json:"patient"`
	Appointment     *int      `json:"appointment,omitempty"`
	Diagnosis       string    `json:"diagnosis"`
	TreatmentNotes  string    `json:"treatment_notes"`
	DentalIssues    string    `json:"dental_issues"`
	TreatmentPlan   string    `json:"treatment_plan"`
	PrescribedDrugs string    `json:"prescribed_drugs"`
	RecordDate      time.Time `json:"record_date,omitempty"`
}

// Treatment is a catalog entry for a clinic treatment.
type Treatment struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
}

// Drug is a catalog entry for a stocked drug.
type Drug struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Dosage      string `json:"dosage"`
	Price       string `json:"price"`
}

// Invoice is the backend's invoice resource.
type Invoice struct {
	ID            int    `json:"id"`
	Appointment   int    `json:"appointment"`
	DateIssued    string `json:"date_issued"`
	TotalAmount   string `json:"total_amount"`
	PaymentStatus string `json:"payment_status"`
}

// LoginResult is returned by the auth endpoint: the caller's role and id.
type LoginResult struct {
	Role string `json:"role"`
	ID   int    `json:"id"`
}
