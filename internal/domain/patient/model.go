// Package patient holds the patient-side health vault: profile,
// family members, medical records, trusted doctors and AI health
// predictions, all persisted as one snapshot per platform.
package patient

import "time"

// EmergencyContact is who to call when the patient cannot answer.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
}

// Address is a postal address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Profile is the patient's own health summary.
type Profile struct {
	PatientID         string            `json:"patient_id"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	DateOfBirth       time.Time         `json:"date_of_birth,omitempty"`
	Gender            string            `json:"gender,omitempty"`
	BloodGroup        string            `json:"blood_group,omitempty"`
	Allergies         []string          `json:"allergies,omitempty"`
	ChronicConditions []string          `json:"chronic_conditions,omitempty"`
	EmergencyContact  *EmergencyContact `json:"emergency_contact,omitempty"`
	Address           *Address          `json:"address,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// FamilyMember is a dependent whose records the patient manages.
type FamilyMember struct {
	ID                string    `json:"id"`
	PatientID         string    `json:"patient_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Relationship      string    `json:"relationship"`
	DateOfBirth       time.Time `json:"date_of_birth,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	BloodGroup        string    `json:"blood_group,omitempty"`
	Allergies         []string  `json:"allergies,omitempty"`
	ChronicConditions []string  `json:"chronic_conditions,omitempty"`
	IsPrimary         bool      `json:"is_primary"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TrustedDoctor is a doctor the patient trusts, entered free-form.
// DoctorID is filled in once the entry has been resolved to a
// platform account; only then can a link request be sent.
type TrustedDoctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Clinic    string `json:"clinic,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	DoctorID  string `json:"doctor_id,omitempty"`
}

// LabResult is one line of a lab report attached to a record.
type LabResult struct {
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range,omitempty"`
	IsAbnormal     bool   `json:"is_abnormal"`
}

// MedicalRecord is one uploaded document plus its clinical metadata.
type MedicalRecord struct {
	ID             string      `json:"id"`
	PatientID      string      `json:"patient_id"`
	FamilyMemberID string      `json:"family_member_id,omitempty"`
	DocumentType   string      `json:"document_type"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	FileName       string      `json:"file_name,omitempty"`
	FileSize       int64       `json:"file_size,omitempty"`
	MimeType       string      `json:"mime_type,omitempty"`
	UploadedBy     string      `json:"uploaded_by"`
	DoctorID       string      `json:"doctor_id,omitempty"`
	Diagnosis      string      `json:"diagnosis,omitempty"`
	Prescription   string      `json:"prescription,omitempty"`
	LabResults     []LabResult `json:"lab_results,omitempty"`
	RecordDate     time.Time   `json:"record_date"`
	CreatedAt      time.Time   `json:"created_at"`
	IsAnonymized   bool        `json:"is_anonymized"`
}

// Prediction is an AI health-risk assessment stored in the vault.
type Prediction struct {
	ID               string     `json:"id"`
	PatientID        string     `json:"patient_id"`
	FamilyMemberID   string     `json:"family_member_id,omitempty"`
	PredictionType   string     `json:"prediction_type"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity"`
	ConfidenceScore  float64    `json:"confidence_score"`
	RiskFactors      []string   `json:"risk_factors,omitempty"`
	Recommendations  []string   `json:"recommendations,omitempty"`
	SuggestedActions []string   `json:"suggested_actions,omitempty"`
	PredictedAt      time.Time  `json:"predicted_at"`
	ValidUntil       time.Time  `json:"valid_until"`
	IsRead           bool       `json:"is_read"`
	IsActioned       bool       `json:"is_actioned"`
	AppointmentID    string     `json:"appointment_id,omitempty"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
}

// Vault is everything stored for one patient.
type Vault struct {
	Profile        Profile         `json:"profile"`
	FamilyMembers  []FamilyMember  `json:"family_members,omitempty"`
	TrustedDoctors []TrustedDoctor `json:"trusted_doctors,omitempty"`
	MedicalRecords []MedicalRecord `json:"medical_records,omitempty"`
	Predictions    []Prediction    `json:"predictions,omitempty"`
}
