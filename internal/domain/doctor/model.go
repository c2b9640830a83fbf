// Package doctor holds the doctor-side profile and availability and
// composes the roster and dashboard views from the link registry and
// the appointment service.
package doctor

import "time"

// AvailabilitySlot is one weekly recurring window.
type AvailabilitySlot struct {
	DayOfWeek   int    `json:"day_of_week"` // 0 = Sunday
	StartTime   string `json:"start_time"`  // HH:mm
	EndTime     string `json:"end_time"`    // HH:mm
	IsAvailable bool   `json:"is_available"`
}

// Profile is the doctor's practice summary.
type Profile struct {
	DoctorID           string             `json:"doctor_id"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	LicenseNumber      string             `json:"license_number,omitempty"`
	Specialty          string             `json:"specialty,omitempty"`
	SubSpecialty       string             `json:"sub_specialty,omitempty"`
	Qualifications     []string           `json:"qualifications,omitempty"`
	YearsOfExperience  int                `json:"years_of_experience,omitempty"`
	ClinicName         string             `json:"clinic_name,omitempty"`
	Phone              string             `json:"phone,omitempty"`
	IsVerified         bool               `json:"is_verified"`
	VerificationStatus string             `json:"verification_status,omitempty"`
	Availability       []AvailabilitySlot `json:"availability,omitempty"`
	Rating             float64            `json:"rating,omitempty"`
	ReviewCount        int                `json:"review_count,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
