// Package link implements the patient–doctor consent link registry:
// the lifecycle of relationship records (request, accept, decline,
// unlink) and the consent-respecting queries both portals build on.
package link

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a link record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// AccessLevel is the data-sharing tier granted by a link.
type AccessLevel string

const (
	AccessViewOnly AccessLevel = "view_only"
	AccessFull     AccessLevel = "full_access"
)

// Link is a consent record connecting one patient and one doctor. Its
// identity derives from the pair, so at most one record exists per
// (patient, doctor) combination at any time.
type Link struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patient_id"`
	PatientName string      `json:"patient_name,omitempty"`
	DoctorID    string      `json:"doctor_id"`
	DoctorName  string      `json:"doctor_name,omitempty"`
	Status      Status      `json:"status"`
	AccessLevel AccessLevel `json:"access_level"`
	RequestedAt time.Time   `json:"requested_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// LinkID derives the deterministic record id for a patient/doctor
// pair. Components are length-prefixed so an id that itself contains
// the separator cannot collide with another pair.
func LinkID(patientID, doctorID string) string {
	return fmt.Sprintf("link_%d_%s_%d_%s", len(patientID), patientID, len(doctorID), doctorID)
}

// Outcome reports what a guarded mutation did. Guard rejections are
// not errors: the registry leaves state untouched and the caller
// re-renders from the snapshot it gets back.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyExists
	OutcomeNotFound
	OutcomeInvalidTransition
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalidTransition:
		return "invalid_transition"
	default:
		return "unknown"
	}
}

// Applied reports whether the mutation changed state.
func (o Outcome) Applied() bool { return o == OutcomeApplied }
