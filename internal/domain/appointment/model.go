// Package appointment keeps the patient-facing and doctor-facing
// appointment views consistent. Instead of two per-role collections
// kept in sync by convention at every call site, a single
// source-of-truth collection backs both role-scoped views, so the two
// sides cannot diverge by a missed write.
package appointment

import "time"

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusUrgent    Status = "urgent"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusConfirmed: true, StatusCompleted: true,
	StatusCancelled: true, StatusUrgent: true,
}

// Type is the consultation channel.
type Type string

const (
	TypeInPerson Type = "in_person"
	TypeVideo    Type = "video"
	TypePhone    Type = "phone"
)

var validTypes = map[Type]bool{
	TypeInPerson: true, TypeVideo: true, TypePhone: true,
}

// Appointment is a scheduled interaction between a doctor and a
// patient, optionally on behalf of a family member.
type Appointment struct {
	ID              string    `json:"id"`
	DoctorID        string    `json:"doctor_id"`
	PatientID       string    `json:"patient_id"`
	FamilyMemberID  string    `json:"family_member_id,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Duration        int       `json:"duration"` // minutes
	Status          Status    `json:"status"`
	Type            Type      `json:"type"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Prescription    string    `json:"prescription,omitempty"`
	Diagnosis       string    `json:"diagnosis,omitempty"`
	AIPriorityScore *float64  `json:"ai_priority_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Patch is a partial-field mutation applied through Service.Apply.
// Nil fields are left untouched.
type Patch struct {
	Status          *Status    `json:"status,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	Duration        *int       `json:"duration,omitempty"`
	Reason          *string    `json:"reason,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Prescription    *string    `json:"prescription,omitempty"`
	Diagnosis       *string    `json:"diagnosis,omitempty"`
	AIPriorityScore *float64   `json:"ai_priority_score,omitempty"`
}

func (p Patch) apply(a *Appointment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.ScheduledAt != nil {
		a.ScheduledAt = *p.ScheduledAt
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.Reason != nil {
		a.Reason = *p.Reason
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Prescription != nil {
		a.Prescription = *p.Prescription
	}
	if p.Diagnosis != nil {
		a.Diagnosis = *p.Diagnosis
	}
	if p.AIPriorityScore != nil {
		a.AIPriorityScore = p.AIPriorityScore
	}
}
