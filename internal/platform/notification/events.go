package notification

import (
	"context"
	"fmt"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/domain/patient"
)

// Events adapts domain lifecycle hooks onto the notification service.
// It implements link.Notifier, appointment.Notifier and
// patient.Notifier.
type Events struct {
	svc *Service
}

func NewEvents(svc *Service) *Events {
	return &Events{svc: svc}
}

// LinkRequested tells the doctor a patient is asking to connect.
func (e *Events) LinkRequested(ctx context.Context, l link.Link) {
	name := l.PatientName
	if name == "" {
		name = "A patient"
	}
	e.svc.Push(ctx, l.DoctorID, TypeDoctorLinked,
		"New link request",
		fmt.Sprintf("%s has requested to share their health records with you.", name),
		map[string]string{"link_id": l.ID, "patient_id": l.PatientID})
}

// LinkAccepted tells the patient their doctor accepted.
func (e *Events) LinkAccepted(ctx context.Context, l link.Link) {
	name := l.DoctorName
	if name == "" {
		name = "Your doctor"
	}
	e.svc.Push(ctx, l.PatientID, TypeDoctorLinked,
		"Doctor linked",
		fmt.Sprintf("%s accepted your link request. They now have full access to shared records.", name),
		map[string]string{"link_id": l.ID, "doctor_id": l.DoctorID})
}

// AppointmentBooked tells the doctor a new appointment landed.
func (e *Events) AppointmentBooked(ctx context.Context, a appointment.Appointment) {
	e.svc.Push(ctx, a.DoctorID, TypeAppointment,
		"New appointment",
		fmt.Sprintf("An appointment was booked for %s.", a.ScheduledAt.Format("Jan 2, 2006 15:04")),
		map[string]string{"appointment_id": a.ID, "patient_id": a.PatientID})
}

// AppointmentUpdated tells the patient about status and field changes.
func (e *Events) AppointmentUpdated(ctx context.Context, a appointment.Appointment) {
	e.svc.Push(ctx, a.PatientID, TypeAppointment,
		"Appointment updated",
		fmt.Sprintf("Your appointment on %s is now %s.", a.ScheduledAt.Format("Jan 2, 2006 15:04"), a.Status),
		map[string]string{"appointment_id": a.ID, "status": string(a.Status)})
}

// PredictionReady tells the patient a new assessment is waiting.
func (e *Events) PredictionReady(ctx context.Context, p patient.Prediction) {
	e.svc.Push(ctx, p.PatientID, TypePrediction,
		"New health prediction",
		fmt.Sprintf("A %s-severity %s assessment is ready for review.", p.Severity, p.PredictionType),
		map[string]string{"prediction_id": p.ID, "severity": p.Severity})
}
