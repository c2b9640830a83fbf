package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "appointments"
	snapshotVersion = 5
)

// Notifier receives appointment lifecycle events for fan-out into the
// per-user notification lists.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a Appointment)
	AppointmentUpdated(ctx context.Context, a Appointment)
}

type serviceState struct {
	Appointments []Appointment `json:"appointments"`
}

// Service owns the appointment collection. Every mutation goes through
// Book or Apply, so the patient view and the doctor view of the same
// appointment are always field-equal: they are projections of one
// record, not two copies.
type Service struct {
	mu       sync.RWMutex
	appts    []Appointment
	store    snapshot.Store
	logger   zerolog.Logger
	notifier Notifier
	now      func() time.Time
}

// NewService loads persisted appointment state; a missing or stale
// snapshot starts empty.
func NewService(ctx context.Context, store snapshot.Store, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		store:  store,
		logger: logger.With().Str("component", "appointments").Logger(),
		now:    time.Now,
	}
	var state serviceState
	err := snapshot.LoadState(ctx, store, snapshotName, snapshotVersion, &state)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		// fresh state
	case err != nil:
		return nil, err
	default:
		s.appts = state.Appointments
	}
	return s, nil
}

// SetNotifier wires appointment event fan-out.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Book validates and inserts a new appointment. Booking is not gated
// by link status: doctors can carry appointments for patients they are
// not (yet) linked to.
func (s *Service) Book(ctx context.Context, a Appointment) (Appointment, error) {
	if a.DoctorID == "" {
		return Appointment{}, fmt.Errorf("doctor_id is required")
	}
	if a.PatientID == "" {
		return Appointment{}, fmt.Errorf("patient_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return Appointment{}, fmt.Errorf("scheduled_at is required")
	}
	if a.Duration <= 0 {
		a.Duration = 30
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !validStatuses[a.Status] {
		return Appointment{}, fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	if a.Type == "" {
		a.Type = TypeInPerson
	}
	if !validTypes[a.Type] {
		return Appointment{}, fmt.Errorf("invalid appointment type: %s", a.Type)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.mu.Lock()
	if s.indexOf(a.ID) >= 0 {
		s.mu.Unlock()
		return Appointment{}, fmt.Errorf("appointment %s already exists", a.ID)
	}
	s.appts = append(s.appts, a)
	s.persist(ctx)
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, a)
	}
	return a, nil
}

// Apply performs a partial-field mutation on the appointment with the
// given id. Both role views observe the change at once because they
// read the same record. Returns the updated record, or false when the
// id is unknown.
func (s *Service) Apply(ctx context.Context, id string, p Patch) (Appointment, bool) {
	if p.Status != nil && !validStatuses[*p.Status] {
		s.logger.Warn().Str("appointment_id", id).Str("status", string(*p.Status)).
			Msg("patch rejected: invalid status")
		return Appointment{}, false
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn().Str("appointment_id", id).Msg("patch rejected: appointment not found")
		return Appointment{}, false
	}
	p.apply(&s.appts[i])
	s.appts[i].UpdatedAt = s.now()
	updated := s.appts[i]
	s.persist(ctx)
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.AppointmentUpdated(ctx, updated)
	}
	return updated, true
}

// Confirm, Cancel, Complete, and MarkUrgent are the status transitions
// the two portals issue; each is a plain Apply so no call site can
// update one role's view and forget the other.

func (s *Service) Confirm(ctx context.Context, id string) (Appointment, bool) {
	return s.setStatus(ctx, id, StatusConfirmed)
}

func (s *Service) Cancel(ctx context.Context, id string) (Appointment, bool) {
	return s.setStatus(ctx, id, StatusCancelled)
}

func (s *Service) Complete(ctx context.Context, id string) (Appointment, bool) {
	return s.setStatus(ctx, id, StatusCompleted)
}

func (s *Service) MarkUrgent(ctx context.Context, id string) (Appointment, bool) {
	return s.setStatus(ctx, id, StatusUrgent)
}

func (s *Service) setStatus(ctx context.Context, id string, status Status) (Appointment, bool) {
	return s.Apply(ctx, id, Patch{Status: &status})
}

// Get returns the appointment with the given id.
func (s *Service) Get(id string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return Appointment{}, false
	}
	return s.appts[i], true
}

// ForPatient is the patient-side view: every appointment the patient
// participates in, ordered by scheduled time.
func (s *Service) ForPatient(patientID string) []Appointment {
	return s.view(func(a Appointment) bool { return a.PatientID == patientID })
}

// ForDoctor is the doctor-side view.
func (s *Service) ForDoctor(doctorID string) []Appointment {
	return s.view(func(a Appointment) bool { return a.DoctorID == doctorID })
}

// UpcomingForDoctor lists the doctor's pending and confirmed
// appointments scheduled on or after the given instant.
func (s *Service) UpcomingForDoctor(doctorID string, from time.Time) []Appointment {
	return s.view(func(a Appointment) bool {
		if a.DoctorID != doctorID || a.ScheduledAt.Before(from) {
			return false
		}
		return a.Status == StatusPending || a.Status == StatusConfirmed || a.Status == StatusUrgent
	})
}

// Reset drops all appointment state. Used by the seeder.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts = nil
	s.persist(ctx)
}

func (s *Service) view(keep func(Appointment) bool) []Appointment {
	s.mu.RLock()
	var out []Appointment
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// indexOf assumes the caller holds at least a read lock.
func (s *Service) indexOf(id string) int {
	for i, a := range s.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// persist assumes the caller holds the write lock.
func (s *Service) persist(ctx context.Context) {
	state := serviceState{Appointments: s.appts}
	if err := snapshot.SaveState(ctx, s.store, snapshotName, snapshotVersion, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist appointment state")
	}
}
