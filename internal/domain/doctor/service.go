package doctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "doctors"
	snapshotVersion = 5
)

// Links is the slice of the link registry the doctor surface reads.
type Links interface {
	DoctorPatients(doctorID string) []link.Link
	PendingForDoctor(doctorID string) []link.Link
}

// Appointments is the slice of the appointment service the doctor
// surface reads.
type Appointments interface {
	ForDoctor(doctorID string) []appointment.Appointment
	UpcomingForDoctor(doctorID string, from time.Time) []appointment.Appointment
}

type serviceState struct {
	Profiles map[string]Profile `json:"profiles"`
}

// Service owns doctor profiles and composes read views over links
// and appointments.
type Service struct {
	mu           sync.RWMutex
	profiles     map[string]Profile
	store        snapshot.Store
	links        Links
	appointments Appointments
	logger       zerolog.Logger
	now          func() time.Time
}

// NewService loads persisted profiles; a missing or stale snapshot
// starts empty.
func NewService(ctx context.Context, store snapshot.Store, links Links, appointments Appointments, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		profiles:     make(map[string]Profile),
		store:        store,
		links:        links,
		appointments: appointments,
		logger:       logger.With().Str("component", "doctor_service").Logger(),
		now:          time.Now,
	}
	var state serviceState
	err := snapshot.LoadState(ctx, store, snapshotName, snapshotVersion, &state)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		// fresh state
	case err != nil:
		return nil, err
	default:
		if state.Profiles != nil {
			s.profiles = state.Profiles
		}
	}
	return s, nil
}

// GetProfile returns the doctor's profile.
func (s *Service) GetProfile(doctorID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[doctorID]
	return p, ok
}

// UpsertProfile replaces the doctor's profile.
func (s *Service) UpsertProfile(ctx context.Context, p Profile) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	s.profiles[p.DoctorID] = p
	s.persist(ctx)
	return p
}

// SetAvailability replaces the weekly availability grid, keeping the
// rest of the profile as it was.
func (s *Service) SetAvailability(ctx context.Context, doctorID string, slots []AvailabilitySlot) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[doctorID]
	p.DoctorID = doctorID
	p.Availability = slots
	p.UpdatedAt = s.now()
	s.profiles[doctorID] = p
	s.persist(ctx)
	return p
}

// Roster lists the doctor's accepted patient links.
func (s *Service) Roster(doctorID string) []link.Link {
	return s.links.DoctorPatients(doctorID)
}

// PendingRequests lists link requests awaiting the doctor's decision.
func (s *Service) PendingRequests(doctorID string) []link.Link {
	return s.links.PendingForDoctor(doctorID)
}

// Dashboard is the doctor's landing-page aggregate.
type Dashboard struct {
	TodayAppointments   []appointment.Appointment `json:"today_appointments"`
	PendingAppointments []appointment.Appointment `json:"pending_appointments"`
	UrgentAppointments  []appointment.Appointment `json:"urgent_appointments"`
	TotalPatients       int                       `json:"total_patients"`
	PendingRequests     []link.Link               `json:"pending_requests"`
}

// BuildDashboard assembles the aggregate as of the given instant.
func (s *Service) BuildDashboard(doctorID string, at time.Time) Dashboard {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	d := Dashboard{
		TodayAppointments:   []appointment.Appointment{},
		PendingAppointments: []appointment.Appointment{},
		UrgentAppointments:  []appointment.Appointment{},
		TotalPatients:       len(s.links.DoctorPatients(doctorID)),
		PendingRequests:     s.links.PendingForDoctor(doctorID),
	}
	if d.PendingRequests == nil {
		d.PendingRequests = []link.Link{}
	}
	for _, a := range s.appointments.ForDoctor(doctorID) {
		if !a.ScheduledAt.Before(dayStart) && a.ScheduledAt.Before(dayEnd) &&
			a.Status != appointment.StatusCancelled {
			d.TodayAppointments = append(d.TodayAppointments, a)
		}
		switch a.Status {
		case appointment.StatusPending:
			d.PendingAppointments = append(d.PendingAppointments, a)
		case appointment.StatusUrgent:
			d.UrgentAppointments = append(d.UrgentAppointments, a)
		}
	}
	return d
}

// Reset drops all profiles. Used by the seeder.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = make(map[string]Profile)
	s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) {
	state := serviceState{Profiles: s.profiles}
	if err := snapshot.SaveState(ctx, s.store, snapshotName, snapshotVersion, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist doctor state")
	}
}
