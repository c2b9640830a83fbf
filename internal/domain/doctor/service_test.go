package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

type fakeLinks struct {
	patients []link.Link
	pending  []link.Link
}

func (f *fakeLinks) DoctorPatients(string) []link.Link   { return f.patients }
func (f *fakeLinks) PendingForDoctor(string) []link.Link { return f.pending }

type fakeAppointments struct {
	appts []appointment.Appointment
}

func (f *fakeAppointments) ForDoctor(string) []appointment.Appointment { return f.appts }

func (f *fakeAppointments) UpcomingForDoctor(_ string, from time.Time) []appointment.Appointment {
	var out []appointment.Appointment
	for _, a := range f.appts {
		if a.ScheduledAt.After(from) {
			out = append(out, a)
		}
	}
	return out
}

func newTestService(t *testing.T, links Links, appts Appointments) *Service {
	t.Helper()
	if links == nil {
		links = &fakeLinks{}
	}
	if appts == nil {
		appts = &fakeAppointments{}
	}
	s, err := NewService(context.Background(), snapshot.NewMemoryStore(), links, appts, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestProfileUpsertAndAvailability(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()

	p := s.UpsertProfile(ctx, Profile{DoctorID: "d1", FirstName: "Anand", Specialty: "Cardiology"})
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}

	slots := []AvailabilitySlot{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "13:00", IsAvailable: true},
		{DayOfWeek: 3, StartTime: "14:00", EndTime: "18:00", IsAvailable: true},
	}
	got := s.SetAvailability(ctx, "d1", slots)
	if len(got.Availability) != 2 {
		t.Fatalf("availability not stored: %+v", got)
	}
	if got.Specialty != "Cardiology" {
		t.Error("availability update must not clobber the profile")
	}
}

func TestSetAvailability_CreatesProfileIfMissing(t *testing.T) {
	s := newTestService(t, nil, nil)
	got := s.SetAvailability(context.Background(), "d9", []AvailabilitySlot{
		{DayOfWeek: 0, StartTime: "10:00", EndTime: "12:00", IsAvailable: true},
	})
	if got.DoctorID != "d9" || len(got.Availability) != 1 {
		t.Errorf("unexpected profile: %+v", got)
	}
}

func TestBuildDashboard(t *testing.T) {
	at := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	links := &fakeLinks{
		patients: []link.Link{{ID: "l1"}, {ID: "l2"}},
		pending:  []link.Link{{ID: "l3"}},
	}
	appts := &fakeAppointments{appts: []appointment.Appointment{
		{ID: "a1", ScheduledAt: at.Add(2 * time.Hour), Status: appointment.StatusConfirmed},
		{ID: "a2", ScheduledAt: at.Add(26 * time.Hour), Status: appointment.StatusPending},
		{ID: "a3", ScheduledAt: at.Add(3 * time.Hour), Status: appointment.StatusCancelled},
		{ID: "a4", ScheduledAt: at.Add(-time.Hour), Status: appointment.StatusUrgent},
	}}
	s := newTestService(t, links, appts)

	d := s.BuildDashboard("d1", at)
	if d.TotalPatients != 2 {
		t.Errorf("TotalPatients = %d, want 2", d.TotalPatients)
	}
	if len(d.PendingRequests) != 1 {
		t.Errorf("PendingRequests = %d, want 1", len(d.PendingRequests))
	}
	// a1 and a4 fall inside today; the cancelled a3 is excluded.
	if len(d.TodayAppointments) != 2 {
		t.Errorf("TodayAppointments = %+v, want a1 and a4", d.TodayAppointments)
	}
	if len(d.PendingAppointments) != 1 || d.PendingAppointments[0].ID != "a2" {
		t.Errorf("PendingAppointments = %+v, want a2", d.PendingAppointments)
	}
	if len(d.UrgentAppointments) != 1 || d.UrgentAppointments[0].ID != "a4" {
		t.Errorf("UrgentAppointments = %+v, want a4", d.UrgentAppointments)
	}
}

func TestService_PersistsAcrossRestart(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()

	s1, _ := NewService(ctx, store, &fakeLinks{}, &fakeAppointments{}, zerolog.Nop())
	s1.UpsertProfile(ctx, Profile{DoctorID: "d1", ClinicName: "AMMA Clinic"})

	s2, err := NewService(ctx, store, &fakeLinks{}, &fakeAppointments{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := s2.GetProfile("d1")
	if !ok || p.ClinicName != "AMMA Clinic" {
		t.Errorf("state not restored: %+v %v", p, ok)
	}
}
