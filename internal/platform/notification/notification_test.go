package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(context.Background(), snapshot.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestPushAndForUser(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.Push(ctx, "u1", TypeSystem, "first", "oldest", nil)
	s.Push(ctx, "u1", TypeSystem, "second", "newest", nil)
	s.Push(ctx, "u2", TypeSystem, "other", "other user", nil)

	list := s.ForUser("u1")
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].Title != "second" {
		t.Errorf("expected newest first, got %s", list[0].Title)
	}
	if len(s.ForUser("u2")) != 1 {
		t.Error("notifications leaked across users")
	}
}

func TestMarkRead(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	n := s.Push(ctx, "u1", TypePrediction, "risk", "new prediction available", nil)

	if !s.MarkRead(ctx, "u1", n.ID) {
		t.Fatal("expected mark read to succeed")
	}
	got := s.ForUser("u1")[0]
	if !got.IsRead || got.ReadAt == nil {
		t.Errorf("notification not marked read: %+v", got)
	}

	if s.MarkRead(ctx, "u1", "nonexistent") {
		t.Error("expected mark read to fail for unknown id")
	}
}

func TestClearAll(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	s.Push(ctx, "u1", TypeSystem, "a", "b", nil)
	s.ClearAll(ctx, "u1")
	if len(s.ForUser("u1")) != 0 {
		t.Error("expected no notifications after clear")
	}
}

func TestService_PersistsAcrossRestart(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()

	s1, _ := NewService(ctx, store, zerolog.Nop())
	s1.Push(ctx, "u1", TypeSystem, "kept", "should survive restart", nil)

	s2, err := NewService(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s2.ForUser("u1"); len(got) != 1 || got[0].Title != "kept" {
		t.Errorf("state not restored: %+v", got)
	}
}

func TestEvents_LinkLifecycle(t *testing.T) {
	s := newTestService(t)
	ev := NewEvents(s)
	ctx := context.Background()

	l := link.Link{ID: "l1", PatientID: "p1", PatientName: "Priya", DoctorID: "d1", DoctorName: "Dr. Anand"}
	ev.LinkRequested(ctx, l)
	ev.LinkAccepted(ctx, l)

	doctorSide := s.ForUser("d1")
	if len(doctorSide) != 1 || doctorSide[0].Type != TypeDoctorLinked {
		t.Errorf("unexpected doctor notifications: %+v", doctorSide)
	}
	patientSide := s.ForUser("p1")
	if len(patientSide) != 1 || patientSide[0].Data["doctor_id"] != "d1" {
		t.Errorf("unexpected patient notifications: %+v", patientSide)
	}
}

func TestEvents_AppointmentLifecycle(t *testing.T) {
	s := newTestService(t)
	ev := NewEvents(s)
	ctx := context.Background()

	a := appointment.Appointment{
		ID: "a1", DoctorID: "d1", PatientID: "p1",
		ScheduledAt: time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		Status:      appointment.StatusConfirmed,
	}
	ev.AppointmentBooked(ctx, a)
	ev.AppointmentUpdated(ctx, a)

	if got := s.ForUser("d1"); len(got) != 1 || got[0].Type != TypeAppointment {
		t.Errorf("unexpected doctor notifications: %+v", got)
	}
	if got := s.ForUser("p1"); len(got) != 1 || got[0].Data["status"] != "confirmed" {
		t.Errorf("unexpected patient notifications: %+v", got)
	}
}
