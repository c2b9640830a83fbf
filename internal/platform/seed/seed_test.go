package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/doctor"
	"github.com/amma-health/portal/internal/domain/identity"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/domain/patient"
	"github.com/amma-health/portal/internal/platform/ai"
	"github.com/amma-health/portal/internal/platform/auth"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

// noopAI satisfies ai.Client; the seeder never calls it.
type noopAI struct{}

func (noopAI) MatchDoctorByName(context.Context, string, []ai.Candidate) ([]ai.Match, error) {
	return nil, nil
}
func (noopAI) MatchDoctorByCode(context.Context, string, []ai.Candidate) ([]ai.Match, error) {
	return nil, nil
}
func (noopAI) MatchPatient(context.Context, string, []ai.Candidate) ([]ai.Match, error) {
	return nil, nil
}
func (noopAI) GenerateHealthPrediction(context.Context, map[string]interface{}) (*ai.Prediction, error) {
	return nil, nil
}
func (noopAI) ResearchChat(context.Context, string) (string, error) { return "", nil }

func newPatientService(t *testing.T, store snapshot.Store, users *identity.Registry) *patient.Service {
	t.Helper()
	s, err := patient.NewService(context.Background(), store, noopAI{}, users, zerolog.Nop())
	if err != nil {
		t.Fatalf("patients: %v", err)
	}
	return s
}

func TestDemo(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	logger := zerolog.Nop()
	issuer := auth.NewIssuer([]byte("test"))

	users, err := identity.NewRegistry(ctx, store, issuer, logger)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	links, err := link.NewRegistry(ctx, store, logger)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	appts, err := appointment.NewService(ctx, store, logger)
	if err != nil {
		t.Fatalf("appointments: %v", err)
	}
	patients := newPatientService(t, store, users)
	doctors, err := doctor.NewService(ctx, store, links, appts, logger)
	if err != nil {
		t.Fatalf("doctors: %v", err)
	}

	svcs := Services{Users: users, Links: links, Appointments: appts, Patients: patients, Doctors: doctors}
	if err := Demo(ctx, svcs, logger); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	doctorsList := users.Doctors()
	if len(doctorsList) != 2 {
		t.Fatalf("expected 2 demo doctors, got %d", len(doctorsList))
	}
	for _, d := range doctorsList {
		if len(d.DoctorCode) != 4 {
			t.Errorf("doctor %s missing 4-digit code", d.Name)
		}
	}

	// Demo accounts can log in with the shared password.
	if _, _, err := users.Login(ctx, "priya@demo.amma.health", DemoPassword); err != nil {
		t.Errorf("demo login failed: %v", err)
	}

	// One accepted link, one still pending.
	var pat identity.User
	for _, u := range users.All() {
		if u.Role == identity.RolePatient {
			pat = u
		}
	}
	if got := links.PatientDoctors(pat.ID); len(got) != 1 {
		t.Errorf("expected 1 accepted link, got %d", len(got))
	}
	pending := 0
	for _, l := range links.All() {
		if l.Status == link.StatusPending {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("expected 1 pending link, got %d", pending)
	}

	if got := appts.ForPatient(pat.ID); len(got) != 2 {
		t.Errorf("expected 2 seeded appointments, got %d", len(got))
	}

	// Re-seeding must not duplicate anything.
	if err := Demo(ctx, svcs, logger); err != nil {
		t.Fatalf("re-seed failed: %v", err)
	}
	if got := users.Doctors(); len(got) != 2 {
		t.Errorf("re-seed duplicated doctors: %d", len(got))
	}
}

func TestNewDataset(t *testing.T) {
	d := NewDataset(200)
	records := d.AnonymizedRecords()
	if len(records) != 200 {
		t.Fatalf("expected 200 records, got %d", len(records))
	}

	// Deterministic: a second dataset from the same seed is identical.
	again := NewDataset(200).AnonymizedRecords()
	for i := range records {
		if records[i].ID != again[i].ID || records[i].Age != again[i].Age {
			t.Fatalf("dataset not deterministic at %d", i)
		}
	}

	for _, r := range records {
		if r.Age < 18 || r.Age > 87 {
			t.Errorf("age out of range: %d", r.Age)
		}
		if r.AgeGroup == "" || r.Gender == "" || r.Region == "" {
			t.Errorf("incomplete record: %+v", r)
		}
	}
}
