package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/auth"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), snapshot.NewMemoryStore(), auth.NewIssuer([]byte("test-secret")), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	u, token, err := r.Register(ctx, RegisterInput{
		Email: "priya@example.com", Password: "s3cret", Name: "Priya", Role: RolePatient,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if token == "" || u.ID == "" {
		t.Fatalf("expected token and id, got %+v token=%q", u, token)
	}
	if u.PasswordHash != "" {
		t.Error("password hash leaked in returned user")
	}

	got, token2, err := r.Login(ctx, "Priya@Example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.ID != u.ID || token2 == "" {
		t.Errorf("login returned wrong user: %+v", got)
	}

	if _, _, err := r.Login(ctx, "priya@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := r.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	in := RegisterInput{Email: "dup@example.com", Password: "p", Name: "First", Role: RolePatient}
	if _, _, err := r.Register(ctx, in); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	in.Name = "Second"
	if _, _, err := r.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_UnknownRole(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "p", Name: "X", Role: Role("wizard"),
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestDoctorCodeAssignment(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	d1, _, err := r.Register(ctx, RegisterInput{
		Email: "anand@example.com", Password: "p", Name: "Dr. Anand", Role: RoleDoctor, Specialty: "Cardiology",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(d1.DoctorCode) != 4 {
		t.Fatalf("expected 4-digit doctor code, got %q", d1.DoctorCode)
	}

	p, _, _ := r.Register(ctx, RegisterInput{
		Email: "pat@example.com", Password: "p", Name: "Pat", Role: RolePatient,
	})
	if p.DoctorCode != "" {
		t.Errorf("patient should not get a doctor code, got %q", p.DoctorCode)
	}

	got, ok := r.DoctorByCode(d1.DoctorCode)
	if !ok || got.ID != d1.ID {
		t.Errorf("DoctorByCode(%s) = %+v, %v", d1.DoctorCode, got, ok)
	}
	if _, ok := r.DoctorByCode("this-is-not-a-code"); ok {
		t.Error("expected no match for bogus code")
	}
}

func TestDoctors_OnlyDoctors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	r.Register(ctx, RegisterInput{Email: "d@example.com", Password: "p", Name: "Doc", Role: RoleDoctor})
	r.Register(ctx, RegisterInput{Email: "p@example.com", Password: "p", Name: "Pat", Role: RolePatient})
	r.Register(ctx, RegisterInput{Email: "r@example.com", Password: "p", Name: "Res", Role: RoleResearcher})

	doctors := r.Doctors()
	if len(doctors) != 1 || doctors[0].Name != "Doc" {
		t.Errorf("unexpected doctor list: %+v", doctors)
	}
}

func TestRegistry_PersistsAcrossRestart(t *testing.T) {
	store := snapshot.NewMemoryStore()
	issuer := auth.NewIssuer([]byte("test-secret"))
	ctx := context.Background()

	r1, _ := NewRegistry(ctx, store, issuer, zerolog.Nop())
	u, _, err := r1.Register(ctx, RegisterInput{Email: "keep@example.com", Password: "p", Name: "Keep", Role: RolePatient})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	r2, err := NewRegistry(ctx, store, issuer, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r2.Get(u.ID)
	if !ok || got.Email != "keep@example.com" {
		t.Errorf("state not restored: %+v %v", got, ok)
	}
	// The restored hash must still verify the original password.
	if _, _, err := r2.Login(ctx, "keep@example.com", "p"); err != nil {
		t.Errorf("login after restart failed: %v", err)
	}
}
