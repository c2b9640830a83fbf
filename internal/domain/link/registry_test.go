package link

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/snapshot"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), snapshot.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestLinkID_Deterministic(t *testing.T) {
	a := LinkID("p1", "d1")
	b := LinkID("p1", "d1")
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}
}

func TestLinkID_NoDelimiterCollision(t *testing.T) {
	// Without length prefixes these two pairs would concatenate to the
	// same string.
	a := LinkID("p_1", "d")
	b := LinkID("p", "1_d")
	if a == b {
		t.Errorf("distinct pairs produced the same id: %s", a)
	}
}

func TestCreateLinkRequest_Idempotent(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if out := r.CreateLinkRequest(ctx, "p1", "d1", "Priya", "Dr. Anand"); out != OutcomeApplied {
		t.Fatalf("expected applied, got %v", out)
	}
	if out := r.CreateLinkRequest(ctx, "p1", "d1", "Priya", "Dr. Anand"); out != OutcomeAlreadyExists {
		t.Errorf("expected already_exists, got %v", out)
	}

	links := r.All()
	if len(links) != 1 {
		t.Fatalf("expected exactly one link, got %d", len(links))
	}
	l := links[0]
	if l.Status != StatusPending {
		t.Errorf("expected pending, got %s", l.Status)
	}
	if l.AccessLevel != AccessViewOnly {
		t.Errorf("expected view_only on creation, got %s", l.AccessLevel)
	}
}

func TestAcceptLink_SetsAccessLevel(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.CreateLinkRequest(ctx, "p1", "d1", "", "")
	id := LinkID("p1", "d1")
	if out := r.AcceptLink(ctx, id); out != OutcomeApplied {
		t.Fatalf("expected applied, got %v", out)
	}

	l, ok := r.Get(id)
	if !ok {
		t.Fatal("link missing after accept")
	}
	if l.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", l.Status)
	}
	if l.AccessLevel != AccessFull {
		t.Errorf("expected full_access, got %s", l.AccessLevel)
	}
}

func TestAcceptLink_GuardedByStatus(t *testing.T) {
	for _, status := range []Status{StatusAccepted, StatusDeclined} {
		r := newTestRegistry(t)
		ctx := context.Background()
		r.CreateLinkRequest(ctx, "p1", "d1", "", "")
		id := LinkID("p1", "d1")

		if status == StatusAccepted {
			r.AcceptLink(ctx, id)
		} else {
			r.DeclineLink(ctx, id)
		}

		before := r.All()
		if out := r.AcceptLink(ctx, id); out != OutcomeInvalidTransition {
			t.Errorf("status %s: expected invalid_transition, got %v", status, out)
		}
		after := r.All()
		if !reflect.DeepEqual(before, after) {
			t.Errorf("status %s: collection changed by rejected accept", status)
		}
	}
}

func TestAcceptLink_AbsentID(t *testing.T) {
	r := newTestRegistry(t)
	if out := r.AcceptLink(context.Background(), "nonexistent"); out != OutcomeNotFound {
		t.Errorf("expected not_found, got %v", out)
	}
}

func TestDeclineLink_KeepsAccessLevel(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	r.CreateLinkRequest(ctx, "p1", "d1", "", "")
	id := LinkID("p1", "d1")

	if out := r.DeclineLink(ctx, id); out != OutcomeApplied {
		t.Fatalf("expected applied, got %v", out)
	}
	l, _ := r.Get(id)
	if l.Status != StatusDeclined {
		t.Errorf("expected declined, got %s", l.Status)
	}
	if l.AccessLevel != AccessViewOnly {
		t.Errorf("decline must not change access level, got %s", l.AccessLevel)
	}
}

func TestUnlink_Unconditional(t *testing.T) {
	ctx := context.Background()
	for _, status := range []Status{StatusPending, StatusAccepted, StatusDeclined} {
		r := newTestRegistry(t)
		r.CreateLinkRequest(ctx, "p1", "d1", "", "")
		id := LinkID("p1", "d1")
		switch status {
		case StatusAccepted:
			r.AcceptLink(ctx, id)
		case StatusDeclined:
			r.DeclineLink(ctx, id)
		}

		if out := r.Unlink(ctx, id); out != OutcomeApplied {
			t.Errorf("status %s: expected applied, got %v", status, out)
		}
		if _, ok := r.Get(id); ok {
			t.Errorf("status %s: link still present after unlink", status)
		}
	}
}

func TestUnlink_AbsentID(t *testing.T) {
	r := newTestRegistry(t)
	if out := r.Unlink(context.Background(), "nonexistent"); out != OutcomeNotFound {
		t.Errorf("expected not_found, got %v", out)
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	id := LinkID("p1", "d1")

	r.CreateLinkRequest(ctx, "p1", "d1", "Priya", "Dr. Anand")
	l, ok := r.Get(id)
	if !ok || l.Status != StatusPending {
		t.Fatalf("expected pending link, got %+v ok=%v", l, ok)
	}

	r.AcceptLink(ctx, id)
	l, _ = r.Get(id)
	if l.Status != StatusAccepted || l.AccessLevel != AccessFull {
		t.Fatalf("expected accepted/full_access, got %+v", l)
	}

	r.Unlink(ctx, id)
	if _, ok := r.Get(id); ok {
		t.Fatal("link still present after unlink")
	}

	// Re-request starts fresh: no memory of the prior accept.
	if out := r.CreateLinkRequest(ctx, "p1", "d1", "", ""); out != OutcomeApplied {
		t.Fatalf("expected applied on re-request, got %v", out)
	}
	l, _ = r.Get(id)
	if l.Status != StatusPending || l.AccessLevel != AccessViewOnly {
		t.Errorf("re-request must start pending/view_only, got %+v", l)
	}
}

func TestQueries(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	// A: p1/d1 accepted, B: p1/d2 pending, C: p2/d1 accepted.
	r.CreateLinkRequest(ctx, "p1", "d1", "", "")
	r.AcceptLink(ctx, LinkID("p1", "d1"))
	r.CreateLinkRequest(ctx, "p1", "d2", "", "")
	r.CreateLinkRequest(ctx, "p2", "d1", "", "")
	r.AcceptLink(ctx, LinkID("p2", "d1"))

	ids := func(links []Link) map[string]bool {
		m := make(map[string]bool, len(links))
		for _, l := range links {
			m[l.ID] = true
		}
		return m
	}

	got := ids(r.PatientDoctors("p1"))
	if len(got) != 1 || !got[LinkID("p1", "d1")] {
		t.Errorf("PatientDoctors(p1) = %v", got)
	}

	got = ids(r.DoctorPatients("d1"))
	if len(got) != 2 || !got[LinkID("p1", "d1")] || !got[LinkID("p2", "d1")] {
		t.Errorf("DoctorPatients(d1) = %v", got)
	}

	if pending := r.PendingForDoctor("d1"); len(pending) != 0 {
		t.Errorf("PendingForDoctor(d1) should be empty, got %v", pending)
	}
	if pending := r.PendingForDoctor("d2"); len(pending) != 1 {
		t.Errorf("PendingForDoctor(d2) should have one entry, got %v", pending)
	}
}

func TestRegistry_PersistsAcrossRestart(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()

	r1, err := NewRegistry(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r1.CreateLinkRequest(ctx, "p1", "d1", "", "")
	r1.AcceptLink(ctx, LinkID("p1", "d1"))

	r2, err := NewRegistry(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, ok := r2.Get(LinkID("p1", "d1"))
	if !ok {
		t.Fatal("link not restored from snapshot")
	}
	if l.Status != StatusAccepted {
		t.Errorf("expected accepted after reload, got %s", l.Status)
	}
}

func TestAcceptLink_RefreshesUpdatedAt(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.CreateLinkRequest(ctx, "p1", "d1", "", "")
	r.now = func() time.Time { return base.Add(time.Hour) }
	r.AcceptLink(ctx, LinkID("p1", "d1"))

	l, _ := r.Get(LinkID("p1", "d1"))
	if !l.RequestedAt.Equal(base) {
		t.Errorf("requested_at changed: %v", l.RequestedAt)
	}
	if !l.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("updated_at not refreshed: %v", l.UpdatedAt)
	}
}
