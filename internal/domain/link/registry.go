package link

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "links"
	snapshotVersion = 5
)

// Notifier receives link lifecycle events. The notification service
// implements it; a nil Notifier disables fan-out.
type Notifier interface {
	LinkAccepted(ctx context.Context, l Link)
	LinkRequested(ctx context.Context, l Link)
}

type registryState struct {
	Links []Link `json:"links"`
}

// Registry owns the full set of link records. All access goes through
// its methods; every mutation is synchronously persisted through the
// snapshot store.
type Registry struct {
	mu       sync.RWMutex
	links    []Link
	store    snapshot.Store
	logger   zerolog.Logger
	notifier Notifier
	now      func() time.Time
}

// NewRegistry loads any persisted link state from the store. A missing
// or stale snapshot starts the registry empty.
func NewRegistry(ctx context.Context, store snapshot.Store, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		logger: logger.With().Str("component", "link_registry").Logger(),
		now:    time.Now,
	}
	var state registryState
	err := snapshot.LoadState(ctx, store, snapshotName, snapshotVersion, &state)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		// fresh state
	case err != nil:
		return nil, err
	default:
		r.links = state.Links
	}
	return r, nil
}

// SetNotifier wires link event fan-out.
func (r *Registry) SetNotifier(n Notifier) { r.notifier = n }

// CreateLinkRequest inserts a pending link for the pair. A second
// request for the same pair is a no-op: duplicate requests are a
// common UI race (double click), not a caller bug, so idempotence
// takes priority over raising an error.
func (r *Registry) CreateLinkRequest(ctx context.Context, patientID, doctorID, patientName, doctorName string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := LinkID(patientID, doctorID)
	if r.indexOf(id) >= 0 {
		r.logger.Warn().Str("link_id", id).Msg("link already exists, request ignored")
		return OutcomeAlreadyExists
	}

	now := r.now()
	l := Link{
		ID:          id,
		PatientID:   patientID,
		PatientName: patientName,
		DoctorID:    doctorID,
		DoctorName:  doctorName,
		Status:      StatusPending,
		AccessLevel: AccessViewOnly,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	r.links = append(r.links, l)
	r.persist(ctx)
	if r.notifier != nil {
		r.notifier.LinkRequested(ctx, l)
	}
	return OutcomeApplied
}

// AcceptLink transitions a pending link to accepted and grants full
// access. Any other starting state leaves the registry unchanged.
func (r *Registry) AcceptLink(ctx context.Context, linkID string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(linkID)
	if i < 0 {
		r.logger.Warn().Str("link_id", linkID).Msg("accept rejected: link not found")
		return OutcomeNotFound
	}
	if r.links[i].Status != StatusPending {
		r.logger.Warn().Str("link_id", linkID).Str("status", string(r.links[i].Status)).
			Msg("accept rejected: link not pending")
		return OutcomeInvalidTransition
	}

	r.links[i].Status = StatusAccepted
	r.links[i].AccessLevel = AccessFull
	r.links[i].UpdatedAt = r.now()
	accepted := r.links[i]
	r.persist(ctx)
	if r.notifier != nil {
		r.notifier.LinkAccepted(ctx, accepted)
	}
	return OutcomeApplied
}

// DeclineLink transitions a pending link to declined. The access
// level is left as it was.
func (r *Registry) DeclineLink(ctx context.Context, linkID string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(linkID)
	if i < 0 {
		r.logger.Warn().Str("link_id", linkID).Msg("decline rejected: link not found")
		return OutcomeNotFound
	}
	if r.links[i].Status != StatusPending {
		r.logger.Warn().Str("link_id", linkID).Str("status", string(r.links[i].Status)).
			Msg("decline rejected: link not pending")
		return OutcomeInvalidTransition
	}

	r.links[i].Status = StatusDeclined
	r.links[i].UpdatedAt = r.now()
	r.persist(ctx)
	return OutcomeApplied
}

// Unlink removes the record entirely, whatever its status. This is
// irreversible; a later request for the same pair starts a fresh
// pending record.
func (r *Registry) Unlink(ctx context.Context, linkID string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(linkID)
	if i < 0 {
		return OutcomeNotFound
	}
	r.links = append(r.links[:i], r.links[i+1:]...)
	r.persist(ctx)
	return OutcomeApplied
}

// Get returns the link with the given id.
func (r *Registry) Get(linkID string) (Link, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(linkID)
	if i < 0 {
		return Link{}, false
	}
	return r.links[i], true
}

// PatientDoctors lists the patient's accepted links.
func (r *Registry) PatientDoctors(patientID string) []Link {
	return r.filter(func(l Link) bool {
		return l.PatientID == patientID && l.Status == StatusAccepted
	})
}

// DoctorPatients lists the doctor's accepted links.
func (r *Registry) DoctorPatients(doctorID string) []Link {
	return r.filter(func(l Link) bool {
		return l.DoctorID == doctorID && l.Status == StatusAccepted
	})
}

// PendingForDoctor lists requests awaiting the doctor's decision.
func (r *Registry) PendingForDoctor(doctorID string) []Link {
	return r.filter(func(l Link) bool {
		return l.DoctorID == doctorID && l.Status == StatusPending
	})
}

// All returns a copy of every link record.
func (r *Registry) All() []Link {
	return r.filter(func(Link) bool { return true })
}

// Reset drops all link state. Used on logout and by the seeder.
func (r *Registry) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = nil
	r.persist(ctx)
}

func (r *Registry) filter(keep func(Link) bool) []Link {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Link
	for _, l := range r.links {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// indexOf assumes the caller holds at least a read lock.
func (r *Registry) indexOf(linkID string) int {
	for i, l := range r.links {
		if l.ID == linkID {
			return i
		}
	}
	return -1
}

// persist writes the current state through the snapshot store. A
// failed write is logged and the in-memory state stays authoritative;
// callers treat mutations as fire-and-forget.
func (r *Registry) persist(ctx context.Context) {
	state := registryState{Links: r.links}
	if err := snapshot.SaveState(ctx, r.store, snapshotName, snapshotVersion, state); err != nil {
		r.logger.Error().Err(err).Msg("failed to persist link state")
	}
}
