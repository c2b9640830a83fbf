// Package notification delivers typed in-app notifications into
// per-user lists and adapts domain lifecycle events (link accepted,
// appointment booked) into those notifications.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "notifications"
	snapshotVersion = 5
)

// Type classifies a notification.
type Type string

const (
	TypePrediction   Type = "prediction"
	TypeAppointment  Type = "appointment"
	TypeRecordShared Type = "record_shared"
	TypeDoctorLinked Type = "doctor_linked"
	TypeSystem       Type = "system"
)

// Notification is one in-app message for a user.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
}

type serviceState struct {
	ByUser map[string][]Notification `json:"by_user"`
}

// Service owns the per-user notification lists.
type Service struct {
	mu     sync.RWMutex
	byUser map[string][]Notification
	store  snapshot.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(ctx context.Context, store snapshot.Store, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		byUser: make(map[string][]Notification),
		store:  store,
		logger: logger.With().Str("component", "notifications").Logger(),
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
		if state.ByUser != nil {
			s.byUser = state.ByUser
		}
	}
	return s, nil
}

// Push appends a notification to the user's list and returns it.
func (s *Service) Push(ctx context.Context, userID string, typ Type, title, message string, data map[string]string) Notification {
	n := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.byUser[userID] = append(s.byUser[userID], n)
	s.persist(ctx)
	s.mu.Unlock()
	return n
}

// ForUser returns a copy of the user's notifications, newest first.
func (s *Service) ForUser(userID string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byUser[userID]
	out := make([]Notification, len(list))
	for i := range list {
		out[len(list)-1-i] = list[i]
	}
	return out
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			now := s.now()
			list[i].IsRead = true
			list[i].ReadAt = &now
			s.persist(ctx)
			return true
		}
	}
	return false
}

// ClearAll drops every notification for the user.
func (s *Service) ClearAll(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
	s.persist(ctx)
}

// persist assumes the caller holds the write lock.
func (s *Service) persist(ctx context.Context) {
	state := serviceState{ByUser: s.byUser}
	if err := snapshot.SaveState(ctx, s.store, snapshotName, snapshotVersion, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist notification state")
	}
}
