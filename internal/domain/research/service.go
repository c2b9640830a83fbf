package research

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/platform/ai"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "research"
	snapshotVersion = 5
)

var ErrNotFound = errors.New("not found")

// RecordSource supplies the anonymized cohort rows queries run over.
type RecordSource interface {
	AnonymizedRecords() []AnonymizedRecord
}

type serviceState struct {
	Queries  []Query       `json:"queries"`
	Sessions []ChatSession `json:"sessions"`
	Audit    []AuditEntry  `json:"audit"`
}

// Service owns research queries, chat sessions and the audit trail.
type Service struct {
	mu       sync.RWMutex
	queries  []Query
	sessions []ChatSession
	audit    []AuditEntry
	store    snapshot.Store
	ai       ai.Client
	source   RecordSource
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService loads persisted research state; a missing or stale
// snapshot starts empty.
func NewService(ctx context.Context, store snapshot.Store, aiClient ai.Client, source RecordSource, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		store:  store,
		ai:     aiClient,
		source: source,
		logger: logger.With().Str("component", "research_service").Logger(),
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
		s.queries = state.Queries
		s.sessions = state.Sessions
		s.audit = state.Audit
	}
	return s, nil
}

// SubmitQuery files the question, runs it over the anonymized
// dataset and returns the completed (or failed) record. Runs are
// synchronous; the status lifecycle is still recorded so the history
// reads the same as a queued system's would.
func (s *Service) SubmitQuery(ctx context.Context, researcherID, question string, filters Filter) Query {
	q := Query{
		ID:           uuid.New().String(),
		ResearcherID: researcherID,
		Question:     question,
		Filters:      filters,
		Status:       StatusPending,
		SubmittedAt:  s.now(),
	}

	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.appendAudit(researcherID, "query_submitted", q.ID, question)
	s.mu.Unlock()

	started := s.now()
	cohort := applyFilters(s.source.AnonymizedRecords(), filters)
	result := summarize(cohort, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queries {
		if s.queries[i].ID != q.ID {
			continue
		}
		s.queries[i].Status = StatusCompleted
		s.queries[i].Result = &result
		s.queries[i].ExecutedAt = started
		s.queries[i].Duration = s.now().Sub(started)
		s.appendAudit(researcherID, "query_executed", q.ID,
			fmt.Sprintf("%d records matched", result.RecordCount))
		s.persist(ctx)
		return s.queries[i]
	}
	return q
}

// Queries lists the researcher's history, newest first. An empty
// status matches everything.
func (s *Service) Queries(researcherID string, status QueryStatus) []Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Query
	for _, q := range s.queries {
		if q.ResearcherID != researcherID {
			continue
		}
		if status != "" && q.Status != status {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

// GetQuery returns one query record.
func (s *Service) GetQuery(id string) (Query, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.queries {
		if q.ID == id {
			return q, true
		}
	}
	return Query{}, false
}

// ExportCSV writes the query's anonymized rows as CSV. The export is
// itself an audited action.
func (s *Service) ExportCSV(ctx context.Context, researcherID, queryID string, w io.Writer) error {
	q, ok := s.GetQuery(queryID)
	if !ok {
		return fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	if q.Status != StatusCompleted || q.Result == nil {
		return fmt.Errorf("query %s has no results to export", queryID)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "age_group", "gender", "region", "blood_group", "conditions", "record_date"}); err != nil {
		return err
	}
	for _, r := range q.Result.Records {
		row := []string{
			r.ID, r.AgeGroup, r.Gender, r.Region, r.BloodGroup,
			strings.Join(r.Conditions, ";"),
			r.RecordDate.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	s.mu.Lock()
	s.appendAudit(researcherID, "query_exported", queryID,
		fmt.Sprintf("%d rows as csv", len(q.Result.Records)))
	s.persist(ctx)
	s.mu.Unlock()
	return nil
}

// CreateChatSession opens a fresh assistant conversation.
func (s *Service) CreateChatSession(ctx context.Context, researcherID string) ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session := ChatSession{
		ID:           uuid.New().String(),
		ResearcherID: researcherID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.sessions = append(s.sessions, session)
	s.persist(ctx)
	return session
}

// Sessions lists the researcher's conversations, newest first.
func (s *Service) Sessions(researcherID string) []ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ChatSession
	for _, sess := range s.sessions {
		if sess.ResearcherID == researcherID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// SendMessage appends the researcher's question and the assistant's
// answer to the session. The AI round trip happens outside the lock.
func (s *Service) SendMessage(ctx context.Context, sessionID, content string) (ChatSession, error) {
	s.mu.RLock()
	found := false
	var researcherID string
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			found = true
			researcherID = sess.ResearcherID
			break
		}
	}
	s.mu.RUnlock()
	if !found {
		return ChatSession{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	answer, err := s.ai.ResearchChat(ctx, content)
	if err != nil {
		return ChatSession{}, fmt.Errorf("research chat: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i := range s.sessions {
		if s.sessions[i].ID != sessionID {
			continue
		}
		s.sessions[i].Messages = append(s.sessions[i].Messages,
			ChatMessage{ID: uuid.New().String(), Role: "user", Content: content, CreatedAt: now},
			ChatMessage{ID: uuid.New().String(), Role: "assistant", Content: answer, CreatedAt: now},
		)
		s.sessions[i].UpdatedAt = now
		s.appendAudit(researcherID, "chat_message", "", content)
		s.persist(ctx)
		return s.sessions[i], nil
	}
	return ChatSession{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
}

// AuditLog lists the researcher's actions, newest first.
func (s *Service) AuditLog(researcherID string) []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AuditEntry
	for _, e := range s.audit {
		if e.ResearcherID == researcherID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Reset drops all research state. Used by the seeder.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = nil
	s.sessions = nil
	s.audit = nil
	s.persist(ctx)
}

// appendAudit assumes the caller holds the write lock.
func (s *Service) appendAudit(researcherID, action, queryID, details string) {
	s.audit = append(s.audit, AuditEntry{
		ID:           uuid.New().String(),
		ResearcherID: researcherID,
		Action:       action,
		QueryID:      queryID,
		Details:      details,
		Timestamp:    s.now(),
	})
}

func applyFilters(records []AnonymizedRecord, f Filter) []AnonymizedRecord {
	var out []AnonymizedRecord
	for _, r := range records {
		if f.AgeGroup != nil && (r.Age < f.AgeGroup.Min || r.Age > f.AgeGroup.Max) {
			continue
		}
		if len(f.Gender) > 0 && !containsFold(f.Gender, r.Gender) {
			continue
		}
		if len(f.Region) > 0 && !containsFold(f.Region, r.Region) {
			continue
		}
		if len(f.BloodGroup) > 0 && !containsFold(f.BloodGroup, r.BloodGroup) {
			continue
		}
		if len(f.Conditions) > 0 && !hasAnyCondition(r.Conditions, f.Conditions) {
			continue
		}
		if f.TimePeriod != nil {
			if r.RecordDate.Before(f.TimePeriod.Start) || r.RecordDate.After(f.TimePeriod.End) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// summarize computes headline statistics over the matched cohort.
func summarize(cohort []AnonymizedRecord, question string) Result {
	stats := map[string]float64{
		"total": float64(len(cohort)),
	}
	for _, r := range cohort {
		if r.Gender != "" {
			stats["gender_"+strings.ToLower(r.Gender)]++
		}
		for _, c := range r.Conditions {
			stats["condition_"+strings.ToLower(strings.ReplaceAll(c, " ", "_"))]++
		}
	}
	return Result{
		Summary:     strconv.Itoa(len(cohort)) + " anonymized records matched: " + question,
		Statistics:  stats,
		RecordCount: len(cohort),
		Records:     cohort,
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func hasAnyCondition(have, want []string) bool {
	for _, w := range want {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}

// persist assumes the caller holds the write lock.
func (s *Service) persist(ctx context.Context) {
	state := serviceState{Queries: s.queries, Sessions: s.sessions, Audit: s.audit}
	if err := snapshot.SaveState(ctx, s.store, snapshotName, snapshotVersion, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist research state")
	}
}
