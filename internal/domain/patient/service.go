package patient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/identity"
	"github.com/amma-health/portal/internal/platform/ai"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "patients"
	snapshotVersion = 5

	// predictionValidity is how long a generated assessment stays
	// actionable before the UI greys it out.
	predictionValidity = 30 * 24 * time.Hour
)

var ErrNotFound = errors.New("not found")

// DoctorDirectory supplies the candidate set for trusted-doctor
// resolution. The identity registry implements it.
type DoctorDirectory interface {
	Doctors() []identity.User
}

// Notifier receives prediction events. A nil Notifier disables
// fan-out.
type Notifier interface {
	PredictionReady(ctx context.Context, p Prediction)
}

type serviceState struct {
	Vaults map[string]*Vault `json:"vaults"`
}

// Service owns every patient vault. All access goes through its
// methods; every mutation persists through the snapshot store.
type Service struct {
	mu       sync.RWMutex
	vaults   map[string]*Vault
	store    snapshot.Store
	ai       ai.Client
	doctors  DoctorDirectory
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService loads persisted vaults; a missing or stale snapshot
// starts empty.
func NewService(ctx context.Context, store snapshot.Store, aiClient ai.Client, doctors DoctorDirectory, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		vaults:  make(map[string]*Vault),
		store:   store,
		ai:      aiClient,
		doctors: doctors,
		logger:  logger.With().Str("component", "patient_service").Logger(),
		now:     time.Now,
	}
	var state serviceState
	err := snapshot.LoadState(ctx, store, snapshotName, snapshotVersion, &state)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		// fresh state
	case err != nil:
		return nil, err
	default:
		if state.Vaults != nil {
			s.vaults = state.Vaults
		}
	}
	return s, nil
}

// SetNotifier wires prediction fan-out.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// vault returns the patient's vault, creating it on first touch.
// Caller holds the write lock.
func (s *Service) vault(patientID string) *Vault {
	v, ok := s.vaults[patientID]
	if !ok {
		v = &Vault{Profile: Profile{PatientID: patientID}}
		s.vaults[patientID] = v
	}
	return v
}

// GetVault returns a copy of the patient's vault.
func (s *Service) GetVault(patientID string) (Vault, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaults[patientID]
	if !ok {
		return Vault{}, false
	}
	return *v, true
}

// UpsertProfile replaces the patient's profile summary.
func (s *Service) UpsertProfile(ctx context.Context, p Profile) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(p.PatientID)
	p.UpdatedAt = s.now()
	v.Profile = p
	s.persist(ctx)
	return p
}

// AddFamilyMember stores a dependent under the patient's vault.
func (s *Service) AddFamilyMember(ctx context.Context, patientID string, m FamilyMember) FamilyMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	m.ID = uuid.New().String()
	m.PatientID = patientID
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	v.FamilyMembers = append(v.FamilyMembers, m)
	s.persist(ctx)
	return m
}

// FamilyMemberPatch carries the fields an update may change.
type FamilyMemberPatch struct {
	FirstName         *string    `json:"first_name,omitempty"`
	LastName          *string    `json:"last_name,omitempty"`
	Relationship      *string    `json:"relationship,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            *string    `json:"gender,omitempty"`
	BloodGroup        *string    `json:"blood_group,omitempty"`
	Allergies         *[]string  `json:"allergies,omitempty"`
	ChronicConditions *[]string  `json:"chronic_conditions,omitempty"`
	IsPrimary         *bool      `json:"is_primary,omitempty"`
}

// UpdateFamilyMember applies a partial update to the dependent.
func (s *Service) UpdateFamilyMember(ctx context.Context, patientID, id string, patch FamilyMemberPatch) (FamilyMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.FamilyMembers {
		if v.FamilyMembers[i].ID != id {
			continue
		}
		m := &v.FamilyMembers[i]
		if patch.FirstName != nil {
			m.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			m.LastName = *patch.LastName
		}
		if patch.Relationship != nil {
			m.Relationship = *patch.Relationship
		}
		if patch.DateOfBirth != nil {
			m.DateOfBirth = *patch.DateOfBirth
		}
		if patch.Gender != nil {
			m.Gender = *patch.Gender
		}
		if patch.BloodGroup != nil {
			m.BloodGroup = *patch.BloodGroup
		}
		if patch.Allergies != nil {
			m.Allergies = *patch.Allergies
		}
		if patch.ChronicConditions != nil {
			m.ChronicConditions = *patch.ChronicConditions
		}
		if patch.IsPrimary != nil {
			m.IsPrimary = *patch.IsPrimary
		}
		m.UpdatedAt = s.now()
		s.persist(ctx)
		return *m, nil
	}
	return FamilyMember{}, fmt.Errorf("family member %s: %w", id, ErrNotFound)
}

// RemoveFamilyMember deletes the dependent and the records filed
// under them.
func (s *Service) RemoveFamilyMember(ctx context.Context, patientID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.FamilyMembers {
		if v.FamilyMembers[i].ID != id {
			continue
		}
		v.FamilyMembers = append(v.FamilyMembers[:i], v.FamilyMembers[i+1:]...)
		kept := v.MedicalRecords[:0]
		for _, rec := range v.MedicalRecords {
			if rec.FamilyMemberID != id {
				kept = append(kept, rec)
			}
		}
		v.MedicalRecords = kept
		s.persist(ctx)
		return true
	}
	return false
}

// AddMedicalRecord files a document in the vault.
func (s *Service) AddMedicalRecord(ctx context.Context, patientID string, rec MedicalRecord) MedicalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	rec.ID = uuid.New().String()
	rec.PatientID = patientID
	rec.CreatedAt = s.now()
	if rec.RecordDate.IsZero() {
		rec.RecordDate = rec.CreatedAt
	}
	v.MedicalRecords = append(v.MedicalRecords, rec)
	s.persist(ctx)
	return rec
}

// RemoveMedicalRecord deletes a document from the vault.
func (s *Service) RemoveMedicalRecord(ctx context.Context, patientID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.MedicalRecords {
		if v.MedicalRecords[i].ID == id {
			v.MedicalRecords = append(v.MedicalRecords[:i], v.MedicalRecords[i+1:]...)
			s.persist(ctx)
			return true
		}
	}
	return false
}

// AddTrustedDoctor stores a free-form trusted-doctor entry.
func (s *Service) AddTrustedDoctor(ctx context.Context, patientID string, d TrustedDoctor) TrustedDoctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	d.ID = uuid.New().String()
	v.TrustedDoctors = append(v.TrustedDoctors, d)
	s.persist(ctx)
	return d
}

// TrustedDoctorPatch carries the fields an update may change.
type TrustedDoctorPatch struct {
	Name      *string `json:"name,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Clinic    *string `json:"clinic,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	DoctorID  *string `json:"doctor_id,omitempty"`
}

// UpdateTrustedDoctor applies a partial update to the entry.
func (s *Service) UpdateTrustedDoctor(ctx context.Context, patientID, id string, patch TrustedDoctorPatch) (TrustedDoctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.TrustedDoctors {
		if v.TrustedDoctors[i].ID != id {
			continue
		}
		d := &v.TrustedDoctors[i]
		if patch.Name != nil {
			d.Name = *patch.Name
		}
		if patch.Specialty != nil {
			d.Specialty = *patch.Specialty
		}
		if patch.Clinic != nil {
			d.Clinic = *patch.Clinic
		}
		if patch.Phone != nil {
			d.Phone = *patch.Phone
		}
		if patch.Email != nil {
			d.Email = *patch.Email
		}
		if patch.DoctorID != nil {
			d.DoctorID = *patch.DoctorID
		}
		s.persist(ctx)
		return *d, nil
	}
	return TrustedDoctor{}, fmt.Errorf("trusted doctor %s: %w", id, ErrNotFound)
}

// RemoveTrustedDoctor deletes the entry.
func (s *Service) RemoveTrustedDoctor(ctx context.Context, patientID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.TrustedDoctors {
		if v.TrustedDoctors[i].ID == id {
			v.TrustedDoctors = append(v.TrustedDoctors[:i], v.TrustedDoctors[i+1:]...)
			s.persist(ctx)
			return true
		}
	}
	return false
}

// ResolveTrustedDoctor matches a trusted-doctor entry against the
// platform's doctor directory, by 4-digit code when the query looks
// like one and by name otherwise. On a match the entry caches the
// platform doctor id so a link request can follow.
func (s *Service) ResolveTrustedDoctor(ctx context.Context, patientID, id, query string) (TrustedDoctor, error) {
	s.mu.RLock()
	var entry *TrustedDoctor
	if v, ok := s.vaults[patientID]; ok {
		for i := range v.TrustedDoctors {
			if v.TrustedDoctors[i].ID == id {
				e := v.TrustedDoctors[i]
				entry = &e
				break
			}
		}
	}
	s.mu.RUnlock()
	if entry == nil {
		return TrustedDoctor{}, fmt.Errorf("trusted doctor %s: %w", id, ErrNotFound)
	}
	if query == "" {
		query = entry.Name
	}

	candidates := doctorCandidates(s.doctors.Doctors())
	var (
		matches []ai.Match
		err     error
	)
	if isDoctorCode(query) {
		matches, err = s.ai.MatchDoctorByCode(ctx, query, candidates)
	} else {
		matches, err = s.ai.MatchDoctorByName(ctx, query, candidates)
	}
	if err != nil {
		return TrustedDoctor{}, fmt.Errorf("match doctor: %w", err)
	}
	if len(matches) == 0 {
		return TrustedDoctor{}, fmt.Errorf("doctor %q: %w", query, ErrNotFound)
	}

	best := matches[0]
	doctorID := best.ID
	return s.UpdateTrustedDoctor(ctx, patientID, id, TrustedDoctorPatch{DoctorID: &doctorID})
}

// AddPrediction files an externally produced assessment.
func (s *Service) AddPrediction(ctx context.Context, patientID string, p Prediction) Prediction {
	s.mu.Lock()
	v := s.vault(patientID)
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.PatientID = patientID
	if p.PredictedAt.IsZero() {
		p.PredictedAt = s.now()
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = p.PredictedAt.Add(predictionValidity)
	}
	v.Predictions = append(v.Predictions, p)
	s.persist(ctx)
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.PredictionReady(ctx, p)
	}
	return p
}

// GeneratePrediction asks the AI service for a risk assessment built
// from the vault's profile and records, then stores it.
func (s *Service) GeneratePrediction(ctx context.Context, patientID, familyMemberID string) (Prediction, error) {
	s.mu.RLock()
	v, ok := s.vaults[patientID]
	var doc map[string]interface{}
	if ok {
		doc = predictionDocument(v, familyMemberID)
	}
	s.mu.RUnlock()
	if !ok {
		return Prediction{}, fmt.Errorf("patient %s: %w", patientID, ErrNotFound)
	}

	result, err := s.ai.GenerateHealthPrediction(ctx, doc)
	if err != nil {
		return Prediction{}, fmt.Errorf("generate prediction: %w", err)
	}

	p := Prediction{
		FamilyMemberID:   familyMemberID,
		PredictionType:   result.PredictionType,
		Description:      result.Description,
		Severity:         result.Severity,
		ConfidenceScore:  result.ConfidenceScore,
		RiskFactors:      result.RiskFactors,
		Recommendations:  result.Recommendations,
		SuggestedActions: result.SuggestedActions,
	}
	return s.AddPrediction(ctx, patientID, p), nil
}

// MarkPredictionRead flags the assessment as seen.
func (s *Service) MarkPredictionRead(ctx context.Context, patientID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.Predictions {
		if v.Predictions[i].ID == id {
			now := s.now()
			v.Predictions[i].IsRead = true
			v.Predictions[i].ReadAt = &now
			s.persist(ctx)
			return true
		}
	}
	return false
}

// MarkPredictionActioned records that the patient acted on the
// assessment, optionally tying it to the appointment they booked.
func (s *Service) MarkPredictionActioned(ctx context.Context, patientID, id, appointmentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vault(patientID)
	for i := range v.Predictions {
		if v.Predictions[i].ID == id {
			v.Predictions[i].IsActioned = true
			if appointmentID != "" {
				v.Predictions[i].AppointmentID = appointmentID
			}
			s.persist(ctx)
			return true
		}
	}
	return false
}

// Reset drops all vault state. Used by the seeder.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults = make(map[string]*Vault)
	s.persist(ctx)
}

// predictionDocument flattens the vault into the document shape the
// AI prompt expects. No file contents are sent, only metadata.
func predictionDocument(v *Vault, familyMemberID string) map[string]interface{} {
	doc := map[string]interface{}{
		"blood_group":        v.Profile.BloodGroup,
		"allergies":          v.Profile.Allergies,
		"chronic_conditions": v.Profile.ChronicConditions,
	}
	var records []map[string]interface{}
	for _, rec := range v.MedicalRecords {
		if familyMemberID != "" && rec.FamilyMemberID != familyMemberID {
			continue
		}
		records = append(records, map[string]interface{}{
			"document_type": rec.DocumentType,
			"title":         rec.Title,
			"diagnosis":     rec.Diagnosis,
			"record_date":   rec.RecordDate,
		})
	}
	doc["records"] = records
	return doc
}

func doctorCandidates(doctors []identity.User) []ai.Candidate {
	out := make([]ai.Candidate, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, ai.Candidate{
			ID:        d.ID,
			Name:      d.Name,
			Specialty: d.Specialty,
			Code:      d.DoctorCode,
		})
	}
	return out
}

// isDoctorCode reports whether the query is a bare 4-digit code.
func isDoctorCode(q string) bool {
	if len(q) != 4 {
		return false
	}
	for _, r := range q {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Service) persist(ctx context.Context) {
	state := serviceState{Vaults: s.vaults}
	if err := snapshot.SaveState(ctx, s.store, snapshotName, snapshotVersion, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist patient state")
	}
}
