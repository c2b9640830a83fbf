// Package ai is the boundary to the hosted language-model service.
// The portal consumes a handful of request shapes (doctor/patient
// matching, health prediction, research chat) and must tolerate
// arbitrary latency and failure: a failed call never leaves partial
// domain state behind.
package ai

import "context"

// Candidate is one platform account offered to the matching engine.
type Candidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty,omitempty"`
	Code        string `json:"code,omitempty"`
	Experience  int    `json:"years_of_experience,omitempty"`
	BloodGroup  string `json:"blood_group,omitempty"`
}

// Match is one scored result from the matching engine.
type Match struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	MatchScore float64 `json:"matchScore"`
}

// Prediction is a structured health-risk assessment.
type Prediction struct {
	PredictionType   string   `json:"predictionType"`
	Description      string   `json:"description"`
	Severity         string   `json:"severity"`
	ConfidenceScore  float64  `json:"confidenceScore"`
	RiskFactors      []string `json:"riskFactors"`
	Recommendations  []string `json:"recommendations"`
	SuggestedActions []string `json:"suggestedActions"`
}

// Client is the AI collaborator surface the domain services depend on.
type Client interface {
	// MatchDoctorByName scores candidates against a free-text query.
	// An empty candidate list yields an empty result, not an error.
	MatchDoctorByName(ctx context.Context, query string, candidates []Candidate) ([]Match, error)
	// MatchDoctorByCode resolves a doctor's 4-digit code.
	MatchDoctorByCode(ctx context.Context, code string, candidates []Candidate) ([]Match, error)
	// MatchPatient scores patient candidates against a query.
	MatchPatient(ctx context.Context, query string, candidates []Candidate) ([]Match, error)
	// GenerateHealthPrediction produces a risk assessment from a
	// patient-data document.
	GenerateHealthPrediction(ctx context.Context, patientData map[string]interface{}) (*Prediction, error)
	// ResearchChat answers a researcher's natural-language question.
	ResearchChat(ctx context.Context, question string) (string, error)
}
