// Package research is the researcher surface: anonymized cohort
// queries, an AI chat assistant and an audit trail of every access.
package research

import "time"

// QueryStatus tracks a query through its run.
type QueryStatus string

const (
	StatusPending   QueryStatus = "pending"
	StatusRunning   QueryStatus = "running"
	StatusCompleted QueryStatus = "completed"
	StatusFailed    QueryStatus = "failed"
)

// AgeRange bounds a cohort by age.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// TimeRange bounds a cohort by record date.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filter narrows the cohort a query runs over.
type Filter struct {
	AgeGroup   *AgeRange  `json:"age_group,omitempty"`
	Gender     []string   `json:"gender,omitempty"`
	Conditions []string   `json:"conditions,omitempty"`
	Region     []string   `json:"region,omitempty"`
	TimePeriod *TimeRange `json:"time_period,omitempty"`
	BloodGroup []string   `json:"blood_group,omitempty"`
}

// AnonymizedRecord is one de-identified cohort row. It carries no
// direct identifiers.
type AnonymizedRecord struct {
	ID         string    `json:"id"`
	AgeGroup   string    `json:"age_group"`
	Age        int       `json:"-"`
	Gender     string    `json:"gender"`
	Region     string    `json:"region"`
	BloodGroup string    `json:"blood_group,omitempty"`
	Conditions []string  `json:"conditions"`
	RecordDate time.Time `json:"record_date"`
}

// Result is what a completed query produced.
type Result struct {
	Summary     string             `json:"summary"`
	Statistics  map[string]float64 `json:"statistics"`
	RecordCount int                `json:"record_count"`
	Records     []AnonymizedRecord `json:"records,omitempty"`
}

// Query is one cohort question and its outcome.
type Query struct {
	ID           string        `json:"id"`
	ResearcherID string        `json:"researcher_id"`
	Question     string        `json:"question"`
	Filters      Filter        `json:"filters"`
	Status       QueryStatus   `json:"status"`
	Result       *Result       `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	ExecutedAt   time.Time     `json:"executed_at,omitempty"`
	Duration     time.Duration `json:"duration_ms,omitempty"`
}

// ChatMessage is one turn in an assistant session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession is one researcher conversation with the assistant.
type ChatSession struct {
	ID           string        `json:"id"`
	ResearcherID string        `json:"researcher_id"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AuditEntry records one researcher action against the dataset.
type AuditEntry struct {
	ID           string    `json:"id"`
	ResearcherID string    `json:"researcher_id"`
	Action       string    `json:"action"`
	QueryID      string    `json:"query_id,omitempty"`
	Details      string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
