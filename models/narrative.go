package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NarrativeState represents the review state of a narrative version
type NarrativeState string

const (
	StateDraft     NarrativeState = "DRAFT"
	StateSubmitted NarrativeState = "SUBMITTED"
	StateApproved  NarrativeState = "APPROVED"
	StateRejected  NarrativeState = "REJECTED"
	StateFiled     NarrativeState = "FILED"
)

// Terminal reports whether no further transitions leave the state.
// REJECTED is terminal for the version; the case continues with a new version.
func (s NarrativeState) Terminal() bool {
	return s == StateRejected || s == StateFiled
}

// RiskIndicator is a structured red flag derived from case data or
// extracted from the generated narrative.
type RiskIndicator struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// RiskIndicators represents the indicator set attached to a version
type RiskIndicators []RiskIndicator

// Value implements driver.Valuer for JSONB
func (r RiskIndicators) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *RiskIndicators) Scan(value interface{}) error {
	if value == nil {
		*r = make(RiskIndicators, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*r = make(RiskIndicators, 0)
		return nil
	}

	if len(bytes) == 0 {
		*r = make(RiskIndicators, 0)
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// RetrievalRef records one corpus document consulted during generation
type RetrievalRef struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// RetrievalContext represents the ranked documents behind a generated version
type RetrievalContext []RetrievalRef

// Value implements driver.Valuer for JSONB
func (r RetrievalContext) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *RetrievalContext) Scan(value interface{}) error {
	if value == nil {
		*r = make(RetrievalContext, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*r = make(RetrievalContext, 0)
		return nil
	}

	if len(bytes) == 0 {
		*r = make(RetrievalContext, 0)
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// ModelMetadata records which model produced a version and at what cost
type ModelMetadata struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	LatencyMS  int64  `json:"latency_ms"`
	TokensUsed int    `json:"tokens_used"`
	Confidence string `json:"confidence,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (m ModelMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *ModelMetadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// NarrativeVersion represents one immutable draft of a case's SAR narrative.
// Versions are never rewritten across review cycles; a regeneration after
// rejection produces the next sequence number.
type NarrativeVersion struct {
	ID             uuid.UUID        `json:"id"`
	CaseID         uuid.UUID        `json:"case_id"`
	Sequence       int              `json:"sequence"`
	State          NarrativeState   `json:"state"`
	Body           string           `json:"body"`
	Author         string           `json:"author"`
	RiskIndicators RiskIndicators   `json:"risk_indicators"`
	Typologies     []string         `json:"typologies"`
	Retrieval      RetrievalContext `json:"retrieval"`
	Model          ModelMetadata    `json:"model"`
	RequestDigest  string           `json:"request_digest"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
