package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus mirrors the state of the case's current narrative version.
// A case with no versions yet is OPEN.
type CaseStatus string

const (
	CaseOpen      CaseStatus = "OPEN"
	CaseDraft     CaseStatus = "DRAFT"
	CaseSubmitted CaseStatus = "SUBMITTED"
	CaseApproved  CaseStatus = "APPROVED"
	CaseRejected  CaseStatus = "REJECTED"
	CaseFiled     CaseStatus = "FILED"
)

// Case represents an investigation case opened from a transaction monitoring alert
type Case struct {
	ID           uuid.UUID  `json:"id"`
	Reference    string     `json:"reference"`
	AlertID      uuid.UUID  `json:"alert_id"`
	CustomerID   string     `json:"customer_id"`
	Status       CaseStatus `json:"status"`
	Severity     string     `json:"severity"`
	Jurisdiction string     `json:"jurisdiction"`
	AssignedTo   *string    `json:"assigned_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
