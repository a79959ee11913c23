package models

import (
	"time"

	"github.com/google/uuid"
)

// Decision represents the outcome of a supervisor review
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ApprovalDecision represents a recorded review decision on a narrative version
type ApprovalDecision struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	VersionID uuid.UUID `json:"version_id"`
	Decision  Decision  `json:"decision"`
	Approver  string    `json:"approver"`
	Rationale string    `json:"rationale"`
	CreatedAt time.Time `json:"created_at"`
}
