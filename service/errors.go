package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sardraft-backend/models"
)

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrCustomerNotFound   = errors.New("customer profile not found")
	ErrNarrativeNotFound  = errors.New("no narrative version for case")
	ErrFilingNotFound     = errors.New("no filing recorded for case")
	ErrRationaleRequired  = errors.New("a rationale is required for this decision")
	ErrEmptyNarrative     = errors.New("narrative body is empty")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
)

// ConflictError is returned when a concurrent actor won the race for the
// same resource: a generation lease already held, or an optimistic state
// swap that found zero rows.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

// InvalidTransitionError is returned when a review operation is attempted
// from a state that does not permit it.
type InvalidTransitionError struct {
	From   models.NarrativeState
	To     models.NarrativeState
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition %s to %s", e.From, e.To)
}

// IntegrityError is returned when audit chain verification finds a broken
// or tampered link.
type IntegrityError struct {
	ChainKey string
	EventID  uuid.UUID
	Seq      int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("audit chain %q broken at event %s (seq %d)", e.ChainKey, e.EventID, e.Seq)
}
