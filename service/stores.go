package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sardraft-backend/models"
)

// Store interfaces are implemented by the repository package against
// Postgres and by in-memory fakes in tests. Lookup methods return
// (nil, nil) when the entity does not exist; services map that onto the
// sentinel errors in this package.

// CaseBundle is the complete data set behind one case: the case row, its
// originating alert (with transactions) and the customer profile.
type CaseBundle struct {
	Case     *models.Case
	Alert    *models.Alert
	Customer *models.CustomerProfile
}

// CaseStore persists cases.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	Get(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, status models.CaseStatus) ([]*models.Case, error)
}

// DataStore assembles the case bundle needed for generation.
type DataStore interface {
	LoadBundle(ctx context.Context, caseID uuid.UUID) (*CaseBundle, error)
}

// AlertStore persists ingested alerts. Alerts are immutable once stored.
type AlertStore interface {
	Create(ctx context.Context, a *models.Alert) error
	Get(ctx context.Context, id uuid.UUID) (*models.Alert, error)
}

// CustomerStore persists KYC profiles fed in alongside alerts.
type CustomerStore interface {
	Upsert(ctx context.Context, c *models.CustomerProfile) error
	Get(ctx context.Context, customerID string) (*models.CustomerProfile, error)
}

// TransitionParams describes one atomic review transition: the optimistic
// state swap on the version, the matching case status, the audit event, and
// any decision or filing row created by the same transition. The store
// commits all of it in one transaction or none of it.
type TransitionParams struct {
	CaseID     uuid.UUID
	VersionID  uuid.UUID
	Sequence   int
	From       models.NarrativeState
	To         models.NarrativeState
	CaseStatus models.CaseStatus
	Decision   *models.ApprovalDecision
	Filing     *models.Filing
	Event      *models.AuditEvent
}

// NarrativeStore persists narrative versions. The WithEvent methods seal
// and append the audit event in the same transaction as the version write;
// if the event cannot be recorded, the write does not happen.
type NarrativeStore interface {
	MaxSequence(ctx context.Context, caseID uuid.UUID) (int, error)
	CurrentVersion(ctx context.Context, caseID uuid.UUID) (*models.NarrativeVersion, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*models.NarrativeVersion, error)
	ListVersions(ctx context.Context, caseID uuid.UUID) ([]*models.NarrativeVersion, error)
	CreateVersionWithEvent(ctx context.Context, v *models.NarrativeVersion, ev *models.AuditEvent) error
	// UpdateBodyWithEvent swaps the body and records the editing author
	// on a DRAFT version. It returns false when the version is no longer
	// in DRAFT at that sequence.
	UpdateBodyWithEvent(ctx context.Context, versionID uuid.UUID, sequence int, body, author string, ev *models.AuditEvent) (bool, error)
	// Transition performs the compare-and-swap described by p. It returns
	// false when the version had already left p.From.
	Transition(ctx context.Context, p TransitionParams) (bool, error)
}

// LeaseStore provides per-case mutual exclusion for generation.
type LeaseStore interface {
	// Acquire returns false when another holder has a live lease.
	Acquire(ctx context.Context, caseID uuid.UUID, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, caseID uuid.UUID, holder string) error
}

// AuditStore persists the hash chains. Append seals the event (sequence,
// prev hash, hash) under a per-chain lock before inserting it.
type AuditStore interface {
	Append(ctx context.Context, ev *models.AuditEvent) error
	ListByChain(ctx context.Context, chainKey string) ([]*models.AuditEvent, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// FilingStore reads filing records. Writes happen inside the filing
// transition.
type FilingStore interface {
	GetByCase(ctx context.Context, caseID uuid.UUID) (*models.Filing, error)
}
