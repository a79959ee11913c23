package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sardraft-backend/authz"
	"sardraft-backend/models"
)

// AuditService appends events to the tamper-evident trail and verifies
// chain integrity.
type AuditService struct {
	store  AuditStore
	logger *zap.Logger
}

// AuditServiceOption is a functional option for AuditService
type AuditServiceOption func(*AuditService)

// AuditWithStore sets the audit store
func AuditWithStore(store AuditStore) AuditServiceOption {
	return func(s *AuditService) {
		s.store = store
	}
}

// AuditWithLogger sets the logger
func AuditWithLogger(logger *zap.Logger) AuditServiceOption {
	return func(s *AuditService) {
		s.logger = logger
	}
}

// NewAuditService creates a new audit service
func NewAuditService(opts ...AuditServiceOption) *AuditService {
	s := &AuditService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewEvent builds an unsealed audit event. A nil caseID places the event on
// the reserved system chain. The payload must be a struct; map payloads
// would not serialize deterministically.
func NewEvent(caseID *uuid.UUID, actor string, kind models.EventKind, payload any) (*models.AuditEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s payload: %w", kind, err)
	}
	chainKey := models.SystemChainKey
	if caseID != nil {
		chainKey = caseID.String()
	}
	return &models.AuditEvent{
		ID:        uuid.New(),
		ChainKey:  chainKey,
		CaseID:    caseID,
		Actor:     actor,
		Kind:      kind,
		Payload:   raw,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

// Record builds and appends an event in one step.
func (s *AuditService) Record(ctx context.Context, caseID *uuid.UUID, actor string, kind models.EventKind, payload any) error {
	if s.store == nil {
		return errors.New("audit store not set")
	}
	ev, err := NewEvent(caseID, actor, kind, payload)
	if err != nil {
		return err
	}
	if err := s.store.Append(ctx, ev); err != nil {
		return fmt.Errorf("failed to append %s event: %w", kind, err)
	}
	s.logger.Info("audit event recorded",
		zap.String("chain", ev.ChainKey),
		zap.String("kind", string(kind)),
		zap.Int64("seq", ev.Seq))
	return nil
}

// RecordDenied appends an ACCESS_DENIED event for a refused authorization.
// Failures are logged, not returned: the denial itself must still reach
// the caller.
func (s *AuditService) RecordDenied(ctx context.Context, caseID *uuid.UUID, actor models.Actor, denied *authz.Error) {
	payload := models.AccessDeniedPayload{
		Action: string(denied.Action),
		Domain: string(denied.Domain),
		Reason: denied.Reason,
	}
	if err := s.Record(ctx, caseID, actor.Username, models.EventAccessDenied, payload); err != nil {
		s.logger.Warn("failed to record access denial", zap.Error(err))
	}
}

// ChainReport is the result of verifying one chain.
type ChainReport struct {
	ChainKey        string     `json:"chain_key"`
	Valid           bool       `json:"valid"`
	Events          int        `json:"events"`
	FirstInvalidID  *uuid.UUID `json:"first_invalid_id,omitempty"`
	FirstInvalidSeq int64      `json:"first_invalid_seq,omitempty"`
}

// Err returns the IntegrityError for an invalid report, nil otherwise.
func (r *ChainReport) Err() error {
	if r.Valid || r.FirstInvalidID == nil {
		return nil
	}
	return &IntegrityError{ChainKey: r.ChainKey, EventID: *r.FirstInvalidID, Seq: r.FirstInvalidSeq}
}

// ListCaseEvents returns the audit trail for one case, gated on the audit
// data domain.
func (s *AuditService) ListCaseEvents(ctx context.Context, actor models.Actor, caseID uuid.UUID) ([]*models.AuditEvent, error) {
	if err := s.authorize(ctx, actor, &caseID); err != nil {
		return nil, err
	}
	return s.store.ListByChain(ctx, caseID.String())
}

// VerifyCase verifies the hash chain for one case.
func (s *AuditService) VerifyCase(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*ChainReport, error) {
	if err := s.authorize(ctx, actor, &caseID); err != nil {
		return nil, err
	}
	return s.VerifyChainKey(ctx, caseID.String())
}

// VerifyChainKey replays a chain from genesis, recomputing every hash.
// The first event whose stored hash, sequence or back-link does not match
// is reported; verification stops there.
func (s *AuditService) VerifyChainKey(ctx context.Context, chainKey string) (*ChainReport, error) {
	if s.store == nil {
		return nil, errors.New("audit store not set")
	}
	events, err := s.store.ListByChain(ctx, chainKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain %q: %w", chainKey, err)
	}

	report := &ChainReport{ChainKey: chainKey, Valid: true, Events: len(events)}
	var prev *models.AuditEvent
	for _, ev := range events {
		if !ev.Verify(prev) {
			id := ev.ID
			report.Valid = false
			report.FirstInvalidID = &id
			report.FirstInvalidSeq = ev.Seq
			s.logger.Warn("audit chain verification failed",
				zap.String("chain", chainKey),
				zap.String("event_id", id.String()),
				zap.Int64("seq", ev.Seq))
			return report, nil
		}
		prev = ev
	}
	return report, nil
}

func (s *AuditService) authorize(ctx context.Context, actor models.Actor, caseID *uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionViewAudit, authz.DomainAudit); err != nil {
		var denied *authz.Error
		if errors.As(err, &denied) {
			s.RecordDenied(ctx, caseID, actor, denied)
		}
		return err
	}
	return nil
}
