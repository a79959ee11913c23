package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sardraft-backend/authz"
	"sardraft-backend/models"
	"sardraft-backend/storage"
)

// ReviewService drives the narrative review state machine. Every
// transition is an optimistic compare-and-swap on the version state,
// committed atomically with its audit event; of two concurrent reviewers,
// exactly one wins.
type ReviewService struct {
	narratives NarrativeStore
	filings    FilingStore
	audit      *AuditService
	archive    storage.Storage
	logger     *zap.Logger
}

// ReviewServiceOption is a functional option for ReviewService
type ReviewServiceOption func(*ReviewService)

// ReviewWithNarrativeStore sets the narrative store
func ReviewWithNarrativeStore(store NarrativeStore) ReviewServiceOption {
	return func(s *ReviewService) {
		s.narratives = store
	}
}

// ReviewWithFilingStore sets the filing store
func ReviewWithFilingStore(store FilingStore) ReviewServiceOption {
	return func(s *ReviewService) {
		s.filings = store
	}
}

// ReviewWithAudit sets the audit service
func ReviewWithAudit(audit *AuditService) ReviewServiceOption {
	return func(s *ReviewService) {
		s.audit = audit
	}
}

// ReviewWithArchive sets the storage backend for filed narratives
func ReviewWithArchive(archive storage.Storage) ReviewServiceOption {
	return func(s *ReviewService) {
		s.archive = archive
	}
}

// ReviewWithLogger sets the logger
func ReviewWithLogger(logger *zap.Logger) ReviewServiceOption {
	return func(s *ReviewService) {
		s.logger = logger
	}
}

// NewReviewService creates a new review service
func NewReviewService(opts ...ReviewServiceOption) *ReviewService {
	s := &ReviewService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit moves the current draft into review.
func (s *ReviewService) Submit(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.NarrativeVersion, error) {
	if err := s.deny(ctx, actor, caseID, authz.ActionSubmit); err != nil {
		return nil, err
	}
	current, err := s.currentIn(ctx, caseID, models.StateDraft, models.StateSubmitted)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(current.Body) == "" {
		return nil, ErrEmptyNarrative
	}

	return s.transition(ctx, actor, current, transitionSpec{
		to:         models.StateSubmitted,
		caseStatus: models.CaseSubmitted,
		kind:       models.EventSubmitted,
	})
}

// Approve records a supervisor approval on the submitted version. Of two
// concurrent approvals, the loser gets a ConflictError and no second
// APPROVED event is written.
func (s *ReviewService) Approve(ctx context.Context, actor models.Actor, caseID uuid.UUID, rationale string) (*models.NarrativeVersion, error) {
	return s.decide(ctx, actor, caseID, models.DecisionApprove, rationale)
}

// Reject records a supervisor rejection. A rationale is mandatory; the
// rejected version is terminal and a later generation starts the next
// sequence.
func (s *ReviewService) Reject(ctx context.Context, actor models.Actor, caseID uuid.UUID, rationale string) (*models.NarrativeVersion, error) {
	if strings.TrimSpace(rationale) == "" {
		return nil, ErrRationaleRequired
	}
	return s.decide(ctx, actor, caseID, models.DecisionReject, rationale)
}

func (s *ReviewService) decide(ctx context.Context, actor models.Actor, caseID uuid.UUID, decision models.Decision, rationale string) (*models.NarrativeVersion, error) {
	action := authz.ActionApprove
	to := models.StateApproved
	caseStatus := models.CaseApproved
	kind := models.EventApproved
	if decision == models.DecisionReject {
		action = authz.ActionReject
		to = models.StateRejected
		caseStatus = models.CaseRejected
		kind = models.EventRejected
	}

	if err := s.deny(ctx, actor, caseID, action); err != nil {
		return nil, err
	}
	current, err := s.currentIn(ctx, caseID, models.StateSubmitted, to)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, current, transitionSpec{
		to:         to,
		caseStatus: caseStatus,
		kind:       kind,
		rationale:  rationale,
		decision: &models.ApprovalDecision{
			ID:        uuid.New(),
			CaseID:    caseID,
			VersionID: current.ID,
			Decision:  decision,
			Approver:  actor.Username,
			Rationale: rationale,
			CreatedAt: time.Now().UTC(),
		},
	})
}

// File records the regulatory filing of an approved narrative. The
// narrative body is archived first; the filing row, state change and FILED
// event then commit together.
func (s *ReviewService) File(ctx context.Context, actor models.Actor, caseID uuid.UUID, sarReference string) (*models.Filing, error) {
	if err := s.deny(ctx, actor, caseID, authz.ActionFile); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sarReference) == "" {
		return nil, errors.New("sar reference is required")
	}
	current, err := s.currentIn(ctx, caseID, models.StateApproved, models.StateFiled)
	if err != nil {
		return nil, err
	}

	archivePath := fmt.Sprintf("filings/%s/v%d.txt", caseID, current.Sequence)
	if s.archive != nil {
		if err := s.archive.Upload(ctx, archivePath, strings.NewReader(current.Body), "text/plain"); err != nil {
			return nil, fmt.Errorf("failed to archive narrative: %w", err)
		}
	}

	filing := &models.Filing{
		ID:           uuid.New(),
		CaseID:       caseID,
		VersionID:    current.ID,
		SARReference: sarReference,
		ArchivePath:  archivePath,
		FiledBy:      actor.Username,
		FiledAt:      time.Now().UTC(),
	}
	ev, err := NewEvent(&caseID, actor.Username, models.EventFiled, models.FiledPayload{
		Sequence:     current.Sequence,
		SARReference: sarReference,
		ArchivePath:  archivePath,
	})
	if err != nil {
		return nil, err
	}
	swapped, err := s.narratives.Transition(ctx, TransitionParams{
		CaseID:     caseID,
		VersionID:  current.ID,
		Sequence:   current.Sequence,
		From:       models.StateApproved,
		To:         models.StateFiled,
		CaseStatus: models.CaseFiled,
		Filing:     filing,
		Event:      ev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record filing: %w", err)
	}
	if !swapped {
		return nil, &ConflictError{Resource: "narrative", Reason: "version left APPROVED during filing"}
	}

	s.logger.Info("narrative filed",
		zap.String("case_id", caseID.String()),
		zap.Int("sequence", current.Sequence),
		zap.String("sar_reference", sarReference))
	return filing, nil
}

// Filing returns the filing record for a case.
func (s *ReviewService) Filing(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.Filing, error) {
	if err := s.deny(ctx, actor, caseID, authz.ActionView); err != nil {
		return nil, err
	}
	if s.filings == nil {
		return nil, errors.New("filing store not set")
	}
	filing, err := s.filings.GetByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if filing == nil {
		return nil, ErrFilingNotFound
	}
	return filing, nil
}

type transitionSpec struct {
	to         models.NarrativeState
	caseStatus models.CaseStatus
	kind       models.EventKind
	rationale  string
	decision   *models.ApprovalDecision
}

func (s *ReviewService) transition(ctx context.Context, actor models.Actor, current *models.NarrativeVersion, spec transitionSpec) (*models.NarrativeVersion, error) {
	ev, err := NewEvent(&current.CaseID, actor.Username, spec.kind, models.TransitionPayload{
		Sequence:  current.Sequence,
		From:      string(current.State),
		To:        string(spec.to),
		Rationale: spec.rationale,
	})
	if err != nil {
		return nil, err
	}
	swapped, err := s.narratives.Transition(ctx, TransitionParams{
		CaseID:     current.CaseID,
		VersionID:  current.ID,
		Sequence:   current.Sequence,
		From:       current.State,
		To:         spec.to,
		CaseStatus: spec.caseStatus,
		Decision:   spec.decision,
		Event:      ev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transition narrative: %w", err)
	}
	if !swapped {
		return nil, &ConflictError{
			Resource: "narrative",
			Reason:   fmt.Sprintf("version already left %s", current.State),
		}
	}

	s.logger.Info("narrative transitioned",
		zap.String("case_id", current.CaseID.String()),
		zap.Int("sequence", current.Sequence),
		zap.String("from", string(current.State)),
		zap.String("to", string(spec.to)))

	current.State = spec.to
	current.UpdatedAt = time.Now().UTC()
	return current, nil
}

// currentIn loads the current version and checks it is in the expected
// source state for a transition toward `to`.
func (s *ReviewService) currentIn(ctx context.Context, caseID uuid.UUID, from, to models.NarrativeState) (*models.NarrativeVersion, error) {
	if s.narratives == nil {
		return nil, errors.New("narrative store not set")
	}
	current, err := s.narratives.CurrentVersion(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current version: %w", err)
	}
	if current == nil {
		return nil, ErrNarrativeNotFound
	}
	if current.State != from {
		return nil, &InvalidTransitionError{From: current.State, To: to}
	}
	return current, nil
}

func (s *ReviewService) deny(ctx context.Context, actor models.Actor, caseID uuid.UUID, action authz.Action) error {
	if err := authz.Authorize(actor, action, authz.DomainCase); err != nil {
		var denied *authz.Error
		if errors.As(err, &denied) && s.audit != nil {
			s.audit.RecordDenied(ctx, &caseID, actor, denied)
		}
		return err
	}
	return nil
}
