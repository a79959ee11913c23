package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sardraft-backend/authz"
	"sardraft-backend/models"
	"sardraft-backend/provider"
	"sardraft-backend/retrieval"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second

	defaultLeaseTTL = 2 * time.Minute
	defaultTopK     = 3
)

var systemPrompt = strings.TrimSpace(`
You are a financial crime compliance specialist drafting a Suspicious Activity
Report narrative for submission to the National Crime Agency. Write in formal,
factual prose. State what is known, what is suspected, and the grounds for
suspicion. Do not speculate beyond the data provided. Quantify values, dates
and counts precisely. After the narrative, append the following sections, each
as a header followed by bullet points:
DATA SOURCES USED, RULES AND TYPOLOGIES MATCHED, RISK INDICATORS,
CONFIDENCE ASSESSMENT, LIMITATIONS.
`)

// NarrativeService orchestrates narrative generation: authorization, data
// assembly, retrieval, the model call, and persistence of the resulting
// version with its audit events.
type NarrativeService struct {
	narratives NarrativeStore
	data       DataStore
	leases     LeaseStore
	audit      *AuditService
	index      *retrieval.Index
	llm        provider.Provider
	logger     *zap.Logger
	leaseTTL   time.Duration
	topK       int
	hostingEnv string
	sleep      func(time.Duration)
}

// NarrativeServiceOption is a functional option for NarrativeService
type NarrativeServiceOption func(*NarrativeService)

// NarrativeWithStore sets the narrative store
func NarrativeWithStore(store NarrativeStore) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.narratives = store
	}
}

// NarrativeWithDataStore sets the case data store
func NarrativeWithDataStore(store DataStore) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.data = store
	}
}

// NarrativeWithLeaseStore sets the generation lease store
func NarrativeWithLeaseStore(store LeaseStore) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.leases = store
	}
}

// NarrativeWithAudit sets the audit service
func NarrativeWithAudit(audit *AuditService) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.audit = audit
	}
}

// NarrativeWithIndex sets the retrieval index
func NarrativeWithIndex(index *retrieval.Index) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.index = index
	}
}

// NarrativeWithProvider sets the LLM provider
func NarrativeWithProvider(p provider.Provider) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.llm = p
	}
}

// NarrativeWithLogger sets the logger
func NarrativeWithLogger(logger *zap.Logger) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.logger = logger
	}
}

// NarrativeWithLeaseTTL sets how long a generation lease lives
func NarrativeWithLeaseTTL(ttl time.Duration) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.leaseTTL = ttl
	}
}

// NarrativeWithHostingEnv sets the hosting environment note included in
// generation requests, for data residency context.
func NarrativeWithHostingEnv(env string) NarrativeServiceOption {
	return func(s *NarrativeService) {
		s.hostingEnv = env
	}
}

// NewNarrativeService creates a new narrative service
func NewNarrativeService(opts ...NarrativeServiceOption) *NarrativeService {
	s := &NarrativeService{
		logger:   zap.NewNop(),
		leaseTTL: defaultLeaseTTL,
		topK:     defaultTopK,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces the next narrative version for a case. Exactly one
// generation can run per case at a time; a concurrent caller gets a
// ConflictError. A failed attempt leaves a GENERATION_FAILED audit event
// and no version.
func (s *NarrativeService) Generate(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.NarrativeVersion, error) {
	if err := s.requireDeps(); err != nil {
		return nil, err
	}
	for _, check := range []struct {
		action authz.Action
		domain authz.Domain
	}{
		{authz.ActionGenerate, authz.DomainCase},
		{authz.ActionView, authz.DomainCustomer},
		{authz.ActionView, authz.DomainTransaction},
	} {
		if err := s.deny(ctx, actor, caseID, check.action, check.domain); err != nil {
			return nil, err
		}
	}

	acquired, err := s.leases.Acquire(ctx, caseID, actor.Username, s.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire generation lease: %w", err)
	}
	if !acquired {
		return nil, &ConflictError{Resource: "generation", Reason: "another generation is in progress for this case"}
	}
	defer func() {
		// The lease must be freed even when the caller's context is gone.
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.leases.Release(releaseCtx, caseID, actor.Username); err != nil {
			s.logger.Warn("failed to release generation lease",
				zap.String("case_id", caseID.String()), zap.Error(err))
		}
	}()

	bundle, err := s.data.LoadBundle(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case data: %w", err)
	}
	if bundle == nil || bundle.Case == nil {
		return nil, ErrCaseNotFound
	}
	if bundle.Alert == nil {
		return nil, ErrAlertNotFound
	}
	if bundle.Customer == nil {
		return nil, ErrCustomerNotFound
	}

	current, err := s.narratives.CurrentVersion(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current version: %w", err)
	}
	if current != nil {
		switch current.State {
		case models.StateSubmitted, models.StateApproved, models.StateFiled:
			return nil, &InvalidTransitionError{
				From:   current.State,
				To:     models.StateDraft,
				Reason: "narrative is under review or filed",
			}
		}
	}

	features := DeriveFeatures(bundle)
	matches := s.index.Query(features.QueryText(), s.topK)
	// The index keeps zero-score documents; they carry nothing for the
	// prompt, so cut them here.
	for len(matches) > 0 && matches[len(matches)-1].Score == 0 {
		matches = matches[:len(matches)-1]
	}

	retrievedDocs := make([]models.RetrievedDoc, 0, len(matches))
	refs := make(models.RetrievalContext, 0, len(matches))
	for _, m := range matches {
		retrievedDocs = append(retrievedDocs, models.RetrievedDoc{DocumentID: m.DocumentID, Score: m.Score})
		refs = append(refs, models.RetrievalRef{DocumentID: m.DocumentID, Title: m.Title, Score: m.Score})
	}
	if err := s.audit.Record(ctx, &caseID, actor.Username, models.EventRetrieved, models.RetrievedPayload{
		Query:     features.QueryText(),
		Documents: retrievedDocs,
	}); err != nil {
		return nil, err
	}

	req := s.buildRequest(bundle, features, matches)
	digest := requestDigest(req)

	completion, err := s.complete(ctx, req)
	if err != nil {
		s.recordFailure(ctx, caseID, actor, "generation", err, digest)
		return nil, err
	}

	maxSeq, err := s.narratives.MaxSequence(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next sequence: %w", err)
	}

	version := s.buildVersion(caseID, maxSeq+1, actor, features, refs, completion, digest)
	payload := models.GeneratedPayload{
		Sequence:       version.Sequence,
		Provider:       completion.Provider,
		Model:          completion.Model,
		LatencyMS:      completion.LatencyMS,
		TokensUsed:     completion.TokensUsed,
		RequestDigest:  digest,
		IndicatorCount: len(version.RiskIndicators),
		Typologies:     version.Typologies,
		Confidence:     completion.Confidence,
	}
	ev, err := NewEvent(&caseID, actor.Username, models.EventGenerated, payload)
	if err != nil {
		return nil, err
	}
	if err := s.narratives.CreateVersionWithEvent(ctx, version, ev); err != nil {
		s.recordFailure(ctx, caseID, actor, "persist", err, digest)
		return nil, fmt.Errorf("failed to persist narrative version: %w", err)
	}

	s.logger.Info("narrative generated",
		zap.String("case_id", caseID.String()),
		zap.Int("sequence", version.Sequence),
		zap.Int("indicators", len(version.RiskIndicators)),
		zap.Int64("latency_ms", completion.LatencyMS))
	return version, nil
}

// Edit replaces the body of the current draft. Only DRAFT versions can be
// edited; the swap is optimistic and fails with a ConflictError when the
// version moved on concurrently.
func (s *NarrativeService) Edit(ctx context.Context, actor models.Actor, caseID uuid.UUID, body string) (*models.NarrativeVersion, error) {
	if s.narratives == nil || s.audit == nil {
		return nil, errors.New("narrative service not fully configured")
	}
	if err := s.deny(ctx, actor, caseID, authz.ActionEdit, authz.DomainCase); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyNarrative
	}

	current, err := s.narratives.CurrentVersion(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current version: %w", err)
	}
	if current == nil {
		return nil, ErrNarrativeNotFound
	}
	if current.State != models.StateDraft {
		return nil, &InvalidTransitionError{
			From:   current.State,
			To:     models.StateDraft,
			Reason: "only draft narratives can be edited",
		}
	}

	ev, err := NewEvent(&caseID, actor.Username, models.EventEdited, models.EditedPayload{
		Sequence:      current.Sequence,
		OriginalChars: len(current.Body),
		EditedChars:   len(body),
	})
	if err != nil {
		return nil, err
	}
	swapped, err := s.narratives.UpdateBodyWithEvent(ctx, current.ID, current.Sequence, body, actor.Username, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to update narrative: %w", err)
	}
	if !swapped {
		return nil, &ConflictError{Resource: "narrative", Reason: "version changed state during edit"}
	}

	current.Body = body
	current.Author = actor.Username
	return current, nil
}

// Current returns the case's latest narrative version.
func (s *NarrativeService) Current(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.NarrativeVersion, error) {
	if err := s.deny(ctx, actor, caseID, authz.ActionView, authz.DomainCase); err != nil {
		return nil, err
	}
	v, err := s.narratives.CurrentVersion(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNarrativeNotFound
	}
	return v, nil
}

// Versions returns every narrative version of a case, oldest first.
func (s *NarrativeService) Versions(ctx context.Context, actor models.Actor, caseID uuid.UUID) ([]*models.NarrativeVersion, error) {
	if err := s.deny(ctx, actor, caseID, authz.ActionView, authz.DomainCase); err != nil {
		return nil, err
	}
	return s.narratives.ListVersions(ctx, caseID)
}

// complete calls the provider with bounded retries. Only transient
// provider errors are retried, and never once the context is done.
func (s *NarrativeService) complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			s.sleep(backoff)
			backoff *= 2
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		completion, err := s.llm.Complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		var provErr *provider.Error
		if !errors.As(err, &provErr) || !provErr.Transient {
			return nil, err
		}
		s.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", maxRetries, lastErr)
}

// recordFailure appends the GENERATION_FAILED event on a context that
// survives the caller's cancellation, so aborted generations still leave
// their trace.
func (s *NarrativeService) recordFailure(ctx context.Context, caseID uuid.UUID, actor models.Actor, stage string, cause error, digest string) {
	reason := failureReason(ctx, cause)
	auditCtx := context.WithoutCancel(ctx)
	if err := s.audit.Record(auditCtx, &caseID, actor.Username, models.EventGenerationFailed, models.GenerationFailedPayload{
		Stage:         stage,
		Reason:        reason,
		RequestDigest: digest,
	}); err != nil {
		s.logger.Error("failed to record generation failure",
			zap.String("case_id", caseID.String()), zap.Error(err))
	}
}

func failureReason(ctx context.Context, cause error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(cause, context.Canceled):
		return "canceled"
	default:
		var provErr *provider.Error
		if errors.As(cause, &provErr) {
			return "provider: " + provErr.Reason
		}
		return cause.Error()
	}
}

func (s *NarrativeService) buildRequest(bundle *CaseBundle, features CaseFeatures, matches []retrieval.Match) provider.Request {
	var ctxText strings.Builder
	ctxText.WriteString("REFERENCE MATERIAL:\n")
	for _, m := range matches {
		if doc, ok := s.index.Document(m.DocumentID); ok {
			fmt.Fprintf(&ctxText, "\n[%s]\n%s\n", doc.Title, doc.Content)
		}
	}

	var prompt strings.Builder
	c := bundle.Case
	a := bundle.Alert
	cu := bundle.Customer
	fmt.Fprintf(&prompt, "CASE %s\n\n", c.Reference)
	fmt.Fprintf(&prompt, "ALERT: %s rule %s, typology %s, severity %s\n", a.Reference, a.Rule, a.Typology, a.Severity)
	fmt.Fprintf(&prompt, "Activity window %s to %s: %d transactions totalling %.2f %s\n",
		a.WindowStart.Format("2006-01-02"), a.WindowEnd.Format("2006-01-02"),
		a.TransactionCount, a.TotalAmount, a.Currency)
	if len(a.Counterparties) > 0 {
		fmt.Fprintf(&prompt, "Counterparties: %s\n", strings.Join(a.Counterparties, ", "))
	}
	if len(a.Jurisdictions) > 0 {
		fmt.Fprintf(&prompt, "Jurisdictions: %s\n", strings.Join(a.Jurisdictions, ", "))
	}

	fmt.Fprintf(&prompt, "\nCUSTOMER %s: %s, %s, occupation %s, declared annual income %.2f, risk rating %s",
		cu.CustomerID, cu.FullName, cu.Nationality, cu.Occupation, cu.AnnualIncome, cu.RiskRating)
	if cu.PEP {
		prompt.WriteString(", politically exposed person")
	}
	prompt.WriteString("\n")

	if len(a.Transactions) > 0 {
		prompt.WriteString("\nTRANSACTIONS:\n")
		for _, txn := range a.Transactions {
			fmt.Fprintf(&prompt, "- %s %s %.2f %s %s %s (%s)\n",
				txn.Date, txn.Direction, txn.Amount, txn.Currency, txn.Counterparty, txn.Country, txn.Channel)
		}
	}

	if len(features.Indicators) > 0 {
		prompt.WriteString("\nDETECTED RISK INDICATORS:\n")
		for _, ind := range features.Indicators {
			fmt.Fprintf(&prompt, "- %s: %s\n", ind.Kind, ind.Description)
		}
	}

	if s.hostingEnv != "" {
		fmt.Fprintf(&prompt, "\nProcessing environment: %s\n", s.hostingEnv)
	}
	prompt.WriteString("\nDraft the SAR narrative for this case.")

	return provider.Request{
		SystemPrompt: systemPrompt,
		Prompt:       prompt.String(),
		Context:      ctxText.String(),
	}
}

func (s *NarrativeService) buildVersion(caseID uuid.UUID, seq int, actor models.Actor, features CaseFeatures, refs models.RetrievalContext, completion *provider.Completion, digest string) *models.NarrativeVersion {
	indicators := mergeIndicators(features.Indicators, completion.RiskIndicators)
	typologies := completion.Typologies
	if len(typologies) == 0 && features.TypologyHint != "" {
		typologies = []string{features.TypologyHint}
	}

	now := time.Now().UTC()
	return &models.NarrativeVersion{
		ID:             uuid.New(),
		CaseID:         caseID,
		Sequence:       seq,
		State:          models.StateDraft,
		Body:           completion.Text,
		Author:         actor.Username,
		RiskIndicators: indicators,
		Typologies:     typologies,
		Retrieval:      refs,
		Model: models.ModelMetadata{
			Provider:   completion.Provider,
			Model:      completion.Model,
			LatencyMS:  completion.LatencyMS,
			TokensUsed: completion.TokensUsed,
			Confidence: completion.Confidence,
		},
		RequestDigest: digest,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// mergeIndicators keeps the rule-derived indicators and adds any extra
// kinds the model surfaced, rules first.
func mergeIndicators(derived, extracted models.RiskIndicators) models.RiskIndicators {
	out := make(models.RiskIndicators, 0, len(derived)+len(extracted))
	seen := make(map[string]bool, len(derived))
	for _, ind := range derived {
		seen[ind.Kind] = true
		out = append(out, ind)
	}
	for _, ind := range extracted {
		if ind.Kind == "" || seen[ind.Kind] {
			continue
		}
		seen[ind.Kind] = true
		out = append(out, ind)
	}
	return out
}

type digestEnvelope struct {
	SystemPrompt string `json:"system_prompt"`
	Prompt       string `json:"prompt"`
	Context      string `json:"context"`
}

func requestDigest(req provider.Request) string {
	raw, _ := json.Marshal(digestEnvelope{
		SystemPrompt: req.SystemPrompt,
		Prompt:       req.Prompt,
		Context:      req.Context,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (s *NarrativeService) deny(ctx context.Context, actor models.Actor, caseID uuid.UUID, action authz.Action, domain authz.Domain) error {
	if err := authz.Authorize(actor, action, domain); err != nil {
		var denied *authz.Error
		if errors.As(err, &denied) && s.audit != nil {
			s.audit.RecordDenied(ctx, &caseID, actor, denied)
		}
		return err
	}
	return nil
}

func (s *NarrativeService) requireDeps() error {
	switch {
	case s.narratives == nil:
		return errors.New("narrative store not set")
	case s.data == nil:
		return errors.New("data store not set")
	case s.leases == nil:
		return errors.New("lease store not set")
	case s.audit == nil:
		return errors.New("audit service not set")
	case s.index == nil:
		return errors.New("retrieval index not set")
	case s.llm == nil:
		return errors.New("provider not set")
	}
	return nil
}
