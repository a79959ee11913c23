package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"sardraft-backend/models"
	"sardraft-backend/provider"
	"sardraft-backend/retrieval"
)

var (
	analyst    = models.Actor{UserID: uuid.New(), Username: "a.khan", Role: models.RoleAnalyst}
	supervisor = models.Actor{UserID: uuid.New(), Username: "j.mercer", Role: models.RoleSupervisor}
	readOnly   = models.Actor{UserID: uuid.New(), Username: "observer", Role: models.RoleReadOnly}
)

const fakeNarrative = `Between 01 March and 28 May the account received forty-seven credits
totalling GBP 487,500, materially above the customer's declared annual income.

DATA SOURCES USED:
- Transaction monitoring alert
- Customer KYC profile

RULES AND TYPOLOGIES MATCHED:
- Rapid movement of funds

RISK INDICATORS:
- HIGH VALUE: credits of GBP 487,500
- INCOME DISPARITY: throughput over five times declared income

CONFIDENCE ASSESSMENT:
High confidence based on complete records.

LIMITATIONS:
- Counterparty ownership unverified
`

// seedHighValueCase loads the store with a case whose alert shows 47
// transactions totalling 487,500 against a declared income of 85,000.
func seedHighValueCase(store *memStore) uuid.UUID {
	alertID := uuid.New()
	caseID := uuid.New()
	now := time.Now().UTC()

	txns := make(models.TransactionList, 0, 47)
	for i := 0; i < 47; i++ {
		txns = append(txns, models.Transaction{
			TxnID:        uuid.NewString(),
			Date:         now.AddDate(0, 0, -i).Format("2006-01-02"),
			Amount:       487500.0 / 47,
			Currency:     "GBP",
			Direction:    "credit",
			Counterparty: "Meridian Trading Ltd",
			Country:      "United Kingdom",
			Channel:      "faster_payments",
		})
	}

	store.alerts[alertID] = &models.Alert{
		ID:               alertID,
		Reference:        "ALT-2024-001",
		CustomerID:       "CUST-001",
		Typology:         "rapid movement of funds",
		Rule:             "R-104 velocity",
		Severity:         "HIGH",
		Score:            0.91,
		TotalAmount:      487500,
		Currency:         "GBP",
		TransactionCount: 47,
		WindowStart:      now.AddDate(0, -3, 0),
		WindowEnd:        now,
		Counterparties:   []string{"Meridian Trading Ltd", "Crestline FZE"},
		Jurisdictions:    []string{"United Kingdom", "United Arab Emirates"},
		Transactions:     txns,
		CreatedAt:        now,
	}
	store.customers["CUST-001"] = &models.CustomerProfile{
		CustomerID:   "CUST-001",
		FullName:     "Daniel Okafor",
		Nationality:  "British",
		Country:      "United Kingdom",
		Occupation:   "Retail manager",
		AnnualIncome: 85000,
		RiskRating:   "MEDIUM",
		KYCStatus:    "complete",
	}
	store.cases[caseID] = &models.Case{
		ID:           caseID,
		Reference:    "SAR-2024-001",
		AlertID:      alertID,
		CustomerID:   "CUST-001",
		Status:       models.CaseOpen,
		Severity:     "HIGH",
		Jurisdiction: "United Kingdom",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return caseID
}

// fakeProvider scripts provider behaviour per attempt. A nil entry in errs
// means that attempt succeeds; attempts beyond the script succeed.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	errs    []error
	text    string
	started chan struct{}
	release chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	f.mu.Lock()
	f.calls++
	attempt := f.calls
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, &provider.Error{Reason: "request canceled", Err: ctx.Err()}
		}
	}

	if attempt <= len(f.errs) && f.errs[attempt-1] != nil {
		return nil, f.errs[attempt-1]
	}

	text := f.text
	if text == "" {
		text = fakeNarrative
	}
	parsed := provider.ParseReasoning(text)
	return &provider.Completion{
		Text:           text,
		RiskIndicators: parsed.Indicators,
		Typologies:     parsed.Typologies,
		Confidence:     parsed.Confidence,
		Provider:       "fake",
		Model:          "fake-1",
		TokensUsed:     321,
		LatencyMS:      12,
	}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeArchive records uploads in memory.
type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (a *fakeArchive) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return io.ErrClosedPipe
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	a.objects[key] = content
	return nil
}

func (a *fakeArchive) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	content, ok := a.objects[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (a *fakeArchive) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}

func testIndex() *retrieval.Index {
	ix, err := retrieval.NewIndex(retrieval.DefaultCorpus())
	if err != nil {
		panic(err)
	}
	return ix
}

func newTestNarrativeService(store *memStore, llm provider.Provider) (*NarrativeService, *AuditService) {
	audit := NewAuditService(AuditWithStore(store))
	svc := NewNarrativeService(
		NarrativeWithStore(store),
		NarrativeWithDataStore(store),
		NarrativeWithLeaseStore(store),
		NarrativeWithAudit(audit),
		NarrativeWithIndex(testIndex()),
		NarrativeWithProvider(llm),
	)
	svc.sleep = func(time.Duration) {}
	return svc, audit
}
