package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sardraft-backend/authz"
	"sardraft-backend/models"
)

func newTestCaseService(store *memStore) *CaseService {
	return NewCaseService(
		CaseWithStore(store),
		CaseWithAlertStore(alertStore{store}),
		CaseWithCustomerStore(customerStore{store}),
		CaseWithDataStore(store),
		CaseWithAudit(NewAuditService(AuditWithStore(store))),
	)
}

func TestCreateCaseOpensInOpenStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)

	created, err := svc.Create(context.Background(), analyst, CreateCaseRequest{
		Reference:    "SAR-2024-002",
		AlertID:      uuid.New(),
		CustomerID:   "CUST-002",
		Severity:     "MEDIUM",
		Jurisdiction: "United Kingdom",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CaseOpen, created.Status)

	got, err := svc.Get(context.Background(), analyst, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAR-2024-002", got.Reference)
}

func TestCreateCaseRequiresReferenceAndCustomer(t *testing.T) {
	svc := newTestCaseService(newMemStore())

	_, err := svc.Create(context.Background(), analyst, CreateCaseRequest{AlertID: uuid.New()})
	assert.Error(t, err)
}

func TestCreateCaseDeniedForReadOnly(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)

	_, err := svc.Create(context.Background(), readOnly, CreateCaseRequest{
		Reference:  "SAR-2024-003",
		AlertID:    uuid.New(),
		CustomerID: "CUST-003",
	})

	var denied *authz.Error
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, authz.ActionCreateCase, denied.Action)

	events, err := store.ListByChain(context.Background(), models.SystemChainKey)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventAccessDenied, events[0].Kind)
}

func TestGetCaseNotFound(t *testing.T) {
	svc := newTestCaseService(newMemStore())

	_, err := svc.Get(context.Background(), analyst, uuid.New())
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestListCasesFiltersByStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)
	seedHighValueCase(store)

	_, err := svc.Create(context.Background(), analyst, CreateCaseRequest{
		Reference:  "SAR-2024-004",
		AlertID:    uuid.New(),
		CustomerID: "CUST-004",
	})
	require.NoError(t, err)

	open, err := svc.List(context.Background(), supervisor, models.CaseOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	filed, err := svc.List(context.Background(), supervisor, models.CaseFiled)
	require.NoError(t, err)
	assert.Empty(t, filed)
}

func TestBundleLoadsAlertAndCustomer(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)
	caseID := seedHighValueCase(store)

	bundle, err := svc.Bundle(context.Background(), analyst, caseID)
	require.NoError(t, err)
	require.NotNil(t, bundle.Alert)
	require.NotNil(t, bundle.Customer)
	assert.Equal(t, "ALT-2024-001", bundle.Alert.Reference)
	assert.Equal(t, "CUST-001", bundle.Customer.CustomerID)
}

func TestBundleDeniedForReadOnlyOnTransactionData(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)
	caseID := seedHighValueCase(store)

	_, err := svc.Bundle(context.Background(), readOnly, caseID)

	var denied *authz.Error
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, authz.DomainTransaction, denied.Domain)
}

func TestIngestStoresAlertAndRefreshesCustomer(t *testing.T) {
	store := newMemStore()
	svc := newTestCaseService(store)
	now := time.Now().UTC()

	alert, err := svc.Ingest(context.Background(), analyst, IngestAlertRequest{
		Alert: models.Alert{
			Reference:   "ALT-2024-010",
			CustomerID:  "CUST-010",
			Typology:    "structuring",
			Severity:    "HIGH",
			TotalAmount: 56000,
			Currency:    "GBP",
			WindowStart: now.AddDate(0, -1, 0),
			WindowEnd:   now,
			Transactions: models.TransactionList{
				{TxnID: "T1", Amount: 9400, Currency: "GBP", Direction: "credit"},
				{TxnID: "T2", Amount: 9300, Currency: "GBP", Direction: "credit"},
			},
		},
		Customer: &models.CustomerProfile{
			CustomerID:   "CUST-010",
			FullName:     "Priya Nair",
			AnnualIncome: 42000,
			RiskRating:   "LOW",
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, alert.ID)
	assert.Equal(t, 2, alert.TransactionCount)

	stored, err := store.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	profile, err := store.GetCustomer(context.Background(), "CUST-010")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Priya Nair", profile.FullName)
}

func TestIngestDeniedForReadOnly(t *testing.T) {
	svc := newTestCaseService(newMemStore())

	_, err := svc.Ingest(context.Background(), readOnly, IngestAlertRequest{
		Alert: models.Alert{Reference: "ALT-2024-011", CustomerID: "CUST-011"},
	})

	var denied *authz.Error
	assert.True(t, errors.As(err, &denied))
}
