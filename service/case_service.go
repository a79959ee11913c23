package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sardraft-backend/authz"
	"sardraft-backend/models"
)

// CaseService manages case records, alert ingestion and read access to
// case data.
type CaseService struct {
	cases     CaseStore
	alerts    AlertStore
	customers CustomerStore
	data      DataStore
	audit     *AuditService
	logger    *zap.Logger
}

// CaseServiceOption is a functional option for CaseService
type CaseServiceOption func(*CaseService)

// CaseWithStore sets the case store
func CaseWithStore(store CaseStore) CaseServiceOption {
	return func(s *CaseService) {
		s.cases = store
	}
}

// CaseWithAlertStore sets the alert store
func CaseWithAlertStore(store AlertStore) CaseServiceOption {
	return func(s *CaseService) {
		s.alerts = store
	}
}

// CaseWithCustomerStore sets the customer profile store
func CaseWithCustomerStore(store CustomerStore) CaseServiceOption {
	return func(s *CaseService) {
		s.customers = store
	}
}

// CaseWithDataStore sets the case data store
func CaseWithDataStore(store DataStore) CaseServiceOption {
	return func(s *CaseService) {
		s.data = store
	}
}

// CaseWithAudit sets the audit service
func CaseWithAudit(audit *AuditService) CaseServiceOption {
	return func(s *CaseService) {
		s.audit = audit
	}
}

// CaseWithLogger sets the logger
func CaseWithLogger(logger *zap.Logger) CaseServiceOption {
	return func(s *CaseService) {
		s.logger = logger
	}
}

// NewCaseService creates a new case service
func NewCaseService(opts ...CaseServiceOption) *CaseService {
	s := &CaseService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCaseRequest carries the inputs for opening a case from an alert.
type CreateCaseRequest struct {
	Reference    string
	AlertID      uuid.UUID
	CustomerID   string
	Severity     string
	Jurisdiction string
}

// Create opens a new case in OPEN status.
func (s *CaseService) Create(ctx context.Context, actor models.Actor, req CreateCaseRequest) (*models.Case, error) {
	if s.cases == nil {
		return nil, errors.New("case store not set")
	}
	if err := s.deny(ctx, actor, nil, authz.ActionCreateCase, authz.DomainCase); err != nil {
		return nil, err
	}
	if req.Reference == "" || req.CustomerID == "" {
		return nil, errors.New("case reference and customer id are required")
	}

	now := time.Now().UTC()
	c := &models.Case{
		ID:           uuid.New(),
		Reference:    req.Reference,
		AlertID:      req.AlertID,
		CustomerID:   req.CustomerID,
		Status:       models.CaseOpen,
		Severity:     req.Severity,
		Jurisdiction: req.Jurisdiction,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	s.logger.Info("case created",
		zap.String("case_id", c.ID.String()),
		zap.String("reference", c.Reference))
	return c, nil
}

// IngestAlertRequest carries a monitoring alert and, optionally, the KYC
// profile delivered with it.
type IngestAlertRequest struct {
	Alert    models.Alert
	Customer *models.CustomerProfile
}

// Ingest stores an inbound monitoring alert. Alerts are immutable once
// stored; the customer profile, when present, is refreshed in place.
func (s *CaseService) Ingest(ctx context.Context, actor models.Actor, req IngestAlertRequest) (*models.Alert, error) {
	if s.alerts == nil {
		return nil, errors.New("alert store not set")
	}
	if err := s.deny(ctx, actor, nil, authz.ActionCreateCase, authz.DomainTransaction); err != nil {
		return nil, err
	}
	if req.Alert.Reference == "" || req.Alert.CustomerID == "" {
		return nil, errors.New("alert reference and customer id are required")
	}

	if req.Customer != nil {
		if s.customers == nil {
			return nil, errors.New("customer store not set")
		}
		if err := s.deny(ctx, actor, nil, authz.ActionCreateCase, authz.DomainCustomer); err != nil {
			return nil, err
		}
		if err := s.customers.Upsert(ctx, req.Customer); err != nil {
			return nil, fmt.Errorf("failed to store customer profile: %w", err)
		}
	}

	a := req.Alert
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.TransactionCount == 0 {
		a.TransactionCount = len(a.Transactions)
	}
	if err := s.alerts.Create(ctx, &a); err != nil {
		return nil, fmt.Errorf("failed to store alert: %w", err)
	}

	s.logger.Info("alert ingested",
		zap.String("alert_id", a.ID.String()),
		zap.String("reference", a.Reference),
		zap.Int("transactions", a.TransactionCount))
	return &a, nil
}

// Get returns one case.
func (s *CaseService) Get(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.Case, error) {
	if err := s.deny(ctx, actor, &caseID, authz.ActionView, authz.DomainCase); err != nil {
		return nil, err
	}
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

// List returns cases, optionally filtered by status.
func (s *CaseService) List(ctx context.Context, actor models.Actor, status models.CaseStatus) ([]*models.Case, error) {
	if err := s.deny(ctx, actor, nil, authz.ActionView, authz.DomainCase); err != nil {
		return nil, err
	}
	return s.cases.List(ctx, status)
}

// Bundle returns the full data set behind a case. Customer and transaction
// domains are checked separately from the case itself.
func (s *CaseService) Bundle(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*CaseBundle, error) {
	if s.data == nil {
		return nil, errors.New("data store not set")
	}
	for _, domain := range []authz.Domain{authz.DomainCase, authz.DomainCustomer, authz.DomainTransaction} {
		if err := s.deny(ctx, actor, &caseID, authz.ActionView, domain); err != nil {
			return nil, err
		}
	}
	bundle, err := s.data.LoadBundle(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if bundle == nil || bundle.Case == nil {
		return nil, ErrCaseNotFound
	}
	return bundle, nil
}

func (s *CaseService) deny(ctx context.Context, actor models.Actor, caseID *uuid.UUID, action authz.Action, domain authz.Domain) error {
	if err := authz.Authorize(actor, action, domain); err != nil {
		var denied *authz.Error
		if errors.As(err, &denied) && s.audit != nil {
			s.audit.RecordDenied(ctx, caseID, actor, denied)
		}
		return err
	}
	return nil
}
