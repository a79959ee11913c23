package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/service"
)

// DataProcessor assembles the case bundle from the case, alert and
// customer repositories. It is the single read path used by generation.
type DataProcessor struct {
	cases     *CaseRepository
	alerts    *AlertRepository
	customers *CustomerRepository
}

// NewDataProcessor creates a new data processor over one pool
func NewDataProcessor(db *pgxpool.Pool) *DataProcessor {
	return &DataProcessor{
		cases:     NewCaseRepository(db),
		alerts:    NewAlertRepository(db),
		customers: NewCustomerRepository(db),
	}
}

// LoadBundle loads the full data set behind a case. Absent alert or
// customer rows come back nil; the caller decides whether that is fatal.
func (p *DataProcessor) LoadBundle(ctx context.Context, caseID uuid.UUID) (*service.CaseBundle, error) {
	c, err := p.cases.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, nil
	}

	bundle := &service.CaseBundle{Case: c}

	bundle.Alert, err = p.alerts.Get(ctx, c.AlertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	bundle.Customer, err = p.customers.Get(ctx, c.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer profile: %w", err)
	}
	return bundle, nil
}
