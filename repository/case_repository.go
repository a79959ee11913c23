package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
)

// CaseRepository handles database operations for cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `id, reference, alert_id, customer_id, status, severity, jurisdiction, assigned_to, created_at, updated_at`

func scanCase(row pgx.Row) (*models.Case, error) {
	c := &models.Case{}
	err := row.Scan(
		&c.ID, &c.Reference, &c.AlertID, &c.CustomerID, &c.Status,
		&c.Severity, &c.Jurisdiction, &c.AssignedTo, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Create creates a new case
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cases (
			id, reference, alert_id, customer_id, status, severity,
			jurisdiction, assigned_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		c.ID, c.Reference, c.AlertID, c.CustomerID, c.Status,
		c.Severity, c.Jurisdiction, c.AssignedTo,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Get retrieves a case by ID
func (r *CaseRepository) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	return scanCase(r.db.QueryRow(ctx, query, id))
}

// GetByReference retrieves a case by its human reference
func (r *CaseRepository) GetByReference(ctx context.Context, reference string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE reference = $1`
	return scanCase(r.db.QueryRow(ctx, query, reference))
}

// List retrieves cases, optionally filtered by status
func (r *CaseRepository) List(ctx context.Context, status models.CaseStatus) ([]*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c := &models.Case{}
		err := rows.Scan(
			&c.ID, &c.Reference, &c.AlertID, &c.CustomerID, &c.Status,
			&c.Severity, &c.Jurisdiction, &c.AssignedTo, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}
