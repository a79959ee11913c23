package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
)

// AlertRepository handles database operations for monitoring alerts
type AlertRepository struct {
	db *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create stores an ingested alert
func (r *AlertRepository) Create(ctx context.Context, a *models.Alert) error {
	query := `
		INSERT INTO alerts (
			id, reference, customer_id, typology, rule, severity, score,
			total_amount, currency, transaction_count, window_start, window_end,
			counterparties, jurisdictions, transactions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		a.ID, a.Reference, a.CustomerID, a.Typology, a.Rule, a.Severity, a.Score,
		a.TotalAmount, a.Currency, a.TransactionCount, a.WindowStart, a.WindowEnd,
		a.Counterparties, a.Jurisdictions, a.Transactions,
	).Scan(&a.CreatedAt)
}

// Get retrieves an alert by ID
func (r *AlertRepository) Get(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	a := &models.Alert{}
	query := `
		SELECT id, reference, customer_id, typology, rule, severity, score,
			total_amount, currency, transaction_count, window_start, window_end,
			counterparties, jurisdictions, transactions, created_at
		FROM alerts
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Reference, &a.CustomerID, &a.Typology, &a.Rule, &a.Severity, &a.Score,
		&a.TotalAmount, &a.Currency, &a.TransactionCount, &a.WindowStart, &a.WindowEnd,
		&a.Counterparties, &a.Jurisdictions, &a.Transactions, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
