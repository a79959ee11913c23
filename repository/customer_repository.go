package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
)

// CustomerRepository handles database operations for customer profiles
type CustomerRepository struct {
	db *pgxpool.Pool
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Upsert stores or refreshes a customer profile from the KYC feed
func (r *CustomerRepository) Upsert(ctx context.Context, c *models.CustomerProfile) error {
	query := `
		INSERT INTO customer_profiles (
			customer_id, full_name, date_of_birth, nationality, country,
			occupation, employer, annual_income, risk_rating, kyc_status,
			pep, sanctions_match, account_opened
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (customer_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			nationality = EXCLUDED.nationality,
			country = EXCLUDED.country,
			occupation = EXCLUDED.occupation,
			employer = EXCLUDED.employer,
			annual_income = EXCLUDED.annual_income,
			risk_rating = EXCLUDED.risk_rating,
			kyc_status = EXCLUDED.kyc_status,
			pep = EXCLUDED.pep,
			sanctions_match = EXCLUDED.sanctions_match,
			account_opened = EXCLUDED.account_opened,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		c.CustomerID, c.FullName, c.DateOfBirth, c.Nationality, c.Country,
		c.Occupation, c.Employer, c.AnnualIncome, c.RiskRating, c.KYCStatus,
		c.PEP, c.SanctionsMatch, c.AccountOpened,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Get retrieves a customer profile
func (r *CustomerRepository) Get(ctx context.Context, customerID string) (*models.CustomerProfile, error) {
	c := &models.CustomerProfile{}
	query := `
		SELECT customer_id, full_name, date_of_birth, nationality, country,
			occupation, employer, annual_income, risk_rating, kyc_status,
			pep, sanctions_match, account_opened, created_at, updated_at
		FROM customer_profiles
		WHERE customer_id = $1`

	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID, &c.FullName, &c.DateOfBirth, &c.Nationality, &c.Country,
		&c.Occupation, &c.Employer, &c.AnnualIncome, &c.RiskRating, &c.KYCStatus,
		&c.PEP, &c.SanctionsMatch, &c.AccountOpened, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
