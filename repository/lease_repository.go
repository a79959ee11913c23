package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaseRepository implements per-case generation leases on a single table.
// A lease is live until its expiry; an expired row can be taken over by the
// next caller without any cleanup job.
type LeaseRepository struct {
	db *pgxpool.Pool
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(db *pgxpool.Pool) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// Acquire takes the generation lease for a case. It returns false when
// another holder has a live lease.
func (r *LeaseRepository) Acquire(ctx context.Context, caseID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	var got string
	err := r.db.QueryRow(ctx, `
		INSERT INTO generation_leases (case_id, holder, acquired_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + $3)
		ON CONFLICT (case_id) DO UPDATE
		SET holder = EXCLUDED.holder,
		    acquired_at = EXCLUDED.acquired_at,
		    expires_at = EXCLUDED.expires_at
		WHERE generation_leases.expires_at < NOW()
		RETURNING holder`,
		caseID, holder, ttl).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release drops the lease if the caller still holds it. Releasing a lease
// that expired and was taken over is a no-op.
func (r *LeaseRepository) Release(ctx context.Context, caseID uuid.UUID, holder string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM generation_leases WHERE case_id = $1 AND holder = $2`,
		caseID, holder)
	return err
}
