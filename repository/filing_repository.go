package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
)

// FilingRepository reads filing records. Filings are written inside the
// filing transition, never through this repository.
type FilingRepository struct {
	db *pgxpool.Pool
}

// NewFilingRepository creates a new filing repository
func NewFilingRepository(db *pgxpool.Pool) *FilingRepository {
	return &FilingRepository{db: db}
}

// GetByCase retrieves the filing for a case, nil if the case has not been filed
func (r *FilingRepository) GetByCase(ctx context.Context, caseID uuid.UUID) (*models.Filing, error) {
	f := &models.Filing{}
	err := r.db.QueryRow(ctx, `
		SELECT id, case_id, version_id, sar_reference, archive_path, filed_by, filed_at
		FROM filings
		WHERE case_id = $1`,
		caseID).Scan(
		&f.ID, &f.CaseID, &f.VersionID, &f.SARReference, &f.ArchivePath, &f.FiledBy, &f.FiledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}
