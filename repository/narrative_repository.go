package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
	"sardraft-backend/service"
)

// NarrativeRepository handles database operations for narrative versions
// and their review transitions. State changes and their audit events commit
// in the same transaction; neither can exist without the other.
type NarrativeRepository struct {
	db *pgxpool.Pool
}

// NewNarrativeRepository creates a new narrative repository
func NewNarrativeRepository(db *pgxpool.Pool) *NarrativeRepository {
	return &NarrativeRepository{db: db}
}

const versionColumns = `id, case_id, sequence, state, body, author, risk_indicators,
	typologies, retrieval, model_meta, request_digest, created_at, updated_at`

func scanVersion(row pgx.Row) (*models.NarrativeVersion, error) {
	v := &models.NarrativeVersion{}
	err := row.Scan(
		&v.ID, &v.CaseID, &v.Sequence, &v.State, &v.Body, &v.Author,
		&v.RiskIndicators, &v.Typologies, &v.Retrieval, &v.Model,
		&v.RequestDigest, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// MaxSequence returns the highest version sequence for a case, 0 if none.
func (r *NarrativeRepository) MaxSequence(ctx context.Context, caseID uuid.UUID) (int, error) {
	var max int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM narrative_versions WHERE case_id = $1`,
		caseID).Scan(&max)
	return max, err
}

// CurrentVersion returns the highest-sequence version for a case.
func (r *NarrativeRepository) CurrentVersion(ctx context.Context, caseID uuid.UUID) (*models.NarrativeVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM narrative_versions
		WHERE case_id = $1
		ORDER BY sequence DESC
		LIMIT 1`
	return scanVersion(r.db.QueryRow(ctx, query, caseID))
}

// GetVersion retrieves a version by ID.
func (r *NarrativeRepository) GetVersion(ctx context.Context, id uuid.UUID) (*models.NarrativeVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM narrative_versions WHERE id = $1`
	return scanVersion(r.db.QueryRow(ctx, query, id))
}

// ListVersions returns all versions of a case, oldest first.
func (r *NarrativeRepository) ListVersions(ctx context.Context, caseID uuid.UUID) ([]*models.NarrativeVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM narrative_versions
		WHERE case_id = $1
		ORDER BY sequence ASC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.NarrativeVersion
	for rows.Next() {
		v := &models.NarrativeVersion{}
		err := rows.Scan(
			&v.ID, &v.CaseID, &v.Sequence, &v.State, &v.Body, &v.Author,
			&v.RiskIndicators, &v.Typologies, &v.Retrieval, &v.Model,
			&v.RequestDigest, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// CreateVersionWithEvent inserts a version, moves the case to DRAFT and
// appends the GENERATED event, atomically.
func (r *NarrativeRepository) CreateVersionWithEvent(ctx context.Context, v *models.NarrativeVersion, ev *models.AuditEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO narrative_versions (
			id, case_id, sequence, state, body, author, risk_indicators,
			typologies, retrieval, model_meta, request_digest, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.CaseID, v.Sequence, v.State, v.Body, v.Author, v.RiskIndicators,
		v.Typologies, v.Retrieval, v.Model, v.RequestDigest, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1`,
		v.CaseID, models.CaseDraft)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}

	if err := appendEventTx(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateBodyWithEvent swaps the body and author of a DRAFT version and
// appends the EDITED event. Returns false when the version already left
// DRAFT.
func (r *NarrativeRepository) UpdateBodyWithEvent(ctx context.Context, versionID uuid.UUID, sequence int, body, author string, ev *models.AuditEvent) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE narrative_versions
		SET body = $3, author = $4, updated_at = NOW()
		WHERE id = $1 AND sequence = $2 AND state = $5`,
		versionID, sequence, body, author, models.StateDraft)
	if err != nil {
		return false, fmt.Errorf("failed to update version body: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendEventTx(ctx, tx, ev); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// Transition performs an optimistic state swap together with the case
// status update, optional decision and filing rows, and the audit event.
// Returns false without writing anything when the swap finds no row.
func (r *NarrativeRepository) Transition(ctx context.Context, p service.TransitionParams) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE narrative_versions
		SET state = $4, updated_at = NOW()
		WHERE id = $1 AND sequence = $2 AND state = $3`,
		p.VersionID, p.Sequence, p.From, p.To)
	if err != nil {
		return false, fmt.Errorf("failed to transition version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1`,
		p.CaseID, p.CaseStatus)
	if err != nil {
		return false, fmt.Errorf("failed to update case status: %w", err)
	}

	if p.Decision != nil {
		d := p.Decision
		_, err = tx.Exec(ctx, `
			INSERT INTO approval_decisions (id, case_id, version_id, decision, approver, rationale, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, d.CaseID, d.VersionID, d.Decision, d.Approver, d.Rationale, d.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("failed to insert decision: %w", err)
		}
	}

	if p.Filing != nil {
		f := p.Filing
		_, err = tx.Exec(ctx, `
			INSERT INTO filings (id, case_id, version_id, sar_reference, archive_path, filed_by, filed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.CaseID, f.VersionID, f.SARReference, f.ArchivePath, f.FiledBy, f.FiledAt)
		if err != nil {
			return false, fmt.Errorf("failed to insert filing: %w", err)
		}
	}

	if err := appendEventTx(ctx, tx, p.Event); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
