package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sardraft-backend/models"
)

// AuditRepository handles database operations for the audit hash chains.
// The table is append-only: a database trigger rejects UPDATE and DELETE.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, chain_key, case_id, seq, actor, kind, payload, created_at, prev_hash, event_hash`

// appendEventTx seals ev against the chain head and inserts it, all inside
// the caller's transaction. A transaction-scoped advisory lock on the chain
// key serializes concurrent appends so sequences stay gapless.
func appendEventTx(ctx context.Context, tx pgx.Tx, ev *models.AuditEvent) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), 0)`, ev.ChainKey); err != nil {
		return fmt.Errorf("failed to lock chain %q: %w", ev.ChainKey, err)
	}

	var prev *models.AuditEvent
	head := &models.AuditEvent{}
	err := tx.QueryRow(ctx, `
		SELECT `+auditColumns+`
		FROM audit_events
		WHERE chain_key = $1
		ORDER BY seq DESC
		LIMIT 1`, ev.ChainKey).Scan(
		&head.ID, &head.ChainKey, &head.CaseID, &head.Seq, &head.Actor,
		&head.Kind, &head.Payload, &head.CreatedAt, &head.PrevHash, &head.EventHash,
	)
	switch {
	case err == nil:
		prev = head
	case errors.Is(err, pgx.ErrNoRows):
		// genesis
	default:
		return fmt.Errorf("failed to read chain head: %w", err)
	}

	if err := ev.Seal(prev); err != nil {
		return err
	}

	// payload is stored as text, not jsonb: jsonb would normalize the
	// bytes and break hash verification on read-back.
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID, ev.ChainKey, ev.CaseID, ev.Seq, ev.Actor,
		ev.Kind, string(ev.Payload), ev.CreatedAt, ev.PrevHash, ev.EventHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Append seals and stores one event.
func (r *AuditRepository) Append(ctx context.Context, ev *models.AuditEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := appendEventTx(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListByChain returns a chain's events in sequence order.
func (r *AuditRepository) ListByChain(ctx context.Context, chainKey string) ([]*models.AuditEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_events
		WHERE chain_key = $1
		ORDER BY seq ASC`, chainKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		ev := &models.AuditEvent{}
		var payload string
		err := rows.Scan(
			&ev.ID, &ev.ChainKey, &ev.CaseID, &ev.Seq, &ev.Actor,
			&ev.Kind, &payload, &ev.CreatedAt, &ev.PrevHash, &ev.EventHash,
		)
		if err != nil {
			return nil, err
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}

	return events, rows.Err()
}

// ListChainKeys returns every chain key present in the trail.
func (r *AuditRepository) ListChainKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT chain_key FROM audit_events ORDER BY chain_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
