package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quanterra/arbscan/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. The table is
// append-only: this type issues INSERTs and SELECTs, nothing else.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts one audit record.
func (s *AuditStore) Append(ctx context.Context, rec domain.AuditRecord) error {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit inputs: %w", err)
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit metrics: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_records (id, module, action, inputs, metrics, narrative, operator, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Module, rec.Action, inputs, metrics,
		rec.Narrative, rec.Operator, rec.Result, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit record: %w", err)
	}
	return nil
}

// List returns audit records newest first, optionally restricted to a
// created_at window via opts.Since (inclusive) and opts.Until (exclusive).
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, module, action, inputs, metrics, narrative, operator, result, created_at
		FROM audit_records`
	var (
		conds []string
		args  []any
	)
	if opts.Since != nil {
		args = append(args, *opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf("\n\t\tORDER BY created_at DESC\n\t\tLIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit records: %w", err)
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

// ListRange pages the archive window with a keyset on (created_at, id):
// records strictly after the (sinceTime, sinceID) key and before the
// upper bound, oldest first. An empty sinceID admits every record stamped
// exactly at sinceTime, so batch boundaries inside a run of identical
// timestamps lose nothing.
func (s *AuditStore) ListRange(ctx context.Context, sinceTime time.Time, sinceID string, before time.Time, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, module, action, inputs, metrics, narrative, operator, result, created_at
		FROM audit_records
		WHERE (created_at, id) > ($1, $2) AND created_at < $3
		ORDER BY created_at, id
		LIMIT $4`,
		sinceTime, sinceID, before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit records before %s: %w", before, err)
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

func collectAuditRows(rows pgx.Rows) ([]domain.AuditRecord, error) {
	var list []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var inputs, metrics []byte
		if err := rows.Scan(&rec.ID, &rec.Module, &rec.Action, &inputs, &metrics,
			&rec.Narrative, &rec.Operator, &rec.Result, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
			return nil, fmt.Errorf("decode audit inputs: %w", err)
		}
		if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
			return nil, fmt.Errorf("decode audit metrics: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
