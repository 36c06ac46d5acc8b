package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quanterra/arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppColumns = `id, event_id, event_title, opp_type, legs, price_sum, gross_edge,
	fee_rate, fees, slippage, settlement_cost, net_edge, min_depth, max_notional,
	capital_lock_seconds, convert_active, confidence, status, narrative,
	discovered_at, updated_at, approval_status, approved_by, approved_at`

// Replace swaps the entire snapshot in a single transaction: readers see
// either the previous complete set or the new complete set, never a mix of
// two scan generations. The slice order defines the persisted rank.
func (s *OpportunityStore) Replace(ctx context.Context, opps []domain.Opportunity) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM opportunities`); err != nil {
		return fmt.Errorf("postgres: clear opportunities: %w", err)
	}

	for rank, opp := range opps {
		legs, err := json.Marshal(opp.Legs)
		if err != nil {
			return fmt.Errorf("postgres: marshal legs for %s: %w", opp.ID, err)
		}
		confidence, err := json.Marshal(opp.Confidence)
		if err != nil {
			return fmt.Errorf("postgres: marshal confidence for %s: %w", opp.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO opportunities (`+oppColumns+`, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
			opp.ID, opp.EventID, opp.EventTitle, string(opp.Type), legs,
			opp.PriceSum, opp.GrossEdge, opp.FeeRate, opp.Fees, opp.Slippage,
			opp.SettlementCost, opp.NetEdge, opp.MinDepth, opp.MaxNotional,
			int64(opp.CapitalLock.Seconds()), opp.ConvertActive, confidence,
			string(opp.Status), opp.Narrative, opp.DiscoveredAt, opp.UpdatedAt,
			string(opp.ApprovalStatus), opp.ApprovedBy, opp.ApprovedAt, rank,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit snapshot: %w", err)
	}
	return nil
}

// GetByID returns a single opportunity.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.Opportunity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+oppColumns+` FROM opportunities WHERE id = $1`, id)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Opportunity{}, domain.ErrNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	return opp, nil
}

// List returns the current snapshot ranked by net edge descending (the
// persisted rank order).
func (s *OpportunityStore) List(ctx context.Context) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+oppColumns+` FROM opportunities ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var list []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		list = append(list, opp)
	}
	return list, rows.Err()
}

// UpdateApproval advances the approval state of one opportunity. The state
// machine itself lives in the approval package; this only persists the
// outcome.
func (s *OpportunityStore) UpdateApproval(ctx context.Context, id string, status domain.ApprovalStatus, operator string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities
		SET approval_status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1`,
		id, string(status), operator, at,
	)
	if err != nil {
		return fmt.Errorf("postgres: update approval %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanOpportunity reads one row into a domain.Opportunity.
func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var (
		opp            domain.Opportunity
		oppType        string
		legsJSON       []byte
		confidenceJSON []byte
		lockSeconds    int64
		status         string
		approvalStatus string
	)
	err := row.Scan(
		&opp.ID, &opp.EventID, &opp.EventTitle, &oppType, &legsJSON,
		&opp.PriceSum, &opp.GrossEdge, &opp.FeeRate, &opp.Fees, &opp.Slippage,
		&opp.SettlementCost, &opp.NetEdge, &opp.MinDepth, &opp.MaxNotional,
		&lockSeconds, &opp.ConvertActive, &confidenceJSON, &status,
		&opp.Narrative, &opp.DiscoveredAt, &opp.UpdatedAt, &approvalStatus,
		&opp.ApprovedBy, &opp.ApprovedAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if err := json.Unmarshal(legsJSON, &opp.Legs); err != nil {
		return domain.Opportunity{}, fmt.Errorf("decode legs: %w", err)
	}
	if err := json.Unmarshal(confidenceJSON, &opp.Confidence); err != nil {
		return domain.Opportunity{}, fmt.Errorf("decode confidence: %w", err)
	}
	opp.Type = domain.OpportunityType(oppType)
	opp.Status = domain.Status(status)
	opp.ApprovalStatus = domain.ApprovalStatus(approvalStatus)
	opp.CapitalLock = time.Duration(lockSeconds) * time.Second
	return opp, nil
}
