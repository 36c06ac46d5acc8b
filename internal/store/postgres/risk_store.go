package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quanterra/arbscan/internal/domain"
)

// RiskStore implements domain.RiskStore on the single-row risk_limits
// table. Reads hit the committed row at call time, so a gating decision
// always sees the latest operator change.
type RiskStore struct {
	pool *pgxpool.Pool
}

// NewRiskStore creates a new RiskStore.
func NewRiskStore(pool *pgxpool.Pool) *RiskStore {
	return &RiskStore{pool: pool}
}

// Get returns the current control-plane state.
func (s *RiskStore) Get(ctx context.Context) (domain.RiskLimits, error) {
	var l domain.RiskLimits
	err := s.pool.QueryRow(ctx, `
		SELECT kill_switch, observation_only, manual_approval, auto_execute,
		       min_edge, min_depth, max_market_exposure, max_daily_exposure,
		       updated_at, updated_by
		FROM risk_limits WHERE id = 1`,
	).Scan(
		&l.KillSwitch, &l.ObservationOnly, &l.ManualApproval, &l.AutoExecute,
		&l.MinEdge, &l.MinDepth, &l.MaxMarketExposure, &l.MaxDailyExposure,
		&l.UpdatedAt, &l.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskLimits{}, domain.ErrNotFound
		}
		return domain.RiskLimits{}, fmt.Errorf("postgres: get risk limits: %w", err)
	}
	return l, nil
}

// Update overwrites the control-plane row.
func (s *RiskStore) Update(ctx context.Context, l domain.RiskLimits) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE risk_limits
		SET kill_switch = $1, observation_only = $2, manual_approval = $3,
		    auto_execute = $4, min_edge = $5, min_depth = $6,
		    max_market_exposure = $7, max_daily_exposure = $8,
		    updated_at = NOW(), updated_by = $9
		WHERE id = 1`,
		l.KillSwitch, l.ObservationOnly, l.ManualApproval, l.AutoExecute,
		l.MinEdge, l.MinDepth, l.MaxMarketExposure, l.MaxDailyExposure,
		l.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("postgres: update risk limits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Seed inserts the defaults only when no control-plane row exists yet, so
// a redeploy never resets operator-tuned limits.
func (s *RiskStore) Seed(ctx context.Context, l domain.RiskLimits) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO risk_limits (id, kill_switch, observation_only, manual_approval,
		                         auto_execute, min_edge, min_depth,
		                         max_market_exposure, max_daily_exposure, updated_by)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, 'seed')
		ON CONFLICT (id) DO NOTHING`,
		l.KillSwitch, l.ObservationOnly, l.ManualApproval, l.AutoExecute,
		l.MinEdge, l.MinDepth, l.MaxMarketExposure, l.MaxDailyExposure,
	)
	if err != nil {
		return fmt.Errorf("postgres: seed risk limits: %w", err)
	}
	return nil
}
