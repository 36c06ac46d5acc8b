package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OpportunityStore persists the current-cycle opportunity snapshot. Replace
// swaps the entire set in one transaction (clear-then-bulk-insert) so
// readers never observe a mix of two scan generations.
type OpportunityStore interface {
	Replace(ctx context.Context, opps []Opportunity) error
	GetByID(ctx context.Context, id string) (Opportunity, error)
	List(ctx context.Context) ([]Opportunity, error)
	UpdateApproval(ctx context.Context, id string, status ApprovalStatus, operator string, at time.Time) error
}

// RiskStore persists the global control-plane state. Get must read the
// current committed row at call time; gating decisions never use a value
// cached earlier.
type RiskStore interface {
	Get(ctx context.Context) (RiskLimits, error)
	Update(ctx context.Context, limits RiskLimits) error
	// Seed writes the defaults only when no row exists yet.
	Seed(ctx context.Context, limits RiskLimits) error
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	Append(ctx context.Context, rec AuditRecord) error
	List(ctx context.Context, opts ListOpts) ([]AuditRecord, error)
	// ListRange returns records with (created_at, id) strictly after the
	// (sinceTime, sinceID) key and created_at < before, ordered by
	// (created_at, id). The id tiebreak makes keyset pagination lossless
	// when many records share a timestamp; an empty sinceID makes the
	// lower time boundary inclusive.
	ListRange(ctx context.Context, sinceTime time.Time, sinceID string, before time.Time, limit int) ([]AuditRecord, error)
}
