package domain

import "context"

// FeeRateCache is a TTL cache in front of the fee-rate lookup. Get returns
// ErrFeeRateUnknown when no fresh value is available; callers must treat
// that as a first-class state, not an error to retry inline.
type FeeRateCache interface {
	Get(ctx context.Context) (FeeRate, error)
	Set(ctx context.Context, rate FeeRate) error
}

// OrderbookCache stores raw per-token book snapshots for consumers outside
// the scan cycle (dashboard, debugging). The scan itself always evaluates
// the books it fetched in the current cycle.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, snap BookSnapshot) error
	GetSnapshot(ctx context.Context, tokenID string) (BookSnapshot, error)
}

// SignalBus is a lightweight publish/subscribe channel used to push scan
// and approval events to live consumers (the websocket hub).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// HealthRecorder records best-effort liveness signals. Implementations must
// never block or fail the operation being recorded.
type HealthRecorder interface {
	Heartbeat(ctx context.Context, component string) error
	ReportAuditFailure(ctx context.Context, err error)
}
