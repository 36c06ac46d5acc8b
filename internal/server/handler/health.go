package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks connectivity to one backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthInspector exposes the best-effort liveness signals recorded by the
// scan loop and audit path.
type HealthInspector interface {
	LastHeartbeat(ctx context.Context, component string) time.Time
	AuditFailures(ctx context.Context) (int64, string)
}

// HealthHandler serves the health-check endpoint, including the
// audit-channel health signal.
type HealthHandler struct {
	db        Pinger
	cache     Pinger
	inspector HealthInspector
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. db, cache, and inspector may
// be nil; their sections are then omitted from the response.
func NewHealthHandler(db, cache Pinger, inspector HealthInspector, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, inspector: inspector, logger: logger}
}

// HealthCheck responds with the process status and per-dependency checks.
// Overall status degrades to "degraded" when a dependency check fails or
// audit writes have been failing.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "ok"
	checks := map[string]any{}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			status = "degraded"
			checks["postgres"] = err.Error()
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status = "degraded"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	resp := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}

	if h.inspector != nil {
		if hb := h.inspector.LastHeartbeat(ctx, "scanner"); !hb.IsZero() {
			resp["scanner_heartbeat"] = hb.Format(time.RFC3339)
		}
		failures, last := h.inspector.AuditFailures(ctx)
		resp["audit_failures"] = failures
		if failures > 0 {
			resp["status"] = "degraded"
			resp["last_audit_error"] = last
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
