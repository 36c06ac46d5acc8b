package handler

import (
	"log/slog"
	"net/http"

	"github.com/quanterra/arbscan/internal/domain"
)

// AuditHandler serves the append-only audit trail.
type AuditHandler struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListAudit returns audit records newest first, paginated and optionally
// restricted to a created_at window.
// GET /api/audit?limit=50&offset=0&since=...&until=...
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.audit.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit records failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit records")
		return
	}

	if records == nil {
		records = []domain.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
