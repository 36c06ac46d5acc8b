package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quanterra/arbscan/internal/approval"
	"github.com/quanterra/arbscan/internal/domain"
	"github.com/quanterra/arbscan/internal/server/middleware"
)

// ApprovalHandler serves approval actions against opportunities.
type ApprovalHandler struct {
	gate   *approval.Gate
	logger *slog.Logger
}

// NewApprovalHandler creates an ApprovalHandler over the gate.
func NewApprovalHandler(gate *approval.Gate, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{gate: gate, logger: logger}
}

type actionRequest struct {
	Action string `json:"action"`
}

type actionResponse struct {
	OpportunityID  string `json:"opportunity_id"`
	Action         string `json:"action"`
	ApprovalStatus string `json:"approval_status,omitempty"`
	Blocked        bool   `json:"blocked"`
	BlockReason    string `json:"block_reason,omitempty"`
	Operator       string `json:"operator"`
}

var validActions = map[string]domain.ApprovalAction{
	"approve":  domain.ActionApprove,
	"simulate": domain.ActionSimulate,
	"reject":   domain.ActionReject,
	"execute":  domain.ActionExecute,
}

// ApplyAction applies an approval action to an opportunity. Blocked
// attempts return 409 with the named block reason; unknown opportunities
// return 404.
// POST /api/opportunities/{id}/action
func (h *ApprovalHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	action, ok := validActions[req.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	operator := middleware.OperatorFrom(r.Context())

	dec, err := h.gate.Apply(r.Context(), id, action, operator)
	resp := actionResponse{
		OpportunityID:  dec.OpportunityID,
		Action:         string(dec.Action),
		ApprovalStatus: string(dec.NewStatus),
		Blocked:        dec.Blocked,
		BlockReason:    dec.BlockReason,
		Operator:       dec.Operator,
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		if reason := approval.BlockReasonOf(err); reason != "" {
			resp.Blocked = true
			resp.BlockReason = reason
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: approval action failed",
			slog.String("id", id),
			slog.String("action", req.Action),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to apply action")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
