package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quanterra/arbscan/internal/domain"
	"github.com/quanterra/arbscan/internal/server/middleware"
)

// RiskHandler serves the global control-plane state. Every accepted update
// is written to the audit trail with the prior and new flag values.
type RiskHandler struct {
	risk   domain.RiskStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler. audit may be nil in tests.
func NewRiskHandler(risk domain.RiskStore, audit domain.AuditStore, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{risk: risk, audit: audit, logger: logger}
}

// riskView is the wire shape of the control-plane state. Pointer fields in
// the update request distinguish "not sent" from zero values so a partial
// PUT never silently resets a flag.
type riskView struct {
	KillSwitch        bool      `json:"kill_switch"`
	ObservationOnly   bool      `json:"observation_only"`
	ManualApproval    bool      `json:"manual_approval"`
	AutoExecute       bool      `json:"auto_execute"`
	MinEdge           float64   `json:"min_edge"`
	MinDepth          float64   `json:"min_depth"`
	MaxMarketExposure float64   `json:"max_market_exposure"`
	MaxDailyExposure  float64   `json:"max_daily_exposure"`
	UpdatedAt         time.Time `json:"updated_at"`
	UpdatedBy         string    `json:"updated_by"`
}

type riskUpdateRequest struct {
	KillSwitch        *bool    `json:"kill_switch"`
	ObservationOnly   *bool    `json:"observation_only"`
	ManualApproval    *bool    `json:"manual_approval"`
	AutoExecute       *bool    `json:"auto_execute"`
	MinEdge           *float64 `json:"min_edge"`
	MinDepth          *float64 `json:"min_depth"`
	MaxMarketExposure *float64 `json:"max_market_exposure"`
	MaxDailyExposure  *float64 `json:"max_daily_exposure"`
}

func toRiskView(l domain.RiskLimits) riskView {
	return riskView{
		KillSwitch:        l.KillSwitch,
		ObservationOnly:   l.ObservationOnly,
		ManualApproval:    l.ManualApproval,
		AutoExecute:       l.AutoExecute,
		MinEdge:           l.MinEdge,
		MinDepth:          l.MinDepth,
		MaxMarketExposure: l.MaxMarketExposure,
		MaxDailyExposure:  l.MaxDailyExposure,
		UpdatedAt:         l.UpdatedAt,
		UpdatedBy:         l.UpdatedBy,
	}
}

// GetRisk returns the current control-plane state.
// GET /api/risk
func (h *RiskHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	limits, err := h.risk.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get risk limits failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read risk limits")
		return
	}
	writeJSON(w, http.StatusOK, toRiskView(limits))
}

// UpdateRisk applies a partial update to the control-plane state. Only
// fields present in the body change; everything else keeps its committed
// value.
// PUT /api/risk
func (h *RiskHandler) UpdateRisk(w http.ResponseWriter, r *http.Request) {
	var req riskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	limits, err := h.risk.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: read risk limits failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read risk limits")
		return
	}
	prior := limits

	if req.KillSwitch != nil {
		limits.KillSwitch = *req.KillSwitch
	}
	if req.ObservationOnly != nil {
		limits.ObservationOnly = *req.ObservationOnly
	}
	if req.ManualApproval != nil {
		limits.ManualApproval = *req.ManualApproval
	}
	if req.AutoExecute != nil {
		limits.AutoExecute = *req.AutoExecute
	}
	if req.MinEdge != nil {
		if *req.MinEdge < 0 {
			writeError(w, http.StatusBadRequest, "min_edge must be non-negative")
			return
		}
		limits.MinEdge = *req.MinEdge
	}
	if req.MinDepth != nil {
		if *req.MinDepth < 0 {
			writeError(w, http.StatusBadRequest, "min_depth must be non-negative")
			return
		}
		limits.MinDepth = *req.MinDepth
	}
	if req.MaxMarketExposure != nil {
		limits.MaxMarketExposure = *req.MaxMarketExposure
	}
	if req.MaxDailyExposure != nil {
		limits.MaxDailyExposure = *req.MaxDailyExposure
	}

	limits.UpdatedAt = time.Now().UTC()
	limits.UpdatedBy = middleware.OperatorFrom(r.Context())

	if err := h.risk.Update(r.Context(), limits); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: update risk limits failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update risk limits")
		return
	}

	h.logger.InfoContext(r.Context(), "risk limits updated",
		slog.String("operator", limits.UpdatedBy),
		slog.Bool("kill_switch", limits.KillSwitch),
		slog.Bool("observation_only", limits.ObservationOnly),
	)
	h.auditUpdate(r, prior, limits)
	writeJSON(w, http.StatusOK, toRiskView(limits))
}

// auditUpdate records the control-plane change. Best-effort.
func (h *RiskHandler) auditUpdate(r *http.Request, prior, next domain.RiskLimits) {
	if h.audit == nil {
		return
	}
	rec := domain.AuditRecord{
		ID:     uuid.New().String(),
		Module: domain.AuditModuleRisk,
		Action: "risk_limits_updated",
		Inputs: map[string]any{
			"prior_kill_switch":      prior.KillSwitch,
			"prior_observation_only": prior.ObservationOnly,
			"prior_min_edge":         prior.MinEdge,
			"prior_min_depth":        prior.MinDepth,
		},
		Metrics: map[string]any{
			"kill_switch":      next.KillSwitch,
			"observation_only": next.ObservationOnly,
			"min_edge":         next.MinEdge,
			"min_depth":        next.MinDepth,
		},
		Operator:  next.UpdatedBy,
		Result:    "ok",
		CreatedAt: next.UpdatedAt,
	}
	if err := h.audit.Append(r.Context(), rec); err != nil {
		h.logger.ErrorContext(r.Context(), "audit write failed",
			slog.String("error", err.Error()),
		)
	}
}
