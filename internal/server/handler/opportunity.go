package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// OpportunityHandler serves the current opportunity snapshot.
type OpportunityHandler struct {
	opps   domain.OpportunityStore
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(opps domain.OpportunityStore, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, logger: logger}
}

// opportunityView is the wire shape of one opportunity.
type opportunityView struct {
	ID             string                 `json:"id"`
	EventID        string                 `json:"event_id"`
	EventTitle     string                 `json:"event_title,omitempty"`
	Type           string                 `json:"type"`
	Legs           []domain.LegSnapshot   `json:"legs"`
	PriceSum       float64                `json:"price_sum"`
	GrossEdge      float64                `json:"gross_edge"`
	FeeRate        *float64               `json:"fee_rate"`
	Fees           float64                `json:"fees"`
	Slippage       float64                `json:"slippage"`
	SettlementCost float64                `json:"settlement_cost"`
	NetEdge        float64                `json:"net_edge"`
	MinDepth       float64                `json:"min_depth"`
	MaxNotional    float64                `json:"max_notional"`
	ConvertActive  bool                   `json:"convert_active"`
	Confidence     domain.ConfidenceScore `json:"confidence"`
	Status         string                 `json:"status"`
	Narrative      string                 `json:"narrative"`
	DiscoveredAt   time.Time              `json:"discovered_at"`
	ApprovalStatus string                 `json:"approval_status"`
	ApprovedBy     string                 `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time             `json:"approved_at,omitempty"`
}

func toView(opp domain.Opportunity) opportunityView {
	return opportunityView{
		ID:             opp.ID,
		EventID:        opp.EventID,
		EventTitle:     opp.EventTitle,
		Type:           string(opp.Type),
		Legs:           opp.Legs,
		PriceSum:       opp.PriceSum,
		GrossEdge:      opp.GrossEdge,
		FeeRate:        opp.FeeRate,
		Fees:           opp.Fees,
		Slippage:       opp.Slippage,
		SettlementCost: opp.SettlementCost,
		NetEdge:        opp.NetEdge,
		MinDepth:       opp.MinDepth,
		MaxNotional:    opp.MaxNotional,
		ConvertActive:  opp.ConvertActive,
		Confidence:     opp.Confidence,
		Status:         string(opp.Status),
		Narrative:      opp.Narrative,
		DiscoveredAt:   opp.DiscoveredAt,
		ApprovalStatus: string(opp.ApprovalStatus),
		ApprovedBy:     opp.ApprovedBy,
		ApprovedAt:     opp.ApprovedAt,
	}
}

// ListOpportunities returns the current snapshot ranked by net edge
// descending, exactly as the last completed scan cycle wrote it.
// GET /api/opportunities
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opps.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	views := make([]opportunityView, 0, len(opps))
	for _, opp := range opps {
		views = append(views, toView(opp))
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": views})
}

// GetOpportunity returns a single opportunity by ID.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	opp, err := h.opps.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get opportunity failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}
	writeJSON(w, http.StatusOK, toView(opp))
}
