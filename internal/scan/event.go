package scan

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// CycleEvent is the payload published on the "opportunities" channel after
// every completed scan cycle.
type CycleEvent struct {
	At            time.Time            `json:"at"`
	Count         int                  `json:"count"`
	Opportunities []OpportunitySummary `json:"opportunities"`
}

// OpportunitySummary is the compact per-opportunity view carried in a
// CycleEvent.
type OpportunitySummary struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id"`
	Type       string  `json:"type"`
	NetEdge    float64 `json:"net_edge"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

func encodeCycleEvent(opps []domain.Opportunity) []byte {
	ev := CycleEvent{
		At:            time.Now().UTC(),
		Count:         len(opps),
		Opportunities: make([]OpportunitySummary, 0, len(opps)),
	}
	for _, o := range opps {
		ev.Opportunities = append(ev.Opportunities, OpportunitySummary{
			ID:         o.ID,
			EventID:    o.EventID,
			Type:       string(o.Type),
			NetEdge:    o.NetEdge,
			Confidence: o.Confidence.Overall,
			Status:     string(o.Status),
		})
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return []byte("{}")
	}
	return payload
}

// AlertEvent is the payload published on the "alerts" channel for failure
// conditions the notifier forwards to operators.
type AlertEvent struct {
	Type  string    `json:"type"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

func encodeAlertEvent(kind string, err error) []byte {
	payload, merr := json.Marshal(AlertEvent{
		Type:  kind,
		Error: err.Error(),
		At:    time.Now().UTC(),
	})
	if merr != nil {
		return []byte("{}")
	}
	return payload
}

// summarize renders the advisory one-line narrative attached to an
// opportunity. Informational only; the classifier never reads it.
func summarize(opp domain.Opportunity) string {
	shape := "buy all YES"
	if opp.Type == domain.OpportunityBuyAllNoConvert {
		shape = "buy all NO and convert"
	}
	return fmt.Sprintf("%s across %d legs: prices sum to %.4f, net edge %.2f%% on up to $%.0f (%s, confidence %.2f)",
		shape, len(opp.Legs), opp.PriceSum, opp.NetEdge*100, opp.MaxNotional, opp.Status, opp.Confidence.Overall)
}
