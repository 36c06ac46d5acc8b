package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// Bridge consumes the signal bus and turns scan, approval, and alert
// events into operator notifications. Running it is optional; the bus
// channels exist whether or not anyone is notifying.
type Bridge struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewBridge creates a Bridge from the bus to the notifier.
func NewBridge(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Bridge {
	return &Bridge{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_bridge")),
	}
}

// Run subscribes to the bus channels and forwards events until the
// context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	oppCh, err := b.bus.Subscribe(ctx, "opportunities")
	if err != nil {
		return fmt.Errorf("notify: subscribe opportunities: %w", err)
	}
	apprCh, err := b.bus.Subscribe(ctx, "approvals")
	if err != nil {
		return fmt.Errorf("notify: subscribe approvals: %w", err)
	}
	alertCh, err := b.bus.Subscribe(ctx, "alerts")
	if err != nil {
		return fmt.Errorf("notify: subscribe alerts: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-oppCh:
			if !ok {
				return nil
			}
			b.handleCycle(ctx, data)
		case data, ok := <-apprCh:
			if !ok {
				return nil
			}
			b.handleApproval(ctx, data)
		case data, ok := <-alertCh:
			if !ok {
				return nil
			}
			b.handleAlert(ctx, data)
		}
	}
}

// cyclePayload mirrors the scan cycle event shape.
type cyclePayload struct {
	At            time.Time `json:"at"`
	Opportunities []struct {
		ID         string  `json:"id"`
		EventID    string  `json:"event_id"`
		Type       string  `json:"type"`
		NetEdge    float64 `json:"net_edge"`
		Confidence float64 `json:"confidence"`
		Status     string  `json:"status"`
	} `json:"opportunities"`
}

// handleCycle alerts on every GO opportunity in a completed cycle.
func (b *Bridge) handleCycle(ctx context.Context, data []byte) {
	var ev cyclePayload
	if err := json.Unmarshal(data, &ev); err != nil {
		b.logger.DebugContext(ctx, "cycle event decode failed", slog.String("error", err.Error()))
		return
	}
	for _, opp := range ev.Opportunities {
		if opp.Status != string(domain.StatusGo) {
			continue
		}
		msg := fmt.Sprintf("event %s: %s, net edge %.2f%%, confidence %.2f\nid: %s",
			opp.EventID, opp.Type, opp.NetEdge*100, opp.Confidence, opp.ID)
		if err := b.notifier.Notify(ctx, EventOpportunityGo, "GO opportunity", msg); err != nil {
			b.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
}

// approvalPayload mirrors the gate's decision event shape.
type approvalPayload struct {
	OpportunityID string `json:"opportunity_id"`
	Action        string `json:"action"`
	NewStatus     string `json:"new_status"`
	Blocked       bool   `json:"blocked"`
	BlockReason   string `json:"block_reason"`
	Operator      string `json:"operator"`
}

// handleApproval alerts on blocked approval attempts.
func (b *Bridge) handleApproval(ctx context.Context, data []byte) {
	var ev approvalPayload
	if err := json.Unmarshal(data, &ev); err != nil {
		b.logger.DebugContext(ctx, "approval event decode failed", slog.String("error", err.Error()))
		return
	}
	if !ev.Blocked {
		return
	}
	msg := fmt.Sprintf("%s on %s by %s blocked: %s",
		ev.Action, ev.OpportunityID, ev.Operator, ev.BlockReason)
	if err := b.notifier.Notify(ctx, EventApprovalBlocked, "Approval blocked", msg); err != nil {
		b.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}
}

// alertPayload mirrors the failure alert shape.
type alertPayload struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleAlert forwards failure alerts under their own event type.
func (b *Bridge) handleAlert(ctx context.Context, data []byte) {
	var ev alertPayload
	if err := json.Unmarshal(data, &ev); err != nil {
		b.logger.DebugContext(ctx, "alert event decode failed", slog.String("error", err.Error()))
		return
	}

	var title string
	switch ev.Type {
	case EventAuditWriteFailed:
		title = "Audit write failing"
	case EventScanError:
		title = "Scan cycle failed"
	default:
		return
	}
	if err := b.notifier.Notify(ctx, ev.Type, title, ev.Error); err != nil {
		b.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}
}
