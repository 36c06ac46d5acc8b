// Package approval implements the operator-facing approval gate: a
// monotonic state machine over opportunities, guarded by the global control
// plane (kill switch, observation-only mode) read transactionally at
// decision time.
package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quanterra/arbscan/internal/domain"
)

// Decision is the outcome of one transition attempt.
type Decision struct {
	OpportunityID string
	Action        domain.ApprovalAction
	NewStatus     domain.ApprovalStatus
	Blocked       bool
	BlockReason   string
	Operator      string
	At            time.Time
}

// Gate enforces the approval state machine. Every transition attempt,
// successful or blocked, is written to the audit trail; an audit write
// failure never rolls back the transition it was recording.
type Gate struct {
	opps   domain.OpportunityStore
	risk   domain.RiskStore
	audit  domain.AuditStore
	health domain.HealthRecorder
	bus    domain.SignalBus
	logger *slog.Logger
	now    func() time.Time
}

// NewGate creates a Gate over the given stores.
func NewGate(opps domain.OpportunityStore, risk domain.RiskStore, audit domain.AuditStore, health domain.HealthRecorder, logger *slog.Logger) *Gate {
	return &Gate{
		opps:   opps,
		risk:   risk,
		audit:  audit,
		health: health,
		logger: logger.With(slog.String("component", "approval_gate")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithBus attaches a signal bus; every decision, blocked or not, is then
// published on the "approvals" channel for live consumers.
func (g *Gate) WithBus(bus domain.SignalBus) *Gate {
	g.bus = bus
	return g
}

// transitions is the full monotonic state machine: pending fans out to
// approved/rejected/simulated, and simulated may advance to executed.
// Nothing ever returns to pending.
var transitions = map[domain.ApprovalStatus]map[domain.ApprovalAction]domain.ApprovalStatus{
	domain.ApprovalPending: {
		domain.ActionApprove:  domain.ApprovalApproved,
		domain.ActionReject:   domain.ApprovalRejected,
		domain.ActionSimulate: domain.ApprovalSimulated,
	},
	domain.ApprovalSimulated: {
		domain.ActionExecute: domain.ApprovalExecuted,
	},
}

// systemOperator marks transitions initiated by the system itself rather
// than a person, e.g. the auto-execute chain.
const systemOperator = "system"

// Apply attempts the given action on an opportunity for the named operator.
// The control-plane flags are read fresh from the risk store at the moment
// of the decision, so a just-activated kill switch is honored even for an
// in-flight approval. When manual approval is required, approve and
// execute must carry a human operator identity; when auto-execute is
// enabled, a successful simulate chains straight into execute under the
// system identity. Blocked attempts return the distinguishing sentinel
// (domain.ErrKillSwitchActive, domain.ErrObservationOnly,
// domain.ErrApprovalRequired, domain.ErrInvalidTransition) alongside a
// Decision describing the block.
func (g *Gate) Apply(ctx context.Context, oppID string, action domain.ApprovalAction, operator string) (Decision, error) {
	at := g.now()
	dec := Decision{OpportunityID: oppID, Action: action, Operator: operator, At: at}

	opp, err := g.opps.GetByID(ctx, oppID)
	if err != nil {
		return dec, fmt.Errorf("approval: load opportunity %s: %w", oppID, err)
	}

	next, ok := transitions[opp.ApprovalStatus][action]
	if !ok {
		dec.Blocked = true
		dec.BlockReason = fmt.Sprintf("cannot %s from %s", action, opp.ApprovalStatus)
		g.record(ctx, opp, dec)
		return dec, fmt.Errorf("approval: %s from %s: %w", action, opp.ApprovalStatus, domain.ErrInvalidTransition)
	}

	// Gating transitions consult the live control plane; reject stays
	// available unconditionally so an operator can always clear the queue.
	if action == domain.ActionApprove || action == domain.ActionExecute {
		limits, err := g.risk.Get(ctx)
		if err != nil {
			return dec, fmt.Errorf("approval: read control state: %w", err)
		}
		if limits.KillSwitch {
			dec.Blocked = true
			dec.BlockReason = "kill_switch_active"
			g.record(ctx, opp, dec)
			return dec, domain.ErrKillSwitchActive
		}
		if limits.ObservationOnly {
			dec.Blocked = true
			dec.BlockReason = "observation_only_mode"
			g.record(ctx, opp, dec)
			return dec, domain.ErrObservationOnly
		}
		if limits.ManualApproval && (operator == "" || operator == systemOperator) {
			dec.Blocked = true
			dec.BlockReason = "manual_approval_required"
			g.record(ctx, opp, dec)
			return dec, domain.ErrApprovalRequired
		}
	}

	if err := g.opps.UpdateApproval(ctx, oppID, next, operator, at); err != nil {
		return dec, fmt.Errorf("approval: persist transition: %w", err)
	}
	dec.NewStatus = next
	g.record(ctx, opp, dec)

	g.logger.InfoContext(ctx, "approval transition",
		slog.String("opportunity_id", oppID),
		slog.String("action", string(action)),
		slog.String("new_status", string(next)),
		slog.String("operator", operator),
	)

	if action == domain.ActionSimulate {
		if chained, ok := g.autoExecute(ctx, oppID); ok {
			return chained, nil
		}
	}
	return dec, nil
}

// autoExecute advances a just-simulated opportunity to executed when the
// control plane has auto-execute enabled. The chained transition goes
// through Apply under the system identity, so it is gated and audited
// like any other; manual-approval mode blocks it there.
func (g *Gate) autoExecute(ctx context.Context, oppID string) (Decision, bool) {
	limits, err := g.risk.Get(ctx)
	if err != nil || !limits.AutoExecute {
		return Decision{}, false
	}
	dec, err := g.Apply(ctx, oppID, domain.ActionExecute, systemOperator)
	if err != nil {
		g.logger.InfoContext(ctx, "auto-execute blocked",
			slog.String("opportunity_id", oppID),
			slog.String("error", err.Error()),
		)
		return Decision{}, false
	}
	return dec, true
}

// record writes the transition attempt to the audit trail. Audit failures
// are surfaced to the health recorder and logged, never propagated.
func (g *Gate) record(ctx context.Context, opp domain.Opportunity, dec Decision) {
	action := "opportunity_" + string(dec.NewStatus)
	result := "ok"
	if dec.Blocked {
		action = "opportunity_blocked"
		result = dec.BlockReason
	}

	rec := domain.AuditRecord{
		ID:     uuid.New().String(),
		Module: domain.AuditModuleApproval,
		Action: action,
		Inputs: map[string]any{
			"opportunity_id": dec.OpportunityID,
			"event_id":       opp.EventID,
			"action":         string(dec.Action),
			"prior_status":   string(opp.ApprovalStatus),
		},
		Metrics: map[string]any{
			"net_edge":   opp.NetEdge,
			"status":     string(opp.Status),
			"confidence": opp.Confidence.Overall,
		},
		Operator:  dec.Operator,
		Result:    result,
		CreatedAt: dec.At,
	}
	if err := g.audit.Append(ctx, rec); err != nil {
		g.logger.ErrorContext(ctx, "audit write failed",
			slog.String("opportunity_id", dec.OpportunityID),
			slog.String("error", err.Error()),
		)
		if g.health != nil {
			g.health.ReportAuditFailure(ctx, err)
		}
	}
	g.publish(ctx, dec)
}

// publish pushes the decision onto the approvals channel. Best-effort.
func (g *Gate) publish(ctx context.Context, dec Decision) {
	if g.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":           "approval",
		"opportunity_id": dec.OpportunityID,
		"action":         string(dec.Action),
		"new_status":     string(dec.NewStatus),
		"blocked":        dec.Blocked,
		"block_reason":   dec.BlockReason,
		"operator":       dec.Operator,
		"at":             dec.At,
	})
	if err != nil {
		return
	}
	if err := g.bus.Publish(ctx, "approvals", payload); err != nil {
		g.logger.DebugContext(ctx, "approval publish failed", slog.String("error", err.Error()))
	}
}

// BlockReasonOf maps a gate error to its wire-level reason string, or ""
// for non-block errors.
func BlockReasonOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrKillSwitchActive):
		return "kill_switch_active"
	case errors.Is(err, domain.ErrObservationOnly):
		return "observation_only_mode"
	case errors.Is(err, domain.ErrApprovalRequired):
		return "manual_approval_required"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	}
	return ""
}
