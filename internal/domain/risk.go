package domain

import "time"

// RiskLimits is the global control-plane state consulted at every gating
// decision. It is seeded with conservative defaults at first initialization
// and mutated only by explicit operator action.
type RiskLimits struct {
	KillSwitch        bool    // blocks all approvals unconditionally
	ObservationOnly   bool    // blocks approvals; simulate/reject stay available
	ManualApproval    bool    // require an operator for every approval
	AutoExecute       bool    // allow simulated opportunities to auto-execute
	MinEdge           float64 // minimum net edge (fraction of notional) for GO
	MinDepth          float64 // minimum per-leg deployable depth in quote currency
	MaxMarketExposure float64 // per-market cap, enforced by callers
	MaxDailyExposure  float64 // daily cap, enforced by callers
	UpdatedAt         time.Time
	UpdatedBy         string
}

// DefaultRiskLimits returns the conservative first-run control state:
// observation-only with manual approval, so nothing can be approved until
// an operator deliberately opens the gate.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		KillSwitch:        false,
		ObservationOnly:   true,
		ManualApproval:    true,
		AutoExecute:       false,
		MinEdge:           0.02,
		MinDepth:          50,
		MaxMarketExposure: 500,
		MaxDailyExposure:  2000,
	}
}
