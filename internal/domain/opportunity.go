package domain

import "time"

// OpportunityType classifies the arbitrage shape.
type OpportunityType string

const (
	// OpportunityBuyAllYes buys one YES share of every outcome when the
	// YES prices sum below 1.
	OpportunityBuyAllYes OpportunityType = "buy_all_yes"
	// OpportunityBuyAllNoConvert buys one NO share of every outcome when
	// the YES prices sum above 1, and merges the winning NO shares back
	// into collateral on settlement.
	OpportunityBuyAllNoConvert OpportunityType = "buy_all_no_convert"
)

// Status is the deterministic classification of an opportunity. It is a
// pure function of the opportunity's numeric fields and is recomputed fresh
// every scan, never transitioned incrementally.
type Status string

const (
	StatusGo          Status = "go"
	StatusConditional Status = "conditional"
	StatusKill        Status = "kill"
)

// ApprovalStatus is the operator-driven lifecycle state. Transitions are
// monotonic: pending -> approved | rejected | simulated, and
// simulated -> executed. Nothing ever reverts to pending.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSimulated ApprovalStatus = "simulated"
	ApprovalExecuted  ApprovalStatus = "executed"
)

// ApprovalAction is an operator request against a pending opportunity.
type ApprovalAction string

const (
	ActionApprove  ApprovalAction = "approve"
	ActionSimulate ApprovalAction = "simulate"
	ActionReject   ApprovalAction = "reject"
	ActionExecute  ApprovalAction = "execute"
)

// ConfidenceScore is a [0,1] measure of how trustworthy an opportunity's
// inputs are, with human-readable factors justifying the value. It lives
// exactly as long as its parent Opportunity.
type ConfidenceScore struct {
	Overall       float64  `json:"overall"`
	DepthComplete bool     `json:"depth_complete"`
	AllLegsLive   bool     `json:"all_legs_live"`
	FeeRateKnown  bool     `json:"fee_rate_known"`
	LegCount      int      `json:"leg_count"`
	Factors       []string `json:"factors"`
}

// Opportunity is one fully evaluated multi-outcome arbitrage candidate.
// Invariants: NetEdge = GrossEdge - Fees - Slippage - SettlementCost, and
// Status is derived from the numeric fields, never set independently.
type Opportunity struct {
	ID             string
	EventID        string
	EventTitle     string
	Type           OpportunityType
	Legs           []LegSnapshot
	PriceSum       float64
	GrossEdge      float64
	FeeRate        *float64 // nil when the fee rate could not be determined
	Fees           float64
	Slippage       float64
	SettlementCost float64
	NetEdge        float64
	MinDepth       float64
	MaxNotional    float64
	CapitalLock    time.Duration // 0 when unknown
	ConvertActive  bool
	Confidence     ConfidenceScore
	Status         Status
	Narrative      string // advisory only, never read by the classifier
	DiscoveredAt   time.Time
	UpdatedAt      time.Time
	ApprovalStatus ApprovalStatus
	ApprovedBy     string
	ApprovedAt     *time.Time
}
