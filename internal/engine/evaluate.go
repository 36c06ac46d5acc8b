package engine

import (
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// Params are the tunable constants of one evaluation pass.
type Params struct {
	ImpactBand      float64
	Freshness       time.Duration
	ConfidenceFloor float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		ImpactBand:      DefaultImpactBand,
		Freshness:       DefaultFreshness,
		ConfidenceFloor: DefaultConfidenceFloor,
	}
}

// Input is one event group's worth of normalized data plus the external
// facts the math depends on. SettlementCost is the estimated cost of the
// on-chain convert operation as a fraction of notional; it is only charged
// for the buy-all-NO type.
type Input struct {
	Group          domain.EventGroup
	Legs           []domain.OutcomeLeg
	FeeRate        *float64
	SettlementCost float64
	Limits         domain.RiskLimits
	Now            time.Time
}

// Evaluate runs the full pure pipeline for one event group: type detection,
// gross edge, costs, confidence, and classification. It returns false when
// the group yields no opportunity (fewer than two legs, or prices sum to
// exactly one). The returned Opportunity has no ID; the caller assigns it.
func Evaluate(p Params, in Input) (domain.Opportunity, bool) {
	if len(in.Legs) < 2 {
		return domain.Opportunity{}, false
	}

	oppType, priceSum, ok := DetectType(in.Legs)
	if !ok {
		return domain.Opportunity{}, false
	}

	gross := GrossEdge(oppType, priceSum)
	fees, feeKnown := FeeCost(in.FeeRate)

	maxNotional := MaxNotional(in.Legs, p.ImpactBand)
	slippage := SlippageCost(in.Legs, p.ImpactBand, maxNotional)

	settlement := 0.0
	if oppType == domain.OpportunityBuyAllNoConvert {
		settlement = in.SettlementCost
	}

	net := gross - fees - slippage - settlement

	confidence := ScoreConfidence(in.Legs, p.ImpactBand, in.Limits.MinDepth, feeKnown)

	status := Classify(ClassifyInput{
		Type:            oppType,
		NetEdge:         net,
		ConvertActive:   in.Group.ConvertActive,
		FeeRateKnown:    feeKnown,
		DepthComplete:   confidence.DepthComplete,
		AllLegsLive:     confidence.AllLegsLive,
		Confidence:      confidence.Overall,
		MinEdge:         in.Limits.MinEdge,
		ConfidenceFloor: p.ConfidenceFloor,
	})

	minDepth := maxNotional // min across legs is exactly the deployable cap
	snapshots := make([]domain.LegSnapshot, 0, len(in.Legs))
	for _, leg := range in.Legs {
		snapshots = append(snapshots, domain.LegSnapshot{
			TokenID: leg.TokenID,
			Outcome: leg.Outcome,
			Price:   leg.PriceFor(oppType),
			Depth:   DeployableDepth(leg, p.ImpactBand),
			Spread:  leg.Spread,
			Stale:   leg.Stale,
		})
	}

	return domain.Opportunity{
		EventID:        in.Group.ID,
		EventTitle:     in.Group.Title,
		Type:           oppType,
		Legs:           snapshots,
		PriceSum:       priceSum,
		GrossEdge:      gross,
		FeeRate:        in.FeeRate,
		Fees:           fees,
		Slippage:       slippage,
		SettlementCost: settlement,
		NetEdge:        net,
		MinDepth:       minDepth,
		MaxNotional:    maxNotional,
		ConvertActive:  in.Group.ConvertActive,
		Confidence:     confidence,
		Status:         status,
		DiscoveredAt:   in.Now,
		UpdatedAt:      in.Now,
		ApprovalStatus: domain.ApprovalPending,
	}, true
}
