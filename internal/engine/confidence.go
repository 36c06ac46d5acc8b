package engine

import (
	"fmt"

	"github.com/quanterra/arbscan/internal/domain"
)

// Confidence multipliers. The score starts at 1.0 and each weakness in the
// inputs scales it down; the leg-count factor makes confidence strictly
// decreasing in the number of legs that must fill together.
const (
	feeUnknownFactor    = 0.70
	staleLegFactor      = 0.80
	depthShortFactor    = 0.85
	legCountStep        = 0.03
	legCountFloor       = 0.70
)

// ScoreConfidence combines depth sufficiency, orderbook freshness, fee-rate
// certainty, and leg count into a [0,1] score with explanatory factors.
// Pure function: identical inputs always yield the identical score.
func ScoreConfidence(legs []domain.OutcomeLeg, band, minDepth float64, feeRateKnown bool) domain.ConfidenceScore {
	score := domain.ConfidenceScore{
		Overall:      1,
		FeeRateKnown: feeRateKnown,
		LegCount:     len(legs),
	}

	depthComplete := true
	shortLegs := 0
	allLive := true
	for _, leg := range legs {
		if DeployableDepth(leg, band) < minDepth {
			depthComplete = false
			shortLegs++
		}
		if leg.Stale {
			allLive = false
			score.Factors = append(score.Factors, fmt.Sprintf("%s leg stale", leg.Outcome))
		}
	}
	score.DepthComplete = depthComplete
	score.AllLegsLive = allLive

	if !feeRateKnown {
		score.Overall *= feeUnknownFactor
		score.Factors = append(score.Factors, "fee rate unknown, confidence reduced")
	}
	if !allLive {
		score.Overall *= staleLegFactor
	}
	if !depthComplete {
		score.Overall *= depthShortFactor
		score.Factors = append(score.Factors, fmt.Sprintf("depth below minimum on %d leg(s)", shortLegs))
	}
	if n := len(legs); n > 2 {
		factor := 1 - legCountStep*float64(n-2)
		if factor < legCountFloor {
			factor = legCountFloor
		}
		score.Overall *= factor
		score.Factors = append(score.Factors, fmt.Sprintf("%d legs, multi-fill risk", n))
	}

	if score.Overall < 0 {
		score.Overall = 0
	}
	if score.Overall > 1 {
		score.Overall = 1
	}
	return score
}
