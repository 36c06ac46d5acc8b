package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quanterra/arbscan/internal/domain"
)

func healthyLegs(n int) []domain.OutcomeLeg {
	legs := make([]domain.OutcomeLeg, 0, n)
	for i := 0; i < n; i++ {
		legs = append(legs, deepLeg(0.30, domain.PriceLevel{Price: 0.30, Size: 10000}))
	}
	return legs
}

func TestScoreConfidence_AllHealthy(t *testing.T) {
	score := ScoreConfidence(healthyLegs(2), DefaultImpactBand, 50, true)

	assert.Equal(t, 1.0, score.Overall)
	assert.True(t, score.DepthComplete)
	assert.True(t, score.AllLegsLive)
	assert.True(t, score.FeeRateKnown)
	assert.Empty(t, score.Factors)
}

func TestScoreConfidence_FeeUnknown(t *testing.T) {
	score := ScoreConfidence(healthyLegs(2), DefaultImpactBand, 50, false)

	assert.InDelta(t, 0.70, score.Overall, 1e-9)
	assert.False(t, score.FeeRateKnown)
	assert.Contains(t, score.Factors, "fee rate unknown, confidence reduced")
}

func TestScoreConfidence_StaleLeg(t *testing.T) {
	legs := healthyLegs(2)
	legs[1].Stale = true
	legs[1].Outcome = "SOL"

	score := ScoreConfidence(legs, DefaultImpactBand, 50, true)

	assert.InDelta(t, 0.80, score.Overall, 1e-9)
	assert.False(t, score.AllLegsLive)
	assert.Contains(t, score.Factors, "SOL leg stale")
}

func TestScoreConfidence_ShallowDepth(t *testing.T) {
	legs := healthyLegs(2)
	legs[0].Asks = []domain.PriceLevel{{Price: 0.30, Size: 10}} // 3 notional

	score := ScoreConfidence(legs, DefaultImpactBand, 50, true)

	assert.InDelta(t, 0.85, score.Overall, 1e-9)
	assert.False(t, score.DepthComplete)
}

func TestScoreConfidence_MonotonicInLegCount(t *testing.T) {
	prev := 2.0
	for n := 2; n <= 12; n++ {
		score := ScoreConfidence(healthyLegs(n), DefaultImpactBand, 50, true)
		assert.LessOrEqual(t, score.Overall, prev, "confidence must not increase with leg count (n=%d)", n)
		assert.GreaterOrEqual(t, score.Overall, 0.0)
		prev = score.Overall
	}
}

func TestScoreConfidence_Deterministic(t *testing.T) {
	legs := healthyLegs(4)
	legs[2].Stale = true

	a := ScoreConfidence(legs, DefaultImpactBand, 50, false)
	b := ScoreConfidence(legs, DefaultImpactBand, 50, false)

	assert.Equal(t, a, b)
}
