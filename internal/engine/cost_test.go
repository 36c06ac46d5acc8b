package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quanterra/arbscan/internal/domain"
)

func deepLeg(best float64, levels ...domain.PriceLevel) domain.OutcomeLeg {
	return domain.OutcomeLeg{Price: best, Asks: levels}
}

func TestDeployableDepth_WithinBand(t *testing.T) {
	leg := deepLeg(0.40,
		domain.PriceLevel{Price: 0.40, Size: 100},
		domain.PriceLevel{Price: 0.44, Size: 100},
		domain.PriceLevel{Price: 0.50, Size: 1000}, // outside +-0.05 band
	)

	depth := DeployableDepth(leg, DefaultImpactBand)

	assert.InDelta(t, 0.40*100+0.44*100, depth, 1e-9)
}

func TestDeployableDepth_FailedLeg(t *testing.T) {
	assert.Equal(t, 0.0, DeployableDepth(domain.OutcomeLeg{Failed: true}, DefaultImpactBand))
}

func TestMaxNotional_MinAcrossLegs(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.40, domain.PriceLevel{Price: 0.40, Size: 1000}), // 400
		deepLeg(0.30, domain.PriceLevel{Price: 0.30, Size: 200}),  // 60
		deepLeg(0.25, domain.PriceLevel{Price: 0.25, Size: 800}),  // 200
	}

	assert.InDelta(t, 60, MaxNotional(legs, DefaultImpactBand), 1e-9)
}

func TestSlippageCost_SingleLevelIsZero(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.40, domain.PriceLevel{Price: 0.40, Size: 10000}),
		deepLeg(0.55, domain.PriceLevel{Price: 0.55, Size: 10000}),
	}

	assert.Equal(t, 0.0, SlippageCost(legs, DefaultImpactBand, 100))
}

func TestSlippageCost_WalksLevels(t *testing.T) {
	// 100 notional: 40 at 0.40, the remaining 60 at 0.42.
	leg := deepLeg(0.40,
		domain.PriceLevel{Price: 0.40, Size: 100},
		domain.PriceLevel{Price: 0.42, Size: 1000},
	)

	cost := SlippageCost([]domain.OutcomeLeg{leg}, DefaultImpactBand, 100)

	// shares = 40/0.40 + 60/0.42, avg = 100/shares, extra = (avg-0.40)*shares.
	shares := 40/0.40 + 60/0.42
	extra := (100/shares - 0.40) * shares
	assert.InDelta(t, extra/100, cost, 1e-9)
	assert.Greater(t, cost, 0.0)
}

func TestSlippageCost_ZeroNotional(t *testing.T) {
	assert.Equal(t, 0.0, SlippageCost(nil, DefaultImpactBand, 0))
}

func TestFeeCost_Known(t *testing.T) {
	rate := 0.02

	fees, known := FeeCost(&rate)

	assert.True(t, known)
	assert.Equal(t, 0.02, fees)
}

func TestFeeCost_UnknownNeverDefaultsToZeroKnown(t *testing.T) {
	fees, known := FeeCost(nil)

	assert.False(t, known)
	assert.Equal(t, 0.0, fees)
}
