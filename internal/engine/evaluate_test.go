package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/arbscan/internal/domain"
)

func evalGroup(n int) domain.EventGroup {
	outcomes := make([]domain.OutcomeToken, 0, n)
	for i := 0; i < n; i++ {
		outcomes = append(outcomes, domain.OutcomeToken{TokenID: string(rune('a' + i)), Outcome: string(rune('A' + i))})
	}
	return domain.EventGroup{ID: "ev1", Title: "test event", Outcomes: outcomes, ConvertActive: true}
}

func evalLimits() domain.RiskLimits {
	l := domain.DefaultRiskLimits()
	l.MinEdge = 0.02
	l.MinDepth = 50
	return l
}

// The worked example from the design discussion: four outcomes priced
// 0.20/0.25/0.30/0.20 with a 2% fee rate and deep books yields a GO.
func TestEvaluate_BuyAllYesExample(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.20, domain.PriceLevel{Price: 0.20, Size: 5000}),
		deepLeg(0.25, domain.PriceLevel{Price: 0.25, Size: 5000}),
		deepLeg(0.30, domain.PriceLevel{Price: 0.30, Size: 5000}),
		deepLeg(0.20, domain.PriceLevel{Price: 0.20, Size: 5000}),
	}
	rate := 0.02

	opp, ok := Evaluate(DefaultParams(), Input{
		Group:   evalGroup(4),
		Legs:    legs,
		FeeRate: &rate,
		Limits:  evalLimits(),
		Now:     testNow,
	})

	require.True(t, ok)
	assert.Equal(t, domain.OpportunityBuyAllYes, opp.Type)
	assert.InDelta(t, 0.95, opp.PriceSum, 1e-9)
	assert.InDelta(t, 0.05, opp.GrossEdge, 1e-9)
	assert.InDelta(t, 0.02, opp.Fees, 1e-9)
	assert.Equal(t, 0.0, opp.SettlementCost, "settlement only applies to the convert type")
	assert.InDelta(t, opp.GrossEdge-opp.Fees-opp.Slippage-opp.SettlementCost, opp.NetEdge, 1e-12)
	assert.Equal(t, domain.StatusGo, opp.Status)
	assert.Equal(t, domain.ApprovalPending, opp.ApprovalStatus)
	assert.Len(t, opp.Legs, 4)
}

func TestEvaluate_ConvertUnavailableKillsRegardlessOfEdge(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.55, domain.PriceLevel{Price: 0.55, Size: 5000}),
		deepLeg(0.49, domain.PriceLevel{Price: 0.49, Size: 5000}),
	}
	group := evalGroup(2)
	group.ConvertActive = false
	rate := 0.0

	opp, ok := Evaluate(DefaultParams(), Input{
		Group:   group,
		Legs:    legs,
		FeeRate: &rate,
		Limits:  evalLimits(),
		Now:     testNow,
	})

	require.True(t, ok)
	assert.Equal(t, domain.OpportunityBuyAllNoConvert, opp.Type)
	assert.InDelta(t, 0.04, opp.GrossEdge, 1e-9)
	assert.Equal(t, domain.StatusKill, opp.Status)
}

func TestEvaluate_SettlementCostChargedForConvert(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.55, domain.PriceLevel{Price: 0.55, Size: 5000}),
		deepLeg(0.49, domain.PriceLevel{Price: 0.49, Size: 5000}),
	}
	rate := 0.0

	opp, ok := Evaluate(DefaultParams(), Input{
		Group:          evalGroup(2),
		Legs:           legs,
		FeeRate:        &rate,
		SettlementCost: 0.005,
		Limits:         evalLimits(),
		Now:            testNow,
	})

	require.True(t, ok)
	assert.InDelta(t, 0.005, opp.SettlementCost, 1e-9)
	assert.InDelta(t, opp.GrossEdge-opp.Slippage-0.005, opp.NetEdge, 1e-9)
}

func TestEvaluate_UnknownFeeRateNeverGo(t *testing.T) {
	legs := []domain.OutcomeLeg{
		deepLeg(0.40, domain.PriceLevel{Price: 0.40, Size: 5000}),
		deepLeg(0.50, domain.PriceLevel{Price: 0.50, Size: 5000}),
	}

	opp, ok := Evaluate(DefaultParams(), Input{
		Group:   evalGroup(2),
		Legs:    legs,
		FeeRate: nil,
		Limits:  evalLimits(),
		Now:     testNow,
	})

	require.True(t, ok)
	assert.Nil(t, opp.FeeRate)
	assert.NotEqual(t, domain.StatusGo, opp.Status)
	assert.Equal(t, domain.StatusConditional, opp.Status)
}

func TestEvaluate_SingleLegGroupDropped(t *testing.T) {
	legs := []domain.OutcomeLeg{deepLeg(0.40, domain.PriceLevel{Price: 0.40, Size: 5000})}

	_, ok := Evaluate(DefaultParams(), Input{Group: evalGroup(1), Legs: legs, Limits: evalLimits(), Now: testNow})

	assert.False(t, ok)
}
