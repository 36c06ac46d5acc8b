package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quanterra/arbscan/internal/domain"
)

func goInput() ClassifyInput {
	return ClassifyInput{
		Type:            domain.OpportunityBuyAllYes,
		NetEdge:         0.03,
		ConvertActive:   true,
		FeeRateKnown:    true,
		DepthComplete:   true,
		AllLegsLive:     true,
		Confidence:      0.9,
		MinEdge:         0.02,
		ConfidenceFloor: DefaultConfidenceFloor,
	}
}

func TestClassify_Go(t *testing.T) {
	assert.Equal(t, domain.StatusGo, Classify(goInput()))
}

func TestClassify_KillOnNonPositiveEdge(t *testing.T) {
	in := goInput()
	in.NetEdge = 0
	assert.Equal(t, domain.StatusKill, Classify(in))

	in.NetEdge = -0.01
	assert.Equal(t, domain.StatusKill, Classify(in))
}

func TestClassify_KillWhenConvertUnavailable(t *testing.T) {
	in := goInput()
	in.Type = domain.OpportunityBuyAllNoConvert
	in.ConvertActive = false
	in.NetEdge = 0.10 // edge magnitude is irrelevant

	assert.Equal(t, domain.StatusKill, Classify(in))
}

func TestClassify_ConditionalCases(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClassifyInput)
	}{
		{"fee rate unknown", func(in *ClassifyInput) { in.FeeRateKnown = false }},
		{"depth incomplete", func(in *ClassifyInput) { in.DepthComplete = false }},
		{"stale leg", func(in *ClassifyInput) { in.AllLegsLive = false }},
		{"edge below threshold", func(in *ClassifyInput) { in.NetEdge = 0.01 }},
		{"confidence below floor", func(in *ClassifyInput) { in.Confidence = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := goInput()
			tt.mutate(&in)
			assert.Equal(t, domain.StatusConditional, Classify(in))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := goInput()
	for i := 0; i < 100; i++ {
		assert.Equal(t, domain.StatusGo, Classify(in))
	}
}
