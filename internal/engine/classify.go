package engine

import "github.com/quanterra/arbscan/internal/domain"

// DefaultConfidenceFloor is the minimum confidence required for GO.
const DefaultConfidenceFloor = 0.7

// ClassifyInput carries everything the status rules read. Status is a pure
// function of these fields; there is no randomness and no hidden state.
type ClassifyInput struct {
	Type            domain.OpportunityType
	NetEdge         float64
	ConvertActive   bool
	FeeRateKnown    bool
	DepthComplete   bool
	AllLegsLive     bool
	Confidence      float64
	MinEdge         float64
	ConfidenceFloor float64
}

// Classify maps the numeric fields of an opportunity to GO, CONDITIONAL,
// or KILL. KILL when the net edge is non-positive or the convert path is
// required but unavailable; GO only when every quality gate holds;
// CONDITIONAL for everything else with positive net edge.
func Classify(in ClassifyInput) domain.Status {
	if in.NetEdge <= 0 {
		return domain.StatusKill
	}
	if in.Type == domain.OpportunityBuyAllNoConvert && !in.ConvertActive {
		return domain.StatusKill
	}

	if in.NetEdge >= in.MinEdge &&
		in.DepthComplete &&
		in.AllLegsLive &&
		in.FeeRateKnown &&
		in.Confidence >= in.ConfidenceFloor {
		return domain.StatusGo
	}
	return domain.StatusConditional
}
