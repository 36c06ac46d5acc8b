package engine

import "github.com/quanterra/arbscan/internal/domain"

// DetectType determines which opportunity shape, if any, the legs' price
// sum implies. Failed legs contribute their least-favorable price for each
// candidate shape, so the detection itself is fail-safe. The returned sum
// is the one belonging to the detected type.
func DetectType(legs []domain.OutcomeLeg) (domain.OpportunityType, float64, bool) {
	var sumYes, sumNo float64
	for _, leg := range legs {
		sumYes += leg.PriceFor(domain.OpportunityBuyAllYes)
		sumNo += leg.PriceFor(domain.OpportunityBuyAllNoConvert)
	}

	// Buying every YES costs sumYes and pays exactly 1.
	if sumYes < 1 {
		return domain.OpportunityBuyAllYes, sumYes, true
	}
	// Buying every NO costs n - sumNo; profitable only when sumNo > 1.
	if sumNo > 1 {
		return domain.OpportunityBuyAllNoConvert, sumNo, true
	}
	return "", 0, false
}

// GrossEdge returns the theoretical profit before costs as a fraction of
// notional, given the detected type and its price sum. Edge is computed per
// event, never across events.
func GrossEdge(t domain.OpportunityType, priceSum float64) float64 {
	switch t {
	case domain.OpportunityBuyAllYes:
		return 1 - priceSum
	case domain.OpportunityBuyAllNoConvert:
		return priceSum - 1
	}
	return 0
}
