package engine

import "github.com/quanterra/arbscan/internal/domain"

// DefaultImpactBand is the price-impact band within which depth counts as
// deployable: ask levels up to best ask + band.
const DefaultImpactBand = 0.05

// DeployableDepth returns the quote-currency notional available on a leg
// within the impact band above its best ask. Failed legs have no depth.
func DeployableDepth(leg domain.OutcomeLeg, band float64) float64 {
	if leg.Failed {
		return 0
	}
	limit := leg.Price + band
	var depth float64
	for _, lvl := range leg.Asks {
		if lvl.Price > limit {
			break
		}
		depth += lvl.Price * lvl.Size
	}
	return depth
}

// MaxNotional returns the notional deployable across the whole opportunity:
// the minimum of per-leg deployable depth, since all legs must fill
// together.
func MaxNotional(legs []domain.OutcomeLeg, band float64) float64 {
	if len(legs) == 0 {
		return 0
	}
	min := DeployableDepth(legs[0], band)
	for _, leg := range legs[1:] {
		if d := DeployableDepth(leg, band); d < min {
			min = d
		}
	}
	return min
}

// SlippageCost estimates the expected slippage for deploying the given
// notional on every leg, as a fraction of that notional. For each leg it
// walks the ask levels inside the impact band, computes the depth-weighted
// average fill price, and charges the excess over the best ask.
func SlippageCost(legs []domain.OutcomeLeg, band, notional float64) float64 {
	if notional <= 0 {
		return 0
	}
	var extra float64
	for _, leg := range legs {
		extra += legSlippage(leg, band, notional)
	}
	return extra / notional
}

// legSlippage returns the extra quote-currency cost, versus filling the
// whole notional at the best ask, of walking the book for one leg.
func legSlippage(leg domain.OutcomeLeg, band, notional float64) float64 {
	if leg.Failed || len(leg.Asks) == 0 {
		return 0
	}
	best := leg.Price
	limit := best + band

	remaining := notional
	var spent, shares float64
	for _, lvl := range leg.Asks {
		if lvl.Price > limit || remaining <= 0 {
			break
		}
		levelNotional := lvl.Price * lvl.Size
		take := levelNotional
		if take > remaining {
			take = remaining
		}
		spent += take
		shares += take / lvl.Price
		remaining -= take
	}
	if shares == 0 {
		return 0
	}
	avg := spent / shares
	if avg <= best {
		return 0
	}
	return (avg - best) * shares
}

// FeeCost returns the expected fee as a fraction of notional. The fee rate
// applies to each leg's share of the notional, so the total is the rate
// itself. An unknown rate (nil) yields zero here; the classifier, not this
// function, is responsible for keeping unknown-fee opportunities out of GO.
func FeeCost(feeRate *float64) (fraction float64, known bool) {
	if feeRate == nil {
		return 0, false
	}
	return *feeRate, true
}
