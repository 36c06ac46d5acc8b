package domain

import "time"

// FeeRate is an exchange taker fee rate with its provenance. An unknown fee
// rate is represented by the absence of a FeeRate (domain.ErrFeeRateUnknown
// from the provider), never by a zero or assumed value: downstream
// classification treats unknown as disqualifying for GO.
type FeeRate struct {
	Rate      float64 // fraction of notional per leg
	Source    string  // e.g. "onchain", "config", "cache"
	FetchedAt time.Time
}
