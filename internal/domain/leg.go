package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot is the ask-side view of one outcome token's orderbook as
// fetched from the exchange. Asks are ordered best (lowest) first.
type BookSnapshot struct {
	TokenID   string
	Asks      []PriceLevel
	Bids      []PriceLevel
	BestAsk   float64
	BestBid   float64
	Timestamp time.Time
}

// Spread returns the bid-ask spread, or 0 when either side is empty.
func (b BookSnapshot) Spread() float64 {
	if b.BestAsk <= 0 || b.BestBid <= 0 {
		return 0
	}
	return b.BestAsk - b.BestBid
}

// OutcomeToken identifies one mutually-exclusive outcome within an event.
type OutcomeToken struct {
	TokenID  string
	MarketID string
	Outcome  string
}

// EventGroup wraps N binary markets that share one event (multi-outcome).
// ConvertActive reports whether winning NO shares of this event can be
// merged back into collateral on-chain, which the buy-all-NO opportunity
// type depends on.
type EventGroup struct {
	ID            string
	Title         string
	Outcomes      []OutcomeToken
	ConvertActive bool
}

// OutcomeLeg is the canonical per-outcome input to opportunity evaluation.
// A leg whose fetch failed carries Failed=true and Stale=true; its price is
// never read directly in that case but forced to the least-favorable value
// for the opportunity type under evaluation (see PriceFor).
type OutcomeLeg struct {
	TokenID   string
	Outcome   string
	Price     float64 // best executable ask, in [0,1]
	Asks      []PriceLevel
	Spread    float64
	Stale     bool
	Failed    bool
	FetchedAt time.Time
}

// PriceFor returns the leg price to use when evaluating the given
// opportunity type. Failed legs yield the least-favorable price (1 for a
// YES buy, 0 for a NO buy) so a data failure can never manufacture edge.
func (l OutcomeLeg) PriceFor(t OpportunityType) float64 {
	if l.Failed {
		if t == OpportunityBuyAllYes {
			return 1
		}
		return 0
	}
	return l.Price
}

// LegSnapshot is the per-leg view persisted on an Opportunity.
type LegSnapshot struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Depth   float64 `json:"depth"`
	Spread  float64 `json:"spread"`
	Stale   bool    `json:"stale"`
}
