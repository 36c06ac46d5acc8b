// Package engine implements the pure opportunity-evaluation math: leg
// normalization, edge and cost computation, confidence scoring, and status
// classification. Nothing in this package performs I/O or blocks.
package engine

import (
	"log/slog"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// DefaultFreshness is the orderbook freshness window. A snapshot older than
// this is treated as stale.
const DefaultFreshness = 60 * time.Second

// NormalizeLeg turns one outcome's raw book snapshot into a canonical leg.
// A nil book, an empty ask side, or a best ask outside [0,1] marks the leg
// failed and stale; the event still proceeds through the pipeline with
// reduced confidence instead of being dropped.
func NormalizeLeg(token domain.OutcomeToken, book *domain.BookSnapshot, freshness time.Duration, now time.Time) domain.OutcomeLeg {
	leg := domain.OutcomeLeg{
		TokenID:   token.TokenID,
		Outcome:   token.Outcome,
		FetchedAt: now,
	}

	if book == nil || len(book.Asks) == 0 || book.BestAsk <= 0 || book.BestAsk > 1 {
		leg.Failed = true
		leg.Stale = true
		return leg
	}

	leg.Price = book.BestAsk
	leg.Asks = book.Asks
	leg.Spread = book.Spread()
	leg.FetchedAt = book.Timestamp
	leg.Stale = now.Sub(book.Timestamp) > freshness
	return leg
}

// NormalizeGroup builds one leg per outcome of an event group. Fetch
// failures are surfaced to the supplied logger and represented as failed
// legs rather than aborting the group.
func NormalizeGroup(group domain.EventGroup, books map[string]*domain.BookSnapshot, freshness time.Duration, now time.Time, logger *slog.Logger) []domain.OutcomeLeg {
	legs := make([]domain.OutcomeLeg, 0, len(group.Outcomes))
	for _, token := range group.Outcomes {
		leg := NormalizeLeg(token, books[token.TokenID], freshness, now)
		if leg.Failed && logger != nil {
			logger.Warn("leg fetch failed, forcing least-favorable price",
				slog.String("event_id", group.ID),
				slog.String("token_id", token.TokenID),
				slog.String("outcome", token.Outcome),
			)
		}
		legs = append(legs, leg)
	}
	return legs
}
