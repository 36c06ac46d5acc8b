package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quanterra/arbscan/internal/domain"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testToken(id, outcome string) domain.OutcomeToken {
	return domain.OutcomeToken{TokenID: id, MarketID: "m-" + id, Outcome: outcome}
}

func testBook(tokenID string, bestAsk float64, age time.Duration) *domain.BookSnapshot {
	return &domain.BookSnapshot{
		TokenID:   tokenID,
		BestAsk:   bestAsk,
		BestBid:   bestAsk - 0.02,
		Asks:      []domain.PriceLevel{{Price: bestAsk, Size: 1000}},
		Bids:      []domain.PriceLevel{{Price: bestAsk - 0.02, Size: 1000}},
		Timestamp: testNow.Add(-age),
	}
}

func TestNormalizeLeg_Healthy(t *testing.T) {
	leg := NormalizeLeg(testToken("t1", "BTC"), testBook("t1", 0.42, 5*time.Second), DefaultFreshness, testNow)

	assert.False(t, leg.Failed)
	assert.False(t, leg.Stale)
	assert.Equal(t, 0.42, leg.Price)
	assert.InDelta(t, 0.02, leg.Spread, 1e-9)
}

func TestNormalizeLeg_StaleBook(t *testing.T) {
	leg := NormalizeLeg(testToken("t1", "BTC"), testBook("t1", 0.42, 2*time.Minute), DefaultFreshness, testNow)

	assert.False(t, leg.Failed)
	assert.True(t, leg.Stale)
}

func TestNormalizeLeg_MissingBook(t *testing.T) {
	leg := NormalizeLeg(testToken("t1", "BTC"), nil, DefaultFreshness, testNow)

	assert.True(t, leg.Failed)
	assert.True(t, leg.Stale)
	// Least-favorable forcing per opportunity type.
	assert.Equal(t, 1.0, leg.PriceFor(domain.OpportunityBuyAllYes))
	assert.Equal(t, 0.0, leg.PriceFor(domain.OpportunityBuyAllNoConvert))
}

func TestNormalizeLeg_PriceOutOfRange(t *testing.T) {
	book := testBook("t1", 1.2, time.Second)
	leg := NormalizeLeg(testToken("t1", "BTC"), book, DefaultFreshness, testNow)

	assert.True(t, leg.Failed)
	assert.True(t, leg.Stale)
}

func TestNormalizeGroup_PartialFailure(t *testing.T) {
	group := domain.EventGroup{
		ID:       "ev1",
		Outcomes: []domain.OutcomeToken{testToken("t1", "BTC"), testToken("t2", "ETH"), testToken("t3", "SOL")},
	}
	books := map[string]*domain.BookSnapshot{
		"t1": testBook("t1", 0.30, time.Second),
		"t3": testBook("t3", 0.40, time.Second),
	}

	legs := NormalizeGroup(group, books, DefaultFreshness, testNow, nil)

	assert.Len(t, legs, 3)
	assert.False(t, legs[0].Failed)
	assert.True(t, legs[1].Failed, "missing book must yield a failed leg, not drop the event")
	assert.False(t, legs[2].Failed)
}
