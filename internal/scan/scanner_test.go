package scan

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/arbscan/internal/domain"
	"github.com/quanterra/arbscan/internal/engine"
)

type fakeEvents struct {
	groups []domain.EventGroup
	err    error
}

func (f *fakeEvents) ListEventGroups(context.Context) ([]domain.EventGroup, error) {
	return f.groups, f.err
}

type fakeBooks struct {
	books map[string]domain.BookSnapshot
	fail  map[string]bool
}

func (f *fakeBooks) GetBook(_ context.Context, tokenID string) (domain.BookSnapshot, error) {
	if f.fail[tokenID] {
		return domain.BookSnapshot{}, errors.New("upstream 500")
	}
	b, ok := f.books[tokenID]
	if !ok {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	return b, nil
}

type fakeFees struct {
	rate *domain.FeeRate
}

func (f *fakeFees) Get(context.Context) (domain.FeeRate, error) {
	if f.rate == nil {
		return domain.FeeRate{}, domain.ErrFeeRateUnknown
	}
	return *f.rate, nil
}
func (f *fakeFees) Set(context.Context, domain.FeeRate) error { return nil }

type memOppStore struct {
	snapshot []domain.Opportunity
	replaces int
}

func (m *memOppStore) Replace(_ context.Context, opps []domain.Opportunity) error {
	m.snapshot = append([]domain.Opportunity(nil), opps...)
	m.replaces++
	return nil
}
func (m *memOppStore) GetByID(_ context.Context, id string) (domain.Opportunity, error) {
	for _, o := range m.snapshot {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Opportunity{}, domain.ErrNotFound
}
func (m *memOppStore) List(context.Context) ([]domain.Opportunity, error) { return m.snapshot, nil }
func (m *memOppStore) UpdateApproval(context.Context, string, domain.ApprovalStatus, string, time.Time) error {
	return nil
}

type memRiskStore struct{ limits domain.RiskLimits }

func (m *memRiskStore) Get(context.Context) (domain.RiskLimits, error)      { return m.limits, nil }
func (m *memRiskStore) Update(context.Context, domain.RiskLimits) error     { return nil }
func (m *memRiskStore) Seed(context.Context, domain.RiskLimits) error       { return nil }

type memAuditStore struct{ records []domain.AuditRecord }

func (m *memAuditStore) Append(_ context.Context, rec domain.AuditRecord) error {
	m.records = append(m.records, rec)
	return nil
}
func (m *memAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditRecord, error) {
	return m.records, nil
}
func (m *memAuditStore) ListRange(context.Context, time.Time, string, time.Time, int) ([]domain.AuditRecord, error) {
	return nil, nil
}

func book(tokenID string, bestAsk float64) domain.BookSnapshot {
	return domain.BookSnapshot{
		TokenID:   tokenID,
		BestAsk:   bestAsk,
		BestBid:   bestAsk - 0.01,
		Asks:      []domain.PriceLevel{{Price: bestAsk, Size: 5000}},
		Bids:      []domain.PriceLevel{{Price: bestAsk - 0.01, Size: 5000}},
		Timestamp: time.Now().UTC(),
	}
}

func group(id string, convert bool, tokens ...string) domain.EventGroup {
	g := domain.EventGroup{ID: id, Title: id, ConvertActive: convert}
	for _, tk := range tokens {
		g.Outcomes = append(g.Outcomes, domain.OutcomeToken{TokenID: tk, Outcome: tk})
	}
	return g
}

func newTestScanner(events *fakeEvents, books *fakeBooks, fees *fakeFees) (*Scanner, *memOppStore, *memAuditStore) {
	opps := &memOppStore{}
	audit := &memAuditStore{}
	risk := &memRiskStore{limits: domain.DefaultRiskLimits()}
	cfg := Config{
		Interval:   time.Second,
		FetchDelay: time.Nanosecond, // no artificial delay in tests
		Params:     engine.DefaultParams(),
	}
	s := NewScanner(cfg, Deps{
		Events: events,
		Books:  books,
		Fees:   fees,
		Opps:   opps,
		Risk:   risk,
		Audit:  audit,
	}, slog.New(slog.DiscardHandler))
	return s, opps, audit
}

func TestRunCycle_RanksAndReplacesSnapshot(t *testing.T) {
	events := &fakeEvents{groups: []domain.EventGroup{
		group("ev-small", false, "a1", "a2"), // sum 0.97, edge 0.03
		group("ev-big", false, "b1", "b2"),   // sum 0.90, edge 0.10
	}}
	books := &fakeBooks{books: map[string]domain.BookSnapshot{
		"a1": book("a1", 0.47), "a2": book("a2", 0.50),
		"b1": book("b1", 0.45), "b2": book("b2", 0.45),
	}}
	rate := 0.01
	fees := &fakeFees{rate: &domain.FeeRate{Rate: rate, Source: "config"}}
	s, opps, audit := newTestScanner(events, books, fees)

	require.NoError(t, s.RunCycle(context.Background()))

	require.Len(t, opps.snapshot, 2)
	assert.Equal(t, "ev-big", opps.snapshot[0].EventID, "ranked by net edge descending")
	assert.Equal(t, "ev-small", opps.snapshot[1].EventID)
	assert.NotEmpty(t, opps.snapshot[0].ID)
	assert.Len(t, audit.records, 2, "one evaluation record per scored opportunity")
	assert.Equal(t, domain.AuditModuleEvaluation, audit.records[0].Module)
	assert.Equal(t, "opportunity scored", audit.records[0].Action)

	// A second cycle fully replaces the snapshot, no carryover.
	events.groups = events.groups[:1]
	require.NoError(t, s.RunCycle(context.Background()))
	require.Len(t, opps.snapshot, 1)
	assert.Equal(t, "ev-small", opps.snapshot[0].EventID)
	assert.Equal(t, 2, opps.replaces)
}

func TestRunCycle_LegFetchFailureIsIsolated(t *testing.T) {
	events := &fakeEvents{groups: []domain.EventGroup{
		group("ev-broken", false, "a1", "a2"),
		group("ev-fine", false, "b1", "b2"),
	}}
	books := &fakeBooks{
		books: map[string]domain.BookSnapshot{
			"a1": book("a1", 0.20),
			"b1": book("b1", 0.45), "b2": book("b2", 0.45),
		},
		fail: map[string]bool{"a2": true},
	}
	rate := 0.01
	s, opps, _ := newTestScanner(events, books, &fakeFees{rate: &domain.FeeRate{Rate: rate}})

	require.NoError(t, s.RunCycle(context.Background()))

	// The broken group's failed leg is forced to 1 for the YES shape, so
	// it yields no opportunity; the healthy group still gets through.
	require.Len(t, opps.snapshot, 1)
	assert.Equal(t, "ev-fine", opps.snapshot[0].EventID)
}

func TestRunCycle_SingleOutcomeGroupDropped(t *testing.T) {
	events := &fakeEvents{groups: []domain.EventGroup{group("ev-1", false, "a1")}}
	books := &fakeBooks{books: map[string]domain.BookSnapshot{"a1": book("a1", 0.40)}}
	s, opps, _ := newTestScanner(events, books, &fakeFees{})

	require.NoError(t, s.RunCycle(context.Background()))

	assert.Empty(t, opps.snapshot)
	assert.Equal(t, 1, opps.replaces, "the snapshot is still replaced, with an empty set")
}

func TestRunCycle_UnknownFeeRatePropagates(t *testing.T) {
	events := &fakeEvents{groups: []domain.EventGroup{group("ev-1", false, "a1", "a2")}}
	books := &fakeBooks{books: map[string]domain.BookSnapshot{
		"a1": book("a1", 0.45), "a2": book("a2", 0.45),
	}}
	s, opps, _ := newTestScanner(events, books, &fakeFees{rate: nil})

	require.NoError(t, s.RunCycle(context.Background()))

	require.Len(t, opps.snapshot, 1)
	assert.Nil(t, opps.snapshot[0].FeeRate)
	assert.NotEqual(t, domain.StatusGo, opps.snapshot[0].Status)
}

func TestRunCycle_EventProviderFailure(t *testing.T) {
	events := &fakeEvents{err: errors.New("gateway timeout")}
	s, opps, _ := newTestScanner(events, &fakeBooks{}, &fakeFees{})

	err := s.RunCycle(context.Background())

	assert.Error(t, err)
	assert.Empty(t, opps.snapshot, "a failed cycle must not clobber the prior snapshot")
	assert.Equal(t, 0, opps.replaces)
}
