// Package scan drives the periodic opportunity scan: it fetches event
// groups and their orderbooks, runs the pure evaluation engine over each
// group, ranks the results, and atomically replaces the opportunity
// snapshot.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/quanterra/arbscan/internal/domain"
	"github.com/quanterra/arbscan/internal/engine"
)

// EventProvider discovers multi-outcome event groups to scan.
type EventProvider interface {
	ListEventGroups(ctx context.Context) ([]domain.EventGroup, error)
}

// BookProvider fetches one outcome token's orderbook.
type BookProvider interface {
	GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error)
}

// SettlementEstimator prices the on-chain convert operation for a given
// notional, as a fraction of that notional.
type SettlementEstimator interface {
	ConvertCostFraction(ctx context.Context, notional float64) (float64, error)
}

// Config holds the scanner's tunables.
type Config struct {
	Interval   time.Duration // scan cycle interval
	FetchDelay time.Duration // self-imposed delay between orderbook fetches
	Params     engine.Params
}

// Deps bundles the scanner's collaborators. Events, Books, Opportunities,
// Audit, and Risk are required; the rest are optional and degrade to no-ops
// when nil.
type Deps struct {
	Events     EventProvider
	Books      BookProvider
	Fees       domain.FeeRateCache
	Settlement SettlementEstimator
	Opps       domain.OpportunityStore
	Risk       domain.RiskStore
	Audit      domain.AuditStore
	BookCache  domain.OrderbookCache
	Bus        domain.SignalBus
	Health     domain.HealthRecorder
}

// Scanner runs one scan cycle at a time. Within a cycle all fetches are
// sequential with a fixed delay between orderbook requests, a deliberate
// rate limit against the upstream API; every leg of one opportunity is
// evaluated from the same cycle's data.
type Scanner struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewScanner wires a Scanner from its dependencies.
func NewScanner(cfg Config, deps Deps, logger *slog.Logger) *Scanner {
	delay := cfg.FetchDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Scanner{
		cfg:     cfg,
		deps:    deps,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		logger:  logger.With(slog.String("component", "scanner")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle executes exactly one scan cycle. Per-group failures are isolated:
// a group that cannot be fetched or evaluated is skipped and logged, never
// fatal to the cycle.
func (s *Scanner) RunCycle(ctx context.Context) error {
	started := s.now()

	groups, err := s.deps.Events.ListEventGroups(ctx)
	if err != nil {
		return fmt.Errorf("scan: list event groups: %w", err)
	}

	feeRate := s.currentFeeRate(ctx)

	limits, err := s.riskLimits(ctx)
	if err != nil {
		return err
	}

	var opps []domain.Opportunity
	for _, group := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		opp, ok := s.evaluateGroup(ctx, group, feeRate, limits)
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}

	// Net edge descending; sort.SliceStable keeps insertion order on ties.
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetEdge > opps[j].NetEdge
	})

	if err := s.deps.Opps.Replace(ctx, opps); err != nil {
		return fmt.Errorf("scan: replace snapshot: %w", err)
	}

	s.publishCycle(ctx, opps)
	s.heartbeat(ctx)

	s.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("groups", len(groups)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", s.now().Sub(started)),
	)
	return nil
}

// riskLimits reads the control plane once per cycle. Thresholds only feed
// the math here; the approval gate re-reads the flags at decision time.
func (s *Scanner) riskLimits(ctx context.Context) (domain.RiskLimits, error) {
	limits, err := s.deps.Risk.Get(ctx)
	if err != nil {
		return domain.RiskLimits{}, fmt.Errorf("scan: read risk limits: %w", err)
	}
	return limits, nil
}

// evaluateGroup fetches and evaluates one event group. Returns false when
// the group produces no opportunity.
func (s *Scanner) evaluateGroup(ctx context.Context, group domain.EventGroup, feeRate *float64, limits domain.RiskLimits) (domain.Opportunity, bool) {
	if len(group.Outcomes) < 2 {
		// Data-quality event, not an error: a malformed group with a
		// single remaining leg never reaches edge computation.
		s.logger.WarnContext(ctx, "dropping group with fewer than 2 outcomes",
			slog.String("event_id", group.ID),
			slog.Int("outcomes", len(group.Outcomes)),
		)
		return domain.Opportunity{}, false
	}

	now := s.now()
	books := make(map[string]*domain.BookSnapshot, len(group.Outcomes))
	for _, token := range group.Outcomes {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.Opportunity{}, false
		}
		book, err := s.deps.Books.GetBook(ctx, token.TokenID)
		if err != nil {
			s.logger.WarnContext(ctx, "book fetch failed",
				slog.String("event_id", group.ID),
				slog.String("token_id", token.TokenID),
				slog.String("error", err.Error()),
			)
			continue // normalizer downgrades the missing leg
		}
		books[token.TokenID] = &book
		if s.deps.BookCache != nil {
			if err := s.deps.BookCache.SetSnapshot(ctx, book); err != nil {
				s.logger.DebugContext(ctx, "book cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	legs := engine.NormalizeGroup(group, books, s.cfg.Params.Freshness, now, s.logger)

	settlementCost := s.convertCost(ctx, group, legs)

	opp, ok := engine.Evaluate(s.cfg.Params, engine.Input{
		Group:          group,
		Legs:           legs,
		FeeRate:        feeRate,
		SettlementCost: settlementCost,
		Limits:         limits,
		Now:            now,
	})
	if !ok {
		return domain.Opportunity{}, false
	}
	opp.ID = uuid.New().String()
	opp.Narrative = summarize(opp)

	s.auditEvaluation(ctx, opp)
	return opp, true
}

// convertCost prices the settlement operation when the group could resolve
// through the NO-and-convert path. Estimator failures degrade to zero cost;
// the convert-availability flag, not the cost, is what gates GO.
func (s *Scanner) convertCost(ctx context.Context, group domain.EventGroup, legs []domain.OutcomeLeg) float64 {
	if s.deps.Settlement == nil || !group.ConvertActive {
		return 0
	}
	notional := engine.MaxNotional(legs, s.cfg.Params.ImpactBand)
	if notional <= 0 {
		return 0
	}
	frac, err := s.deps.Settlement.ConvertCostFraction(ctx, notional)
	if err != nil {
		s.logger.WarnContext(ctx, "settlement cost estimate failed",
			slog.String("event_id", group.ID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return frac
}

// currentFeeRate consults the TTL cache. Unknown propagates as nil, never
// as an assumed value.
func (s *Scanner) currentFeeRate(ctx context.Context) *float64 {
	if s.deps.Fees == nil {
		return nil
	}
	fr, err := s.deps.Fees.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrFeeRateUnknown) {
			s.logger.WarnContext(ctx, "fee rate lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	v := fr.Rate
	return &v
}

// auditEvaluation writes one record per scored opportunity. Best-effort.
func (s *Scanner) auditEvaluation(ctx context.Context, opp domain.Opportunity) {
	rec := domain.AuditRecord{
		ID:     uuid.New().String(),
		Module: domain.AuditModuleEvaluation,
		Action: "opportunity scored",
		Inputs: map[string]any{
			"event_id": opp.EventID,
			"type":     string(opp.Type),
			"legs":     opp.Legs,
		},
		Metrics: map[string]any{
			"price_sum":  opp.PriceSum,
			"gross_edge": opp.GrossEdge,
			"net_edge":   opp.NetEdge,
			"confidence": opp.Confidence.Overall,
			"status":     string(opp.Status),
		},
		Narrative: opp.Narrative,
		CreatedAt: opp.DiscoveredAt,
	}
	if err := s.deps.Audit.Append(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "audit write failed",
			slog.String("opportunity_id", opp.ID),
			slog.String("error", err.Error()),
		)
		if s.deps.Health != nil {
			s.deps.Health.ReportAuditFailure(ctx, err)
		}
	}
}

func (s *Scanner) publishCycle(ctx context.Context, opps []domain.Opportunity) {
	if s.deps.Bus == nil {
		return
	}
	payload := encodeCycleEvent(opps)
	if err := s.deps.Bus.Publish(ctx, "opportunities", payload); err != nil {
		s.logger.DebugContext(ctx, "cycle publish failed", slog.String("error", err.Error()))
	}
}

// publishAlert pushes a failure event onto the alerts channel. Best-effort.
func (s *Scanner) publishAlert(ctx context.Context, kind string, err error) {
	if s.deps.Bus == nil {
		return
	}
	if perr := s.deps.Bus.Publish(ctx, "alerts", encodeAlertEvent(kind, err)); perr != nil {
		s.logger.DebugContext(ctx, "alert publish failed", slog.String("error", perr.Error()))
	}
}

func (s *Scanner) heartbeat(ctx context.Context) {
	if s.deps.Health == nil {
		return
	}
	if err := s.deps.Health.Heartbeat(ctx, "scanner"); err != nil {
		s.logger.DebugContext(ctx, "heartbeat failed", slog.String("error", err.Error()))
	}
}
