package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quanterra/arbscan/internal/approval"
	"github.com/quanterra/arbscan/internal/engine"
	"github.com/quanterra/arbscan/internal/notify"
	"github.com/quanterra/arbscan/internal/scan"
	"github.com/quanterra/arbscan/internal/server"
	"github.com/quanterra/arbscan/internal/server/handler"
	"github.com/quanterra/arbscan/internal/server/ws"
)

// ScanMode runs the periodic scanner and its supporting workers without
// the HTTP API.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startScanner(ctx, g, deps)
	a.startFeeRefresher(ctx, g, deps)
	a.startBridge(ctx, g, deps)
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// ServerMode runs the HTTP and WebSocket API against an existing
// opportunity snapshot. No scanning happens in this mode.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps)
	a.startBridge(ctx, g, deps)

	return g.Wait()
}

// FullMode runs every subsystem: scanner, API server, notifications, and
// the audit archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startScanner(ctx, g, deps)
	a.startFeeRefresher(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	a.startBridge(ctx, g, deps)
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// startScanner adds the scan loop to the errgroup.
func (a *App) startScanner(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	scanDeps := scan.Deps{
		Events:    deps.Gamma,
		Books:     deps.Clob,
		Fees:      deps.Fees,
		Opps:      deps.Opps,
		Risk:      deps.Risk,
		Audit:     deps.Audit,
		BookCache: deps.Books,
		Bus:       deps.Bus,
		Health:    deps.Health,
	}
	if deps.Settlement != nil {
		scanDeps.Settlement = deps.Settlement
	}

	scanner := scan.NewScanner(scan.Config{
		Interval:   a.cfg.Scan.Interval.Duration,
		FetchDelay: a.cfg.Scan.FetchDelay.Duration,
		Params: engine.Params{
			ImpactBand:      a.cfg.Scan.ImpactBand,
			Freshness:       a.cfg.Scan.Freshness.Duration,
			ConfidenceFloor: a.cfg.Scan.ConfidenceFloor,
		},
	}, scanDeps, a.logger)

	g.Go(func() error {
		return scanner.RunLoop(ctx)
	})
}

// startFeeRefresher keeps the fee-rate cache warm by sampling the
// configured reference market. Without a reference market the cache is
// never written and the engine treats the fee rate as unknown.
func (a *App) startFeeRefresher(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	market := a.cfg.Polymarket.FeeReferenceMarket
	if market == "" {
		a.logger.InfoContext(ctx, "fee_reference_market not set, fee rate stays unknown")
		return
	}

	interval := a.cfg.Polymarket.FeeTTL.Duration / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	refresh := func() {
		fr, err := deps.Clob.GetFeeRate(ctx, market)
		if err != nil {
			a.logger.WarnContext(ctx, "fee rate refresh failed",
				slog.String("market", market),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := deps.Fees.Set(ctx, fr); err != nil {
			a.logger.WarnContext(ctx, "fee rate cache write failed", slog.String("error", err.Error()))
		}
	}

	g.Go(func() error {
		refresh()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				refresh()
			}
		}
	})
}

// startHTTPServer builds the approval gate, handlers, and WebSocket hub,
// and adds the HTTP server plus its shutdown watcher to the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	gate := approval.NewGate(deps.Opps, deps.Risk, deps.Audit, deps.Health, a.logger).
		WithBus(deps.Bus)

	hub := ws.NewHub(deps.Bus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Operators:   a.cfg.Server.Operators,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(deps.PG, deps.Redis, deps.Health, a.logger),
		Opportunities: handler.NewOpportunityHandler(deps.Opps, a.logger),
		Approvals:     handler.NewApprovalHandler(gate, a.logger),
		Risk:          handler.NewRiskHandler(deps.Risk, deps.Audit, a.logger),
		Audit:         handler.NewAuditHandler(deps.Audit, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startBridge relays bus events into operator notifications.
func (a *App) startBridge(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	bridge := notify.NewBridge(deps.Bus, deps.Notifier, a.logger)
	g.Go(func() error {
		return bridge.Run(ctx)
	})
}

// startArchiver adds the audit export loop when archiving is enabled.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	g.Go(func() error {
		return deps.Archiver.RunLoop(ctx)
	})
}
