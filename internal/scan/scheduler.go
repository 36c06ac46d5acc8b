package scan

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the scan cycle interval.
const DefaultInterval = 30 * time.Second

// RunLoop runs scan cycles on a fixed interval until the context is
// cancelled. The first cycle runs immediately. A cycle failure is logged
// and the loop waits for the next tick; no error in group evaluation may
// terminate the loop.
func (s *Scanner) RunLoop(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.logger.InfoContext(ctx, "scan loop starting", slog.Duration("interval", interval))

	if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "scan cycle failed", slog.String("error", err.Error()))
		s.publishAlert(ctx, "scan_error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.ErrorContext(ctx, "scan cycle failed", slog.String("error", err.Error()))
				s.publishAlert(ctx, "scan_error", err)
			}
		}
	}
}
