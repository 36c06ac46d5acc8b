package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	heartbeatTTL         = 2 * time.Minute
	auditFailureKey      = "health:audit_failures"
	auditFailureLastKey  = "health:audit_failures:last"
	auditFailureRetainer = 24 * time.Hour
)

func heartbeatKey(component string) string { return "health:heartbeat:" + component }

// HealthRecorder implements domain.HealthRecorder with TTL keys per
// component plus a rolling audit-failure counter. Everything here is
// best-effort: failures are logged and swallowed so health reporting can
// never take down the operation it is reporting on.
type HealthRecorder struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewHealthRecorder creates a HealthRecorder backed by the given Client.
func NewHealthRecorder(c *Client, logger *slog.Logger) *HealthRecorder {
	return &HealthRecorder{rdb: c.Underlying(), logger: logger.With("component", "health")}
}

// Heartbeat refreshes the component's liveness key. A missing key means
// the component has not completed a cycle within the TTL.
func (h *HealthRecorder) Heartbeat(ctx context.Context, component string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.rdb.Set(ctx, heartbeatKey(component), now, heartbeatTTL).Err(); err != nil {
		h.logger.Warn("heartbeat write failed", "target", component, "error", err)
		return fmt.Errorf("redis: heartbeat %s: %w", component, err)
	}
	return nil
}

// ReportAuditFailure bumps the failure counter, records the latest error
// text, and publishes an alert for the notifier. Never returns an error.
func (h *HealthRecorder) ReportAuditFailure(ctx context.Context, err error) {
	pipe := h.rdb.Pipeline()
	pipe.Incr(ctx, auditFailureKey)
	pipe.Expire(ctx, auditFailureKey, auditFailureRetainer)
	pipe.Set(ctx, auditFailureLastKey, err.Error(), auditFailureRetainer)
	if payload, merr := json.Marshal(map[string]any{
		"type":  "audit_write_failed",
		"error": err.Error(),
		"at":    time.Now().UTC(),
	}); merr == nil {
		pipe.Publish(ctx, "alerts", payload)
	}
	if _, perr := pipe.Exec(ctx); perr != nil {
		h.logger.Error("audit failure report dropped", "audit_error", err, "redis_error", perr)
	}
}

// AuditFailures returns the rolling failure count and the last recorded
// error text for the health endpoint.
func (h *HealthRecorder) AuditFailures(ctx context.Context) (int64, string) {
	count, err := h.rdb.Get(ctx, auditFailureKey).Int64()
	if err != nil {
		return 0, ""
	}
	last, _ := h.rdb.Get(ctx, auditFailureLastKey).Result()
	return count, last
}

// LastHeartbeat returns the recorded heartbeat time for a component, or a
// zero time when none is present.
func (h *HealthRecorder) LastHeartbeat(ctx context.Context, component string) time.Time {
	val, err := h.rdb.Get(ctx, heartbeatKey(component)).Result()
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}
	}
	return t
}
