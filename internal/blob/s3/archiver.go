package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quanterra/arbscan/internal/domain"
)

const (
	// DefaultRetention is how long audit rows stay exclusively in Postgres
	// before they are exported to cold storage.
	DefaultRetention = 30 * 24 * time.Hour

	// DefaultInterval is how often the export runs.
	DefaultInterval = 24 * time.Hour

	batchSize = 1000
)

// BlobWriter uploads one object. Satisfied by *Writer.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports audit records older than the retention window to
// NDJSON objects, one per calendar month. Export only: rows are never
// deleted from the primary store by this system.
//
// Each run rewrites the month object(s) that the moving cutoff touches,
// so the export is idempotent; a month's object is complete once the
// cutoff has moved past its end.
type Archiver struct {
	writer    BlobWriter
	audit     domain.AuditStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver. Non-positive retention or interval
// fall back to the defaults.
func NewArchiver(writer BlobWriter, audit domain.AuditStore, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Archiver{
		writer:    writer,
		audit:     audit,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunLoop runs exports on the configured interval until the context is
// cancelled. The first export runs immediately. Export failures are
// logged and retried on the next tick.
func (a *Archiver) RunLoop(ctx context.Context) error {
	a.logger.InfoContext(ctx, "archiver starting",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval),
	)

	if _, err := a.ArchiveOnce(ctx); err != nil && ctx.Err() == nil {
		a.logger.ErrorContext(ctx, "audit export failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.ErrorContext(ctx, "audit export failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ArchiveOnce exports the month windows touched by the current cutoff:
// the cutoff's own month up to the cutoff, and the full previous month.
// Windows are half-open [from, to), so a record stamped exactly on a
// month boundary belongs to exactly one object. Returns the total number
// of records exported.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int64, error) {
	cutoff := a.now().Add(-a.retention)
	monthStart := time.Date(cutoff.Year(), cutoff.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := monthStart.AddDate(0, -1, 0)

	var total int64
	for _, win := range []struct {
		from, to time.Time
	}{
		{prevStart, monthStart},
		{monthStart, cutoff},
	} {
		n, err := a.exportWindow(ctx, win.from, win.to)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// exportWindow exports all records in [from, to) into one object keyed by
// the window's month. Pagination advances a (created_at, id) keyset so a
// batch boundary inside a run of identical timestamps drops nothing.
func (a *Archiver) exportWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var count int64
	sinceTime, sinceID := from, ""
	for {
		batch, err := a.audit.ListRange(ctx, sinceTime, sinceID, to, batchSize)
		if err != nil {
			return 0, fmt.Errorf("s3blob: query audit range: %w", err)
		}
		for i := range batch {
			if err := enc.Encode(batch[i]); err != nil {
				return 0, fmt.Errorf("s3blob: encode audit record %s: %w", batch[i].ID, err)
			}
		}
		count += int64(len(batch))
		if len(batch) < batchSize {
			break
		}
		last := batch[len(batch)-1]
		sinceTime, sinceID = last.CreatedAt, last.ID
	}
	if count == 0 {
		return 0, nil
	}

	path := archivePath(from)
	if err := a.upload(ctx, path, &buf); err != nil {
		return 0, err
	}

	a.logger.InfoContext(ctx, "audit window exported",
		slog.String("path", path),
		slog.Int64("records", count),
	)
	a.recordExport(ctx, path, count, to)
	return count, nil
}

func (a *Archiver) upload(ctx context.Context, path string, buf *bytes.Buffer) error {
	if mp, ok := a.writer.(*Writer); ok && int64(buf.Len()) > multipartThreshold {
		if err := mp.PutMultipart(ctx, path, buf, minPartSize); err != nil {
			return fmt.Errorf("s3blob: upload %s: %w", path, err)
		}
		return nil
	}
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}

// recordExport writes the export event to the audit trail. Best-effort.
func (a *Archiver) recordExport(ctx context.Context, path string, count int64, before time.Time) {
	rec := domain.AuditRecord{
		ID:     uuid.New().String(),
		Module: domain.AuditModuleArchive,
		Action: "audit_exported",
		Inputs: map[string]any{
			"before": before.Format(time.RFC3339),
		},
		Metrics: map[string]any{
			"path":    path,
			"records": count,
		},
		Operator:  "system",
		Result:    "ok",
		CreatedAt: a.now(),
	}
	if err := a.audit.Append(ctx, rec); err != nil {
		a.logger.ErrorContext(ctx, "audit write failed", slog.String("error", err.Error()))
	}
}

// archivePath builds the object key for a month window, e.g.
// audit/2026-07.jsonl.
func archivePath(monthStart time.Time) string {
	return fmt.Sprintf("audit/%s.jsonl", monthStart.Format("2006-01"))
}
