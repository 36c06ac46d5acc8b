package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/arbscan/internal/domain"
)

type fakeWriter struct {
	objects map[string][]byte
	puts    int
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[path] = b
	f.puts++
	return nil
}

type fakeArchiveStore struct {
	records []domain.AuditRecord
}

func (f *fakeArchiveStore) Append(_ context.Context, rec domain.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeArchiveStore) List(context.Context, domain.ListOpts) ([]domain.AuditRecord, error) {
	return f.records, nil
}

// ListRange mirrors the postgres keyset query: (created_at, id) strictly
// greater than the cursor, created_at strictly below the upper bound.
func (f *fakeArchiveStore) ListRange(_ context.Context, sinceTime time.Time, sinceID string, before time.Time, limit int) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for _, r := range f.records {
		if !r.CreatedAt.Before(before) {
			continue
		}
		if r.CreatedAt.Before(sinceTime) {
			continue
		}
		if r.CreatedAt.Equal(sinceTime) && r.ID <= sinceID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func archiveRecord(id string, at time.Time) domain.AuditRecord {
	return domain.AuditRecord{
		ID:        id,
		Module:    domain.AuditModuleScan,
		Action:    "cycle_completed",
		Result:    "ok",
		CreatedAt: at,
	}
}

func testArchiver(writer *fakeWriter, store *fakeArchiveStore, now time.Time) *Archiver {
	a := NewArchiver(writer, store, 30*24*time.Hour, time.Hour, slog.New(slog.DiscardHandler))
	a.now = func() time.Time { return now }
	return a
}

func TestArchiveOnce_ExportsMonthWindows(t *testing.T) {
	// now = 2026-08-15, retention 30d, so cutoff = 2026-07-16.
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{records: []domain.AuditRecord{
		archiveRecord("jun-1", time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)),
		archiveRecord("jul-1", time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)),
		archiveRecord("jul-2", time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)),
		archiveRecord("jul-late", time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)), // after cutoff
		archiveRecord("aug-1", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),     // after cutoff
	}}
	writer := &fakeWriter{}

	total, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	require.Contains(t, writer.objects, "audit/2026-06.jsonl")
	require.Contains(t, writer.objects, "audit/2026-07.jsonl")
	assert.NotContains(t, writer.objects, "audit/2026-08.jsonl")

	assert.Equal(t, 1, countLines(t, writer.objects["audit/2026-06.jsonl"]))
	assert.Equal(t, 2, countLines(t, writer.objects["audit/2026-07.jsonl"]))
}

func TestArchiveOnce_RecordsExportInAuditTrail(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{records: []domain.AuditRecord{
		archiveRecord("jun-1", time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)),
	}}
	writer := &fakeWriter{}

	_, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())
	require.NoError(t, err)

	var exports []domain.AuditRecord
	for _, r := range store.records {
		if r.Module == domain.AuditModuleArchive {
			exports = append(exports, r)
		}
	}
	require.Len(t, exports, 1)
	assert.Equal(t, "audit_exported", exports[0].Action)
	assert.Equal(t, "audit/2026-06.jsonl", exports[0].Metrics["path"])
	assert.Equal(t, int64(1), exports[0].Metrics["records"])
	assert.Equal(t, "system", exports[0].Operator)
}

func TestArchiveOnce_EmptyWindowsUploadNothing(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{}
	writer := &fakeWriter{}

	total, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, writer.puts)
	assert.Empty(t, store.records, "no export record for an empty run")
}

func TestArchiveOnce_IsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{records: []domain.AuditRecord{
		archiveRecord("jul-1", time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)),
	}}
	writer := &fakeWriter{}
	archiver := testArchiver(writer, store, now)

	_, err := archiver.ArchiveOnce(context.Background())
	require.NoError(t, err)
	first := writer.objects["audit/2026-07.jsonl"]

	// The export record lands in August, outside both windows, so a second
	// run rewrites the same object with the same content.
	_, err = archiver.ArchiveOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, countLines(t, first), countLines(t, writer.objects["audit/2026-07.jsonl"]))
}

func TestArchiveOnce_PagesThroughLargeWindows(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{}
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < batchSize+50; i++ {
		store.records = append(store.records, archiveRecord(fmt.Sprintf("rec-%04d", i), base.Add(time.Duration(i)*time.Second)))
	}
	writer := &fakeWriter{}

	total, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(batchSize+50), total)
	assert.Equal(t, batchSize+50, countLines(t, writer.objects["audit/2026-07.jsonl"]))
}

func TestArchiveOnce_PagesThroughSameTimestampRecords(t *testing.T) {
	// A burst larger than one batch, every record stamped identically. The
	// id tiebreak in the keyset must carry the export past the batch
	// boundary without dropping the rest of the run.
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{}
	at := time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC)
	for i := 0; i < batchSize+500; i++ {
		store.records = append(store.records, archiveRecord(fmt.Sprintf("rec-%04d", i), at))
	}
	writer := &fakeWriter{}

	total, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(batchSize+500), total)
	assert.Equal(t, batchSize+500, countLines(t, writer.objects["audit/2026-07.jsonl"]))
}

func TestArchiveOnce_MonthBoundaryRecordExportsOnce(t *testing.T) {
	// A record stamped exactly at midnight on the first of the month
	// belongs to that month's object, and to nothing else.
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{records: []domain.AuditRecord{
		archiveRecord("boundary", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
	}}
	writer := &fakeWriter{}

	total, err := testArchiver(writer, store, now).ArchiveOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.NotContains(t, writer.objects, "audit/2026-06.jsonl")
	assert.Equal(t, 1, countLines(t, writer.objects["audit/2026-07.jsonl"]))
}

func TestArchivePath(t *testing.T) {
	assert.Equal(t, "audit/2026-07.jsonl", archivePath(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func countLines(t *testing.T, data []byte) int {
	t.Helper()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}
