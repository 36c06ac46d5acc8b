package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/arbscan/internal/domain"
)

func getAudit(t *testing.T, h *AuditHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/audit"+query, nil)
	rec := httptest.NewRecorder()
	h.ListAudit(rec, req)
	return rec
}

func TestListAudit_PassesTimeWindowToStore(t *testing.T) {
	audit := &fakeAuditStore{}
	h := NewAuditHandler(audit, slog.New(slog.DiscardHandler))

	rec := getAudit(t, h, "?since=2026-07-01T00:00:00Z&until=2026-08-01T00:00:00Z&limit=10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, audit.lastOpts.Limit)
	require.NotNil(t, audit.lastOpts.Since)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), audit.lastOpts.Since.UTC())
	require.NotNil(t, audit.lastOpts.Until)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), audit.lastOpts.Until.UTC())
}

func TestListAudit_NoFiltersByDefault(t *testing.T) {
	audit := &fakeAuditStore{records: []domain.AuditRecord{{ID: "rec-1"}}}
	h := NewAuditHandler(audit, slog.New(slog.DiscardHandler))

	rec := getAudit(t, h, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, audit.lastOpts.Limit)
	assert.Nil(t, audit.lastOpts.Since)
	assert.Nil(t, audit.lastOpts.Until)
}

func TestListAudit_RejectsMalformedTimestamp(t *testing.T) {
	audit := &fakeAuditStore{}
	h := NewAuditHandler(audit, slog.New(slog.DiscardHandler))

	rec := getAudit(t, h, "?since=yesterday")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "since")
}
