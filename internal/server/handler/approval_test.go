package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/arbscan/internal/approval"
	"github.com/quanterra/arbscan/internal/domain"
)

type fakeOppStore struct {
	opps map[string]domain.Opportunity
}

func (f *fakeOppStore) Replace(_ context.Context, opps []domain.Opportunity) error {
	f.opps = make(map[string]domain.Opportunity, len(opps))
	for _, o := range opps {
		f.opps[o.ID] = o
	}
	return nil
}

func (f *fakeOppStore) GetByID(_ context.Context, id string) (domain.Opportunity, error) {
	opp, ok := f.opps[id]
	if !ok {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return opp, nil
}

func (f *fakeOppStore) List(_ context.Context) ([]domain.Opportunity, error) {
	out := make([]domain.Opportunity, 0, len(f.opps))
	for _, o := range f.opps {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOppStore) UpdateApproval(_ context.Context, id string, status domain.ApprovalStatus, operator string, at time.Time) error {
	opp, ok := f.opps[id]
	if !ok {
		return domain.ErrNotFound
	}
	opp.ApprovalStatus = status
	opp.ApprovedBy = operator
	opp.ApprovedAt = &at
	f.opps[id] = opp
	return nil
}

type fakeRiskStore struct {
	limits domain.RiskLimits
}

func (f *fakeRiskStore) Get(context.Context) (domain.RiskLimits, error) { return f.limits, nil }
func (f *fakeRiskStore) Update(_ context.Context, l domain.RiskLimits) error {
	f.limits = l
	return nil
}
func (f *fakeRiskStore) Seed(context.Context, domain.RiskLimits) error { return nil }

type fakeAuditStore struct {
	records  []domain.AuditRecord
	lastOpts domain.ListOpts
}

func (f *fakeAuditStore) Append(_ context.Context, rec domain.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditRecord, error) {
	f.lastOpts = opts
	return f.records, nil
}

func (f *fakeAuditStore) ListRange(context.Context, time.Time, string, time.Time, int) ([]domain.AuditRecord, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, limits domain.RiskLimits) (*ApprovalHandler, *fakeOppStore) {
	t.Helper()
	opps := &fakeOppStore{opps: map[string]domain.Opportunity{
		"opp-1": {ID: "opp-1", EventID: "ev-1", NetEdge: 0.03, ApprovalStatus: domain.ApprovalPending},
	}}
	logger := slog.New(slog.DiscardHandler)
	gate := approval.NewGate(opps, &fakeRiskStore{limits: limits}, &fakeAuditStore{}, nil, logger)
	return NewApprovalHandler(gate, logger), opps
}

func postAction(t *testing.T, h *ApprovalHandler, id, action string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"action": action})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/opportunities/"+id+"/action", bytes.NewReader(body))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.ApplyAction(rec, req)
	return rec
}

func TestApplyAction_Approve(t *testing.T) {
	h, opps := newTestHandler(t, domain.RiskLimits{})

	rec := postAction(t, h, "opp-1", "approve")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "approved", resp.ApprovalStatus)
	assert.False(t, resp.Blocked)
	assert.Equal(t, domain.ApprovalApproved, opps.opps["opp-1"].ApprovalStatus)
}

func TestApplyAction_KillSwitchBlocks(t *testing.T) {
	h, opps := newTestHandler(t, domain.RiskLimits{KillSwitch: true})

	rec := postAction(t, h, "opp-1", "approve")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Blocked)
	assert.Equal(t, "kill_switch_active", resp.BlockReason)
	assert.Equal(t, domain.ApprovalPending, opps.opps["opp-1"].ApprovalStatus)
}

func TestApplyAction_ObservationOnlyAllowsReject(t *testing.T) {
	h, _ := newTestHandler(t, domain.RiskLimits{ObservationOnly: true})

	rec := postAction(t, h, "opp-1", "approve")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "observation_only_mode", resp.BlockReason)

	rec = postAction(t, h, "opp-1", "reject")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyAction_InvalidTransition(t *testing.T) {
	h, _ := newTestHandler(t, domain.RiskLimits{})

	rec := postAction(t, h, "opp-1", "reject")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postAction(t, h, "opp-1", "approve")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_transition", resp.BlockReason)
}

func TestApplyAction_UnknownOpportunity(t *testing.T) {
	h, _ := newTestHandler(t, domain.RiskLimits{})

	rec := postAction(t, h, "missing", "approve")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyAction_UnknownAction(t *testing.T) {
	h, _ := newTestHandler(t, domain.RiskLimits{})

	rec := postAction(t, h, "opp-1", "yolo")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
