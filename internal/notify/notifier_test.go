package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	titles []string
	fail   bool
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	if s.fail {
		return errors.New("boom")
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifier_EventFilter(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventOpportunityGo}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventOpportunityGo, "go", "body"))
	require.NoError(t, n.Notify(context.Background(), EventScanError, "err", "body"))

	assert.Equal(t, []string{"go"}, sender.titles)
}

func TestNotifier_EmptyFilterAllowsAll(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventScanError, "err", "body"))
	assert.Len(t, sender.titles, 1)
}

func TestNotifier_SenderFailureDoesNotStopOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", fail: true}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.New(slog.DiscardHandler))

	err := n.Notify(context.Background(), EventScanError, "err", "body")
	assert.Error(t, err)
	assert.Len(t, good.titles, 1)
}

func TestBridge_CycleNotifiesOnlyGo(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))
	b := NewBridge(nil, n, slog.New(slog.DiscardHandler))

	payload := []byte(`{
		"at": "2026-08-26T12:00:00Z",
		"opportunities": [
			{"id":"a","event_id":"ev1","type":"buy_all_yes","net_edge":0.03,"confidence":0.9,"status":"go"},
			{"id":"b","event_id":"ev2","type":"buy_all_yes","net_edge":0.01,"confidence":0.5,"status":"conditional"}
		]
	}`)
	b.handleCycle(context.Background(), payload)

	assert.Equal(t, []string{"GO opportunity"}, sender.titles)
}

func TestBridge_ApprovalNotifiesOnlyBlocked(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))
	b := NewBridge(nil, n, slog.New(slog.DiscardHandler))

	b.handleApproval(context.Background(), []byte(`{"opportunity_id":"a","action":"approve","blocked":true,"block_reason":"kill_switch_active","operator":"ops"}`))
	b.handleApproval(context.Background(), []byte(`{"opportunity_id":"a","action":"reject","new_status":"rejected","blocked":false}`))

	assert.Equal(t, []string{"Approval blocked"}, sender.titles)
}

func TestBridge_AlertMapping(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))
	b := NewBridge(nil, n, slog.New(slog.DiscardHandler))

	b.handleAlert(context.Background(), []byte(`{"type":"scan_error","error":"list event groups: timeout"}`))
	b.handleAlert(context.Background(), []byte(`{"type":"audit_write_failed","error":"insert: connection refused"}`))
	b.handleAlert(context.Background(), []byte(`{"type":"unknown","error":"x"}`))

	assert.Equal(t, []string{"Scan cycle failed", "Audit write failing"}, sender.titles)
}
