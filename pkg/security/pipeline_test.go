package security

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/audit"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

type stubResolver struct {
	actor  string
	calls  int
	action platform.AuditAction
	opts   int
}

func (r *stubResolver) Resolve(_ context.Context, _ string, action platform.AuditAction, _ string, opts ...audit.Option) (string, error) {
	r.calls++
	r.action = action
	r.opts = len(opts)
	return r.actor, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []LogRecord
}

func (s *recordingSink) Emit(_ context.Context, rec LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

type recordingAlerts struct{ kinds []string }

func (a *recordingAlerts) Alert(kind, _ string) { a.kinds = append(a.kinds, kind) }

// failingLedger wraps a real ledger and fails every RecordViolation.
type failingLedger struct{ ViolationLedger }

func (failingLedger) RecordViolation(context.Context, string, string, models.Category) (int, error) {
	return 0, errLedgerDown
}

func TestPipelineRoutesAndEmits(t *testing.T) {
	h := newHarness(t)
	h.enable(t, models.CategoryChannelDelete, models.PunishmentClearRoles, 2)
	resolver := &stubResolver{actor: "u1"}
	sink := &recordingSink{}
	p := NewPipeline(h.store, resolver, h.fake, h.exec, sink, nil)

	ev := platform.Event{Kind: platform.EventChannelDelete, TenantID: "g1", TargetID: "c1", Timestamp: time.Now(), Context: []string{"Canal: #general"}}
	out, err := p.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, OutcomeRecorded, out.Kind)
	assert.Equal(t, platform.AuditChannelDelete, resolver.action)

	out, err = p.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomePunished, out.Kind)

	require.Len(t, sink.records, 2)
	last := sink.records[1]
	assert.Equal(t, models.CategoryChannelDelete, last.Category)
	assert.Equal(t, "u1", last.SubjectID)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, 2, last.Max)
	assert.Equal(t, models.PunishmentClearRoles, last.PunishmentApplied)
	assert.Equal(t, "punished", last.Outcome)
	assert.Equal(t, []string{"Canal: #general"}, last.Context)
}

func TestPipelineSkipsDisabledWithoutPolling(t *testing.T) {
	h := newHarness(t)
	resolver := &stubResolver{actor: "u1"}
	p := NewPipeline(h.store, resolver, h.fake, h.exec, nil, nil)

	out, err := p.Handle(context.Background(), platform.Event{Kind: platform.EventRoleCreate, TenantID: "g1", TargetID: "r9"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, resolver.calls)
}

func TestPipelineUnresolvedActor(t *testing.T) {
	h := newHarness(t)
	h.enable(t, models.CategoryChangeServerName, models.PunishmentKick, 1)
	resolver := &stubResolver{}
	p := NewPipeline(h.store, resolver, h.fake, h.exec, nil, nil)

	out, err := p.Handle(context.Background(), platform.Event{Kind: platform.EventTenantRename, TenantID: "g1", TargetID: "g1"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, platform.AuditGuildUpdate, resolver.action)
	assert.Equal(t, 2, resolver.opts, "rename uses a wider window and a change-key match")
}

func TestPipelineLedgerFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.enable(t, models.CategoryBan, models.PunishmentBan, 1)
	exec := NewExecutor(h.store, failingLedger{h.store}, h.snapshots, h.fake)
	sink := &recordingSink{}
	alerts := &recordingAlerts{}
	p := NewPipeline(h.store, &stubResolver{actor: "u1"}, h.fake, exec, sink, alerts)

	out, err := p.Handle(context.Background(), platform.Event{Kind: platform.EventMemberBan, TenantID: "g1", TargetID: "victim"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, []string{"ledger_fail_open"}, alerts.kinds)
	require.Len(t, sink.records, 1)
	assert.Equal(t, OutcomeUnprocessed, sink.records[0].Outcome)
	assert.Zero(t, h.fake.CountActions("ban"))
}

func TestPipelineUnknownKind(t *testing.T) {
	h := newHarness(t)
	p := NewPipeline(h.store, &stubResolver{}, h.fake, h.exec, nil, nil)
	_, err := p.Handle(context.Background(), platform.Event{Kind: "message_delete", TenantID: "g1"})
	assert.Error(t, err)
}

func TestCategoryForCoversEveryCategory(t *testing.T) {
	seen := map[models.Category]bool{}
	for kind := range routes {
		c, ok := CategoryFor(kind)
		require.True(t, ok)
		seen[c] = true
	}
	for _, c := range models.Categories {
		assert.True(t, seen[c], "no event routes to %s", c)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, MultiSink{a, b}.Emit(context.Background(), LogRecord{Category: models.CategoryBan}))
	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}
