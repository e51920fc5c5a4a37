package warnings

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/database/sqlite"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform/platformtest"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

type fixture struct {
	store *sqlite.Store
	fake  *platformtest.Fake
	esc   *Escalator
	jail  *Jailer
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "warnings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fake := platformtest.New()
	for _, r := range []string{"w1", "w2", "w3", "jail", "member"} {
		fake.AddGuildRole("g1", r, true)
	}
	fake.AddMember("g1", "u1", "member")

	f := &fixture{store: store, fake: fake, now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	snapshots := security.NewRoleSnapshots(store, fake, fake)
	f.jail = NewJailer(store, snapshots, fake, fake)
	f.esc = NewEscalator(store, fake, f.jail)
	f.esc.now = func() time.Time { return f.now }

	require.NoError(t, f.esc.Configure(ctx, models.WarnSettings{
		TenantID: "g1", FirstRole: "w1", SecondRole: "w2", LastRole: "w3", JailRole: "jail",
	}))
	return f
}

func (f *fixture) issue(t *testing.T) IssueResult {
	t.Helper()
	res, err := f.esc.Issue(context.Background(), "g1", "u1", "spam", "mod")
	require.NoError(t, err)
	return res
}

func TestIssueLevelOneTTLAndSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.issue(t)
	assert.Equal(t, 1, res.Level)
	assert.WithinDuration(t, f.now.Add(24*time.Hour), res.ExpiresAt, time.Second)
	assert.Contains(t, f.fake.MemberRoles("g1", "u1"), "w1")

	state, err := f.esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.WithinDuration(t, f.now.Add(24*time.Hour), state.ExpiresAt, time.Second)

	f.now = f.now.Add(24*time.Hour + time.Second)
	n, err := f.esc.ExpireSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, f.fake.MemberRoles("g1", "u1"), "w1")

	state, err = f.esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSweepLeavesUnexpired(t *testing.T) {
	f := newFixture(t)
	f.issue(t)

	f.now = f.now.Add(23 * time.Hour)
	n, err := f.esc.ExpireSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, f.fake.MemberRoles("g1", "u1"), "w1")
}

// listingHookRepo runs afterList once, right after the sweep has listed the
// expired rows and before it deletes any of them.
type listingHookRepo struct {
	*sqlite.Store
	afterList func()
}

func (r *listingHookRepo) ExpiredWarnings(ctx context.Context, now time.Time, limit int) ([]models.WarningState, error) {
	out, err := r.Store.ExpiredWarnings(ctx, now, limit)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return out, err
}

func TestSweepKeepsWarningIssuedDuringSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := &listingHookRepo{Store: f.store}
	esc := NewEscalator(repo, f.fake, f.jail)
	esc.now = func() time.Time { return f.now }

	_, err := esc.Issue(ctx, "g1", "u1", "spam", "mod")
	require.NoError(t, err)
	f.now = f.now.Add(25 * time.Hour)

	repo.afterList = func() {
		res, err := esc.Issue(ctx, "g1", "u1", "spam otra vez", "mod")
		require.NoError(t, err)
		require.Equal(t, 2, res.Level)
	}
	n, err := esc.ExpireSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	state, err := esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, f.now.Add(48*time.Hour), state.ExpiresAt)
	assert.Contains(t, f.fake.MemberRoles("g1", "u1"), "w2")
}

func TestIssueEscalatesAndSwapsRoles(t *testing.T) {
	f := newFixture(t)

	f.issue(t)
	res := f.issue(t)
	assert.Equal(t, 2, res.Level)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, f.now.Add(48*time.Hour), res.ExpiresAt)

	res = f.issue(t)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, f.now.Add(7*24*time.Hour), res.ExpiresAt)

	roles := f.fake.MemberRoles("g1", "u1")
	assert.Contains(t, roles, "w3")
	assert.NotContains(t, roles, "w1")
	assert.NotContains(t, roles, "w2")
}

func TestFourthWarningJails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.issue(t)
	}

	res := f.issue(t)
	assert.True(t, res.Contained)
	assert.Equal(t, 4, res.Level)
	assert.Equal(t, []string{"jail"}, f.fake.MemberRoles("g1", "u1"))

	state, err := f.esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, state.Level, "containment writes no warning state")
	hist, err := f.esc.History(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Len(t, hist, 3)

	restored, err := f.jail.Release(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.ElementsMatch(t, []string{"member", "w3"}, f.fake.MemberRoles("g1", "u1"))
}

func TestWarningAJailedMemberKeepsTheirRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.issue(t)
	}
	require.Equal(t, []string{"jail"}, f.fake.MemberRoles("g1", "u1"))

	res, err := f.esc.Issue(ctx, "g1", "u1", "spam", "mod")
	assert.ErrorIs(t, err, ErrAlreadyJailed)
	assert.False(t, res.Contained)
	assert.Equal(t, []string{"jail"}, f.fake.MemberRoles("g1", "u1"))

	restored, err := f.jail.Release(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.ElementsMatch(t, []string{"member", "w3"}, f.fake.MemberRoles("g1", "u1"))
}

func TestJailTwiceThenRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.AddMember("g1", "u2", "member", "w1")

	require.NoError(t, f.jail.Contain(ctx, "g1", "u2", "raid", "mod"))
	assert.ErrorIs(t, f.jail.Contain(ctx, "g1", "u2", "raid", "mod"), ErrAlreadyJailed)

	snaps, err := f.store.Snapshots(ctx, "g1", "u2")
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	_, err = f.jail.Release(ctx, "g1", "u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"member", "w1"}, f.fake.MemberRoles("g1", "u2"))
}

func TestJailMemberWithoutRolesStoresNoSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.AddMember("g1", "u3")

	require.NoError(t, f.jail.Contain(ctx, "g1", "u3", "raid", "mod"))
	snaps, err := f.store.Snapshots(ctx, "g1", "u3")
	require.NoError(t, err)
	assert.Empty(t, snaps)

	_, err = f.jail.Release(ctx, "g1", "u3")
	assert.ErrorIs(t, err, security.ErrSnapshotNotFound)
	assert.Empty(t, f.fake.MemberRoles("g1", "u3"), "the jail role is removed anyway")
}

func TestRemoveLastRecomputesFromNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue(t)
	f.issue(t)

	f.now = f.now.Add(40 * time.Hour)
	res, err := f.esc.RemoveLast(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.PreviousLevel)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, f.now.Add(24*time.Hour), res.ExpiresAt)

	roles := f.fake.MemberRoles("g1", "u1")
	assert.Contains(t, roles, "w1")
	assert.NotContains(t, roles, "w2")

	res, err = f.esc.RemoveLast(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Level)
	assert.NotContains(t, f.fake.MemberRoles("g1", "u1"), "w1")
	state, err := f.esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = f.esc.RemoveLast(ctx, "g1", "u1")
	assert.ErrorIs(t, err, ErrNoWarnings)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue(t)
	f.issue(t)

	n, err := f.esc.Clear(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotContains(t, f.fake.MemberRoles("g1", "u1"), "w2")

	state, err := f.esc.Active(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, state)
	hist, err := f.esc.History(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestIssueRequiresSettings(t *testing.T) {
	f := newFixture(t)
	_, err := f.esc.Issue(context.Background(), "other-guild", "u1", "spam", "mod")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, f.esc.Configure(context.Background(), models.WarnSettings{TenantID: "g2"}), ErrNotConfigured)
}

func TestSweepIsSingleton(t *testing.T) {
	f := newFixture(t)
	f.esc.sweeping.Store(true)
	_, err := f.esc.ExpireSweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
	f.esc.sweeping.Store(false)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.esc.ExpireSweep(context.Background())
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, ErrSweepInProgress)
		}
	}
}

func TestSweeperStartStop(t *testing.T) {
	f := newFixture(t)
	f.issue(t)
	f.now = f.now.Add(25 * time.Hour)

	s := NewSweeper(f.esc, time.Hour, nil)
	s.Start()
	require.Eventually(t, func() bool {
		state, err := f.esc.Active(context.Background(), "g1", "u1")
		return err == nil && state == nil
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, TTL(1))
	assert.Equal(t, 48*time.Hour, TTL(2))
	assert.Equal(t, 7*24*time.Hour, TTL(3))
	assert.Zero(t, TTL(4))
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) WarningEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestEscalatorEmitsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recordingNotifier{}
	f.esc.SetNotifier(rec)

	for i := 0; i < 4; i++ {
		f.issue(t)
	}
	_, err := f.esc.RemoveLast(ctx, "g1", "u1")
	require.NoError(t, err)
	_, err = f.esc.Clear(ctx, "g1", "u1")
	require.NoError(t, err)

	f.issue(t)
	f.now = f.now.Add(25 * time.Hour)
	_, err = f.esc.ExpireSweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, []EventKind{
		EventIssued, EventIssued, EventIssued, EventContained,
		EventRemoved, EventCleared, EventIssued, EventExpired,
	}, rec.kinds())

	first := rec.events[0]
	assert.Equal(t, "g1", first.TenantID)
	assert.Equal(t, "mod", first.ModeratorID)
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, f.now.Add(-25*time.Hour), first.At)
}
