package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

var (
	_ security.ConfigStore        = (*Store)(nil)
	_ security.ViolationLedger    = (*Store)(nil)
	_ security.SnapshotRepository = (*Store)(nil)
	_ warnings.Repository         = (*Store)(nil)
	_ ratelimit.Store             = (*Store)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecordViolationConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordViolation(ctx, "g1", "u1", models.CategoryBan); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := s.ViolationCount(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	require.NoError(t, s.ResetViolations(ctx, "g1", "u1", models.CategoryBan))
	require.NoError(t, s.ResetViolations(ctx, "g1", "u1", models.CategoryBan))
	count, err = s.ViolationCount(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpsertConfigPatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg, err := s.GetConfig(ctx, "g1", models.CategoryKick)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, s.UpsertConfig(ctx, "g1", models.CategoryKick, models.ConfigPatch{}))
	cfg, err = s.GetConfig(ctx, "g1", models.CategoryKick)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, models.PunishmentClearRoles, cfg.Punishment)
	assert.Equal(t, 3, cfg.MaxViolations)

	enabled, ban, five := true, models.PunishmentBan, 5
	require.NoError(t, s.UpsertConfig(ctx, "g1", models.CategoryKick, models.ConfigPatch{
		Enabled: &enabled, Punishment: &ban, MaxViolations: &five,
		AddMembers: []string{"u1", "u2"}, AddRoles: []string{"r1"},
	}))
	require.NoError(t, s.UpsertConfig(ctx, "g1", models.CategoryKick, models.ConfigPatch{RemoveMembers: []string{"u1"}}))

	cfg, err = s.GetConfig(ctx, "g1", models.CategoryKick)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, models.PunishmentBan, cfg.Punishment)
	assert.Equal(t, 5, cfg.MaxViolations)
	assert.Equal(t, []string{"u2"}, cfg.WhitelistedMembers)
	assert.Equal(t, []string{"r1"}, cfg.WhitelistedRoles)

	all, err := s.ListConfigs(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotsNewestFirstAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSnapshot(ctx, models.RoleSnapshot{TenantID: "g1", SubjectID: "u1", RoleIDs: []string{"old"}, CapturedAt: base}))
	require.NoError(t, s.InsertSnapshot(ctx, models.RoleSnapshot{TenantID: "g1", SubjectID: "u1", RoleIDs: []string{"r1", "r2"}, CapturedAt: base.Add(time.Minute)}))
	require.NoError(t, s.InsertSnapshot(ctx, models.RoleSnapshot{TenantID: "g1", SubjectID: "u1", CapturedAt: base.Add(2 * time.Minute)}))

	snaps, err := s.Snapshots(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Empty(t, snaps[0].RoleIDs)
	assert.Equal(t, []string{"r1", "r2"}, snaps[1].RoleIDs)
	assert.Equal(t, []string{"old"}, snaps[2].RoleIDs)

	n, err := s.DeleteSnapshots(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snaps, err = s.Snapshots(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestWarningHistoryDeleteLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendWarningHistory(ctx, models.WarningHistoryEntry{
			ID: id, TenantID: "g1", SubjectID: "u1", Level: i + 1, Reason: "spam", ModeratorID: "m", IssuedAt: at,
		}))
	}

	deleted, remaining, err := s.DeleteLatestWarning(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 2, remaining)

	hist, err := s.WarningHistory(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "a", hist[0].ID)
	assert.Equal(t, "b", hist[1].ID)

	n, err := s.ClearWarningHistory(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, remaining, err = s.DeleteLatestWarning(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, remaining)
}

func TestExpiredWarnings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveWarning(ctx, models.WarningState{TenantID: "g1", SubjectID: "due", Level: 1, ExpiresAt: now}))
	require.NoError(t, s.SaveWarning(ctx, models.WarningState{TenantID: "g1", SubjectID: "later", Level: 2, ExpiresAt: now.Add(time.Second)}))
	// upsert keeps one row per member
	require.NoError(t, s.SaveWarning(ctx, models.WarningState{TenantID: "g1", SubjectID: "due", Level: 2, ExpiresAt: now.Add(-time.Hour)}))

	expired, err := s.ExpiredWarnings(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "due", expired[0].SubjectID)
	assert.Equal(t, 2, expired[0].Level)

	deleted, err := s.DeleteExpiredWarning(ctx, "g1", "later", now)
	require.NoError(t, err)
	assert.False(t, deleted, "not expired yet")
	deleted, err = s.DeleteExpiredWarning(ctx, "g1", "due", now)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteExpiredWarning(ctx, "g1", "due", now)
	require.NoError(t, err)
	assert.False(t, deleted)

	w, err := s.ActiveWarning(ctx, "g1", "later")
	require.NoError(t, err)
	require.NotNil(t, w)
}

func TestConsumeQuotaCap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := ratelimit.Key{TenantID: "g1", ActorID: "mod", Category: "ban", Date: "2025-01-01"}

	for i := 1; i <= 4; i++ {
		count, ok, err := s.ConsumeQuota(ctx, key, 4)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}
	count, ok, err := s.ConsumeQuota(ctx, key, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, count)

	key.Date = "2025-01-02"
	count, ok, err = s.ConsumeQuota(ctx, key, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestWarnSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ws, err := s.WarnSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, ws)

	want := models.WarnSettings{TenantID: "g1", FirstRole: "w1", SecondRole: "w2", LastRole: "w3", JailRole: "jail"}
	require.NoError(t, s.SaveWarnSettings(ctx, want))
	ws, err = s.WarnSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, &want, ws)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x TEXT DEFAULT 'a;b');\n\nCREATE INDEX i ON a (x);")
	assert.Equal(t, []string{"CREATE TABLE a (x TEXT DEFAULT 'a;b')", "CREATE INDEX i ON a (x)"}, got)
}
