package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

var (
	_ security.ConfigStore        = (*MongoStore)(nil)
	_ security.ViolationLedger    = (*MongoStore)(nil)
	_ security.SnapshotRepository = (*MongoStore)(nil)
	_ warnings.Repository         = (*MongoStore)(nil)
	_ ratelimit.Store             = (*MongoStore)(nil)
)

// newTestStore connects to MONGO_TEST_URL using a throwaway database.
func newTestStore(t *testing.T) *MongoStore {
	t.Helper()
	url := os.Getenv("MONGO_TEST_URL")
	if url == "" {
		t.Skip("MONGO_TEST_URL not set")
	}
	ctx := context.Background()
	db := NewDatabase()
	require.NoError(t, db.Connect(ctx, url, "pancyguard_test_"+uuid.NewString()[:8]))
	t.Cleanup(func() {
		_ = db.db.Drop(context.Background())
		_ = db.Disconnect(context.Background())
	})
	store := NewMongoStore(db)
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestMongoConcurrentViolations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordViolation(ctx, "g1", "u1", models.CategoryBan)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.ViolationCount(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)
	assert.Equal(t, 20, count)

	require.NoError(t, store.ResetViolations(ctx, "g1", "u1", models.CategoryBan))
	count, err = store.ViolationCount(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMongoConfigPatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.GetConfig(ctx, "g1", models.CategoryKick)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, store.UpsertConfig(ctx, "g1", models.CategoryKick, models.ConfigPatch{AddMembers: []string{"a", "b"}}))
	enabled := true
	require.NoError(t, store.UpsertConfig(ctx, "g1", models.CategoryKick, models.ConfigPatch{Enabled: &enabled, RemoveMembers: []string{"a"}}))

	cfg, err = store.GetConfig(ctx, "g1", models.CategoryKick)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, models.DefaultMaxViolations, cfg.MaxViolations)
	assert.Equal(t, []string{"b"}, cfg.WhitelistedMembers)
	assert.Empty(t, cfg.WhitelistedRoles)
}

func TestMongoQuota(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := ratelimit.Key{TenantID: "g1", ActorID: "mod", Category: "ban", Date: "2025-01-01"}

	for i := 1; i <= 2; i++ {
		count, ok, err := store.ConsumeQuota(ctx, key, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}
	count, ok, err := store.ConsumeQuota(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, count)
}

func TestMongoWarningsAndSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.SaveWarning(ctx, models.WarningState{TenantID: "g1", SubjectID: "u1", Level: 1, ExpiresAt: now.Add(-time.Minute)}))
	expired, err := store.ExpiredWarnings(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "u1", expired[0].SubjectID)

	require.NoError(t, store.SaveWarning(ctx, models.WarningState{TenantID: "g1", SubjectID: "u2", Level: 2, ExpiresAt: now.Add(time.Hour)}))
	deleted, err := store.DeleteExpiredWarning(ctx, "g1", "u2", now)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = store.DeleteExpiredWarning(ctx, "g1", "u1", now)
	require.NoError(t, err)
	assert.True(t, deleted)

	for i := 0; i < 2; i++ {
		require.NoError(t, store.AppendWarningHistory(ctx, models.WarningHistoryEntry{
			ID: uuid.NewString(), TenantID: "g1", SubjectID: "u1", Level: i + 1, IssuedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	deleted, remaining, err := store.DeleteLatestWarning(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, remaining)

	require.NoError(t, store.InsertSnapshot(ctx, models.RoleSnapshot{TenantID: "g1", SubjectID: "u1", RoleIDs: []string{"old"}, CapturedAt: now}))
	require.NoError(t, store.InsertSnapshot(ctx, models.RoleSnapshot{TenantID: "g1", SubjectID: "u1", RoleIDs: []string{"new"}, CapturedAt: now}))
	snaps, err := store.Snapshots(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.ElementsMatch(t, []string{"old", "new"}, []string{snaps[0].RoleIDs[0], snaps[1].RoleIDs[0]})
	n, err := store.DeleteSnapshots(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
