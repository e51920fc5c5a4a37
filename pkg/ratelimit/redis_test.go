package ratelimit

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, redisURL)
	require.NoError(t, err)
	defer store.Close()

	key := Key{TenantID: "test-guild", ActorID: "test-mod", Category: "ban", Date: "1999-01-01"}
	require.NoError(t, store.Client.Del(ctx, redisKey(key)).Err())

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

	used, err := store.QuotaUsage(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}
