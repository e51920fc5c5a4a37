package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisQuotaPrefix = "quota/"

// keys live two days so yesterday's counter survives clock skew between replicas
var redisQuotaTTL = 48 * time.Hour

// consumeScript increments KEYS[1] only while it is below ARGV[1].
// Returns {count, allowed}.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return {current, 0}
end
current = redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return {current, 1}
`)

// RedisStore keeps quota counters in Redis.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func redisKey(k Key) string {
	return redisQuotaPrefix + k.TenantID + "/" + k.ActorID + "/" + k.Category + "/" + k.Date
}

func (s *RedisStore) ConsumeQuota(ctx context.Context, key Key, limit int) (int, bool, error) {
	vals, err := consumeScript.Run(ctx, s.Client, []string{redisKey(key)}, limit, int(redisQuotaTTL.Seconds())).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(vals) != 2 {
		return 0, false, errors.New("unexpected quota script reply")
	}
	return int(vals[0]), vals[1] == 1, nil
}

func (s *RedisStore) QuotaUsage(ctx context.Context, key Key) (int, error) {
	c, err := s.Client.Get(ctx, redisKey(key)).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.Client.Close()
}
