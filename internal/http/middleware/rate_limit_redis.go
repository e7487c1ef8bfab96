package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisFixedWindowScript = redis.NewScript(`
local window_ms = tonumber(ARGV[1])
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], window_ms)
end
local ttl_ms = redis.call("PTTL", KEYS[1])
if ttl_ms < 0 then
  redis.call("PEXPIRE", KEYS[1], window_ms)
  ttl_ms = window_ms
end
return {count, ttl_ms}
`)

// RedisFixedWindowLimiter shares one counter per key across instances.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, 0, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := redisFixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis script response type %T", raw)
	}
	count, err := parseRedisInt64(values[0])
	if err != nil {
		return false, 0, err
	}
	ttlMS, err := parseRedisInt64(values[1])
	if err != nil {
		return false, 0, err
	}

	if count > int64(limit) {
		retryAfter := time.Duration(ttlMS) * time.Millisecond
		if retryAfter <= 0 {
			retryAfter = window
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

func parseRedisInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
