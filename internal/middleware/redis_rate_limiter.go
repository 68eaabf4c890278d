package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/logging"
)

const defaultRedisPrefix = "vidtube:rl:"

var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
  redis.call("PEXPIRE", key, window_ms)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  ttl = window_ms
end

if current > limit then
  return {0, ttl}
end
return {1, ttl}
`)

// RedisRateLimiter is a fixed-window limiter shared by every replica through
// Redis. It fails open when Redis is unreachable.
type RedisRateLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter allows limit events per window for each key.
func NewRedisRateLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow implements RateLimiter.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	allowed, _, err := l.Check(ctx, key)
	if err != nil {
		logging.FromContext(ctx).Warn("redis rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return allowed
}

// Check reports whether key may proceed and how long until its window resets.
func (l *RedisRateLimiter) Check(ctx context.Context, key string) (bool, time.Duration, error) {
	if key == "" {
		key = "unknown"
	}
	windowMS := int64(l.window / time.Millisecond)
	if windowMS <= 0 {
		return false, 0, fmt.Errorf("invalid rate limit window %s", l.window)
	}

	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.limit, windowMS).Result()
	if err != nil {
		return false, 0, fmt.Errorf("run rate limit script: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}
	allowed, ok := vals[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}
	ttlMS, ok := vals[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}

	retryAfter := time.Duration(ttlMS) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return allowed == 1, retryAfter, nil
}

var _ RateLimiter = (*RedisRateLimiter)(nil)
