package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow counts the requests of the last window in a sorted set scored by time in
// milliseconds. Members must be unique, so the caller passes a timestamp plus a sequence.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset = now + window
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end

if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, current + 1, reset}
end
return {0, current, reset}
`)

// RedisLimiter is a sliding window limiter shared through Redis
type RedisLimiter struct {
	client *redis.Client
	config Config
	seq    atomic.Uint64
}

// NewRedisLimiter creates a limiter on client and takes ownership of it
func NewRedisLimiter(client *redis.Client, config Config) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &RedisLimiter{client: client, config: config}, nil
}

// Allow records a request for key if the window has room
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), r.seq.Add(1))

	result, err := slidingWindow.Run(ctx, r.client, []string{r.config.Prefix + key},
		now.UnixMilli(),
		r.config.Window.Milliseconds(),
		r.config.Requests,
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	remaining := r.config.Requests - int(result[1])
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Limit:     r.config.Requests,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(result[2]),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset forgets the requests recorded for key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.config.Prefix+key).Err()
}

// Close closes the Redis client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
