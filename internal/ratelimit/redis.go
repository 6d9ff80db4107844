package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "ratelimit:bigboost"

// tokenBucketScript runs refill, check and consume atomically on the Redis
// server, using the server clock so replicas never disagree about elapsed time.
// ARGV: capacity, window in ms, mode ("take" consumes, "peek" only reads).
// Returns {allowed, waitMs}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local mode = ARGV[3]

local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end

if window_ms > 0 then
	local added = (now - ts) * capacity / window_ms
	if added > 0 then
		tokens = math.min(tokens + added, capacity)
		ts = now
	end
end

if mode == 'peek' then
	if tokens >= 1 then
		return {1, 0}
	end
	if capacity <= 0 then
		return {0, window_ms}
	end
	return {0, math.ceil((1 - tokens) * window_ms / capacity)}
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(ts))
redis.call('PEXPIRE', KEYS[1], math.max(window_ms * 2, 1000))
return {allowed, 0}
`)

// RedisTokenBucket shares one global bucket between every replica pointed
// at the same Redis key.
type RedisTokenBucket struct {
	client   *redis.Client
	key      string
	capacity int
	windowMs int64
}

func NewRedisTokenBucket(redisURL string, cfg Config) (*RedisTokenBucket, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisTokenBucket{
		client:   client,
		key:      defaultRedisKey,
		capacity: max(cfg.MaxRequests, 0),
		windowMs: cfg.Window.Milliseconds(),
	}, nil
}

func (r *RedisTokenBucket) Allow(ctx context.Context) (bool, error) {
	allowed, _, err := r.run(ctx, "take")
	return allowed, err
}

func (r *RedisTokenBucket) WaitTime(ctx context.Context) (time.Duration, error) {
	_, wait, err := r.run(ctx, "peek")
	return wait, err
}

func (r *RedisTokenBucket) run(ctx context.Context, mode string) (bool, time.Duration, error) {
	res, err := tokenBucketScript.Run(ctx, r.client, []string{r.key}, r.capacity, r.windowMs, mode).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("token bucket script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("token bucket script: unexpected reply %v", res)
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

// Client exposes the underlying connection for health checks.
func (r *RedisTokenBucket) Client() *redis.Client {
	return r.client
}

// Reset drops the shared bucket state; the next call starts full.
func (r *RedisTokenBucket) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisTokenBucket) Close() error {
	return r.client.Close()
}
