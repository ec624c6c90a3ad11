package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow counts requests in a sorted set scored by millisecond timestamps.
// Returns {allowed, remaining, oldestScore}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

redis.call("zremrangebyscore", key, "-inf", window_start)
local current = redis.call("zcard", key)

if current < limit then
	redis.call("zadd", key, now, now .. "-" .. math.random())
	redis.call("pexpire", key, window_ms)
	return {1, limit - current - 1, 0}
end

local oldest = redis.call("zrange", key, 0, 0, "WITHSCORES")
if #oldest > 0 then
	return {0, 0, oldest[2]}
end
return {0, 0, 0}
`)

// RedisLimiter shares counters between server replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	config *Config
}

// NewRedisLimiter connects to redisURL (redis://host:port/db) and verifies the connection.
func NewRedisLimiter(ctx context.Context, redisURL string, config *Config) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return newRedisLimiter(client, config), nil
}

func newRedisLimiter(client *redis.Client, config *Config) *RedisLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &RedisLimiter{client: client, config: config}
}

// Backend implements Checker.
func (l *RedisLimiter) Backend() string {
	return "redis"
}

// Allow checks the shared window for the client and endpoint.
func (l *RedisLimiter) Allow(ctx context.Context, clientID, endpoint, method string) (Info, error) {
	endpointConfig, allowed := l.config.resolve(clientID, endpoint, method)
	if endpointConfig == nil {
		return Info{Allowed: allowed}, nil
	}

	now := time.Now()
	window := endpointConfig.Window
	key := l.config.KeyPrefix + bucketKey(clientID, endpointConfig, method)

	result, err := slidingWindow.Run(ctx, l.client, []string{key},
		now.UnixMilli(),
		now.Add(-window).UnixMilli(),
		endpointConfig.Limit,
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return Info{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(result) < 3 {
		return Info{}, fmt.Errorf("rate limit script returned %d values", len(result))
	}

	flag, err := toInt64(result[0])
	if err != nil {
		return Info{}, err
	}
	remaining, err := toInt64(result[1])
	if err != nil {
		return Info{}, err
	}
	oldest, err := toInt64(result[2])
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Allowed:   flag == 1,
		Limit:     endpointConfig.Limit,
		Remaining: int(remaining),
		ResetTime: now.Add(window),
	}
	if !info.Allowed && oldest > 0 {
		info.ResetTime = time.UnixMilli(oldest).Add(window)
		info.RetryAfter = max(info.ResetTime.Sub(now), 0)
	}
	return info, nil
}

// Stop closes the Redis connection.
func (l *RedisLimiter) Stop() {
	_ = l.client.Close()
}

// toInt64 converts a Lua reply; scores come back as strings.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected numeric reply %q", n)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
