package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config sets how many hits a key may make per sliding window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set only when the hit was denied.
	RetryAfter time.Duration
}

// slidingWindowScript trims the window, counts what is left and records the
// hit if there is room, all in one round trip.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		local seq = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. seq)
		redis.call('PEXPIRE', key, window_ms)
		redis.call('PEXPIRE', counter_key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = oldest[2] + window_ms - now
	end
	return {0, 0, retry_after}
`)

// SlidingWindowLimiter counts hits per key in a redis sorted set.
type SlidingWindowLimiter struct {
	client redis.Scripter
	config Config
	prefix string
}

// NewSlidingWindowLimiter creates a limiter whose keys start with prefix.
func NewSlidingWindowLimiter(client redis.Scripter, config Config, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		config: config,
		prefix: prefix,
	}
}

// Config returns the limiter's configuration.
func (l *SlidingWindowLimiter) Config() Config {
	return l.config
}

// Allow records a hit for key if the window has room.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	redisKey := l.prefix + key

	raw, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey, redisKey + ":seq"},
		now.UnixMilli(),
		now.Add(-l.config.Window).UnixMilli(),
		l.config.Limit,
		l.config.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(raw) < 3 {
		return nil, fmt.Errorf("unexpected result length: %d", len(raw))
	}

	vals := make([]int64, 3)
	for i := range vals {
		v, ok := raw[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected type for result[%d]: %T", i, raw[i])
		}
		vals[i] = v
	}

	res := &Result{
		Allowed:   vals[0] == 1,
		Remaining: int(vals[1]),
		ResetAt:   now.Add(l.config.Window),
	}
	if !res.Allowed && vals[2] > 0 {
		res.RetryAfter = time.Duration(vals[2]) * time.Millisecond
	}
	return res, nil
}
