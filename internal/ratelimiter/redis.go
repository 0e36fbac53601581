package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitScript implements spec.md §4.4's algorithm atomically at the KV:
// read the last granted timestamp; if absent or the minimum interval has
// elapsed, record now and allow; otherwise deny. Wall-clock time (not a
// monotonic local clock) is used so that multiple hosts agree on elapsed
// time.
const rateLimitScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local min_interval = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local last = redis.call('GET', key)
if last == false then
  redis.call('SET', key, now, 'EX', ttl)
  return 1
end
last = tonumber(last)
if now - last >= min_interval then
  redis.call('SET', key, now, 'EX', ttl)
  return 1
end
return 0
`

// RedisLimiter is a Limiter backed by Redis, coordinating across every
// worker process that shares the same client endpoint.
type RedisLimiter struct {
	client       *redis.Client
	script       *redis.Script
	minInterval  float64
	ttlSeconds   int
	pollInterval time.Duration
}

// NewRedisLimiter builds a limiter allowing requestsPerSecond requests per
// second per domain. requestsPerSecond == 0 disables throttling entirely
// (every Acquire call returns immediately), matching spec.md §4.4's edge
// case.
func NewRedisLimiter(client *redis.Client, requestsPerSecond float64) *RedisLimiter {
	minInterval := 0.0
	if requestsPerSecond > 0 {
		minInterval = 1.0 / requestsPerSecond
	}
	ttl := int(math.Max(2, math.Floor(minInterval)+1))
	return &RedisLimiter{
		client:       client,
		script:       redis.NewScript(rateLimitScript),
		minInterval:  minInterval,
		ttlSeconds:   ttl,
		pollInterval: 100 * time.Millisecond,
	}
}

func (l *RedisLimiter) Acquire(ctx context.Context, domain string) error {
	key := fmt.Sprintf("rate_limit:%s", domain)
	for {
		if l.minInterval == 0 {
			return nil
		}
		now := float64(time.Now().UnixNano()) / float64(time.Second)
		allowed, err := l.script.Run(ctx, l.client, []string{key},
			strconv.FormatFloat(now, 'f', -1, 64),
			strconv.FormatFloat(l.minInterval, 'f', -1, 64),
			strconv.Itoa(l.ttlSeconds),
		).Int64()
		if err != nil {
			return fmt.Errorf("ratelimiter: acquire %s: %w", domain, err)
		}
		if allowed == 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}
