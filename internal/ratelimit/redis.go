package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The expiry is set only by the request that creates the key, so the
// window stays anchored at the first request.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Redis is a fixed-window limiter shared by every instance pointed at the
// same Redis.
type Redis struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis limiter. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, max int, window time.Duration, prefix string) (*Redis, error) {
	if err := validate(max, window); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "emailvalidate:ratelimit:"
	}
	return &Redis{
		client: client,
		max:    max,
		window: window,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Allow counts one request for key.
func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	count := int(vals[0])
	ttl := time.Duration(vals[1]) * time.Millisecond

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}, nil
}
