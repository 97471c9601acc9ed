package redis

import (
	"context"
	"time"
)

// Both scripts run server side so the read and the write they pair can not
// interleave with another client.

// windowHit bumps KEYS[1] and starts its expiry on the first hit of a
// window. A counter found without an expiry gets one as well.
const windowHit = `local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// releaseIfOwner deletes KEYS[1] only while it still holds ARGV[1], so a lease
// that expired and was taken by another instance is left alone.
const releaseIfOwner = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// FixedWindowAllow counts one hit against scope and reports whether the
// count is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.cmd == nil {
		return false, 0, errNotConnected
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	n, err := c.cmd.Eval(ctx, windowHit, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}

// SetNX stores value under key unless the key already exists.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

// ReleaseOwned deletes key if its value is still owner and reports whether
// it did.
func (c *Client) ReleaseOwned(ctx context.Context, key, owner string) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	n, err := c.cmd.Eval(ctx, releaseIfOwner, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
