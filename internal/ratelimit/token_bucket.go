package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically. Tokens are
// returned as a string because redis truncates Lua numbers to integers.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

var (
	ErrLimiterUnavailable = errors.New("rate_limiter_unavailable")
	ErrInvalidPolicy      = errors.New("rate_limit_policy_invalid")
	ErrInvalidReply       = errors.New("rate_limit_reply_invalid")
)

// Policy is a refill rate in tokens per second and a bucket size.
type Policy struct {
	Rate  float64
	Burst int
}

func (p Policy) validate() error {
	if p.Rate <= 0 || p.Burst <= 0 || math.IsInf(p.Rate, 0) || math.IsNaN(p.Rate) {
		return fmt.Errorf("%w: rate=%v burst=%d", ErrInvalidPolicy, p.Rate, p.Burst)
	}
	return nil
}

// ttl keeps an idle bucket twice as long as a full refill takes.
func (p Policy) ttl() time.Duration {
	if p.Rate <= 0 || p.Burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(p.Burst)/p.Rate*2))
	return time.Duration(seconds) * time.Second
}

// retryAfter is the time needed to refill one token.
func (p Policy) retryAfter(remaining float64) time.Duration {
	if p.Rate <= 0 || remaining >= 1 {
		return 0
	}
	return time.Duration((1 - remaining) / p.Rate * float64(time.Second))
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	if t == nil || t.client == nil {
		return Decision{}, ErrLimiterUnavailable
	}
	if key == "" {
		return Decision{}, fmt.Errorf("%w: empty key", ErrInvalidPolicy)
	}
	if err := policy.validate(); err != nil {
		return Decision{}, err
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		policy.Rate,
		policy.Burst,
		policy.ttl().Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	return decide(policy, reply)
}

func decide(policy Policy, reply []interface{}) (Decision, error) {
	if len(reply) < 3 {
		return Decision{}, ErrInvalidReply
	}
	allowed, ok := reply[0].(int64)
	if !ok {
		return Decision{}, ErrInvalidReply
	}
	remaining, err := replyFloat(reply[1])
	if err != nil {
		return Decision{}, err
	}
	nowMs, ok := reply[2].(int64)
	if !ok {
		return Decision{}, ErrInvalidReply
	}

	d := Decision{
		Allowed:   allowed == 1,
		Limit:     policy.Burst,
		Remaining: int(remaining),
	}
	if !d.Allowed {
		d.RetryAfter = policy.retryAfter(remaining)
	}
	d.ResetTime = time.UnixMilli(nowMs).Add(d.RetryAfter)
	return d, nil
}

func replyFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidReply, err)
		}
		return parsed, nil
	case int64:
		return float64(val), nil
	default:
		return 0, ErrInvalidReply
	}
}
