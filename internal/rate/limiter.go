// Package rate enforces fixed-window request limits per (action, subject)
// pair on Redis counters. Window creation and increment are one atomic
// script: two concurrent first requests can never both observe "no
// counter" and double-create the window.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps counter-storage failures. Callers must treat
// it as a deny, never an allow.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Action names a throttled operation class. Keys are scoped per action so
// one identity's search traffic cannot consume its login budget.
type Action string

const (
	ActionLogin       Action = "login"
	ActionProfileRead Action = "profile_read"
	ActionSearch      Action = "search"
	ActionCreate      Action = "create"
	ActionUpload      Action = "upload"
)

// Policy is the budget for one action: at most MaxAttempts events per
// fixed Window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultPolicies returns the stock policy table. Each entry is
// overridable through configuration.
func DefaultPolicies() map[Action]Policy {
	return map[Action]Policy{
		ActionLogin:       {MaxAttempts: 5, Window: 15 * time.Minute},
		ActionProfileRead: {MaxAttempts: 60, Window: time.Hour},
		ActionSearch:      {MaxAttempts: 100, Window: time.Hour},
		ActionCreate:      {MaxAttempts: 30, Window: time.Hour},
		ActionUpload:      {MaxAttempts: 10, Window: time.Hour},
	}
}

// checkAndIncrScript is the conditional-increment-with-expiry primitive.
// Fresh or elapsed window: create with count=1 and a new TTL, allow. Live
// window under budget: increment, allow. At budget: deny without
// incrementing, so a saturated window is not extended by rejected traffic.
const checkAndIncrScript = `
local count = redis.call("GET", KEYS[1])
if not count then
  redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
  return 1
end
if tonumber(count) < tonumber(ARGV[1]) then
  redis.call("INCR", KEYS[1])
  return 1
end
return 0
`

var checkAndIncrLua = redis.NewScript(checkAndIncrScript)

// Limiter evaluates fixed-window budgets against Redis.
type Limiter struct {
	redis    redis.UniversalClient
	policies map[Action]Policy
}

// New creates a [Limiter] with the given policy table. Actions missing
// from the table are unlimited.
func New(rdb redis.UniversalClient, policies map[Action]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{redis: rdb, policies: policies}
}

func key(action Action, subjectKey string) string {
	return "rl:" + string(action) + ":" + subjectKey
}

// Policy returns the configured budget for an action.
func (l *Limiter) Policy(action Action) (Policy, bool) {
	p, ok := l.policies[action]
	return p, ok
}

// CheckAndIncrement consumes one unit of the subject's budget for the
// action. Returns false when the live window is at capacity.
func (l *Limiter) CheckAndIncrement(ctx context.Context, subjectKey string, action Action) (bool, error) {
	policy, ok := l.policies[action]
	if !ok {
		return true, nil
	}

	res, err := checkAndIncrLua.Run(ctx, l.redis,
		[]string{key(action, subjectKey)},
		policy.MaxAttempts, policy.Window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return res == 1, nil
}

// Remaining reports how many attempts the subject has left in the current
// window. Read-only; used to populate rate-limit response headers.
func (l *Limiter) Remaining(ctx context.Context, subjectKey string, action Action) (int, error) {
	policy, ok := l.policies[action]
	if !ok {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, key(action, subjectKey)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return policy.MaxAttempts, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	remaining := policy.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ResetIn reports the time until the subject's current window elapses.
// Zero when no window is live.
func (l *Limiter) ResetIn(ctx context.Context, subjectKey string, action Action) (time.Duration, error) {
	ttl, err := l.redis.PTTL(ctx, key(action, subjectKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset clears the subject's window for an action. Used after a
// successful login so earlier failures stop counting against the
// credential.
func (l *Limiter) Reset(ctx context.Context, subjectKey string, action Action) error {
	if err := l.redis.Del(ctx, key(action, subjectKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
