// Package stability implements the per-(ticker, expiry-pair, user)
// debounce and cooldown state machine. The read-modify-write is the one
// place two workers can race on the same key, so it runs as a single Lua
// script in Redis, never as a non-atomic get-then-set.
package stability

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwnn/forward-factor/domain"
)

// Reason is the closed set of dispositions check() can return.
type Reason string

const (
	ReasonFirstScan      Reason = "first_scan"
	ReasonNeedsStability Reason = "needs_stability"
	ReasonCooldown       Reason = "cooldown"
	ReasonDeltaTooSmall  Reason = "delta_too_small"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonOK             Reason = "ok"
)

// ttl is the self-eviction window for stale stability state.
const ttl = 24 * time.Hour

// rmwScript is the Lua body executed atomically per key. See script.go for
// the literal source; kept in its own file for readability.
var rmwScript = redis.NewScript(luaBody)

// Tracker evaluates stability-gated alert eligibility.
type Tracker struct {
	client *redis.Client
}

// NewTracker creates a Tracker over a raw go-redis client (see
// cache.RedisClient.Raw()).
func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

// Key formats the cache key for a (ticker, front, back, user) tuple, using
// expiry *dates* (never DTE) so the key does not drift daily.
func Key(ticker string, frontExpiry, backExpiry time.Time, userID string) string {
	return fmt.Sprintf("stab|%s|%s|%s|%s",
		ticker, frontExpiry.UTC().Format("2006-01-02"), backExpiry.UTC().Format("2006-01-02"), userID)
}

// Check runs the atomic read-modify-write and returns whether this
// candidate should alert and why.
func (t *Tracker) Check(ctx context.Context, ticker string, frontExpiry, backExpiry time.Time, userID string, ff float64, policy domain.UserPolicy, now time.Time) (bool, Reason, error) {
	key := Key(ticker, frontExpiry, backExpiry, userID)
	cooldownSeconds := policy.CooldownMinutes * 60
	deltaFFMin := policy.DeltaFFMin

	raw, err := rmwScript.Run(ctx, t.client, []string{key},
		ff, policy.FFThreshold, policy.StabilityScans, cooldownSeconds, deltaFFMin, now.UTC().Unix(), int(ttl.Seconds()),
	).Result()
	if err != nil {
		return false, "", fmt.Errorf("stability Check(%s): %w", key, err)
	}

	result, ok := raw.([]interface{})
	if !ok || len(result) != 2 {
		return false, "", fmt.Errorf("stability Check(%s): unexpected script reply %#v", key, raw)
	}
	shouldAlert, ok := result[0].(int64)
	if !ok {
		return false, "", fmt.Errorf("stability Check(%s): non-integer should_alert reply", key)
	}
	reason, ok := result[1].(string)
	if !ok {
		return false, "", fmt.Errorf("stability Check(%s): non-string reason reply", key)
	}
	return shouldAlert == 1, Reason(reason), nil
}
