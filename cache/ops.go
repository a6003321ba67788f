package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetNX implements the scan-bucket dedup primitive: it writes key only if
// absent, with a TTL, and reports whether this call was the one that set
// it. Used so that multiple scheduler instances enqueue a given
// (ticker, bucket) at most once.
func (r *RedisClient) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}

// LPush pushes a JSON-encoded value onto the head of a list-backed queue.
func (r *RedisClient) LPush(ctx context.Context, queue string, value interface{}) error {
	if r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, queue, jsonBytes).Err()
}

// BRPop blocks up to timeout for an item at the tail of queue, decoding it
// into dest. Returns (false, nil) on timeout (no item available).
func (r *RedisClient) BRPop(ctx context.Context, queue string, timeout time.Duration, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPop returns [queue, value]; the payload is result[1].
	if len(result) < 2 {
		return false, fmt.Errorf("unexpected BRPop reply shape: %v", result)
	}
	if err := json.Unmarshal([]byte(result[1]), dest); err != nil {
		return false, err
	}
	return true, nil
}

// QueueDepth reports the current length of a list-backed queue, used by
// the scheduler to decide whether to apply backpressure and by the router
// for its queue-depth gauge.
func (r *RedisClient) QueueDepth(ctx context.Context, queue string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}
	return r.client.LLen(ctx, queue).Result()
}
