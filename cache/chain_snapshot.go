package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwnn/forward-factor/domain"
)

// ChainSnapshotCache caches one (ticker, bucket) ChainSnapshot for the
// duration of its tier's cadence, so concurrent subscribers of the same
// ticker within a bucket share a single provider round-trip.
type ChainSnapshotCache struct {
	redis *RedisClient
}

// NewChainSnapshotCache creates a ChainSnapshotCache.
func NewChainSnapshotCache(redis *RedisClient) *ChainSnapshotCache {
	return &ChainSnapshotCache{redis: redis}
}

func chainSnapshotKey(ticker string, bucket int64) string {
	return fmt.Sprintf("ff:chain|%s|%d", ticker, bucket)
}

// Get returns the cached snapshot for (ticker, bucket), if present.
func (c *ChainSnapshotCache) Get(ctx context.Context, ticker string, bucket int64) (domain.ChainSnapshot, bool, error) {
	var snapshot domain.ChainSnapshot
	err := c.redis.Get(ctx, chainSnapshotKey(ticker, bucket), &snapshot)
	if errors.Is(err, redis.Nil) {
		return domain.ChainSnapshot{}, false, nil
	}
	if err != nil {
		return domain.ChainSnapshot{}, false, err
	}
	return snapshot, true, nil
}

// Set stores a snapshot for (ticker, bucket) with ttl, last-writer-wins.
func (c *ChainSnapshotCache) Set(ctx context.Context, ticker string, bucket int64, snapshot domain.ChainSnapshot, ttl time.Duration) error {
	return c.redis.Set(ctx, chainSnapshotKey(ticker, bucket), snapshot, ttl)
}
