// Package scheduler ticks on each tier's cadence and enqueues
// at-most-once-per-bucket scan jobs, applying backpressure rather than
// stacking work when the worker pool is saturated.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/observability"
)

// Cadences configures the per-tier scan interval.
type Cadences struct {
	High   time.Duration
	Medium time.Duration
	Low    time.Duration
}

// DefaultCadences returns the default per-tier cadences: high=3min,
// medium=15min, low=60min.
func DefaultCadences() Cadences {
	return Cadences{High: 3 * time.Minute, Medium: 15 * time.Minute, Low: 60 * time.Minute}
}

func (c Cadences) forTier(tier domain.Tier) time.Duration {
	switch tier {
	case domain.TierHigh:
		return c.High
	case domain.TierMedium:
		return c.Medium
	default:
		return c.Low
	}
}

// TickerLister is the subset of store.TickerRepository the scheduler needs.
type TickerLister interface {
	ListByTier(tier domain.Tier) ([]domain.Ticker, error)
}

// BucketDeduper is the subset of cache.RedisClient needed for the
// per-(ticker,bucket) dedup key.
type BucketDeduper interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// QueueDepther reports the scan job queue's current depth, used for the
// backpressure decision.
type QueueDepther interface {
	Depth(ctx context.Context) (int64, error)
	Enqueue(ctx context.Context, ticker string, bucket int64, tier string, deadline time.Time) error
}

// Scheduler ticks each tier independently and enqueues scan jobs.
type Scheduler struct {
	tickers  TickerLister
	dedup    BucketDeduper
	jobs     QueueDepther
	cadences Cadences

	// maxQueueDepth is the backpressure threshold: a tick whose queue is
	// already this deep skips its bucket instead of stacking scans.
	maxQueueDepth int64
}

// New creates a Scheduler.
func New(tickers TickerLister, dedup BucketDeduper, jobs QueueDepther, cadences Cadences, maxQueueDepth int64) *Scheduler {
	if maxQueueDepth <= 0 {
		maxQueueDepth = 1000
	}
	return &Scheduler{tickers: tickers, dedup: dedup, jobs: jobs, cadences: cadences, maxQueueDepth: maxQueueDepth}
}

// Run starts one ticking goroutine per tier and blocks until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	tiers := []domain.Tier{domain.TierHigh, domain.TierMedium, domain.TierLow}
	done := make(chan struct{}, len(tiers))
	for _, tier := range tiers {
		go func(tier domain.Tier) {
			s.tickTier(ctx, tier)
			done <- struct{}{}
		}(tier)
	}
	for range tiers {
		<-done
	}
}

func (s *Scheduler) tickTier(ctx context.Context, tier domain.Tier) {
	cadence := s.cadences.forTier(tier)
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, tier, cadence, now)
		}
	}
}

// tick enumerates tickers in tier and enqueues at most one scan job per
// (ticker, bucket), applying backpressure when the job queue is deep.
func (s *Scheduler) tick(ctx context.Context, tier domain.Tier, cadence time.Duration, now time.Time) {
	tickers, err := s.tickers.ListByTier(tier)
	if err != nil {
		log.Printf("⚠️  scheduler: failed to list %s-tier tickers: %v", tier, err)
		return
	}
	if len(tickers) == 0 {
		return
	}

	depth, err := s.jobs.Depth(ctx)
	if err != nil {
		log.Printf("⚠️  scheduler: failed to read job queue depth: %v", err)
	}
	observability.SetScanJobQueueDepth(float64(depth))
	if depth >= s.maxQueueDepth {
		log.Printf("🛑 scheduler: backpressure engaged (depth=%d), dropping %s-tier tick for bucket", depth, tier)
		return
	}

	bucket := scanBucket(now, cadence)
	deadline := bucketStart(bucket, cadence).Add(cadence)

	for _, t := range tickers {
		s.enqueueOnce(ctx, t.Symbol, bucket, tier, cadence, deadline)
	}
}

// enqueueOnce dedupes on ticker|bucket via a short-lived SETNX key so a
// scheduler restart or a second scheduler instance never double-enqueues.
// The key lives for the full cadence: it resets on bucket rollover, not on
// scan success.
func (s *Scheduler) enqueueOnce(ctx context.Context, ticker string, bucket int64, tier domain.Tier, cadence time.Duration, deadline time.Time) {
	key := dedupeKey(ticker, bucket)
	first, err := s.dedup.SetNX(ctx, key, cadence)
	if err != nil {
		log.Printf("⚠️  scheduler: dedup check failed for %s: %v", ticker, err)
		return
	}
	if !first {
		return
	}
	if err := s.jobs.Enqueue(ctx, ticker, bucket, string(tier), deadline); err != nil {
		log.Printf("⚠️  scheduler: failed to enqueue %s bucket %d: %v", ticker, bucket, err)
		return
	}
	observability.IncScanJobsEnqueued(string(tier))
}

func scanBucket(now time.Time, cadence time.Duration) int64 {
	return now.Unix() / int64(cadence.Seconds())
}

func bucketStart(bucket int64, cadence time.Duration) time.Time {
	return time.Unix(bucket*int64(cadence.Seconds()), 0).UTC()
}

func dedupeKey(ticker string, bucket int64) string {
	return fmt.Sprintf("ff:sched|%s|%d", ticker, bucket)
}
