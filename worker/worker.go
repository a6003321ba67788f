// Package worker implements the scan worker pool: the FETCH, COMPUTE,
// TRACK, PERSIST, NOTIFY, DONE state machine that turns one scheduled
// (ticker, bucket) job into persisted Signals and queued notifications.
// Chain work is shared per job; engine work fans out per subscriber
// because policies differ.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/engine"
	"github.com/ashwnn/forward-factor/observability"
	"github.com/ashwnn/forward-factor/provider"
	"github.com/ashwnn/forward-factor/queue"
	"github.com/ashwnn/forward-factor/stability"
	"github.com/ashwnn/forward-factor/store"
)

// ChainCache is the short-lived (ticker,bucket) snapshot cache, with the
// tier's cadence as TTL.
type ChainCache interface {
	Get(ctx context.Context, ticker string, bucket int64) (domain.ChainSnapshot, bool, error)
	Set(ctx context.Context, ticker string, bucket int64, snapshot domain.ChainSnapshot, ttl time.Duration) error
}

// StabilityChecker is the subset of stability.Tracker the worker needs.
type StabilityChecker interface {
	Check(ctx context.Context, ticker string, frontExpiry, backExpiry time.Time, userID string, ff float64, policy domain.UserPolicy, now time.Time) (bool, stability.Reason, error)
}

// SignalWriter is the subset of store.SignalRepository the worker needs.
// GetByDedupeKey resolves the surviving row when Create coalesces a
// duplicate, since the dedupe key carries no user component and a second
// subscriber's approved alert must still reference a signal id.
type SignalWriter interface {
	Create(signal domain.Signal) (*domain.Signal, error)
	GetByDedupeKey(key string) (*domain.Signal, error)
}

// SubscriberLister/PolicyBatchGetter/TickerToucher split store.Subscription
// and store.Ticker repositories into the narrow surfaces the worker uses.
type SubscriberLister interface {
	ActiveUserIDsForTicker(ticker string) ([]string, error)
}

type PolicyBatchGetter interface {
	BatchGet(userIDs []string) (map[string]domain.UserPolicy, error)
}

type TickerToucher interface {
	TouchLastScan(symbol string, when time.Time) error
}

// NotificationEnqueuer is the subset of queue.NotificationQueueClient the
// worker needs.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, signalID int64, userID string) error
}

// cadences maps a tier to its chain-cache TTL, mirroring the scheduler's
// default tier cadences.
var cadences = map[domain.Tier]time.Duration{
	domain.TierHigh:   3 * time.Minute,
	domain.TierMedium: 15 * time.Minute,
	domain.TierLow:    60 * time.Minute,
}

// Pool runs the scan job state machine across a bounded set of goroutines.
type Pool struct {
	chainProvider provider.ChainProvider
	chainCache    ChainCache
	subscribers   SubscriberLister
	policies      PolicyBatchGetter
	tracker       StabilityChecker
	signals       SignalWriter
	tickers       TickerToucher
	notifications NotificationEnqueuer
	scanJobs      *queue.ScanQueue

	concurrency int

	// lastReadyUnix is the unix time a worker goroutine last returned to
	// its dequeue loop, read by the health probe.
	lastReadyUnix atomic.Int64
}

// New creates a Pool.
func New(scanJobs *queue.ScanQueue, chainProvider provider.ChainProvider, chainCache ChainCache, subscribers SubscriberLister, policies PolicyBatchGetter, tracker StabilityChecker, signals SignalWriter, tickers TickerToucher, notifications NotificationEnqueuer, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pool{
		scanJobs:      scanJobs,
		chainProvider: chainProvider,
		chainCache:    chainCache,
		subscribers:   subscribers,
		policies:      policies,
		tracker:       tracker,
		signals:       signals,
		tickers:       tickers,
		notifications: notifications,
		concurrency:   concurrency,
	}
}

// Run starts concurrency worker goroutines, each dequeuing and processing
// jobs until ctx is cancelled. Run blocks until every goroutine has
// finished its in-flight job and returned.
func (p *Pool) Run(ctx context.Context) {
	done := make(chan struct{}, p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		go func(id int) {
			p.loop(ctx, id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < p.concurrency; i++ {
		<-done
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.lastReadyUnix.Store(time.Now().Unix())
		job, ok, err := p.scanJobs.Dequeue(ctx)
		if err != nil {
			log.Printf("⚠️  worker %d: dequeue failed: %v", id, err)
			continue
		}
		if !ok {
			continue
		}
		observability.WorkerPoolActive.Inc()
		p.process(ctx, job)
		observability.WorkerPoolActive.Dec()
	}
}

// process runs one job through the full state machine. Errors at any step
// past FETCH are logged and do not abort other subscribers' work.
func (p *Pool) process(ctx context.Context, job queue.ScanJob) {
	jobCtx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	if jobCtx.Err() != nil {
		log.Printf("⏱️  worker: job %s for %s expired before FETCH", job.ID, job.Ticker)
		return
	}

	snapshot, err := p.fetch(jobCtx, job)
	if err != nil {
		log.Printf("🚫 worker: ABORT job %s for %s: %v", job.ID, job.Ticker, err)
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			observability.IncProviderFailure(string(provErr.Kind))
		}
		return
	}

	userIDs, err := p.subscribers.ActiveUserIDsForTicker(job.Ticker)
	if err != nil {
		log.Printf("⚠️  worker: failed to load subscribers for %s: %v", job.Ticker, err)
		return
	}
	if len(userIDs) == 0 {
		p.done(job)
		return
	}

	policies, err := p.policies.BatchGet(userIDs)
	if err != nil {
		log.Printf("⚠️  worker: failed to batch-load policies for %s: %v", job.Ticker, err)
		return
	}

	for _, userID := range userIDs {
		policy, ok := policies[userID]
		if !ok {
			continue // inactive or missing policy; skip independently
		}
		p.runSubscriber(jobCtx, job, snapshot, policy)
	}

	p.done(job)
}

// fetch implements FETCH: cache lookup, provider call on miss, cache
// populate with the tier's cadence as TTL.
func (p *Pool) fetch(ctx context.Context, job queue.ScanJob) (domain.ChainSnapshot, error) {
	if cached, ok, err := p.chainCache.Get(ctx, job.Ticker, job.Bucket); err == nil && ok {
		return cached, nil
	}

	snapshot, err := p.chainProvider.GetChainSnapshot(ctx, job.Ticker)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("fetch %s: %w", job.Ticker, err)
	}

	ttl := cadences[domain.Tier(job.Tier)]
	if ttl == 0 {
		ttl = cadences[domain.TierLow]
	}
	if err := p.chainCache.Set(ctx, job.Ticker, job.Bucket, snapshot, ttl); err != nil {
		log.Printf("⚠️  worker: failed to cache snapshot for %s: %v", job.Ticker, err)
	}
	return snapshot, nil
}

// runSubscriber runs COMPUTE, TRACK, PERSIST, NOTIFY for one subscriber.
// Failures here never block other subscribers' work.
func (p *Pool) runSubscriber(ctx context.Context, job queue.ScanJob, snapshot domain.ChainSnapshot, policy domain.UserPolicy) {
	candidates, _ := engine.Compute(snapshot, policy)

	for _, c := range candidates {
		dedupeKey := store.DedupeKey(c.Ticker, c.FrontExpiry.Date, c.BackExpiry.Date, snapshot.AsOf, c.VolPoint)

		shouldAlert, reason, err := p.tracker.Check(ctx, c.Ticker, c.FrontExpiry.Date, c.BackExpiry.Date, policy.UserID, c.FFValue, policy, snapshot.AsOf)
		if err != nil {
			log.Printf("⚠️  worker: stability check failed for %s/%s: %v", c.Ticker, policy.UserID, err)
			continue
		}

		signal := domain.Signal{
			Ticker:       c.Ticker,
			AsOf:         snapshot.AsOf,
			FrontExpiry:  c.FrontExpiry.Date,
			BackExpiry:   c.BackExpiry.Date,
			FrontDTE:     c.FrontExpiry.DTE(snapshot.AsOf),
			BackDTE:      c.BackExpiry.DTE(snapshot.AsOf),
			FrontIV:      c.FrontIV,
			BackIV:       c.BackIV,
			SigmaFwd:     c.SigmaFwd,
			FFValue:      c.FFValue,
			VolPoint:     c.VolPoint,
			QualityScore: c.QualityScore,
			DedupeKey:    dedupeKey,
		}
		signal.SetReasonCodes(reasonStrings(c.ReasonCodes))

		persisted, err := p.signals.Create(signal)
		if err != nil {
			log.Printf("⚠️  worker: failed to persist signal for %s: %v", c.Ticker, err)
			continue
		}
		if persisted != nil {
			observability.IncSignalsPersisted(c.Ticker)
			log.Printf("📈 worker: signal %d persisted for %s/%s (ff=%.4f, alert=%v, reason=%s)", persisted.ID, c.Ticker, policy.UserID, c.FFValue, shouldAlert, reason)
		}

		if !shouldAlert {
			continue
		}
		if persisted == nil {
			// Another subscriber or worker already owns the row; this
			// user's alert still needs its id.
			persisted, err = p.signals.GetByDedupeKey(dedupeKey)
			if err != nil || persisted == nil {
				log.Printf("⚠️  worker: coalesced signal %s not found for notify: %v", dedupeKey, err)
				continue
			}
		}
		if err := p.notifications.Enqueue(ctx, persisted.ID, policy.UserID); err != nil {
			log.Printf("⚠️  worker: failed to enqueue notification for signal %d: %v", persisted.ID, err)
		} else {
			observability.IncAlertsEnqueued()
		}
	}
}

// ReadyWithin reports whether any worker goroutine reached its dequeue
// loop within the last window.
func (p *Pool) ReadyWithin(window time.Duration) bool {
	last := p.lastReadyUnix.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(last, 0)) <= window
}

func (p *Pool) done(job queue.ScanJob) {
	if err := p.tickers.TouchLastScan(job.Ticker, time.Now().UTC()); err != nil {
		log.Printf("⚠️  worker: failed to touch last_scan_at for %s: %v", job.Ticker, err)
	}
	observability.IncScansCompleted(job.Tier)
}

func reasonStrings(reasons []engine.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
