// Package notifications drains the notification queue, applies the
// quiet-hours and threshold re-check gates, and dispatches approved
// signals through the Messenger, retrying transient failures and marking
// a user inactive on permanent ones.
package notifications

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/helpers"
	"github.com/ashwnn/forward-factor/messenger"
	"github.com/ashwnn/forward-factor/observability"
	"github.com/ashwnn/forward-factor/queue"
)

// maxSendAttempts bounds the messenger retry loop for transient failures.
const maxSendAttempts = 3

const sendBaseBackoff = 500 * time.Millisecond

// SignalLoader is the subset of store.SignalRepository the router needs.
type SignalLoader interface {
	GetByID(id int64) (*domain.Signal, error)
}

// PolicyLoader is the subset of store.PolicyRepository the router needs.
type PolicyLoader interface {
	Get(userID string) (*domain.UserPolicy, error)
	MarkInactive(userID string) error
}

// Router drains the notification queue and dispatches approved signals.
// Per-user delivery is sequential (one in-flight send per user) via a
// dedicated goroutine-and-channel per chat_id, so each user sees sends in
// enqueue order; cross-user delivery runs in parallel.
type Router struct {
	queue     *queue.NotificationQueueClient
	signals   SignalLoader
	policies  PolicyLoader
	messenger messenger.Messenger

	mu    sync.Mutex
	lanes map[string]chan queue.NotificationJob
	wg    sync.WaitGroup
}

// NewRouter creates a Router.
func NewRouter(q *queue.NotificationQueueClient, signals SignalLoader, policies PolicyLoader, m messenger.Messenger) *Router {
	return &Router{
		queue:     q,
		signals:   signals,
		policies:  policies,
		messenger: m,
		lanes:     make(map[string]chan queue.NotificationJob),
	}
}

// Run drains the notification queue until ctx is cancelled, fanning each
// job out to its user's dedicated delivery lane.
func (r *Router) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			r.drainLanes()
			return
		}
		job, ok, err := r.queue.Dequeue(ctx)
		if err != nil {
			log.Printf("⚠️  notification dequeue failed: %v", err)
			continue
		}
		if depth, err := r.queue.Depth(ctx); err == nil {
			observability.SetNotificationQueueDepth(float64(depth))
		}
		if !ok {
			continue
		}
		r.laneFor(job.UserID) <- job
	}
}

// laneFor returns the per-user delivery channel, starting its worker
// goroutine the first time a user is seen.
func (r *Router) laneFor(userID string) chan queue.NotificationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	lane, ok := r.lanes[userID]
	if ok {
		return lane
	}
	lane = make(chan queue.NotificationJob, 64)
	r.lanes[userID] = lane
	r.wg.Add(1)
	go r.drainLane(userID, lane)
	return lane
}

func (r *Router) drainLane(userID string, lane chan queue.NotificationJob) {
	defer r.wg.Done()
	for job := range lane {
		r.deliver(context.Background(), job)
	}
}

func (r *Router) drainLanes() {
	r.mu.Lock()
	for _, lane := range r.lanes {
		close(lane)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// deliver runs the per-job pipeline: load, quiet-hours gate, threshold
// re-check, send with retry.
func (r *Router) deliver(ctx context.Context, job queue.NotificationJob) {
	signal, err := r.signals.GetByID(job.SignalID)
	if err != nil {
		log.Printf("⚠️  notification %s: failed to load signal %d: %v", job.ID, job.SignalID, err)
		return
	}
	if signal == nil {
		return
	}

	policy, err := r.policies.Get(job.UserID)
	if err != nil {
		log.Printf("⚠️  notification %s: failed to load policy for %s: %v", job.ID, job.UserID, err)
		return
	}
	if policy == nil || !policy.Active {
		return
	}

	if quiet, err := r.inQuietHours(*policy); err != nil {
		log.Printf("⚠️  notification %s: quiet-hours check failed for %s: %v", job.ID, job.UserID, err)
		return
	} else if quiet {
		log.Printf("🔕 dropping notification %s for %s: quiet hours", job.ID, job.UserID)
		return
	}

	if signal.FFValue < policy.FFThreshold {
		log.Printf("🔕 dropping notification %s for %s: below current threshold", job.ID, job.UserID)
		return
	}

	payload := messenger.Payload{
		SignalID:  signal.ID,
		Ticker:    signal.Ticker,
		FrontDate: signal.FrontExpiry.Format("2006-01-02"),
		BackDate:  signal.BackExpiry.Format("2006-01-02"),
		FFValue:   signal.FFValue,
		Threshold: policy.FFThreshold,
		AsOf:      signal.AsOf.Format(time.RFC3339),
		Message:   helpers.FormatAlert(signal.Ticker, signal.FrontExpiry, signal.BackExpiry, signal.FFValue, policy.FFThreshold),
	}

	r.sendWithRetry(ctx, job.UserID, payload)
}

func (r *Router) inQuietHours(policy domain.UserPolicy) (bool, error) {
	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		return false, err
	}
	return policy.QuietHoursWindow().Contains(time.Now().In(loc))
}

func (r *Router) sendWithRetry(ctx context.Context, userID string, payload messenger.Payload) {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		_, err := r.messenger.Send(sendCtx, userID, payload)
		cancel()
		if err == nil {
			observability.IncNotificationsSent("sent")
			return
		}
		lastErr = err

		if err == messenger.ErrRecipientUnreachable {
			observability.IncNotificationsSent("unreachable")
			if markErr := r.policies.MarkInactive(userID); markErr != nil {
				log.Printf("⚠️  failed to mark %s inactive: %v", userID, markErr)
			}
			log.Printf("🚫 marking %s inactive: recipient unreachable", userID)
			return
		}

		if attempt == maxSendAttempts {
			break
		}
		wait := sendBaseBackoff << uint(attempt-1)
		log.Printf("⚠️  messenger send to %s failed (%v), retrying in %s (attempt %d/%d)", userID, err, wait, attempt, maxSendAttempts)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	observability.IncNotificationsSent("failed")
	log.Printf("⚠️  giving up on notification to %s after %d attempts: %v", userID, maxSendAttempts, lastErr)
}
