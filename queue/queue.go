// Package queue defines the two list-backed queues the scheduler/worker
// pool/notification router coordinate through: the scan job queue and the
// notification queue. Both live in Redis (package cache) and are
// envelope-typed with a uuid so duplicate enqueues are detectable and
// delivery can be traced end to end.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashwnn/forward-factor/cache"
)

const (
	// ScanJobQueue holds ScanJob envelopes produced by the scheduler.
	ScanJobQueue = "ff:queue:scan_jobs"
	// NotificationQueue holds NotificationJob envelopes produced by scan
	// workers for the notification router to drain.
	NotificationQueue = "ff:queue:notifications"

	// dequeueTimeout bounds each blocking pop so a worker loop can observe
	// a shutdown signal between polls.
	dequeueTimeout = 2 * time.Second
)

// ScanJob is one (ticker, scan-bucket) unit of work for the worker pool.
type ScanJob struct {
	ID       string    `json:"id"`
	Ticker   string    `json:"ticker"`
	Bucket   int64     `json:"bucket"`
	Tier     string    `json:"tier"`
	Deadline time.Time `json:"deadline"`
}

// NotificationJob is one (signal, user) pair approved by the stability
// tracker for delivery.
type NotificationJob struct {
	ID       string `json:"id"`
	SignalID int64  `json:"signal_id"`
	UserID   string `json:"user_id"`
}

// ScanQueue enqueues/dequeues ScanJob envelopes.
type ScanQueue struct {
	redis *cache.RedisClient
}

// NewScanQueue creates a ScanQueue.
func NewScanQueue(redis *cache.RedisClient) *ScanQueue { return &ScanQueue{redis: redis} }

// Enqueue pushes a job. The caller is responsible for having already
// applied scan-bucket dedup (cache.SetNX) before calling this.
func (q *ScanQueue) Enqueue(ctx context.Context, ticker string, bucket int64, tier string, deadline time.Time) error {
	job := ScanJob{ID: uuid.NewString(), Ticker: ticker, Bucket: bucket, Tier: tier, Deadline: deadline}
	return q.redis.LPush(ctx, ScanJobQueue, job)
}

// Dequeue blocks up to dequeueTimeout for the next job.
func (q *ScanQueue) Dequeue(ctx context.Context) (ScanJob, bool, error) {
	var job ScanJob
	ok, err := q.redis.BRPop(ctx, ScanJobQueue, dequeueTimeout, &job)
	return job, ok, err
}

// Depth reports the current queue length, used for scheduler backpressure
// decisions.
func (q *ScanQueue) Depth(ctx context.Context) (int64, error) {
	return q.redis.QueueDepth(ctx, ScanJobQueue)
}

// NotificationQueueClient enqueues/dequeues NotificationJob envelopes.
type NotificationQueueClient struct {
	redis *cache.RedisClient
}

// NewNotificationQueue creates a NotificationQueueClient.
func NewNotificationQueue(redis *cache.RedisClient) *NotificationQueueClient {
	return &NotificationQueueClient{redis: redis}
}

// Enqueue pushes a (signal, user) pair the stability tracker approved.
func (q *NotificationQueueClient) Enqueue(ctx context.Context, signalID int64, userID string) error {
	job := NotificationJob{ID: uuid.NewString(), SignalID: signalID, UserID: userID}
	return q.redis.LPush(ctx, NotificationQueue, job)
}

// Dequeue blocks up to dequeueTimeout for the next notification job.
func (q *NotificationQueueClient) Dequeue(ctx context.Context) (NotificationJob, bool, error) {
	var job NotificationJob
	ok, err := q.redis.BRPop(ctx, NotificationQueue, dequeueTimeout, &job)
	return job, ok, err
}

// Depth reports the current queue length, surfaced as a gauge metric.
func (q *NotificationQueueClient) Depth(ctx context.Context) (int64, error) {
	return q.redis.QueueDepth(ctx, NotificationQueue)
}
