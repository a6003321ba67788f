// Package observability exposes Prometheus metrics for the scheduler,
// worker pool, and notification router: package-level CounterVec/GaugeVec
// registered in init(), with thin Inc/Set helper functions.
//
//   - ff_scan_jobs_enqueued_total{tier}     – scan jobs the scheduler enqueued
//   - ff_scan_jobs_queue_depth              – current scan job queue length (gauge)
//   - ff_notification_queue_depth           – current notification queue length (gauge)
//   - ff_scans_completed_total{tier}        – FETCH→DONE completions by tier
//   - ff_provider_failures_total{kind}      – chain provider failures by FailureKind
//   - ff_signals_persisted_total{ticker}    – new (non-duplicate) signals persisted
//   - ff_alerts_enqueued_total              – (signal,user) pairs queued for delivery
//   - ff_notifications_sent_total{result}   – messenger deliveries by result (sent|unreachable|failed)
//   - ff_worker_pool_active_goroutines      – worker goroutines currently processing a job (gauge)
//
// These are registered in init() and served by promhttp.Handler() at
// /metrics, wired into the api package's HTTP server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScanJobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_scan_jobs_enqueued_total",
			Help: "Scan jobs enqueued by the scheduler, by tier.",
		},
		[]string{"tier"},
	)

	ScanJobQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ff_scan_jobs_queue_depth",
			Help: "Current length of the scan job queue.",
		},
	)

	NotificationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ff_notification_queue_depth",
			Help: "Current length of the notification queue.",
		},
	)

	ScansCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_scans_completed_total",
			Help: "Scan jobs that reached DONE, by tier.",
		},
		[]string{"tier"},
	)

	ProviderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_provider_failures_total",
			Help: "Chain provider failures, by failure kind (transient|permanent|rate_limited).",
		},
		[]string{"kind"},
	)

	SignalsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_signals_persisted_total",
			Help: "Non-duplicate signals persisted, by ticker.",
		},
		[]string{"ticker"},
	)

	AlertsEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ff_alerts_enqueued_total",
			Help: "(signal, user) pairs the stability tracker approved for delivery.",
		},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_notifications_sent_total",
			Help: "Notification router delivery attempts, by result (sent|unreachable|failed).",
		},
		[]string{"result"},
	)

	WorkerPoolActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ff_worker_pool_active_goroutines",
			Help: "Worker pool goroutines currently processing a job.",
		},
	)
)

func init() {
	prometheus.MustRegister(ScanJobsEnqueued, ScanJobQueueDepth, NotificationQueueDepth)
	prometheus.MustRegister(ScansCompleted, ProviderFailures)
	prometheus.MustRegister(SignalsPersisted, AlertsEnqueued, NotificationsSent)
	prometheus.MustRegister(WorkerPoolActive)
}

// Thin helpers so callers never touch label plumbing inline.

func IncScanJobsEnqueued(tier string)     { ScanJobsEnqueued.WithLabelValues(tier).Inc() }
func SetScanJobQueueDepth(v float64)      { ScanJobQueueDepth.Set(v) }
func SetNotificationQueueDepth(v float64) { NotificationQueueDepth.Set(v) }
func IncScansCompleted(tier string)       { ScansCompleted.WithLabelValues(tier).Inc() }
func IncProviderFailure(kind string)      { ProviderFailures.WithLabelValues(kind).Inc() }
func IncSignalsPersisted(ticker string)   { SignalsPersisted.WithLabelValues(ticker).Inc() }
func IncAlertsEnqueued()                  { AlertsEnqueued.Inc() }
func IncNotificationsSent(result string)  { NotificationsSent.WithLabelValues(result).Inc() }
func SetWorkerPoolActive(v float64)       { WorkerPoolActive.Set(v) }
