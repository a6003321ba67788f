// Package api is the HTTP surface: a health probe, promhttp's /metrics
// handler, subscription management, and a thin read-only query API over
// signals and decisions. Routes register on an http.ServeMux behind a
// cors/logging middleware chain.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/store"
)

// CtxPinger is anything the health check can verify connectivity against.
type CtxPinger interface {
	Ping(ctx context.Context) error
}

// WorkerHealth reports whether the scan worker pool has had a worker in
// its ready (dequeue) state recently.
type WorkerHealth interface {
	ReadyWithin(window time.Duration) bool
}

// TierRecomputer is the subset of tiering.Recomputer the subscription
// handlers need: recomputing a ticker's tier right after a
// Subscribe/Unsubscribe write changes its subscriber set.
type TierRecomputer interface {
	RecomputeTicker(ctx context.Context, symbol string)
}

// Server serves /health, /metrics, subscription management, and the
// read-only signal query API.
type Server struct {
	db            CtxPinger
	redis         CtxPinger
	workers       WorkerHealth
	readyWindow   time.Duration
	subs          *store.SubscriptionRepository
	tickers       *store.TickerRepository
	policies      *store.PolicyRepository
	signals       *store.SignalRepository
	recomputer    TierRecomputer
	defaultPolicy domain.UserPolicy
}

// NewServer creates a Server. defaultPolicy is the template seeded for a
// user subscribing without a policy row of their own; readyWindow is how
// recently a scan worker must have been ready for /health to pass (the
// slowest tier cadence).
func NewServer(db CtxPinger, redis CtxPinger, workers WorkerHealth, readyWindow time.Duration, subs *store.SubscriptionRepository, tickers *store.TickerRepository, policies *store.PolicyRepository, signals *store.SignalRepository, recomputer TierRecomputer, defaultPolicy domain.UserPolicy) *Server {
	return &Server{db: db, redis: redis, workers: workers, readyWindow: readyWindow, subs: subs, tickers: tickers, policies: policies, signals: signals, recomputer: recomputer, defaultPolicy: defaultPolicy}
}

// Start registers routes and serves on addr until the process exits.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.registerSignalRoutes(mux)
	s.registerDecisionRoutes(mux)
	s.registerSubscriptionRoutes(mux)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	log.Printf("🚀 API server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth reports cache and database connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"db": "ok", "redis": "ok", "workers": "ok"}

	if err := s.db.Ping(ctx); err != nil {
		checks["db"] = fmt.Sprintf("error: %v", err)
		status = http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(ctx); err != nil {
		checks["redis"] = fmt.Sprintf("error: %v", err)
		status = http.StatusServiceUnavailable
	}
	if s.workers != nil && !s.workers.ReadyWithin(s.readyWindow) {
		checks["workers"] = "error: no worker ready within cadence window"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"checks": checks,
	})
}
