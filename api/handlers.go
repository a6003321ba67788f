package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/ashwnn/forward-factor/store"
)

func (s *Server) registerSignalRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /signals/recent", s.handleRecentSignals)
}

func (s *Server) registerDecisionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{id}/history", s.handleUserHistory)
}

func (s *Server) registerSubscriptionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /subscriptions", s.handleSubscribe)
	mux.HandleFunc("DELETE /subscriptions", s.handleUnsubscribe)
}

type subscriptionRequest struct {
	UserID string `json:"user_id"`
	Ticker string `json:"ticker"`
}

// handleSubscribe creates (or reactivates) a (user, ticker) subscription
// and immediately recomputes that ticker's tier rather than leaving it
// for the next daily sweep.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Ticker == "" {
		http.Error(w, "user_id and ticker are required", http.StatusBadRequest)
		return
	}

	if err := s.subs.Subscribe(req.UserID, req.Ticker); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.seedPolicyIfAbsent(req.UserID)
	s.recomputer.RecomputeTicker(r.Context(), req.Ticker)

	w.WriteHeader(http.StatusCreated)
}

// seedPolicyIfAbsent gives a first-time subscriber the default policy so
// scans for their ticker have thresholds to evaluate against.
func (s *Server) seedPolicyIfAbsent(userID string) {
	existing, err := s.policies.Get(userID)
	if err != nil || existing != nil {
		return
	}
	policy := s.defaultPolicy
	policy.UserID = userID
	if err := s.policies.Upsert(policy); err != nil {
		log.Printf("⚠️  failed to seed default policy for %s: %v", userID, err)
	}
}

// handleUnsubscribe deactivates a (user, ticker) subscription and
// recomputes that ticker's tier, since it may now have zero subscribers.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Ticker == "" {
		http.Error(w, "user_id and ticker are required", http.StatusBadRequest)
		return
	}

	if err := s.subs.Unsubscribe(req.UserID, req.Ticker); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.recomputer.RecomputeTicker(r.Context(), req.Ticker)

	w.WriteHeader(http.StatusNoContent)
}

// handleRecentSignals lists signals on the requesting user's subscribed
// tickers, newest first, optionally scoped to one ticker.
func (s *Server) handleRecentSignals(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	ticker := r.URL.Query().Get("ticker")
	limit := parseLimit(r.URL.Query().Get("limit"), 50)

	tickers, err := s.subs.SubscribedTickers(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	signals, err := s.signals.RecentSignals(tickers, ticker, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signals)
}

// handleUserHistory pairs the user's subscribed-ticker signals with any
// decision they recorded against each.
func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	limit := parseLimit(r.URL.Query().Get("limit"), 50)

	tickers, err := s.subs.SubscribedTickers(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries, err := s.signals.History(tickers, userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toHistoryResponse(entries))
}

// historyEntryResponse mirrors store.HistoryEntry with explicit JSON tags,
// since HistoryEntry itself is an internal store-package pairing type.
type historyEntryResponse struct {
	Signal   interface{} `json:"signal"`
	Decision interface{} `json:"decision,omitempty"`
}

func toHistoryResponse(entries []store.HistoryEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = historyEntryResponse{Signal: e.Signal, Decision: e.Decision}
	}
	return out
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
