// Package tiering derives each ticker's scan tier from its subscriber
// count and how close a subscriber's dte_pairs front targets sit to a
// currently listed expiry. It runs both as a daily sweep and synchronously
// from the subscription handlers, so the tier a ticker is scanned at is
// never stuck at the EnsureTicker default.
package tiering

import (
	"context"
	"log"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/provider"
)

// TickerStore is the subset of store.TickerRepository the recomputer needs.
type TickerStore interface {
	EnsureTicker(symbol string) error
	SetTier(symbol string, tier domain.Tier, subscriberCount int) error
}

// SubscriptionStore is the subset of store.SubscriptionRepository needed.
type SubscriptionStore interface {
	DistinctTickers() ([]string, error)
	ActiveSubscriberCount(ticker string) (int64, error)
	ActiveUserIDsForTicker(ticker string) ([]string, error)
}

// PolicyStore is the subset of store.PolicyRepository needed.
type PolicyStore interface {
	BatchGet(userIDs []string) (map[string]domain.UserPolicy, error)
}

// highWindowDays is the tolerance for the high-tier expiry-proximity
// check: a listed expiry within this many days of a front target promotes
// the ticker.
const highWindowDays = 5

// Recomputer derives and persists each ticker's tier, on subscription
// changes and daily.
type Recomputer struct {
	tickers  TickerStore
	subs     SubscriptionStore
	policies PolicyStore
	chain    provider.ChainProvider
}

// New creates a Recomputer.
func New(tickers TickerStore, subs SubscriptionStore, policies PolicyStore, chain provider.ChainProvider) *Recomputer {
	return &Recomputer{tickers: tickers, subs: subs, policies: policies, chain: chain}
}

// RunDaily recomputes every referenced ticker's tier once immediately and
// then every 24h until ctx is cancelled.
func (r *Recomputer) RunDaily(ctx context.Context) {
	r.sweepOnce(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Recomputer) sweepOnce(ctx context.Context) {
	tickers, err := r.subs.DistinctTickers()
	if err != nil {
		log.Printf("⚠️  tiering: daily sweep failed to list distinct tickers: %v", err)
		return
	}
	log.Printf("📊 tiering: daily sweep recomputing %d tickers", len(tickers))
	for _, symbol := range tickers {
		r.RecomputeTicker(ctx, symbol)
	}
}

// RecomputeTicker derives and persists symbol's tier. Called from the
// daily sweep and, synchronously, from a subscription create/cancel.
func (r *Recomputer) RecomputeTicker(ctx context.Context, symbol string) {
	if err := r.tickers.EnsureTicker(symbol); err != nil {
		log.Printf("⚠️  tiering: EnsureTicker(%s) failed: %v", symbol, err)
		return
	}

	count, err := r.subs.ActiveSubscriberCount(symbol)
	if err != nil {
		log.Printf("⚠️  tiering: ActiveSubscriberCount(%s) failed: %v", symbol, err)
		return
	}

	// An unsubscribed ticker drops to the slowest cadence.
	if count == 0 {
		if err := r.tickers.SetTier(symbol, domain.TierLow, 0); err != nil {
			log.Printf("⚠️  tiering: SetTier(%s, low) failed: %v", symbol, err)
		}
		return
	}

	tier := domain.TierMedium
	if high, err := r.isHighTier(ctx, symbol); err != nil {
		log.Printf("⚠️  tiering: high-tier check for %s failed, defaulting to medium: %v", symbol, err)
	} else if high {
		tier = domain.TierHigh
	}

	if err := r.tickers.SetTier(symbol, tier, int(count)); err != nil {
		log.Printf("⚠️  tiering: SetTier(%s, %s) failed: %v", symbol, tier, err)
	}
}

// isHighTier reports whether any subscriber's dte_pairs front target has
// a currently listed expiry within highWindowDays of it.
func (r *Recomputer) isHighTier(ctx context.Context, symbol string) (bool, error) {
	userIDs, err := r.subs.ActiveUserIDsForTicker(symbol)
	if err != nil {
		return false, err
	}
	if len(userIDs) == 0 {
		return false, nil
	}
	policies, err := r.policies.BatchGet(userIDs)
	if err != nil {
		return false, err
	}

	snapshot, err := r.chain.GetChainSnapshot(ctx, symbol)
	if err != nil {
		return false, err
	}

	for _, policy := range policies {
		pairs, err := domain.DecodeDTEPairs(policy.DTEPairsJSON)
		if err != nil {
			continue
		}
		for _, pair := range pairs {
			if expiryWithinWindow(snapshot, pair.FrontTarget, highWindowDays) {
				return true, nil
			}
		}
	}
	return false, nil
}

func expiryWithinWindow(snapshot domain.ChainSnapshot, targetDTE, window int) bool {
	for _, expiry := range snapshot.Expiries {
		dte := expiry.DTE(snapshot.AsOf)
		diff := dte - targetDTE
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}
