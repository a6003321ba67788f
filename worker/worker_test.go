package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/queue"
	"github.com/ashwnn/forward-factor/stability"
)

type fakeChainCache struct {
	stored map[string]domain.ChainSnapshot
}

func newFakeChainCache() *fakeChainCache { return &fakeChainCache{stored: make(map[string]domain.ChainSnapshot)} }

func (f *fakeChainCache) Get(ctx context.Context, ticker string, bucket int64) (domain.ChainSnapshot, bool, error) {
	s, ok := f.stored[key(ticker, bucket)]
	return s, ok, nil
}
func (f *fakeChainCache) Set(ctx context.Context, ticker string, bucket int64, snapshot domain.ChainSnapshot, ttl time.Duration) error {
	f.stored[key(ticker, bucket)] = snapshot
	return nil
}
func key(ticker string, bucket int64) string { return fmt.Sprintf("%s|%d", ticker, bucket) }

type fakeProvider struct {
	snapshot domain.ChainSnapshot
	err      error
	calls    int
}

func (f *fakeProvider) GetChainSnapshot(ctx context.Context, ticker string) (domain.ChainSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type fakeSubscribers struct{ ids []string }

func (f *fakeSubscribers) ActiveUserIDsForTicker(ticker string) ([]string, error) { return f.ids, nil }

type fakePolicies struct{ byUser map[string]domain.UserPolicy }

func (f *fakePolicies) BatchGet(userIDs []string) (map[string]domain.UserPolicy, error) {
	return f.byUser, nil
}

type fakeTracker struct {
	should bool
	reason stability.Reason
	err    error
	calls  int
}

func (f *fakeTracker) Check(ctx context.Context, ticker string, frontExpiry, backExpiry time.Time, userID string, ff float64, policy domain.UserPolicy, now time.Time) (bool, stability.Reason, error) {
	f.calls++
	return f.should, f.reason, f.err
}

type fakeSignalWriter struct {
	created []domain.Signal
	byKey   map[string]domain.Signal
	nextID  int64
}

func (f *fakeSignalWriter) Create(signal domain.Signal) (*domain.Signal, error) {
	if f.byKey == nil {
		f.byKey = make(map[string]domain.Signal)
	}
	if _, dup := f.byKey[signal.DedupeKey]; dup {
		return nil, nil
	}
	f.nextID++
	signal.ID = f.nextID
	f.created = append(f.created, signal)
	f.byKey[signal.DedupeKey] = signal
	return &signal, nil
}

func (f *fakeSignalWriter) GetByDedupeKey(key string) (*domain.Signal, error) {
	s, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type fakeTickerToucher struct{ touched []string }

func (f *fakeTickerToucher) TouchLastScan(symbol string, when time.Time) error {
	f.touched = append(f.touched, symbol)
	return nil
}

type fakeNotifier struct {
	enqueued []int64
}

func (f *fakeNotifier) Enqueue(ctx context.Context, signalID int64, userID string) error {
	f.enqueued = append(f.enqueued, signalID)
	return nil
}

func testSnapshot(asOf time.Time) domain.ChainSnapshot {
	bid1, ask1 := 1.0, 1.2
	bid2, ask2 := 1.5, 1.7
	iv1, iv2 := 0.40, 0.33
	delta := 0.5
	return domain.ChainSnapshot{
		Ticker:          "AAPL",
		AsOf:            asOf,
		UnderlyingPrice: 100,
		Expiries: []domain.Expiry{
			{
				Date: asOf.AddDate(0, 0, 30),
				Contracts: []domain.Contract{
					{Strike: 100, Right: domain.Call, Bid: &bid1, Ask: &ask1, ImpliedVol: &iv1, Delta: &delta, Volume: 500, OpenInterest: 500},
				},
			},
			{
				Date: asOf.AddDate(0, 0, 60),
				Contracts: []domain.Contract{
					{Strike: 100, Right: domain.Call, Bid: &bid2, Ask: &ask2, ImpliedVol: &iv2, Delta: &delta, Volume: 500, OpenInterest: 500},
				},
			},
		},
	}
}

func testPolicy(userID string) domain.UserPolicy {
	pairsJSON, _ := domain.EncodeDTEPairs([]domain.DTEPair{{FrontTarget: 30, BackTarget: 60, FrontTol: 10, BackTol: 10}})
	return domain.UserPolicy{
		UserID:       userID,
		FFThreshold:  0.01,
		DTEPairsJSON: pairsJSON,
		VolPoint:     domain.VolPointATM,
		MaxBidAskPct: 1.0,
		Timezone:     "UTC",
		Active:       true,
	}
}

func TestPool_ProcessHappyPath(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snapshot := testSnapshot(asOf)

	prov := &fakeProvider{snapshot: snapshot}
	cache := newFakeChainCache()
	subs := &fakeSubscribers{ids: []string{"user-1"}}
	policies := &fakePolicies{byUser: map[string]domain.UserPolicy{"user-1": testPolicy("user-1")}}
	tracker := &fakeTracker{should: true, reason: stability.ReasonOK}
	signals := &fakeSignalWriter{}
	tickers := &fakeTickerToucher{}
	notifier := &fakeNotifier{}

	pool := New(nil, prov, cache, subs, policies, tracker, signals, tickers, notifier, 1)

	job := jobFor("AAPL", asOf)
	pool.process(context.Background(), job)

	if prov.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", prov.calls)
	}
	if len(signals.created) == 0 {
		t.Fatalf("expected at least one signal to be persisted")
	}
	if len(notifier.enqueued) == 0 {
		t.Fatalf("expected a notification to be enqueued since tracker approved")
	}
	if len(tickers.touched) != 1 {
		t.Fatalf("expected last_scan_at to be touched once, got %d", len(tickers.touched))
	}
}

func TestPool_ProcessSkipsNotifyWhenTrackerDeclines(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snapshot := testSnapshot(asOf)

	prov := &fakeProvider{snapshot: snapshot}
	cache := newFakeChainCache()
	subs := &fakeSubscribers{ids: []string{"user-1"}}
	policies := &fakePolicies{byUser: map[string]domain.UserPolicy{"user-1": testPolicy("user-1")}}
	tracker := &fakeTracker{should: false, reason: stability.ReasonNeedsStability}
	signals := &fakeSignalWriter{}
	tickers := &fakeTickerToucher{}
	notifier := &fakeNotifier{}

	pool := New(nil, prov, cache, subs, policies, tracker, signals, tickers, notifier, 1)
	pool.process(context.Background(), jobFor("AAPL", asOf))

	if len(signals.created) == 0 {
		t.Fatalf("signal should still be persisted even when tracker declines to alert")
	}
	if len(notifier.enqueued) != 0 {
		t.Fatalf("no notification should be enqueued when tracker declines")
	}
}

func TestPool_ProcessUsesCacheOnSecondCall(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snapshot := testSnapshot(asOf)

	prov := &fakeProvider{snapshot: snapshot}
	cache := newFakeChainCache()
	subs := &fakeSubscribers{ids: []string{"user-1"}}
	policies := &fakePolicies{byUser: map[string]domain.UserPolicy{"user-1": testPolicy("user-1")}}
	tracker := &fakeTracker{should: true, reason: stability.ReasonOK}
	signals := &fakeSignalWriter{}
	tickers := &fakeTickerToucher{}
	notifier := &fakeNotifier{}

	pool := New(nil, prov, cache, subs, policies, tracker, signals, tickers, notifier, 1)

	job := jobFor("AAPL", asOf)
	pool.process(context.Background(), job)
	pool.process(context.Background(), job)

	if prov.calls != 1 {
		t.Fatalf("expected provider to be called once across two jobs sharing a bucket, got %d", prov.calls)
	}
}

func TestPool_ProcessNoSubscribersSkipsComputeButTouchesTicker(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	prov := &fakeProvider{snapshot: testSnapshot(asOf)}
	cache := newFakeChainCache()
	subs := &fakeSubscribers{ids: nil}
	policies := &fakePolicies{byUser: map[string]domain.UserPolicy{}}
	tracker := &fakeTracker{}
	signals := &fakeSignalWriter{}
	tickers := &fakeTickerToucher{}
	notifier := &fakeNotifier{}

	pool := New(nil, prov, cache, subs, policies, tracker, signals, tickers, notifier, 1)
	pool.process(context.Background(), jobFor("AAPL", asOf))

	if len(signals.created) != 0 {
		t.Fatalf("expected no signals with no subscribers")
	}
	if len(tickers.touched) != 1 {
		t.Fatalf("DONE must still touch last_scan_at with no subscribers")
	}
}

func TestPool_SecondSubscriberNotifiesOnCoalescedSignal(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snapshot := testSnapshot(asOf)

	prov := &fakeProvider{snapshot: snapshot}
	cache := newFakeChainCache()
	subs := &fakeSubscribers{ids: []string{"user-1", "user-2"}}
	policies := &fakePolicies{byUser: map[string]domain.UserPolicy{
		"user-1": testPolicy("user-1"),
		"user-2": testPolicy("user-2"),
	}}
	tracker := &fakeTracker{should: true, reason: stability.ReasonOK}
	signals := &fakeSignalWriter{}
	tickers := &fakeTickerToucher{}
	notifier := &fakeNotifier{}

	pool := New(nil, prov, cache, subs, policies, tracker, signals, tickers, notifier, 1)
	pool.process(context.Background(), jobFor("AAPL", asOf))

	// Identical policies produce the same dedupe key, so only one row is
	// written, but both approved users must get a notification on it.
	if len(signals.created) != 1 {
		t.Fatalf("expected exactly 1 persisted signal across both users, got %d", len(signals.created))
	}
	if len(notifier.enqueued) != 2 {
		t.Fatalf("expected 2 notifications (one per subscriber), got %d", len(notifier.enqueued))
	}
	if notifier.enqueued[0] != notifier.enqueued[1] {
		t.Fatalf("both notifications should reference the same signal id, got %v", notifier.enqueued)
	}
}

func jobFor(ticker string, asOf time.Time) queue.ScanJob {
	return queue.ScanJob{
		ID:       "job-" + ticker,
		Ticker:   ticker,
		Bucket:   asOf.Unix() / 60,
		Tier:     string(domain.TierHigh),
		Deadline: time.Now().Add(time.Hour),
	}
}
