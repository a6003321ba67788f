package notifications

import (
	"testing"
	"time"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/messenger"
	"github.com/ashwnn/forward-factor/queue"
)

func newTestPolicy(userID string, threshold float64) domain.UserPolicy {
	return domain.UserPolicy{
		UserID:      userID,
		FFThreshold: threshold,
		Timezone:    "UTC",
		Active:      true,
	}
}

func TestRouter_DeliverSendsWhenAboveThreshold(t *testing.T) {
	signals := &fakeSignalLoader{signals: map[int64]domain.Signal{
		1: {ID: 1, Ticker: "AAPL", FFValue: 0.3, AsOf: time.Now()},
	}}
	policies := &fakePolicyLoader{policies: map[string]domain.UserPolicy{
		"user-1": newTestPolicy("user-1", 0.2),
	}}
	m := messenger.NewFakeMessenger()
	r := NewRouter(nil, signals, policies, m)

	r.deliver(t.Context(), queue.NotificationJob{ID: "job-1", SignalID: 1, UserID: "user-1"})

	sent := m.SentTo("user-1")
	if len(sent) != 1 || sent[0].SignalID != 1 {
		t.Fatalf("expected one send to user-1, got %+v", sent)
	}
}

func TestRouter_DeliverDropsBelowThreshold(t *testing.T) {
	signals := &fakeSignalLoader{signals: map[int64]domain.Signal{
		1: {ID: 1, Ticker: "AAPL", FFValue: 0.1, AsOf: time.Now()},
	}}
	policies := &fakePolicyLoader{policies: map[string]domain.UserPolicy{
		"user-1": newTestPolicy("user-1", 0.2),
	}}
	m := messenger.NewFakeMessenger()
	r := NewRouter(nil, signals, policies, m)

	r.deliver(t.Context(), queue.NotificationJob{ID: "job-1", SignalID: 1, UserID: "user-1"})

	if len(m.SentTo("user-1")) != 0 {
		t.Fatalf("expected no send below threshold")
	}
}

func TestRouter_DeliverDropsDuringQuietHours(t *testing.T) {
	signals := &fakeSignalLoader{signals: map[int64]domain.Signal{
		1: {ID: 1, Ticker: "AAPL", FFValue: 0.3, AsOf: time.Now()},
	}}
	policy := newTestPolicy("user-1", 0.2)
	policy.QuietHoursEnabled = true
	// Window spans the entire day so "now" always falls inside it.
	policy.QuietHoursStart = "00:00"
	policy.QuietHoursEnd = "23:59"
	policies := &fakePolicyLoader{policies: map[string]domain.UserPolicy{"user-1": policy}}
	m := messenger.NewFakeMessenger()
	r := NewRouter(nil, signals, policies, m)

	r.deliver(t.Context(), queue.NotificationJob{ID: "job-1", SignalID: 1, UserID: "user-1"})

	if len(m.SentTo("user-1")) != 0 {
		t.Fatalf("expected no send during quiet hours")
	}
}

func TestRouter_DeliverSkipsInactivePolicy(t *testing.T) {
	signals := &fakeSignalLoader{signals: map[int64]domain.Signal{
		1: {ID: 1, Ticker: "AAPL", FFValue: 0.3, AsOf: time.Now()},
	}}
	policy := newTestPolicy("user-1", 0.2)
	policy.Active = false
	policies := &fakePolicyLoader{policies: map[string]domain.UserPolicy{"user-1": policy}}
	m := messenger.NewFakeMessenger()
	r := NewRouter(nil, signals, policies, m)

	r.deliver(t.Context(), queue.NotificationJob{ID: "job-1", SignalID: 1, UserID: "user-1"})

	if len(m.SentTo("user-1")) != 0 {
		t.Fatalf("expected no send for inactive policy")
	}
}

func TestRouter_SendWithRetryMarksUnreachableUserInactive(t *testing.T) {
	policies := &fakePolicyLoader{policies: map[string]domain.UserPolicy{
		"user-1": newTestPolicy("user-1", 0.2),
	}}
	m := messenger.NewFakeMessenger()
	m.MarkUnreachable("user-1")
	r := NewRouter(nil, &fakeSignalLoader{}, policies, m)

	r.sendWithRetry(t.Context(), "user-1", messenger.Payload{SignalID: 1})

	if !policies.inactive["user-1"] {
		t.Fatalf("expected user-1 to be marked inactive after permanent failure")
	}
}
