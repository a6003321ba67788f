package notifications

import "github.com/ashwnn/forward-factor/domain"

type fakeSignalLoader struct {
	signals map[int64]domain.Signal
}

func (f *fakeSignalLoader) GetByID(id int64) (*domain.Signal, error) {
	s, ok := f.signals[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type fakePolicyLoader struct {
	policies map[string]domain.UserPolicy
	inactive map[string]bool
}

func (f *fakePolicyLoader) Get(userID string) (*domain.UserPolicy, error) {
	p, ok := f.policies[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePolicyLoader) MarkInactive(userID string) error {
	if f.inactive == nil {
		f.inactive = make(map[string]bool)
	}
	f.inactive[userID] = true
	return nil
}

type fakeDecisionRecorder struct {
	calls []recordedDecision
}

type recordedDecision struct {
	SignalID int64
	UserID   string
	Kind     domain.DecisionKind
}

func (f *fakeDecisionRecorder) RecordDecision(signalID int64, userID string, kind domain.DecisionKind, entryPrice, exitPrice, pnl *float64, notes string) (*domain.Decision, error) {
	f.calls = append(f.calls, recordedDecision{SignalID: signalID, UserID: userID, Kind: kind})
	return &domain.Decision{SignalID: signalID, UserID: userID, Kind: kind}, nil
}
