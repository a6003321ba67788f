package notifications

import (
	"context"
	"log"

	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/messenger"
)

// DecisionRecorder is the subset of store.SignalRepository the listener
// needs.
type DecisionRecorder interface {
	RecordDecision(signalID int64, userID string, kind domain.DecisionKind, entryPrice, exitPrice, pnl *float64, notes string) (*domain.Decision, error)
}

// CallbackListener translates the Messenger's inbound (chat_id, signal_id,
// action) callback stream into decision writes on the signal store.
type CallbackListener struct {
	messenger messenger.Messenger
	signals   DecisionRecorder
}

// NewCallbackListener creates a CallbackListener.
func NewCallbackListener(m messenger.Messenger, signals DecisionRecorder) *CallbackListener {
	return &CallbackListener{messenger: m, signals: signals}
}

// Run consumes callbacks until ctx is cancelled or the channel closes.
func (l *CallbackListener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cb, ok := <-l.messenger.Callbacks():
			if !ok {
				return
			}
			l.handle(cb)
		}
	}
}

func (l *CallbackListener) handle(cb messenger.Callback) {
	var kind domain.DecisionKind
	switch cb.Action {
	case messenger.ActionPlaced:
		kind = domain.DecisionPlaced
	case messenger.ActionIgnored:
		kind = domain.DecisionIgnored
	default:
		log.Printf("⚠️  ignoring callback with unrecognized action %q from %s", cb.Action, cb.ChatID)
		return
	}

	if _, err := l.signals.RecordDecision(cb.SignalID, cb.ChatID, kind, nil, nil, nil, ""); err != nil {
		log.Printf("⚠️  failed to record decision for signal %d, user %s: %v", cb.SignalID, cb.ChatID, err)
	}
}
