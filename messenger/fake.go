package messenger

import (
	"context"
	"fmt"
	"sync"
)

// FakeMessenger is an in-memory Messenger test double. Sent payloads are
// recorded per chat_id in delivery order so tests can assert on per-user
// FIFO ordering.
type FakeMessenger struct {
	mu          sync.Mutex
	Sent        map[string][]Payload
	Unreachable map[string]bool
	callbacks   chan Callback
	nextID      int
}

// NewFakeMessenger creates an empty FakeMessenger.
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{
		Sent:        make(map[string][]Payload),
		Unreachable: make(map[string]bool),
		callbacks:   make(chan Callback, 256),
	}
}

// Send records payload for chatID, or returns ErrRecipientUnreachable if
// the test marked chatID unreachable via MarkUnreachable.
func (f *FakeMessenger) Send(ctx context.Context, chatID string, payload Payload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unreachable[chatID] {
		return "", ErrRecipientUnreachable
	}
	f.Sent[chatID] = append(f.Sent[chatID], payload)
	f.nextID++
	return fmt.Sprintf("fake-%d", f.nextID), nil
}

// Callbacks returns the inbound decision stream a test can push to.
func (f *FakeMessenger) Callbacks() <-chan Callback { return f.callbacks }

// Push injects an inbound callback for tests driving the router.
func (f *FakeMessenger) Push(cb Callback) { f.callbacks <- cb }

// MarkUnreachable makes subsequent Send calls for chatID fail permanently.
func (f *FakeMessenger) MarkUnreachable(chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unreachable[chatID] = true
}

// SentTo returns a copy of the payloads sent to chatID, in delivery order.
func (f *FakeMessenger) SentTo(chatID string) []Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Payload, len(f.Sent[chatID]))
	copy(out, f.Sent[chatID])
	return out
}
