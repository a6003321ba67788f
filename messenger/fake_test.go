package messenger

import "testing"

func TestFakeMessenger_SendRecordsInOrder(t *testing.T) {
	m := NewFakeMessenger()
	ctx := t.Context()

	if _, err := m.Send(ctx, "chat-1", Payload{SignalID: 1}); err != nil {
		t.Fatalf("send 1: %v", err)
	}
	if _, err := m.Send(ctx, "chat-1", Payload{SignalID: 2}); err != nil {
		t.Fatalf("send 2: %v", err)
	}

	sent := m.SentTo("chat-1")
	if len(sent) != 2 || sent[0].SignalID != 1 || sent[1].SignalID != 2 {
		t.Fatalf("unexpected delivery order: %+v", sent)
	}
}

func TestFakeMessenger_MarkUnreachableFailsPermanently(t *testing.T) {
	m := NewFakeMessenger()
	m.MarkUnreachable("chat-2")

	_, err := m.Send(t.Context(), "chat-2", Payload{SignalID: 1})
	if err != ErrRecipientUnreachable {
		t.Fatalf("expected ErrRecipientUnreachable, got %v", err)
	}
}

func TestFakeMessenger_CallbacksRoundTrip(t *testing.T) {
	m := NewFakeMessenger()
	m.Push(Callback{ChatID: "chat-3", SignalID: 42, Action: ActionPlaced})

	cb := <-m.Callbacks()
	if cb.ChatID != "chat-3" || cb.SignalID != 42 || cb.Action != ActionPlaced {
		t.Fatalf("unexpected callback: %+v", cb)
	}
}
