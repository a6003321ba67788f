// Package messenger delivers outbound notifications with inline
// {Place, Ignore} actions, and produces an inbound callback stream the
// notification router translates into signal store decision writes.
package messenger

import (
	"context"
	"errors"
)

// Action is a user's response to a delivered signal.
type Action string

const (
	ActionPlaced  Action = "placed"
	ActionIgnored Action = "ignored"
)

// Payload is the formatted notification body sent to a user.
type Payload struct {
	SignalID  int64
	Ticker    string
	FrontDate string
	BackDate  string
	FFValue   float64
	Threshold float64
	AsOf      string
	Message   string // human-readable summary, see helpers.FormatAlert
}

// Callback is one inbound decision event from a connected client.
type Callback struct {
	ChatID   string
	SignalID int64
	Action   Action
}

// ErrRecipientUnreachable is returned by Send when the chat_id has no live
// connection and is therefore a permanent failure: the router marks the
// user inactive rather than retrying.
var ErrRecipientUnreachable = errors.New("messenger: recipient unreachable")

// Messenger delivers formatted notifications and collects user decisions.
type Messenger interface {
	// Send delivers payload to chatID with inline Place/Ignore actions and
	// returns an opaque message id. ErrRecipientUnreachable is permanent;
	// any other error is treated as transient by the caller.
	Send(ctx context.Context, chatID string, payload Payload) (string, error)

	// Callbacks returns a channel of inbound decision events. Neither
	// WSMessenger nor FakeMessenger closes this channel; consumers stop on
	// their own context.
	Callbacks() <-chan Callback
}
