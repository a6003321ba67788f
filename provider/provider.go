// Package provider fetches point-in-time option chain snapshots for a
// ticker. The market-data vendor's wire format stays behind this package:
// it defines the narrow interface the rest of the system depends on plus
// one HTTP-backed implementation of it.
package provider

import (
	"context"
	"time"

	"github.com/ashwnn/forward-factor/domain"
)

// FailureKind classifies a ChainProvider error for the scan worker's
// retry policy.
type FailureKind string

const (
	FailureTransient   FailureKind = "transient"
	FailurePermanent   FailureKind = "permanent"
	FailureRateLimited FailureKind = "rate_limited"
)

// Error is the typed failure a ChainProvider call surfaces.
type Error struct {
	Kind       FailureKind
	HTTPStatus int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// ChainProvider fetches the current option chain for a ticker. Implementations
// must ensure as_of is monotonically non-decreasing across successive calls
// for the same ticker.
type ChainProvider interface {
	GetChainSnapshot(ctx context.Context, ticker string) (domain.ChainSnapshot, error)
}
