package provider

import (
	"context"

	"github.com/ashwnn/forward-factor/domain"
)

// FakeChainProvider is an in-memory ChainProvider test double. Snapshots
// are queued per ticker and popped in order; Errs lets a test script
// transient/permanent/rate-limited failures ahead of a snapshot.
type FakeChainProvider struct {
	Snapshots map[string][]domain.ChainSnapshot
	Errs      map[string][]error
	calls     map[string]int
}

// NewFakeChainProvider creates an empty FakeChainProvider.
func NewFakeChainProvider() *FakeChainProvider {
	return &FakeChainProvider{
		Snapshots: make(map[string][]domain.ChainSnapshot),
		Errs:      make(map[string][]error),
		calls:     make(map[string]int),
	}
}

// Push appends a queued response for ticker: supply either a snapshot or
// an error, not both.
func (f *FakeChainProvider) Push(ticker string, snapshot *domain.ChainSnapshot, err error) {
	if snapshot != nil {
		f.Snapshots[ticker] = append(f.Snapshots[ticker], *snapshot)
	}
	if err != nil {
		f.Errs[ticker] = append(f.Errs[ticker], err)
	}
}

// GetChainSnapshot pops the next queued response for ticker.
func (f *FakeChainProvider) GetChainSnapshot(ctx context.Context, ticker string) (domain.ChainSnapshot, error) {
	n := f.calls[ticker]
	f.calls[ticker] = n + 1

	if errs := f.Errs[ticker]; n < len(errs) && errs[n] != nil {
		return domain.ChainSnapshot{}, errs[n]
	}
	snaps := f.Snapshots[ticker]
	if n >= len(snaps) {
		if len(snaps) == 0 {
			return domain.ChainSnapshot{}, &Error{Kind: FailurePermanent, Err: errNoFixture(ticker)}
		}
		return snaps[len(snaps)-1], nil
	}
	return snaps[n], nil
}

type fixtureErr string

func (e fixtureErr) Error() string { return string(e) }

func errNoFixture(ticker string) error {
	return fixtureErr("no fixture queued for ticker " + ticker)
}
