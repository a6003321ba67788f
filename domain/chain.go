package domain

import (
	"fmt"
	"time"
)

// Right is the option side.
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// Contract is a single listed option series within an Expiry.
type Contract struct {
	Strike       float64
	Right        Right
	Bid          *float64
	Ask          *float64
	ImpliedVol   *float64
	Delta        *float64
	Volume       int
	OpenInterest int
}

// Mid returns (bid+ask)/2 and whether both quotes were present.
func (c Contract) Mid() (float64, bool) {
	if c.Bid == nil || c.Ask == nil {
		return 0, false
	}
	return (*c.Bid + *c.Ask) / 2, true
}

// Validate enforces the Contract invariants from the data model: bid <= ask
// when both present, 0 < IV < 5, |delta| <= 1.
func (c Contract) Validate() error {
	if c.Bid != nil && c.Ask != nil && *c.Bid > *c.Ask {
		return fmt.Errorf("bid %.4f > ask %.4f", *c.Bid, *c.Ask)
	}
	if c.ImpliedVol != nil && (*c.ImpliedVol <= 0 || *c.ImpliedVol >= 5) {
		return fmt.Errorf("implied_vol %.4f out of (0,5)", *c.ImpliedVol)
	}
	if c.Delta != nil && (*c.Delta < -1 || *c.Delta > 1) {
		return fmt.Errorf("delta %.4f out of [-1,1]", *c.Delta)
	}
	return nil
}

// Expiry is one listed expiration date and its contracts.
type Expiry struct {
	Date      time.Time // date only, UTC midnight
	Contracts []Contract
}

// DTE returns the integer days-to-expiry of this expiry relative to asOf.
func (e Expiry) DTE(asOf time.Time) int {
	d := e.Date.Sub(asOf.Truncate(24 * time.Hour))
	return int(d.Hours() / 24)
}

// ChainSnapshot is a point-in-time view of a ticker's option chain.
type ChainSnapshot struct {
	Ticker          string
	AsOf            time.Time
	UnderlyingPrice float64
	Expiries        []Expiry
}
