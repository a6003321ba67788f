// Package engine implements the Forward Factor computation and its
// liquidity filter stack. It is pure and stateless: no I/O, no clock
// reads beyond the as-of timestamp carried on the snapshot, and it never
// mutates its inputs. Filters evaluate in order and accumulate reason
// codes instead of short-circuiting.
package engine

// Reason is the closed set of rejection / diagnostic codes the engine can
// attach to a candidate. These mirror the engine_reject kinds in the
// error-handling design.
type Reason string

const (
	ReasonInvalidDTE               Reason = "invalid_dte"
	ReasonNegativeForwardVariance  Reason = "negative_forward_variance"
	ReasonSigmaFwdFloor            Reason = "sigma_fwd_floor"
	ReasonMissingIV                Reason = "missing_iv"
	ReasonMissingQuotes            Reason = "missing_quotes"
	ReasonWideSpread               Reason = "wide_spread"
	ReasonLowOI                    Reason = "low_oi"
	ReasonLowVolume                Reason = "low_volume"
	ReasonNonpositiveMid           Reason = "nonpositive_mid"
	ReasonNoExpiryInWindow         Reason = "no_expiry_in_window"
	ReasonBelowThreshold           Reason = "below_threshold"
)

// RejectError carries a single Reason and an explanatory message. It is
// returned by pure engine computations instead of panicking on malformed
// input.
type RejectError struct {
	Reason  Reason
	Message string
}

func (e *RejectError) Error() string { return string(e.Reason) + ": " + e.Message }

func reject(r Reason, msg string) error {
	return &RejectError{Reason: r, Message: msg}
}
