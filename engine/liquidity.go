package engine

import (
	"github.com/ashwnn/forward-factor/domain"
)

// LiquidityResult reports whether a front/back contract pair cleared the
// liquidity gates, and the reasons if not. Multiple reasons may apply;
// all are collected rather than short-circuiting on the first failure, so
// a caller can attach the full diagnostic set to a Signal. Within one leg,
// missing quotes or a nonpositive mid is that leg's only reason: its
// spread, open-interest and volume checks are skipped.
type LiquidityResult struct {
	OK      bool
	Reasons []Reason
}

// ApplyLiquidityFilters checks both legs of a calendar spread against the
// user's liquidity policy: present quotes, bid-ask spread, open interest,
// and volume.
func ApplyLiquidityFilters(front, back domain.Contract, policy domain.UserPolicy) LiquidityResult {
	var reasons []Reason
	for _, leg := range []domain.Contract{front, back} {
		mid, ok := leg.Mid()
		if !ok {
			reasons = append(reasons, ReasonMissingQuotes)
			continue
		}
		if mid <= 0 {
			reasons = append(reasons, ReasonNonpositiveMid)
			continue
		}
		spreadPct := (*leg.Ask - *leg.Bid) / mid
		if spreadPct > policy.MaxBidAskPct {
			reasons = append(reasons, ReasonWideSpread)
		}
		if leg.OpenInterest < policy.MinOpenInterest {
			reasons = append(reasons, ReasonLowOI)
		}
		if leg.Volume < policy.MinVolume {
			reasons = append(reasons, ReasonLowVolume)
		}
	}
	return LiquidityResult{OK: len(reasons) == 0, Reasons: dedupeReasons(reasons)}
}

func dedupeReasons(in []Reason) []Reason {
	seen := make(map[Reason]bool, len(in))
	var out []Reason
	for _, r := range in {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func (r Reason) String() string { return string(r) }
