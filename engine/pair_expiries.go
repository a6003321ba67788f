package engine

import (
	"math"
	"sort"

	"github.com/ashwnn/forward-factor/domain"
)

// ExpiryPair is one resolved (front, back) pairing for a DTEPair rule.
type ExpiryPair struct {
	Front domain.Expiry
	Back  domain.Expiry
}

// PairExpiries resolves each configured DTEPair rule against the
// listed expiries in snapshot, independently choosing the closest-to-
// target expiry for the front and back leg. A rule is skipped (not an
// error) if either side has no expiry within its tolerance window, or if
// the resolved front.dte >= back.dte.
func PairExpiries(snapshot domain.ChainSnapshot, rules []domain.DTEPair) []ExpiryPair {
	var pairs []ExpiryPair
	for _, rule := range rules {
		front, ok := closestExpiry(snapshot, rule.FrontTarget, rule.FrontTol)
		if !ok {
			continue
		}
		back, ok := closestExpiry(snapshot, rule.BackTarget, rule.BackTol)
		if !ok {
			continue
		}
		if front.DTE(snapshot.AsOf) >= back.DTE(snapshot.AsOf) {
			continue
		}
		pairs = append(pairs, ExpiryPair{Front: front, Back: back})
	}
	return pairs
}

// closestExpiry picks the expiry whose DTE lies in [target-tol, target+tol]
// and is nearest to target, breaking ties by smaller |dte-target| (already
// the sort key) then by earlier expiry date.
func closestExpiry(snapshot domain.ChainSnapshot, target, tol int) (domain.Expiry, bool) {
	type candidate struct {
		expiry domain.Expiry
		dist   int
	}
	var candidates []candidate
	for _, e := range snapshot.Expiries {
		dte := e.DTE(snapshot.AsOf)
		if dte < target-tol || dte > target+tol {
			continue
		}
		candidates = append(candidates, candidate{expiry: e, dist: intAbs(dte - target)})
	}
	if len(candidates) == 0 {
		return domain.Expiry{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].expiry.Date.Before(candidates[j].expiry.Date)
	})
	return candidates[0].expiry, true
}

func intAbs(n int) int {
	return int(math.Abs(float64(n)))
}
