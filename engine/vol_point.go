package engine

import (
	"fmt"
	"math"

	"github.com/ashwnn/forward-factor/domain"
)

// SelectVolPoint picks the contract within expiry that represents the
// configured vol point and returns its implied vol.
//
//   - ATM: the contract with minimal |strike - underlying|, ties broken
//     toward the lower strike.
//   - Nd_put / Nd_call: the contract of that right whose ||delta| - N/100|
//     is minimal.
//
// Rejects with missing_iv if the selected contract has no IV.
func SelectVolPoint(expiry domain.Expiry, underlyingPrice float64, method domain.VolPoint) (domain.Contract, float64, error) {
	var best *domain.Contract
	var bestDist float64 = math.Inf(1)

	switch method {
	case domain.VolPointATM:
		for i := range expiry.Contracts {
			c := &expiry.Contracts[i]
			dist := math.Abs(c.Strike - underlyingPrice)
			if dist < bestDist || (dist == bestDist && best != nil && c.Strike < best.Strike) {
				best, bestDist = c, dist
			}
		}
	case domain.VolPoint35DPut, domain.VolPoint35DCall:
		want := domain.Put
		if method == domain.VolPoint35DCall {
			want = domain.Call
		}
		target := method.TargetDelta()
		for i := range expiry.Contracts {
			c := &expiry.Contracts[i]
			if c.Right != want || c.Delta == nil {
				continue
			}
			dist := math.Abs(math.Abs(*c.Delta) - target)
			if dist < bestDist {
				best, bestDist = c, dist
			}
		}
	default:
		return domain.Contract{}, 0, fmt.Errorf("unrecognised vol_point %q", method)
	}

	if best == nil {
		return domain.Contract{}, 0, reject(ReasonMissingIV, fmt.Sprintf("no contract available for vol_point %q", method))
	}
	if best.ImpliedVol == nil {
		return domain.Contract{}, 0, reject(ReasonMissingIV, fmt.Sprintf("contract at strike %v has no implied vol", best.Strike))
	}
	return *best, *best.ImpliedVol, nil
}
