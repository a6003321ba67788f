package engine

import (
	"math"
	"testing"
	"time"

	"github.com/ashwnn/forward-factor/domain"
)

func happyPathPolicy(t *testing.T) domain.UserPolicy {
	t.Helper()
	dtePairs, err := domain.EncodeDTEPairs([]domain.DTEPair{{FrontTarget: 30, BackTarget: 60, FrontTol: 5, BackTol: 10}})
	if err != nil {
		t.Fatalf("EncodeDTEPairs: %v", err)
	}
	return domain.UserPolicy{
		UserID:          "u1",
		FFThreshold:     0.20,
		DTEPairsJSON:    dtePairs,
		VolPoint:        domain.VolPointATM,
		MinOpenInterest: 100,
		MinVolume:       10,
		MaxBidAskPct:    0.08,
		SigmaFwdFloor:   0.05,
		Timezone:        "UTC",
	}
}

// TestCompute_HappyPath walks a 30/60-day SPY calendar through the
// worked example end to end: FF ≈ 2.637, signal clears the threshold and
// liquidity gates cleanly.
func TestCompute_HappyPath(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := domain.ChainSnapshot{
		Ticker:          "SPY",
		AsOf:            asOf,
		UnderlyingPrice: 500.0,
		Expiries: []domain.Expiry{
			{
				Date: asOf.Add(30 * 24 * time.Hour),
				Contracts: []domain.Contract{
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.30), Bid: f64(3.00), Ask: f64(3.10), OpenInterest: 500, Volume: 120},
				},
			},
			{
				Date: asOf.Add(60 * 24 * time.Hour),
				Contracts: []domain.Contract{
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.22), Bid: f64(4.50), Ask: f64(4.55), OpenInterest: 800, Volume: 90},
				},
			},
		},
	}

	candidates, diagnostics := Compute(snapshot, happyPathPolicy(t))
	if len(diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diagnostics)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if math.Abs(c.FFValue-2.637) > 0.01 {
		t.Errorf("FF = %v, want ≈ 2.637", c.FFValue)
	}
	if math.Abs(c.SigmaFwd-0.08249) > 0.001 {
		t.Errorf("sigma_fwd = %v, want ≈ 0.08249", c.SigmaFwd)
	}
	if c.QualityScore != 1.0 {
		t.Errorf("quality_score = %v, want 1.0 (clean liquidity)", c.QualityScore)
	}
	if len(c.ReasonCodes) != 0 {
		t.Errorf("expected no reason codes on a clean candidate, got %v", c.ReasonCodes)
	}
}

// TestCompute_WideSpreadDegradesQuality checks that a
// wide front-leg spread still produces a Signal (FF clears threshold) but
// with quality_score=0.5 and the wide_spread reason attached.
func TestCompute_WideSpreadDegradesQuality(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := domain.ChainSnapshot{
		Ticker:          "SPY",
		AsOf:            asOf,
		UnderlyingPrice: 500.0,
		Expiries: []domain.Expiry{
			{
				Date: asOf.Add(30 * 24 * time.Hour),
				Contracts: []domain.Contract{
					// spread = (3.00-2.50)/2.75 ≈ 0.182 > 0.08 threshold.
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.30), Bid: f64(2.50), Ask: f64(3.00), OpenInterest: 500, Volume: 120},
				},
			},
			{
				Date: asOf.Add(60 * 24 * time.Hour),
				Contracts: []domain.Contract{
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.22), Bid: f64(4.50), Ask: f64(4.55), OpenInterest: 800, Volume: 90},
				},
			},
		},
	}

	candidates, _ := Compute(snapshot, happyPathPolicy(t))
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate despite the wide spread, got %d", len(candidates))
	}
	c := candidates[0]
	if c.QualityScore != 0.5 {
		t.Errorf("quality_score = %v, want 0.5", c.QualityScore)
	}
	if !containsReason(c.ReasonCodes, ReasonWideSpread) {
		t.Errorf("reason codes = %v, want to contain wide_spread", c.ReasonCodes)
	}
}

// TestCompute_NegativeForwardVariance: an inverted term structure rejects
// with negative_forward_variance and produces no Signal, only a Diagnostic.
func TestCompute_NegativeForwardVariance(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := domain.ChainSnapshot{
		Ticker:          "SPY",
		AsOf:            asOf,
		UnderlyingPrice: 500.0,
		Expiries: []domain.Expiry{
			{
				Date: asOf.Add(30 * 24 * time.Hour),
				Contracts: []domain.Contract{
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.50), Bid: f64(3.00), Ask: f64(3.10), OpenInterest: 500, Volume: 120},
				},
			},
			{
				Date: asOf.Add(60 * 24 * time.Hour),
				Contracts: []domain.Contract{
					{Strike: 500, Right: domain.Call, ImpliedVol: f64(0.20), Bid: f64(4.50), Ask: f64(4.55), OpenInterest: 800, Volume: 90},
				},
			},
		},
	}

	candidates, diagnostics := Compute(snapshot, happyPathPolicy(t))
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates on negative forward variance, got %d", len(candidates))
	}
	if len(diagnostics) != 1 || diagnostics[0].Reason != ReasonNegativeForwardVariance {
		t.Fatalf("expected a single negative_forward_variance diagnostic, got %v", diagnostics)
	}
}
