package engine

import (
	"testing"

	"github.com/ashwnn/forward-factor/domain"
)

func f64(v float64) *float64 { return &v }

func TestSelectVolPoint_ATMPicksClosestStrikeTieLow(t *testing.T) {
	expiry := domain.Expiry{Contracts: []domain.Contract{
		{Strike: 95, ImpliedVol: f64(0.20)},
		{Strike: 100, ImpliedVol: f64(0.22)},
		{Strike: 105, ImpliedVol: f64(0.24)},
	}}
	// Underlying exactly between 95 and 105 via 100, so 100 is nearest;
	// use 102.5 to make 100 and 105 equidistant and confirm the
	// lower-strike tiebreak.
	contract, iv, err := SelectVolPoint(expiry, 102.5, domain.VolPointATM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contract.Strike != 100 {
		t.Errorf("strike = %v, want 100 (tie broken toward lower strike)", contract.Strike)
	}
	if iv != 0.22 {
		t.Errorf("iv = %v, want 0.22", iv)
	}
}

func TestSelectVolPoint_DeltaTargetPicksClosestMatchingRight(t *testing.T) {
	expiry := domain.Expiry{Contracts: []domain.Contract{
		{Strike: 90, Right: domain.Put, Delta: f64(-0.50), ImpliedVol: f64(0.30)},
		{Strike: 95, Right: domain.Put, Delta: f64(-0.35), ImpliedVol: f64(0.25)},
		{Strike: 100, Right: domain.Call, Delta: f64(0.35), ImpliedVol: f64(0.28)},
	}}
	contract, iv, err := SelectVolPoint(expiry, 95, domain.VolPoint35DPut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contract.Strike != 95 {
		t.Errorf("strike = %v, want 95 (the 35-delta put)", contract.Strike)
	}
	if iv != 0.25 {
		t.Errorf("iv = %v, want 0.25", iv)
	}
}

func TestSelectVolPoint_RejectsMissingIV(t *testing.T) {
	expiry := domain.Expiry{Contracts: []domain.Contract{
		{Strike: 100, ImpliedVol: nil},
	}}
	_, _, err := SelectVolPoint(expiry, 100, domain.VolPointATM)
	assertReason(t, err, ReasonMissingIV)
}

func TestSelectVolPoint_RejectsWhenNoContractOfRequestedRight(t *testing.T) {
	expiry := domain.Expiry{Contracts: []domain.Contract{
		{Strike: 100, Right: domain.Call, Delta: f64(0.35), ImpliedVol: f64(0.2)},
	}}
	_, _, err := SelectVolPoint(expiry, 100, domain.VolPoint35DPut)
	assertReason(t, err, ReasonMissingIV)
}
