package engine

import (
	"errors"
	"math"
	"testing"
)

func TestForwardFactor_HappyPath(t *testing.T) {
	// sigma1=0.30 (30 DTE), sigma2=0.25 (90 DTE): front richer than the
	// implied forward vol, so FF should be positive.
	result, err := ForwardFactor(0.30, 30, 0.25, 90, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FF <= 0 {
		t.Errorf("expected positive FF, got %v", result.FF)
	}
	if result.T1 >= result.T2 {
		t.Errorf("expected T1 < T2, got T1=%v T2=%v", result.T1, result.T2)
	}
}

func TestForwardFactor_RejectsInvalidDTE(t *testing.T) {
	cases := []struct {
		name       string
		dte1, dte2 int
	}{
		{"front dte zero", 0, 30},
		{"back dte zero", 30, 0},
		{"front not before back", 60, 30},
		{"equal dte", 30, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ForwardFactor(0.3, tc.dte1, 0.25, tc.dte2, 0)
			assertReason(t, err, ReasonInvalidDTE)
		})
	}
}

func TestForwardFactor_RejectsNegativeForwardVariance(t *testing.T) {
	// A steeply inverted term structure (short-dated vol far above
	// long-dated vol) can drive V_fwd negative.
	_, err := ForwardFactor(0.80, 5, 0.10, 10, 0)
	assertReason(t, err, ReasonNegativeForwardVariance)
}

func TestForwardFactor_RejectsBelowSigmaFwdFloor(t *testing.T) {
	_, err := ForwardFactor(0.20, 30, 0.19, 90, 0.5)
	assertReason(t, err, ReasonSigmaFwdFloor)
}

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with reason %q, got nil", want)
	}
	var rej *RejectError
	if !errors.As(err, &rej) {
		t.Fatalf("expected *RejectError, got %T: %v", err, err)
	}
	if rej.Reason != want {
		t.Errorf("reason = %q, want %q", rej.Reason, want)
	}
}

func TestForwardFactor_ZeroFrontVolZeroForward(t *testing.T) {
	result, err := ForwardFactor(0, 30, 0, 90, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FF != 0 {
		t.Errorf("expected FF=0 when both legs are flat, got %v", result.FF)
	}
	if math.IsNaN(result.FF) || math.IsInf(result.FF, 0) {
		t.Errorf("FF must be finite, got %v", result.FF)
	}
}
