package engine

import (
	"sort"
	"time"

	"github.com/ashwnn/forward-factor/domain"
)

// Candidate is a Signal that has not yet been through the Stability
// Tracker or persisted; it carries everything needed for both.
type Candidate struct {
	Ticker       string
	AsOf         time.Time
	FrontExpiry  domain.Expiry
	BackExpiry   domain.Expiry
	FrontIV      float64
	BackIV       float64
	SigmaFwd     float64
	FFValue      float64
	VolPoint     domain.VolPoint
	QualityScore float64
	ReasonCodes  []Reason
}

// Diagnostic records why a pairing produced no Candidate; it is never
// persisted, only logged.
type Diagnostic struct {
	Ticker      string
	FrontExpiry domain.Expiry
	BackExpiry  domain.Expiry
	Reason      Reason
	Detail      string
}

// Compute runs the full pipeline against one snapshot and one user's
// policy: pair expiries, select vol points, compute FF, apply liquidity
// filters, and emit a Candidate for every pairing whose FF clears the
// user's threshold. The function is pure and deterministic: repeated
// calls with equal inputs yield equal (by value) output sequences.
//
// Results are sorted by FFValue descending.
func Compute(snapshot domain.ChainSnapshot, policy domain.UserPolicy) ([]Candidate, []Diagnostic) {
	var candidates []Candidate
	var diagnostics []Diagnostic

	for _, pair := range PairExpiries(snapshot, dtePairs(policy)) {
		frontContract, frontIV, err := SelectVolPoint(pair.Front, snapshot.UnderlyingPrice, policy.VolPoint)
		if err != nil {
			diagnostics = append(diagnostics, diagFromErr(snapshot.Ticker, pair, err))
			continue
		}
		backContract, backIV, err := SelectVolPoint(pair.Back, snapshot.UnderlyingPrice, policy.VolPoint)
		if err != nil {
			diagnostics = append(diagnostics, diagFromErr(snapshot.Ticker, pair, err))
			continue
		}

		ffResult, err := ForwardFactor(frontIV, pair.Front.DTE(snapshot.AsOf), backIV, pair.Back.DTE(snapshot.AsOf), policy.SigmaFwdFloor)
		if err != nil {
			diagnostics = append(diagnostics, diagFromErr(snapshot.Ticker, pair, err))
			continue
		}

		if ffResult.FF < policy.FFThreshold {
			diagnostics = append(diagnostics, Diagnostic{
				Ticker: snapshot.Ticker, FrontExpiry: pair.Front, BackExpiry: pair.Back,
				Reason: ReasonBelowThreshold, Detail: "ff below user threshold",
			})
			continue
		}

		liquidity := ApplyLiquidityFilters(frontContract, backContract, policy)
		quality := 1.0
		var reasons []Reason
		if !liquidity.OK {
			quality = 0.5
			reasons = liquidity.Reasons
		}

		candidates = append(candidates, Candidate{
			Ticker:       snapshot.Ticker,
			AsOf:         snapshot.AsOf,
			FrontExpiry:  pair.Front,
			BackExpiry:   pair.Back,
			FrontIV:      frontIV,
			BackIV:       backIV,
			SigmaFwd:     ffResult.SigmaFwd,
			FFValue:      ffResult.FF,
			VolPoint:     policy.VolPoint,
			QualityScore: quality,
			ReasonCodes:  reasons,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].FFValue > candidates[j].FFValue })
	return candidates, diagnostics
}

func diagFromErr(ticker string, pair ExpiryPair, err error) Diagnostic {
	reason := Reason("unknown")
	detail := err.Error()
	if rej, ok := err.(*RejectError); ok {
		reason = rej.Reason
		detail = rej.Message
	}
	return Diagnostic{Ticker: ticker, FrontExpiry: pair.Front, BackExpiry: pair.Back, Reason: reason, Detail: detail}
}

func dtePairs(policy domain.UserPolicy) []domain.DTEPair {
	pairs, _ := domain.DecodeDTEPairs(policy.DTEPairsJSON)
	return pairs
}
