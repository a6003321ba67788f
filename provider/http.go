package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ashwnn/forward-factor/domain"
)

// maxRetries bounds the fetch retry loop for transient failures.
const maxRetries = 4

// baseBackoff is the starting delay for the exponential backoff; doubled
// per attempt and capped at maxBackoff.
const baseBackoff = 250 * time.Millisecond
const maxBackoff = 8 * time.Second

// HTTPChainProvider polls a REST endpoint for option chain snapshots. It
// honors a per-provider token bucket so a burst of tiered scans never
// exceeds the vendor's published rate limit, and tops the bucket's refill
// time up whenever the vendor itself returns 429.
type HTTPChainProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	bucket  *tokenBucket
}

// NewHTTPChainProvider creates an HTTPChainProvider. ratePerSecond and burst
// configure the token bucket; both come from config.Config.
func NewHTTPChainProvider(baseURL, apiKey string, ratePerSecond float64, burst int) *HTTPChainProvider {
	return &HTTPChainProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		bucket:  newTokenBucket(ratePerSecond, burst),
	}
}

// chainPayload mirrors the vendor's JSON wire shape, translated into
// domain.ChainSnapshot before anything downstream sees it.
type chainPayload struct {
	Ticker         string    `json:"ticker"`
	AsOf           time.Time `json:"as_of"`
	UnderlyingLast float64   `json:"underlying_last"`
	Expiries       []struct {
		ExpiryDate time.Time `json:"expiry_date"`
		Contracts  []struct {
			Right  string   `json:"right"`
			Strike float64  `json:"strike"`
			Bid    *float64 `json:"bid"`
			Ask    *float64 `json:"ask"`
			Delta  *float64 `json:"delta"`
			IV     *float64 `json:"iv"`
			OI     int      `json:"open_interest"`
			Volume int      `json:"volume"`
		} `json:"contracts"`
	} `json:"expiries"`
}

// GetChainSnapshot fetches and translates one option chain for ticker,
// retrying transient failures with exponential backoff and honoring any
// Retry-After header on rate-limit responses.
func (p *HTTPChainProvider) GetChainSnapshot(ctx context.Context, ticker string) (domain.ChainSnapshot, error) {
	if err := p.bucket.wait(ctx); err != nil {
		return domain.ChainSnapshot{}, &Error{Kind: FailureTransient, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		snapshot, err := p.fetchOnce(ctx, ticker)
		if err == nil {
			return snapshot, nil
		}

		provErr, ok := err.(*Error)
		if !ok {
			return domain.ChainSnapshot{}, err
		}
		if provErr.Kind == FailurePermanent {
			return domain.ChainSnapshot{}, provErr
		}
		lastErr = provErr

		if provErr.Kind == FailureRateLimited {
			p.bucket.topUp(provErr.RetryAfter)
		}

		if attempt == maxRetries {
			break
		}

		wait := provErr.RetryAfter
		if wait == 0 {
			wait = backoffDelay(attempt)
		}
		log.Printf("⚠️  chain fetch for %s failed (%s), retrying in %s (attempt %d/%d)", ticker, provErr.Kind, wait, attempt, maxRetries)

		select {
		case <-ctx.Done():
			return domain.ChainSnapshot{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	return domain.ChainSnapshot{}, lastErr
}

func backoffDelay(attempt int) time.Duration {
	d := baseBackoff << uint(attempt-1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (p *HTTPChainProvider) fetchOnce(ctx context.Context, ticker string) (domain.ChainSnapshot, error) {
	url := fmt.Sprintf("%s/chains/%s", p.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ChainSnapshot{}, &Error{Kind: FailurePermanent, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.ChainSnapshot{}, &Error{Kind: FailureTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ChainSnapshot{}, &Error{Kind: FailureRateLimited, HTTPStatus: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Err: fmt.Errorf("rate limited by provider")}
	}
	if resp.StatusCode >= 500 {
		return domain.ChainSnapshot{}, &Error{Kind: FailureTransient, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return domain.ChainSnapshot{}, &Error{Kind: FailurePermanent, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	}

	var payload chainPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ChainSnapshot{}, &Error{Kind: FailurePermanent, Err: fmt.Errorf("malformed chain payload: %w", err)}
	}

	return translate(payload), nil
}

func translate(payload chainPayload) domain.ChainSnapshot {
	snapshot := domain.ChainSnapshot{
		Ticker:          payload.Ticker,
		AsOf:            payload.AsOf.UTC(),
		UnderlyingPrice: payload.UnderlyingLast,
		Expiries:        make([]domain.Expiry, 0, len(payload.Expiries)),
	}
	for _, e := range payload.Expiries {
		expiry := domain.Expiry{
			Date:      e.ExpiryDate.UTC(),
			Contracts: make([]domain.Contract, 0, len(e.Contracts)),
		}
		for _, c := range e.Contracts {
			expiry.Contracts = append(expiry.Contracts, domain.Contract{
				Right:        domain.Right(c.Right),
				Strike:       c.Strike,
				Bid:          c.Bid,
				Ask:          c.Ask,
				ImpliedVol:   c.IV,
				Delta:        c.Delta,
				Volume:       c.Volume,
				OpenInterest: c.OI,
			})
		}
		snapshot.Expiries = append(snapshot.Expiries, expiry)
	}
	return snapshot
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
