package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPChainProvider_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ticker":          "AAPL",
			"as_of":           time.Now().UTC(),
			"underlying_last": 190.5,
			"expiries":        []interface{}{},
		})
	}))
	defer server.Close()

	p := NewHTTPChainProvider(server.URL, "key", 1000, 10)
	snapshot, err := p.GetChainSnapshot(t.Context(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Ticker != "AAPL" || snapshot.UnderlyingPrice != 190.5 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestHTTPChainProvider_PermanentFailureDoesNotRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewHTTPChainProvider(server.URL, "key", 1000, 10)
	_, err := p.GetChainSnapshot(t.Context(), "MISSING")
	if err == nil {
		t.Fatalf("expected an error")
	}
	provErr, ok := err.(*Error)
	if !ok || provErr.Kind != FailurePermanent {
		t.Fatalf("expected permanent failure, got %#v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("permanent failure must not retry, got %d hits", hits)
	}
}

func TestHTTPChainProvider_TransientFailureRetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ticker":          "MSFT",
			"as_of":           time.Now().UTC(),
			"underlying_last": 410.0,
			"expiries":        []interface{}{},
		})
	}))
	defer server.Close()

	p := NewHTTPChainProvider(server.URL, "key", 1000, 10)
	snapshot, err := p.GetChainSnapshot(t.Context(), "MSFT")
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if snapshot.Ticker != "MSFT" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestHTTPChainProvider_RateLimitedHonorsRetryAfter(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ticker":          "TSLA",
			"as_of":           time.Now().UTC(),
			"underlying_last": 250.0,
			"expiries":        []interface{}{},
		})
	}))
	defer server.Close()

	p := NewHTTPChainProvider(server.URL, "key", 1000, 10)
	snapshot, err := p.GetChainSnapshot(t.Context(), "TSLA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Ticker != "TSLA" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestHTTPChainProvider_MalformedPayloadIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := NewHTTPChainProvider(server.URL, "key", 1000, 10)
	_, err := p.GetChainSnapshot(t.Context(), "BAD")
	provErr, ok := err.(*Error)
	if !ok || provErr.Kind != FailurePermanent {
		t.Fatalf("expected permanent failure for malformed payload, got %#v", err)
	}
}
