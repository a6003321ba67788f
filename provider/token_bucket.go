package provider

import (
	"context"
	"sync"
	"time"
)

// tokenBucket is a minimal rate limiter for the provider's global request
// budget: a mutex-guarded counter refilled from elapsed wall time.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	max        float64
	refillRate float64 // tokens per second
	last       time.Time
}

func newTokenBucket(refillRate float64, burst int) *tokenBucket {
	if refillRate <= 0 {
		refillRate = 5
	}
	if burst <= 0 {
		burst = 5
	}
	return &tokenBucket{
		tokens:     float64(burst),
		max:        float64(burst),
		refillRate: refillRate,
		last:       time.Now(),
	}
}

// wait blocks until a token is available or ctx is done.
func (b *tokenBucket) wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		wait := time.Duration(deficit/b.refillRate*float64(time.Second)) + time.Millisecond
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// topUp empties the bucket and pushes its refill start past the 429's
// advertised Retry-After, so the vendor's ask is honored bucket side too,
// not just via the caller's sleep.
func (b *tokenBucket) topUp(retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = 0
	b.last = time.Now().Add(retryAfter)
}

func (b *tokenBucket) refillLocked() {
	now := time.Now()
	if now.Before(b.last) {
		return
	}
	elapsed := now.Sub(b.last).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.last = now
}
