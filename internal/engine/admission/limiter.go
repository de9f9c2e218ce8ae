// Package admission implements an optional token-bucket backpressure gate
// in front of Send, independent of HandlePool exhaustion (SPEC_FULL.md
// §4.8). Adapted from the teacher's sdk/ratelimit.TokenBucket: the refill
// math and context-aware Acquire loop are carried over, but the
// provider/plan-keyed, SQLite-backed lookup (storage.GetAllRateLimitsForProvider)
// is dropped — this engine has exactly one bucket, sized directly from
// Config, not a map of per-provider buckets loaded from a database (that
// lookup belonged to the out-of-scope higher-level data-service layer).
package admission

import (
	"context"
	"sync"
	"time"
)

// Limiter is a single token bucket gating admission into the engine.
type Limiter struct {
	mu             sync.Mutex
	capacity       int64
	tokens         int64
	refillRate     int64
	refillInterval time.Duration
	lastRefill     time.Time
}

// NewLimiter creates a limiter that holds capacity tokens, refilling
// refillRate tokens every refillInterval.
func NewLimiter(capacity, refillRate int64, refillInterval time.Duration) *Limiter {
	return &Limiter{
		capacity:       capacity,
		tokens:         capacity,
		refillRate:     refillRate,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// Acquire blocks until one token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := l.refillInterval - time.Since(l.lastRefill)
		l.mu.Unlock()

		if wait <= 0 {
			wait = 10 * time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes one token if immediately available and reports whether it
// did, without waiting for a refill. Kept for callers that want to probe
// admission without blocking at all; Send (SPEC_FULL.md §4.8) uses the
// blocking Acquire instead, bounded by the request's connect timeout.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// refill must be called with l.mu held.
func (l *Limiter) refill() {
	if l.refillInterval <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed < l.refillInterval {
		return
	}
	periods := int64(elapsed / l.refillInterval)
	l.tokens = min64(l.capacity, l.tokens+periods*l.refillRate)
	l.lastRefill = now
}

// Available reports the current token count without consuming one.
func (l *Limiter) Available() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
