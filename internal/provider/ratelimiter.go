package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket: up to maxTokens calls at once, one token
// regained every refillInterval.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
}

// NewRateLimiter creates a limiter that starts full.
func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.take()
		if wait == 0 {
			return nil
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

// take consumes a token and returns 0, or returns how long until the next one.
func (r *RateLimiter) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if earned := int(now.Sub(r.lastRefill) / r.refillInterval); earned > 0 {
		r.tokens = min(r.tokens+earned, r.maxTokens)
		r.lastRefill = r.lastRefill.Add(time.Duration(earned) * r.refillInterval)
	}
	if r.tokens > 0 {
		r.tokens--
		return 0
	}
	return r.lastRefill.Add(r.refillInterval).Sub(now)
}
