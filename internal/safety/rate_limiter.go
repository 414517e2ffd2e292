// Package safety wraps outbound exchange calls: token-bucket rate
// limiting, bounded exponential-backoff retries, and a circuit
// breaker for the signed account endpoints.
package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled once per second.
type RateLimiter struct {
	name       string
	capacity   int
	refillRate int // tokens added per second

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(name string, capacity, refillRate int) *RateLimiter {
	return &RateLimiter{
		name:       name,
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN takes n tokens if available.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= n {
		rl.tokens -= n
		return true
	}
	return false
}

// Wait blocks until one token is available or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available or the context ends.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	for {
		if rl.AllowN(n) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.waitTime(n)):
		}
	}
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed < time.Second {
		return
	}

	rl.tokens += int(elapsed.Seconds()) * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

// waitTime estimates how long until n tokens accumulate, with a small
// buffer for timer precision.
func (rl *RateLimiter) waitTime(n int) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= n {
		return 0
	}
	seconds := float64(n-rl.tokens) / float64(rl.refillRate)
	return time.Duration(seconds*1000+100) * time.Millisecond
}
