// Package ratelimit provides the process-wide admission gate in front of the
// BigBoost API. It uses a token bucket with continuous refill so requests are
// spread evenly over the window instead of bursting at window boundaries.
// Supports both in-memory (single instance) and Redis (shared by replicas) backends.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiter defines the interface for rate limiting backends.
// Allow consumes one token when available; WaitTime reports how long until
// the next token without consuming anything.
type RateLimiter interface {
	Allow(ctx context.Context) (bool, error)
	WaitTime(ctx context.Context) (time.Duration, error)
}

// Config sizes the bucket: MaxRequests tokens refilled linearly over Window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultConfig matches the provider's published quota of 5000 requests
// every 5 minutes.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 5000,
		Window:      5 * time.Minute,
	}
}


func windowMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// TokenBucket implements the limiter in memory. Suitable for single-instance
// deployments, which is the normal stdio setup.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	windowMs   float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

type Option func(*TokenBucket)

// WithClock replaces time.Now, letting tests advance time deterministically.
func WithClock(now func() time.Time) Option {
	return func(b *TokenBucket) {
		b.now = now
	}
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(cfg Config, opts ...Option) *TokenBucket {
	capacity := float64(max(cfg.MaxRequests, 0))

	b := &TokenBucket{
		capacity: capacity,
		windowMs: windowMillis(cfg.Window),
		tokens:   capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.now()

	return b
}

func (b *TokenBucket) Allow(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.now())

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

func (b *TokenBucket) WaitTime(ctx context.Context) (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tokens := b.projected(b.now())
	if tokens >= 1 {
		return 0, nil
	}
	if b.capacity <= 0 || b.windowMs <= 0 {
		return time.Duration(b.windowMs * float64(time.Millisecond)), nil
	}

	ms := math.Ceil((1 - tokens) * b.windowMs / b.capacity)
	return time.Duration(ms) * time.Millisecond, nil
}

// Tokens returns the current token count after refill, without consuming.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projected(b.now())
}

// refill must be called with mu held. The timestamp only advances when
// tokens were actually added.
func (b *TokenBucket) refill(now time.Time) {
	if added := b.added(now); added > 0 {
		b.tokens = math.Min(b.tokens+added, b.capacity)
		b.lastRefill = now
	}
}

func (b *TokenBucket) projected(now time.Time) float64 {
	if added := b.added(now); added > 0 {
		return math.Min(b.tokens+added, b.capacity)
	}
	return b.tokens
}

func (b *TokenBucket) added(now time.Time) float64 {
	if b.windowMs <= 0 {
		return 0
	}
	elapsedMs := windowMillis(now.Sub(b.lastRefill))
	return elapsedMs * b.capacity / b.windowMs
}
