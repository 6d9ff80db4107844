package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenBucket_ExactlyMaxRequestsAdmitted(t *testing.T) {
	clock := newFakeClock()
	rl := NewTokenBucket(Config{MaxRequests: 5, Window: time.Second}, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := rl.Allow(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	allowed, _ := rl.Allow(ctx)
	if allowed {
		t.Error("request after limit should be denied")
	}
}

func TestTokenBucket_WaitTimeThenRecover(t *testing.T) {
	clock := newFakeClock()
	rl := NewTokenBucket(Config{MaxRequests: 5, Window: time.Second}, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rl.Allow(ctx)
	}

	wait, err := rl.WaitTime(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wait <= 0 {
		t.Fatalf("WaitTime() = %v, want > 0", wait)
	}
	if wait != 200*time.Millisecond {
		t.Errorf("WaitTime() = %v, want 200ms", wait)
	}

	clock.Advance(wait)

	allowed, _ := rl.Allow(ctx)
	if !allowed {
		t.Error("request should be allowed after waiting WaitTime()")
	}
}

func TestTokenBucket_WaitTimeDoesNotConsume(t *testing.T) {
	clock := newFakeClock()
	rl := NewTokenBucket(Config{MaxRequests: 2, Window: time.Minute}, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		wait, _ := rl.WaitTime(ctx)
		if wait != 0 {
			t.Fatalf("WaitTime() = %v on a full bucket, want 0", wait)
		}
	}

	if got := rl.Tokens(); got != 2 {
		t.Errorf("Tokens() = %v, want 2 (WaitTime must not consume)", got)
	}
}

func TestTokenBucket_PartialRefill(t *testing.T) {
	clock := newFakeClock()
	rl := NewTokenBucket(Config{MaxRequests: 10, Window: 10 * time.Second}, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rl.Allow(ctx)
	}

	clock.Advance(500 * time.Millisecond)

	if got := rl.Tokens(); got != 0.5 {
		t.Errorf("Tokens() = %v, want 0.5", got)
	}
	if allowed, _ := rl.Allow(ctx); allowed {
		t.Error("half a token must not admit a request")
	}

	wait, _ := rl.WaitTime(ctx)
	if wait != 500*time.Millisecond {
		t.Errorf("WaitTime() = %v, want 500ms", wait)
	}
}

func TestTokenBucket_RefillCappedAtCapacity(t *testing.T) {
	clock := newFakeClock()
	rl := NewTokenBucket(Config{MaxRequests: 3, Window: time.Second}, WithClock(clock.Now))
	ctx := context.Background()

	rl.Allow(ctx)
	clock.Advance(time.Hour)

	if got := rl.Tokens(); got != 3 {
		t.Errorf("Tokens() = %v, want 3", got)
	}

	for i := 0; i < 3; i++ {
		if allowed, _ := rl.Allow(ctx); !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if allowed, _ := rl.Allow(ctx); allowed {
		t.Error("bucket must not exceed its capacity")
	}
}

func TestTokenBucket_ConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	limit := 100
	rl := NewTokenBucket(Config{MaxRequests: limit, Window: time.Minute}, WithClock(clock.Now))
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if ok, _ := rl.Allow(ctx); ok {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != int64(limit) {
		t.Errorf("admitted = %d, want exactly %d", got, limit)
	}
}

func TestTokenBucket_ZeroLimit(t *testing.T) {
	rl := NewTokenBucket(Config{MaxRequests: 0, Window: time.Second})
	ctx := context.Background()

	allowed, _ := rl.Allow(ctx)
	if allowed {
		t.Error("zero limit should deny all requests")
	}

	wait, _ := rl.WaitTime(ctx)
	if wait != time.Second {
		t.Errorf("WaitTime() = %v, want the full window", wait)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxRequests != 5000 {
		t.Errorf("MaxRequests = %d, want 5000", cfg.MaxRequests)
	}
	if cfg.Window != 5*time.Minute {
		t.Errorf("Window = %v, want 5m", cfg.Window)
	}
}
