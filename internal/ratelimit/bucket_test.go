package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestMemoryLimiter_DrainAndRefill mirrors the spec's calibration scenario:
// capacity=10, rate~1.67/s drains in 10 requests, refills ~5 tokens in 3s,
// and returns to full capacity within ~10s of quiet time.
func TestMemoryLimiter_DrainAndRefill(t *testing.T) {
	lim := NewMemoryLimiter()
	defer lim.Close()
	ctx := context.Background()
	key := "svc:bucket"
	capacity := 10.0
	rate := 1.67

	for i := 0; i < 10; i++ {
		dec, err := lim.Allow(ctx, key, capacity, rate, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed, bucket should have %d tokens left", i, 10-i)
		}
	}

	dec, _ := lim.Allow(ctx, key, capacity, rate, 1)
	if dec.Allowed {
		t.Fatal("11th immediate request should be rate limited")
	}

	// Simulate 3s of idle time by manipulating the bucket's clock directly.
	b := lim.m[key]
	b.mu.Lock()
	b.lastRefill = b.lastRefill.Add(-3 * time.Second)
	b.mu.Unlock()

	allowed := 0
	for i := 0; i < 6; i++ {
		dec, _ := lim.Allow(ctx, key, capacity, rate, 1)
		if dec.Allowed {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("expected ~5 tokens refilled after 3s idle, got %d admitted", allowed)
	}

	// Simulate a further 10s idle: bucket should be back at full capacity.
	b.mu.Lock()
	b.lastRefill = b.lastRefill.Add(-10 * time.Second)
	b.mu.Unlock()

	for i := 0; i < 10; i++ {
		dec, _ := lim.Allow(ctx, key, capacity, rate, 1)
		if !dec.Allowed {
			t.Fatalf("request %d after full refill: expected allowed", i)
		}
	}
	dec, _ = lim.Allow(ctx, key, capacity, rate, 1)
	if dec.Allowed {
		t.Fatal("expected bucket drained again after 10 full-capacity requests")
	}
}

func TestBucketNeverExceedsCapacity(t *testing.T) {
	now := time.Now()
	b := newBucket(5, 100, now)
	dec := b.take(now.Add(time.Hour), 5, 100, 1)
	if dec.Remaining > 5-1 {
		t.Fatalf("tokens must never exceed capacity, got remaining=%v", dec.Remaining)
	}
}
