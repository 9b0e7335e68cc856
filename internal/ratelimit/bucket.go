package ratelimit

import (
	"sync"
	"time"
)

// bucket implements the exact refill formula spec.md calls out:
//
//	elapsed = now - last_refill
//	tokens  = min(capacity, tokens + elapsed*rate)
//	last_refill = now
//
// Each bucket is guarded by its own mutex rather than a lock on the whole
// registry, so concurrent requests against different keys never contend.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	capacity   float64
	rate       float64
}

func newBucket(capacity, rate float64, now time.Time) *bucket {
	return &bucket{tokens: capacity, lastRefill: now, capacity: capacity, rate: rate}
}

// take refills the bucket to `now`, then attempts to withdraw cost tokens.
// Capacity/rate are passed per-call so a bucket can pick up config changes
// without being recreated (harmless no-op when they're stable, as they are
// within a single process lifetime).
func (b *bucket) take(now time.Time, capacity, rate, cost float64) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.capacity = capacity
	b.rate = rate

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * rate
		if b.tokens > capacity {
			b.tokens = capacity
		}
		b.lastRefill = now
	}

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{Allowed: true, Remaining: b.tokens, Capacity: capacity, RefillPerSec: rate}
	}

	missing := cost - b.tokens
	retry := 1
	if rate > 0 {
		retry = int(missing/rate + 0.999999)
		if retry < 1 {
			retry = 1
		}
	}
	return Decision{
		Allowed:           false,
		Remaining:         b.tokens,
		Capacity:          capacity,
		RefillPerSec:      rate,
		RetryAfterSeconds: retry,
	}
}
