// Package ratelimit implements the gateway's token-bucket rate limiter,
// pluggable between an in-process backend and a Redis-backed one for
// multi-instance deployments.
package ratelimit

import "context"

type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Remaining         float64
	Capacity          float64
	RefillPerSec      float64
}

// Limiter admits or rejects a request against the named bucket. capacity is
// the bucket's max tokens, refillPerSec its refill rate; cost is normally 1.
type Limiter interface {
	Allow(ctx context.Context, key string, capacity float64, refillPerSec float64, cost float64) (Decision, error)
	Close() error
}
