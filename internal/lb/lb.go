// Package lb implements the four load-balancer policies of spec.md §4.7
// over a service's upstream set: random-weighted, hash, least-connection
// and latency-weighted. Grounded on the Balancer/Upstream split used by the
// pack's XyPriss reverse proxy, adapted here to weight- and latency-driven
// selection instead of health-check-driven selection.
package lb

import (
	"net/http"
	"sync"

	"github.com/hyperapi/gateway/internal/breaker"
)

// Upstream is one arena entry: static config plus the mutable per-upstream
// state (breaker, inflight count, EWMA latency) spec.md §3 calls
// UpstreamStats. Looked up by index, never by map, per spec.md §9.
type Upstream struct {
	ID     string
	URL    string
	Weight int

	Breaker *breaker.Breaker

	mu          sync.Mutex
	inflight    int64
	ewmaLatency float64 // milliseconds
	ewmaSet     bool
}

func NewUpstream(id, url string, weight int, br *breaker.Breaker) *Upstream {
	if weight <= 0 {
		weight = 1
	}
	return &Upstream{ID: id, URL: url, Weight: weight, Breaker: br}
}

func (u *Upstream) IncInflight() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inflight++
	return u.inflight
}

func (u *Upstream) DecInflight() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inflight > 0 {
		u.inflight--
	}
}

func (u *Upstream) Inflight() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inflight
}

// EWMALatency returns the current exponentially-weighted moving average in
// milliseconds, or 0 with ok=false if no sample has landed yet.
func (u *Upstream) EWMALatency() (ms float64, ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ewmaLatency, u.ewmaSet
}

const ewmaAlpha = 0.2

// RecordLatency folds a new sample into the EWMA per spec.md §4.7:
// ewma <- alpha*sample + (1-alpha)*ewma. The first sample seeds the average.
func (u *Upstream) RecordLatency(sampleMS float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.ewmaSet {
		u.ewmaLatency = sampleMS
		u.ewmaSet = true
		return
	}
	u.ewmaLatency = ewmaAlpha*sampleMS + (1-ewmaAlpha)*u.ewmaLatency
}

// Balancer picks an upstream from the service's arena for a given request.
// Implementations must be safe for concurrent use.
type Balancer interface {
	Pick(upstreams []*Upstream, r *http.Request) (*Upstream, bool)
}

func New(policy string) Balancer {
	switch policy {
	case "hash":
		return &HashBalancer{}
	case "least_conn":
		return &LeastConnBalancer{}
	case "latency":
		return &LatencyBalancer{}
	default:
		return &RandomBalancer{}
	}
}

// eligible reports whether u may be admitted by Allow() right now, without
// actually consuming a half-open trial slot. Balancers use this for
// candidate filtering; the real Allow() call that consumes the slot happens
// once in the dispatcher after the pick is final.
func eligible(u *Upstream) bool {
	return u.Breaker == nil || u.Breaker.Stats().State != breaker.Open
}
