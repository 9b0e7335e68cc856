package lb

import (
	"hash/fnv"
	"net"
	"net/http"
)

// HashBalancer picks a stable upstream for a given request key: the
// X-LB-HASH header, falling back to the client IP (RemoteAddr without its
// port). Identical
// keys always land on the same upstream (spec.md §4.7), except when that
// upstream's breaker is open, in which case it fails over to the next
// eligible upstream in arena order — the only policy that does so.
type HashBalancer struct{}

func hashKey(r *http.Request) string {
	if v := r.Header.Get("X-LB-HASH"); v != "" {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func cumulativeBucket(upstreams []*Upstream, h uint32) int {
	total := uint32(0)
	for _, u := range upstreams {
		total += uint32(u.Weight)
	}
	if total == 0 {
		return int(h) % len(upstreams)
	}
	n := h % total
	acc := uint32(0)
	for i, u := range upstreams {
		acc += uint32(u.Weight)
		if n < acc {
			return i
		}
	}
	return len(upstreams) - 1
}

func (HashBalancer) Pick(upstreams []*Upstream, r *http.Request) (*Upstream, bool) {
	if len(upstreams) == 0 {
		return nil, false
	}
	f := fnv.New32a()
	f.Write([]byte(hashKey(r)))
	idx := cumulativeBucket(upstreams, f.Sum32())

	if eligible(upstreams[idx]) {
		return upstreams[idx], true
	}
	// Failover: walk forward from the natural pick for the first eligible
	// upstream, wrapping once around the arena.
	for i := 1; i < len(upstreams); i++ {
		j := (idx + i) % len(upstreams)
		if eligible(upstreams[j]) {
			return upstreams[j], true
		}
	}
	// Every upstream is circuit-open; return the natural pick so the
	// dispatcher's breaker admission check produces the usual 502.
	return upstreams[idx], true
}
