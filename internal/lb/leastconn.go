package lb

import "net/http"

// LeastConnBalancer picks the upstream with the smallest current inflight
// count, ties broken by arena (upstream id) ordering.
type LeastConnBalancer struct{}

func (LeastConnBalancer) Pick(upstreams []*Upstream, r *http.Request) (*Upstream, bool) {
	if len(upstreams) == 0 {
		return nil, false
	}
	best := upstreams[0]
	bestN := best.Inflight()
	for _, u := range upstreams[1:] {
		if n := u.Inflight(); n < bestN {
			best, bestN = u, n
		}
	}
	return best, true
}
