package lb

import (
	"math/rand/v2"
	"net/http"
)

// RandomBalancer picks upstream i with probability weight_i / sum(weights).
type RandomBalancer struct{}

func (RandomBalancer) Pick(upstreams []*Upstream, r *http.Request) (*Upstream, bool) {
	if len(upstreams) == 0 {
		return nil, false
	}
	total := 0
	for _, u := range upstreams {
		total += u.Weight
	}
	if total == 0 {
		return upstreams[rand.IntN(len(upstreams))], true
	}
	n := rand.IntN(total)
	for _, u := range upstreams {
		if n < u.Weight {
			return u, true
		}
		n -= u.Weight
	}
	return upstreams[len(upstreams)-1], true
}
