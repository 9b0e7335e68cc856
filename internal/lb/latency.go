package lb

import (
	"math/rand/v2"
	"net/http"
)

// LatencyBalancer picks an upstream with probability proportional to
// 1/ewma_latency_ms (spec.md §4.7). Upstreams with no sample yet are given
// an optimistic 1ms latency, so they are strongly favoured (though not
// guaranteed a pick) until their first sample lands.
type LatencyBalancer struct{}

const coldStartLatencyMS = 1.0
const minLatencyMS = 0.001

func (LatencyBalancer) Pick(upstreams []*Upstream, r *http.Request) (*Upstream, bool) {
	if len(upstreams) == 0 {
		return nil, false
	}
	weights := make([]float64, len(upstreams))
	total := 0.0
	for i, u := range upstreams {
		ms, ok := u.EWMALatency()
		if !ok {
			ms = coldStartLatencyMS
		}
		if ms < minLatencyMS {
			ms = minLatencyMS
		}
		w := 1.0 / ms
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return upstreams[rand.IntN(len(upstreams))], true
	}
	n := rand.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if n < acc {
			return upstreams[i], true
		}
	}
	return upstreams[len(upstreams)-1], true
}
