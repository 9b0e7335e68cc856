// Package dispatcher matches inbound requests to a configured service and
// drives spec.md §4.1's per-request pipeline: request middleware chain,
// load-balancer pick, circuit-breaker admission, concurrency gate, the
// timeout-bound outbound call, and the response middleware chain — all
// behind the single http.Handler net/http's server model expects.
package dispatcher

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hyperapi/gateway/internal/clientip"
	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/gwerr"
	"github.com/hyperapi/gateway/internal/mw"
	"github.com/hyperapi/gateway/internal/netx"
	"github.com/hyperapi/gateway/internal/proxy"
	"github.com/hyperapi/gateway/internal/ratelimit"
	"github.com/hyperapi/gateway/internal/reqctx"
)

type Dispatcher struct {
	services []*ServiceRuntime // sorted by prefix length, longest first
	limiter  ratelimit.Limiter
}

// New wires every configured service into a ServiceRuntime. The rate
// limiter backend (memory or redis) and the outbound HTTP client/transport
// are shared across all services, matching the teacher's single
// limiter/transport construction in cmd/gateway/main.go.
func New(cfg *config.Config) (*Dispatcher, error) {
	trusted, err := netx.ParseCIDRSet(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	resolver := clientip.Resolver{Trusted: trusted}

	limiter, err := newLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	transport := proxy.NewTransport(proxy.TransportConfig{
		DialTimeout:         5 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        512,
		MaxIdleConnsPerHost: 64,
	})
	client := &http.Client{Transport: transport}

	d := &Dispatcher{limiter: limiter}
	for _, svcCfg := range cfg.Services {
		sr, err := newServiceRuntime(svcCfg, client, limiter, resolver)
		if err != nil {
			return nil, err
		}
		d.services = append(d.services, sr)
	}
	sort.Slice(d.services, func(i, j int) bool {
		return len(d.services[i].cfg.Prefix) > len(d.services[j].cfg.Prefix)
	})
	return d, nil
}

// Close releases the rate-limiter backend (e.g. the Redis client).
func (d *Dispatcher) Close() error {
	if d.limiter != nil {
		return d.limiter.Close()
	}
	return nil
}

// match finds the longest registered prefix covering path, grounded on the
// teacher's proxy.Router.Match (routes pre-sorted by descending prefix
// length, first match wins).
func (d *Dispatcher) match(path string) *ServiceRuntime {
	for _, sr := range d.services {
		if strings.HasPrefix(path, sr.cfg.Prefix) {
			return sr
		}
	}
	return nil
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sr := d.match(r.URL.Path)
	if sr == nil {
		gwerr.NoRoute().Write(w)
		return
	}

	ctx := reqctx.WithServiceID(r.Context(), sr.cfg.ID)
	state := &reqctx.RequestState{}
	ctx = reqctx.WithRequestState(ctx, state)
	r = r.WithContext(ctx)

	bw := newBufferedWriter()
	handler := mw.Chain(sr.core(), sr.stages...)
	handler.ServeHTTP(bw, r)

	finalize(bw, state)
	bw.flush(w)
}
