package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperapi/gateway/internal/clientip"
	"github.com/hyperapi/gateway/internal/ratelimit"
	"github.com/hyperapi/gateway/internal/reqctx"
)

// RateLimitOpts binds a configured token bucket to the request: Key decides
// how the bucket key is derived (spec.md §4.6 / config.RateLimitConfig.Key).
type RateLimitOpts struct {
	ServiceID    string
	Key          string // per_service | per_client_key | per_ip
	Capacity     float64
	RefillPerSec float64
}

func RateLimit(limiter ratelimit.Limiter, resolver clientip.Resolver, opts RateLimitOpts, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bucketKey(r, resolver, opts)

		dec, err := limiter.Allow(r.Context(), key, opts.Capacity, opts.RefillPerSec, 1)
		if err != nil {
			// Fail-open: a limiter-backend outage (e.g. Redis down) must not
			// take the whole gateway down with it.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", trimFloat(opts.Capacity))
		w.Header().Set("X-RateLimit-Remaining", trimFloat(dec.Remaining))

		if !dec.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfterSeconds))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bucketKey(r *http.Request, resolver clientip.Resolver, opts RateLimitOpts) string {
	var b strings.Builder
	b.WriteString("rl:")
	b.WriteString(opts.ServiceID)
	switch opts.Key {
	case "per_client_key":
		if sub, ok := reqctx.Principal(r.Context()); ok && sub != "" {
			b.WriteString(":k:")
			b.WriteString(sub)
			return b.String()
		}
		fallthrough
	case "per_ip":
		b.WriteString(":ip:")
		b.WriteString(resolver.ClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-Ip")))
	default: // per_service
	}
	return b.String()
}

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		s = "0"
	}
	return s
}
