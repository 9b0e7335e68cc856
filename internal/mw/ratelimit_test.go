package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperapi/gateway/internal/clientip"
	"github.com/hyperapi/gateway/internal/ratelimit"
	"github.com/hyperapi/gateway/internal/reqctx"
)

func TestRateLimit_RejectsWhenBucketDrained(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter()
	defer lim.Close()
	opts := RateLimitOpts{ServiceID: "svc", Key: "per_service", Capacity: 1, RefillPerSec: 0.001}

	handler := RateLimit(lim, clientip.Resolver{}, opts, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on rate-limited response")
	}
}

func TestRateLimit_PerClientKeyScopesSeparately(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter()
	defer lim.Close()
	opts := RateLimitOpts{ServiceID: "svc", Key: "per_client_key", Capacity: 1, RefillPerSec: 0.001}
	handler := RateLimit(lim, clientip.Resolver{}, opts, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, sub := range []string{"alice", "bob"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(reqctx.WithPrincipal(r.Context(), sub))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("principal %q expected its own bucket, got %d", sub, w.Code)
		}
	}
}
