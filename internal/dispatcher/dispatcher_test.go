package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hyperapi/gateway/internal/config"
)

func newTestConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Listen: "127.0.0.1:0",
		Services: []config.ServiceConfig{
			{
				ID:          "users",
				Prefix:      "/api/users",
				StripPrefix: "/api/users",
				LB:          "random",
				Upstreams: []config.UpstreamConfig{
					{ID: "u1", URL: upstreamURL, Weight: 1},
				},
			},
		},
	}
}

func mustDispatcher(t *testing.T, cfg *config.Config) *Dispatcher {
	t.Helper()
	config_applyDefaultsForTest(cfg)
	d, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// config_applyDefaultsForTest mirrors config.applyDefaults (unexported) so
// dispatcher tests can build a Config by hand without going through YAML.
func config_applyDefaultsForTest(cfg *config.Config) {
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	for i := range cfg.Services {
		s := &cfg.Services[i]
		if s.TimeoutMS == 0 {
			s.TimeoutMS = 3000
		}
		if s.TimeoutStatus == 0 {
			s.TimeoutStatus = 504
		}
		if s.CircuitBreaker.Threshold == 0 {
			s.CircuitBreaker.Threshold = 3
		}
		if s.CircuitBreaker.RetryDelaySec == 0 {
			s.CircuitBreaker.RetryDelaySec = 3
		}
	}
}

func TestDispatcher_ProxiesAndStampsUpstreamId(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hello" {
			t.Errorf("expected stripped path /hello, got %q", r.URL.Path)
		}
		w.Header().Set("Server", "some-upstream/1.0")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	cfg := newTestConfig(upstream.URL)
	d := mustDispatcher(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/api/users/hello", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Upstream-Id") != "u1" {
		t.Fatalf("expected X-Upstream-Id=u1, got %q", w.Header().Get("X-Upstream-Id"))
	}
	if w.Header().Get("Powered-By") != "hyperapi" {
		t.Fatal("expected Powered-By: hyperapi on proxied response")
	}
	if w.Header().Get("Server") != "" {
		t.Fatal("expected upstream Server header stripped")
	}
}

func TestDispatcher_NoRouteOmitsUpstreamId(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:1")
	d := mustDispatcher(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w.Header().Get("X-Upstream-Id") != "" {
		t.Fatal("expected no X-Upstream-Id on a no-route response")
	}
	if w.Header().Get("Powered-By") != "hyperapi" {
		t.Fatal("expected Powered-By even on a short-circuit response")
	}
}

func TestDispatcher_ACLShortCircuitSkipsUpstream(t *testing.T) {
	called := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := newTestConfig(upstream.URL)
	cfg.Services[0].Middlewares = []config.MiddlewareSpec{
		{Type: "acl", ACL: &config.ACLConfig{AllowPrefixes: []string{"/api/users/public"}}},
	}
	d := mustDispatcher(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/api/users/private", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from ACL, got %d", w.Code)
	}
	if called {
		t.Fatal("expected no upstream call once ACL denies")
	}
	if w.Header().Get("X-Upstream-Id") != "" {
		t.Fatal("expected no X-Upstream-Id on an ACL short-circuit")
	}
}

func TestDispatcher_JWTHMACModeAuthenticatesRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := newTestConfig(upstream.URL)
	cfg.Services[0].Middlewares = []config.MiddlewareSpec{
		{Type: "jwt", JWT: &config.JWTConfig{HMACSecret: "shared-secret"}},
	}
	d := mustDispatcher(t, cfg)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/users/hello", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDispatcher_JWTHMACModeRejectsMissingToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := newTestConfig(upstream.URL)
	cfg.Services[0].Middlewares = []config.MiddlewareSpec{
		{Type: "jwt", JWT: &config.JWTConfig{HMACSecret: "shared-secret"}},
	}
	d := mustDispatcher(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/api/users/hello", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
