package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
listen: 127.0.0.1:8888
rate_limit:
  backend: memory
services:
  - id: mws
    prefix: /mws
    middlewares:
      - type: header_rewrite
        request_remove: [Authorization]
        request_add: {X-TEST: test-header}
      - type: acl
        allow_prefixes: ["/mws/api"]
      - type: appkey
        header: X-APP-KEY
        keys: ["9cf3319cbd254202cf882a79a755ba6e"]
      - type: ratelimit
        capacity: 10
        refill_per_sec: 1.67
        key: per_service
    upstreams:
      - id: "11"
        url: http://127.0.0.1:9001
        weight: 10
      - id: "12"
        url: http://127.0.0.1:9002
        weight: 1
    lb: random
    timeout_ms: 3000
    max_concurrent: 10
    circuit_breaker: {threshold: 3, retry_delay_sec: 3}
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(cfg.Services))
	}
	svc := cfg.Services[0]
	if svc.StripPrefix != "/mws" {
		t.Fatalf("expected default strip_prefix to equal prefix, got %q", svc.StripPrefix)
	}
	if len(svc.Middlewares) != 4 {
		t.Fatalf("expected 4 middlewares, got %d", len(svc.Middlewares))
	}
	if svc.Middlewares[2].AppKey == nil || svc.Middlewares[2].AppKey.Header != "X-APP-KEY" {
		t.Fatalf("expected appkey middleware decoded, got %#v", svc.Middlewares[2])
	}
}

func TestValidateRejectsMissingUpstream(t *testing.T) {
	bad := `
listen: 127.0.0.1:8888
services:
  - id: a
    prefix: /a
    upstreams: []
    lb: random
    circuit_breaker: {threshold: 1, retry_delay_sec: 1}
`
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for service with no upstreams")
	}
}

func TestValidateRejectsUnknownLB(t *testing.T) {
	bad := `
services:
  - id: a
    prefix: /a
    upstreams: [{id: "1", url: "http://x", weight: 1}]
    lb: round_robin
`
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown lb policy")
	}
}
