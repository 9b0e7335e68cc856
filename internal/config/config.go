// Package config loads and validates the gateway's static YAML
// configuration: the listener address and the service table (middlewares,
// upstream set, load-balancer policy, timeout, concurrency cap, breaker).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hyperapi/gateway/internal/netx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen         string           `yaml:"listen"`
	TrustedProxies []string         `yaml:"trusted_proxies"`
	RateLimit      RateLimitBackend `yaml:"rate_limit"`
	Services       []ServiceConfig  `yaml:"services"`
}

type RateLimitBackend struct {
	Backend string      `yaml:"backend"` // "memory" (default) | "redis"
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServiceConfig struct {
	ID             string               `yaml:"id"`
	Prefix         string               `yaml:"prefix"`
	StripPrefix    string               `yaml:"strip_prefix"`
	Middlewares    []MiddlewareSpec     `yaml:"middlewares"`
	Upstreams      []UpstreamConfig     `yaml:"upstreams"`
	LB             string               `yaml:"lb"` // random | hash | least_conn | latency
	TimeoutMS      int                  `yaml:"timeout_ms"`
	TimeoutStatus  int                  `yaml:"timeout_status"` // 504 (default) or 502 (legacy)
	MaxConcurrent  int                  `yaml:"max_concurrent"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type UpstreamConfig struct {
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Weight int    `yaml:"weight"`
}

type CircuitBreakerConfig struct {
	Threshold     int     `yaml:"threshold"`
	RetryDelaySec float64 `yaml:"retry_delay_sec"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8888"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	for i := range cfg.Services {
		s := &cfg.Services[i]
		if s.StripPrefix == "" {
			s.StripPrefix = s.Prefix
		}
		if s.LB == "" {
			s.LB = "random"
		}
		if s.TimeoutMS == 0 {
			s.TimeoutMS = 3000
		}
		if s.TimeoutStatus == 0 {
			s.TimeoutStatus = 504
		}
		for j := range s.Upstreams {
			if s.Upstreams[j].Weight == 0 {
				s.Upstreams[j].Weight = 1
			}
		}
		if s.CircuitBreaker.Threshold == 0 {
			s.CircuitBreaker.Threshold = 3
		}
		if s.CircuitBreaker.RetryDelaySec == 0 {
			s.CircuitBreaker.RetryDelaySec = 3
		}
	}
}

func Validate(cfg *Config) error {
	if len(cfg.Services) == 0 {
		return fmt.Errorf("no services configured")
	}
	if _, err := netx.ParseCIDRSet(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	seen := map[string]struct{}{}
	validLB := map[string]struct{}{"random": {}, "hash": {}, "least_conn": {}, "latency": {}}

	for i, s := range cfg.Services {
		idx := fmt.Sprintf("services[%d]", i)
		name := strings.TrimSpace(s.ID)
		if name == "" {
			return fmt.Errorf("%s.id is required", idx)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate service id: %q", name)
		}
		seen[name] = struct{}{}

		if s.Prefix == "" || !strings.HasPrefix(s.Prefix, "/") {
			return fmt.Errorf("%s.prefix must start with '/'", idx)
		}
		if len(s.Upstreams) == 0 {
			return fmt.Errorf("%s must declare at least one upstream", idx)
		}
		upIDs := map[string]struct{}{}
		for j, u := range s.Upstreams {
			if u.ID == "" {
				return fmt.Errorf("%s.upstreams[%d].id is required", idx, j)
			}
			if _, dup := upIDs[u.ID]; dup {
				return fmt.Errorf("%s has duplicate upstream id %q", idx, u.ID)
			}
			upIDs[u.ID] = struct{}{}
			if u.URL == "" {
				return fmt.Errorf("%s.upstreams[%d].url is required", idx, j)
			}
			if _, err := url.Parse(u.URL); err != nil {
				return fmt.Errorf("%s.upstreams[%d].url invalid: %v", idx, j, err)
			}
			if u.Weight < 0 {
				return fmt.Errorf("%s.upstreams[%d].weight cannot be negative", idx, j)
			}
		}
		if _, ok := validLB[s.LB]; !ok {
			return fmt.Errorf("%s.lb must be one of random|hash|least_conn|latency", idx)
		}
		if s.TimeoutStatus != 502 && s.TimeoutStatus != 504 {
			return fmt.Errorf("%s.timeout_status must be 502 or 504", idx)
		}
		if s.MaxConcurrent < 0 {
			return fmt.Errorf("%s.max_concurrent cannot be negative", idx)
		}
		if s.CircuitBreaker.Threshold <= 0 {
			return fmt.Errorf("%s.circuit_breaker.threshold must be > 0", idx)
		}
		if s.CircuitBreaker.RetryDelaySec <= 0 {
			return fmt.Errorf("%s.circuit_breaker.retry_delay_sec must be > 0", idx)
		}
		for j, m := range s.Middlewares {
			if err := m.validate(); err != nil {
				return fmt.Errorf("%s.middlewares[%d]: %w", idx, j, err)
			}
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	if backend != "memory" && backend != "redis" {
		return fmt.Errorf("rate_limit.backend must be 'memory' or 'redis'")
	}
	if backend == "redis" && strings.TrimSpace(cfg.RateLimit.Redis.Addr) == "" {
		return fmt.Errorf("rate_limit.redis.addr is required when backend is redis")
	}
	return nil
}
