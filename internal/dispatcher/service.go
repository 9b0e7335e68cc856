package dispatcher

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hyperapi/gateway/internal/breaker"
	"github.com/hyperapi/gateway/internal/clientip"
	"github.com/hyperapi/gateway/internal/concurrency"
	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/lb"
	"github.com/hyperapi/gateway/internal/mw"
	"github.com/hyperapi/gateway/internal/ratelimit"
)

// ServiceRuntime is the live, wired form of a config.ServiceConfig: the
// upstream arena (spec.md §9's arena+id pattern), its load balancer, its
// concurrency gate, and its compiled middleware stage chain.
type ServiceRuntime struct {
	cfg           config.ServiceConfig
	upstreams     []*lb.Upstream
	balancer      lb.Balancer
	sem           *concurrency.Semaphore
	stages        []mw.Stage
	timeout       time.Duration
	timeoutStatus int
	client        *http.Client
}

func newServiceRuntime(cfg config.ServiceConfig, client *http.Client, limiter ratelimit.Limiter, resolver clientip.Resolver) (*ServiceRuntime, error) {
	sr := &ServiceRuntime{
		cfg:           cfg,
		timeout:       time.Duration(cfg.TimeoutMS) * time.Millisecond,
		timeoutStatus: cfg.TimeoutStatus,
		client:        client,
		sem:           concurrency.NewSemaphore(cfg.MaxConcurrent),
	}

	brCfg := breaker.Config{
		FailureThreshold: cfg.CircuitBreaker.Threshold,
		RetryDelay:       time.Duration(cfg.CircuitBreaker.RetryDelaySec * float64(time.Second)),
	}
	for _, u := range cfg.Upstreams {
		sr.upstreams = append(sr.upstreams, lb.NewUpstream(u.ID, u.URL, u.Weight, breaker.New(brCfg)))
	}
	sr.balancer = lb.New(cfg.LB)

	stages, err := buildStages(cfg, limiter, resolver)
	if err != nil {
		return nil, fmt.Errorf("service %q: %w", cfg.ID, err)
	}
	sr.stages = stages
	return sr, nil
}

// buildJWTStage picks one of the three mutually-exclusive jwt auth modes
// config.MiddlewareSpec.validate enforces: static PEM keys (default,
// ES256/RS256), a remote JWKS (RS256, matches the teacher's JWKSValidator),
// or a shared HMAC secret (HS256, matches the teacher's Authenticator).
func buildJWTStage(jc config.JWTConfig) (mw.Stage, error) {
	header := jc.Header
	if header == "" {
		header = "Authorization"
	}
	scheme := jc.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}

	switch {
	case jc.JWKSURL != "":
		v, err := mw.NewJWKSValidator(jc.JWKSURL, mw.JWKSValidatorOptions{
			Issuers:   jc.Issuers,
			Audiences: jc.Audiences,
		})
		if err != nil {
			return nil, err
		}
		return mw.JWKSStage(v, header, scheme), nil
	case jc.HMACSecret != "":
		a := mw.Authenticator{Mode: "hmac", HMACSecret: []byte(jc.HMACSecret)}
		return a.Stage(header, scheme), nil
	default:
		v, err := mw.NewJWTValidator(jc)
		if err != nil {
			return nil, err
		}
		return v.Stage, nil
	}
}

func buildStages(cfg config.ServiceConfig, limiter ratelimit.Limiter, resolver clientip.Resolver) ([]mw.Stage, error) {
	stages := make([]mw.Stage, 0, len(cfg.Middlewares))
	for _, spec := range cfg.Middlewares {
		spec := spec
		switch spec.Type {
		case "header_rewrite":
			hc := *spec.HeaderRewrite
			stages = append(stages, func(next http.Handler) http.Handler {
				return mw.HeaderRewrite(hc, next)
			})
		case "acl":
			ac := *spec.ACL
			stages = append(stages, func(next http.Handler) http.Handler {
				return mw.ACL(ac, next)
			})
		case "appkey":
			kc := *spec.AppKey
			stages = append(stages, func(next http.Handler) http.Handler {
				return mw.AppKey(kc, next)
			})
		case "jwt":
			stage, err := buildJWTStage(*spec.JWT)
			if err != nil {
				return nil, err
			}
			stages = append(stages, stage)
		case "ratelimit":
			rc := *spec.RateLimit
			opts := mw.RateLimitOpts{ServiceID: cfg.ID, Key: rc.Key, Capacity: rc.Capacity, RefillPerSec: rc.RefillPerSec}
			stages = append(stages, func(next http.Handler) http.Handler {
				return mw.RateLimit(limiter, resolver, opts, next)
			})
		default:
			return nil, fmt.Errorf("unknown middleware type %q", spec.Type)
		}
	}
	return stages, nil
}
