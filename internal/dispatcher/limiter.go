package dispatcher

import (
	"fmt"

	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/ratelimit"
	"github.com/redis/go-redis/v9"
)

func newLimiter(cfg config.RateLimitBackend) (ratelimit.Limiter, error) {
	switch cfg.Backend {
	case "", "memory":
		return ratelimit.NewMemoryLimiter(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return ratelimit.NewRedisLimiter(rdb), nil
	default:
		return nil, fmt.Errorf("unknown rate_limit.backend %q", cfg.Backend)
	}
}
