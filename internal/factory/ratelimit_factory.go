package factory

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/ratelimit"
)

// RateLimiterFactory creates rate limiters based on configuration
type RateLimiterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRateLimiterFactory creates a new rate limiter factory
func NewRateLimiterFactory(cfg *config.Config, logger *zap.Logger) *RateLimiterFactory {
	return &RateLimiterFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRateLimiter creates a rate limiter based on the configuration
func (f *RateLimiterFactory) CreateRateLimiter() (core.RateLimiter, error) {
	limiterType := f.cfg.GetString("ratelimit.type")

	switch limiterType {
	case "memory":
		return ratelimit.NewMemoryLimiter(f.logger), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     f.cfg.GetString("ratelimit.redis_addr"),
			Password: f.cfg.GetString("ratelimit.redis_password"),
			DB:       f.cfg.GetInt("ratelimit.redis_db"),
		})
		return ratelimit.NewRedisLimiter(rdb, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter type: %s", limiterType)
	}
}
