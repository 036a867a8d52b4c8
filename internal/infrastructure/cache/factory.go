package cache

import (
	"time"

	"go.uber.org/zap"
)

// RuleCacheFactory builds the rule cache backend for the deployment.
// Redis is preferred so instances share learned rules; when it is
// unreachable the factory degrades to the in-memory cache instead of
// failing startup.
type RuleCacheFactory struct {
	redisConfig RedisConfig
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRuleCacheFactory creates a factory for rule caches
func NewRuleCacheFactory(redisConfig RedisConfig, ttl time.Duration, logger *zap.Logger) *RuleCacheFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultRuleTTL
	}
	return &RuleCacheFactory{
		redisConfig: redisConfig,
		ttl:         ttl,
		logger:      logger,
	}
}

// CreateRuleCache returns a tiered Redis-backed cache when Redis is
// reachable, otherwise a standalone in-memory cache
func (f *RuleCacheFactory) CreateRuleCache() RuleCache {
	remote, err := NewRedisRuleCache(f.redisConfig,
		WithRedisTTL(f.ttl),
		WithRedisLogger(f.logger))
	if err != nil {
		f.logger.Warn("Redis unavailable, using in-memory rule cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
			zap.Error(err))
		return NewInMemoryRuleCache(
			WithInMemoryTTL(f.ttl),
			WithInMemoryLogger(f.logger))
	}

	f.logger.Info("Using tiered rule cache",
		zap.String("host", f.redisConfig.Host),
		zap.Int("port", f.redisConfig.Port),
		zap.Duration("ttl", f.ttl))

	local := NewInMemoryRuleCache(
		WithInMemoryTTL(f.ttl),
		WithInMemoryLogger(f.logger))
	return NewTieredRuleCache(local, remote, WithTieredLogger(f.logger))
}
