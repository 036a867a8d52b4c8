package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100
)

// RedisConfig holds the connection settings for the rule cache backend
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisRuleCache implements RuleCache using Redis, shared across instances
type RedisRuleCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	defaultTTL time.Duration
	logger     *zap.Logger
}

// RedisRuleCacheOption is a functional option for configuring the cache
type RedisRuleCacheOption func(*RedisRuleCache)

// WithRedisTTL sets the default entry TTL
func WithRedisTTL(ttl time.Duration) RedisRuleCacheOption {
	return func(c *RedisRuleCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisRuleCacheOption {
	return func(c *RedisRuleCache) {
		c.logger = logger
	}
}

// NewRedisRuleCache creates a new Redis-based rule cache
func NewRedisRuleCache(cfg RedisConfig, opts ...RedisRuleCacheOption) (*RedisRuleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisRuleCache{
		client:     client,
		ownsClient: true,
		defaultTTL: defaultRuleTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisRuleCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisRuleCacheWithClient(client *redis.Client, opts ...RedisRuleCacheOption) *RedisRuleCache {
	cache := &RedisRuleCache{
		client:     client,
		ownsClient: false,
		defaultTTL: defaultRuleTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get retrieves a rule from cache. Returns (nil, nil) on a miss.
func (c *RedisRuleCache) Get(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error) {
	cacheKey := ruleCacheKey(tenantID, normalizedPattern)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Rule cache miss", zap.String("pattern", normalizedPattern))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get rule from cache",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get rule from cache: %w", err)
	}

	var rule ledger.MatchRule
	if err := json.Unmarshal(data, &rule); err != nil {
		c.logger.Error("Failed to unmarshal cached rule",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
		// Drop the corrupted entry so the next read repopulates it
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal rule: %w", err)
	}

	c.logger.Debug("Rule cache hit", zap.String("pattern", normalizedPattern))
	return &rule, nil
}

// Set stores a rule in cache
func (c *RedisRuleCache) Set(ctx context.Context, rule *ledger.MatchRule, ttl time.Duration) error {
	if rule == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cacheKey := ruleCacheKey(rule.TenantID, rule.NormalizedPattern)

	data, err := json.Marshal(rule)
	if err != nil {
		c.logger.Error("Failed to marshal rule",
			zap.String("pattern", rule.NormalizedPattern),
			zap.Error(err))
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set rule in cache",
			zap.String("pattern", rule.NormalizedPattern),
			zap.Error(err))
		return fmt.Errorf("failed to set rule in cache: %w", err)
	}

	c.logger.Debug("Cached rule",
		zap.String("pattern", rule.NormalizedPattern),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes one rule from cache
func (c *RedisRuleCache) Delete(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) error {
	cacheKey := ruleCacheKey(tenantID, normalizedPattern)

	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Error("Failed to delete rule from cache",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
		return fmt.Errorf("failed to delete rule from cache: %w", err)
	}
	return nil
}

// InvalidateTenant removes every cached rule of a tenant.
// Uses SCAN to avoid blocking Redis with the KEYS command.
func (c *RedisRuleCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	var cursor uint64
	var deletedCount int64
	pattern := tenantKeyPrefix(tenantID) + "*"

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan rule cache keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete rule cache keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Invalidated tenant rule cache",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases the Redis client when this cache owns it
func (c *RedisRuleCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisRuleCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisRuleCache implements RuleCache
var _ RuleCache = (*RedisRuleCache)(nil)
