package cache

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredRuleCache layers a local in-memory cache (L1) over Redis (L2).
// Reads try L1 first and backfill it on an L2 hit; writes and
// invalidations go to both layers. L1 keeps the hot rules of the
// current reconciliation run off the network entirely.
type TieredRuleCache struct {
	local  *InMemoryRuleCache
	remote *RedisRuleCache
	// localTTL bounds how long a backfilled entry may outlive an
	// invalidation issued by another instance
	localTTL time.Duration
	logger   *zap.Logger
}

// TieredRuleCacheOption is a functional option for configuring the cache
type TieredRuleCacheOption func(*TieredRuleCache)

// WithTieredLocalTTL sets the TTL used for L1 backfill entries
func WithTieredLocalTTL(ttl time.Duration) TieredRuleCacheOption {
	return func(c *TieredRuleCache) {
		if ttl > 0 {
			c.localTTL = ttl
		}
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredRuleCacheOption {
	return func(c *TieredRuleCache) {
		c.logger = logger
	}
}

// NewTieredRuleCache creates a two-level rule cache
func NewTieredRuleCache(local *InMemoryRuleCache, remote *RedisRuleCache, opts ...TieredRuleCacheOption) *TieredRuleCache {
	cache := &TieredRuleCache{
		local:    local,
		remote:   remote,
		localTTL: time.Minute,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get retrieves a rule, trying the local layer before Redis.
// Returns (nil, nil) when neither layer holds the rule.
func (c *TieredRuleCache) Get(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error) {
	rule, err := c.local.Get(ctx, tenantID, normalizedPattern)
	if err == nil && rule != nil {
		return rule, nil
	}

	rule, err = c.remote.Get(ctx, tenantID, normalizedPattern)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, nil
	}

	// Backfill L1 with a short TTL so cross-instance invalidations
	// still take effect promptly
	if err := c.local.Set(ctx, rule, c.localTTL); err != nil {
		c.logger.Warn("Failed to backfill local rule cache",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
	}

	return rule, nil
}

// Set stores a rule in both layers
func (c *TieredRuleCache) Set(ctx context.Context, rule *ledger.MatchRule, ttl time.Duration) error {
	if err := c.remote.Set(ctx, rule, ttl); err != nil {
		return err
	}

	localTTL := c.localTTL
	if ttl > 0 && ttl < localTTL {
		localTTL = ttl
	}
	return c.local.Set(ctx, rule, localTTL)
}

// Delete removes one rule from both layers
func (c *TieredRuleCache) Delete(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) error {
	if err := c.local.Delete(ctx, tenantID, normalizedPattern); err != nil {
		return err
	}
	return c.remote.Delete(ctx, tenantID, normalizedPattern)
}

// InvalidateTenant removes every cached rule of a tenant from both layers
func (c *TieredRuleCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.local.InvalidateTenant(ctx, tenantID); err != nil {
		return err
	}
	return c.remote.InvalidateTenant(ctx, tenantID)
}

// Close releases both layers
func (c *TieredRuleCache) Close() error {
	localErr := c.local.Close()
	remoteErr := c.remote.Close()
	if remoteErr != nil {
		return remoteErr
	}
	return localErr
}

// Ensure TieredRuleCache implements RuleCache
var _ RuleCache = (*TieredRuleCache)(nil)
