package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
	defaultRuleTTL         = 5 * time.Minute
)

// InMemoryRuleCache implements RuleCache using in-memory storage.
// It can stand alone for single-instance deployments or serve as the
// L1 layer of a TieredRuleCache.
type InMemoryRuleCache struct {
	rules      sync.Map // map[string]*ruleCacheEntry
	defaultTTL time.Duration
	logger     *zap.Logger
	stopCh     chan struct{}
	stopped    int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// ruleCacheEntry wraps a cached rule with expiration time
type ruleCacheEntry struct {
	rule      *ledger.MatchRule
	expiresAt time.Time
}

func (e *ruleCacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryRuleCacheOption is a functional option for configuring the cache
type InMemoryRuleCacheOption func(*InMemoryRuleCache)

// WithInMemoryTTL sets the default entry TTL
func WithInMemoryTTL(ttl time.Duration) InMemoryRuleCacheOption {
	return func(c *InMemoryRuleCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryRuleCacheOption {
	return func(c *InMemoryRuleCache) {
		c.logger = logger
	}
}

// NewInMemoryRuleCache creates a new in-memory rule cache
func NewInMemoryRuleCache(opts ...InMemoryRuleCacheOption) *InMemoryRuleCache {
	cache := &InMemoryRuleCache{
		defaultTTL: defaultRuleTTL,
		logger:     zap.NewNop(),
		stopCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// ruleCacheKey generates the cache key for a tenant's pattern
func ruleCacheKey(tenantID uuid.UUID, normalizedPattern string) string {
	return "match_rule:" + tenantID.String() + ":" + normalizedPattern
}

// tenantKeyPrefix is the key prefix shared by all of a tenant's rules
func tenantKeyPrefix(tenantID uuid.UUID) string {
	return "match_rule:" + tenantID.String() + ":"
}

// Get retrieves a rule from cache. Returns (nil, nil) on a miss.
func (c *InMemoryRuleCache) Get(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error) {
	cacheKey := ruleCacheKey(tenantID, normalizedPattern)

	if value, ok := c.rules.Load(cacheKey); ok {
		entry := value.(*ruleCacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Rule cache hit", zap.String("pattern", normalizedPattern))
			return entry.rule, nil
		}
		c.rules.Delete(cacheKey)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Rule cache miss", zap.String("pattern", normalizedPattern))
	return nil, nil
}

// Set stores a rule in cache
func (c *InMemoryRuleCache) Set(ctx context.Context, rule *ledger.MatchRule, ttl time.Duration) error {
	if rule == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cacheKey := ruleCacheKey(rule.TenantID, rule.NormalizedPattern)
	c.rules.Store(cacheKey, &ruleCacheEntry{
		rule:      rule,
		expiresAt: time.Now().Add(ttl),
	})

	c.logger.Debug("Cached rule",
		zap.String("pattern", rule.NormalizedPattern),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes one rule from cache
func (c *InMemoryRuleCache) Delete(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) error {
	c.rules.Delete(ruleCacheKey(tenantID, normalizedPattern))
	return nil
}

// InvalidateTenant removes every cached rule of a tenant
func (c *InMemoryRuleCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	prefix := tenantKeyPrefix(tenantID)
	removed := 0

	c.rules.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.rules.Delete(key)
			removed++
		}
		return true
	})

	c.logger.Debug("Invalidated tenant rule cache",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("removed", removed))
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRuleCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryRuleCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryRuleCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *InMemoryRuleCache) doCleanup() {
	removed := 0
	c.rules.Range(func(key, value any) bool {
		if value.(*ruleCacheEntry).isExpired() {
			c.rules.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired rule cache entries", zap.Int("removed", removed))
	}
}

// Ensure InMemoryRuleCache implements RuleCache
var _ RuleCache = (*InMemoryRuleCache)(nil)
