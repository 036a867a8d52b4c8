package cache

import (
	"context"
	"errors"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CachedMatchRuleRepository decorates a MatchRuleRepository with a
// RuleCache on the pattern-lookup path. Cache failures never fail the
// request; they are logged and the call falls through to the database.
type CachedMatchRuleRepository struct {
	inner  ledger.MatchRuleRepository
	cache  RuleCache
	ttl    time.Duration
	logger *zap.Logger
}

// CachedMatchRuleRepositoryOption is a functional option for the decorator
type CachedMatchRuleRepositoryOption func(*CachedMatchRuleRepository)

// WithCacheTTL sets the TTL for cached rules
func WithCacheTTL(ttl time.Duration) CachedMatchRuleRepositoryOption {
	return func(r *CachedMatchRuleRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for the decorator
func WithCacheLogger(logger *zap.Logger) CachedMatchRuleRepositoryOption {
	return func(r *CachedMatchRuleRepository) {
		r.logger = logger
	}
}

// NewCachedMatchRuleRepository wraps a repository with rule caching
func NewCachedMatchRuleRepository(inner ledger.MatchRuleRepository, cache RuleCache, opts ...CachedMatchRuleRepositoryOption) *CachedMatchRuleRepository {
	repo := &CachedMatchRuleRepository{
		inner:  inner,
		cache:  cache,
		ttl:    defaultRuleTTL,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

// Save persists the rule and refreshes its cache entry
func (r *CachedMatchRuleRepository) Save(ctx context.Context, rule *ledger.MatchRule) error {
	if err := r.inner.Save(ctx, rule); err != nil {
		return err
	}

	if err := r.cache.Set(ctx, rule, r.ttl); err != nil {
		r.logger.Warn("Failed to cache saved match rule",
			zap.String("pattern", rule.NormalizedPattern),
			zap.Error(err))
	}
	return nil
}

// FindByID delegates to the underlying repository. ID lookups are rare
// and not worth a second cache index.
func (r *CachedMatchRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.MatchRule, error) {
	return r.inner.FindByID(ctx, tenantID, id)
}

// FindByPattern checks the cache before hitting the database.
// Only found rules are cached; misses fall through every time so a
// rule learned on another instance becomes visible immediately.
func (r *CachedMatchRuleRepository) FindByPattern(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error) {
	cached, err := r.cache.Get(ctx, tenantID, normalizedPattern)
	if err != nil {
		r.logger.Warn("Rule cache lookup failed, falling back to database",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	rule, err := r.inner.FindByPattern(ctx, tenantID, normalizedPattern)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, rule, r.ttl); err != nil {
		r.logger.Warn("Failed to cache match rule",
			zap.String("pattern", normalizedPattern),
			zap.Error(err))
	}
	return rule, nil
}

// FindAll delegates to the underlying repository
func (r *CachedMatchRuleRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*ledger.MatchRule, error) {
	return r.inner.FindAll(ctx, tenantID)
}

// Delete removes the rule and evicts its cache entry
func (r *CachedMatchRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	// Resolve the pattern first; after the delete it is gone
	rule, err := r.inner.FindByID(ctx, tenantID, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if err := r.inner.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	if rule != nil {
		if err := r.cache.Delete(ctx, tenantID, rule.NormalizedPattern); err != nil {
			r.logger.Warn("Failed to evict deleted match rule from cache",
				zap.String("pattern", rule.NormalizedPattern),
				zap.Error(err))
		}
	}
	return nil
}

// Ensure CachedMatchRuleRepository implements MatchRuleRepository
var _ ledger.MatchRuleRepository = (*CachedMatchRuleRepository)(nil)
