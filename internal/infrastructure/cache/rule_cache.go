// Package cache provides caching for learned match rules. Rule lookups by
// normalized pattern run once per bank transaction on every reconciliation
// pass, so they sit behind a cache with a short TTL instead of hitting the
// database each time.
package cache

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// RuleCache caches match rules keyed by tenant and normalized pattern.
// Get returns (nil, nil) on a cache miss.
type RuleCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error)
	Set(ctx context.Context, rule *ledger.MatchRule, ttl time.Duration) error
	Delete(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) error
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error
	Close() error
}
