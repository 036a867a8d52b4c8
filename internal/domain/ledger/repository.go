package ledger

import (
	"context"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChartOfAccountRepository persists chart accounts
type ChartOfAccountRepository interface {
	Save(ctx context.Context, account *ChartOfAccount) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ChartOfAccount, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ChartOfAccount, error)
	FindByClient(ctx context.Context, tenantID, clientID uuid.UUID) (*ChartOfAccount, error)
	// FindReceivables returns the active per-client receivable accounts,
	// the resolution pool for statement descriptions.
	FindReceivables(ctx context.Context, tenantID uuid.UUID) ([]*ChartOfAccount, error)
	List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*ChartOfAccount], error)
}

// MatchRuleRepository persists learned match rules.
// Lookups by pattern are on the hot path of every reconciliation run;
// implementations sit behind a cache.
type MatchRuleRepository interface {
	Save(ctx context.Context, rule *MatchRule) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*MatchRule, error)
	FindByPattern(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*MatchRule, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*MatchRule, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
