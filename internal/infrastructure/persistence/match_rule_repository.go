package persistence

import (
	"context"
	"errors"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMatchRuleRepository implements ledger.MatchRuleRepository using GORM.
// Pattern lookups run on every reconciliation pass; callers on the hot path
// go through the cache layer instead of hitting this repository directly.
type GormMatchRuleRepository struct {
	db *gorm.DB
}

// NewGormMatchRuleRepository creates a new GormMatchRuleRepository
func NewGormMatchRuleRepository(db *gorm.DB) *GormMatchRuleRepository {
	return &GormMatchRuleRepository{db: db}
}

// Save creates or updates a match rule
func (r *GormMatchRuleRepository) Save(ctx context.Context, rule *ledger.MatchRule) error {
	model := models.MatchRuleModelFromDomain(rule)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a match rule by ID within a tenant
func (r *GormMatchRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.MatchRule, error) {
	var model models.MatchRuleModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPattern finds the rule learned for a normalized description
func (r *GormMatchRuleRepository) FindByPattern(ctx context.Context, tenantID uuid.UUID, normalizedPattern string) (*ledger.MatchRule, error) {
	if normalizedPattern == "" {
		return nil, shared.NewDomainError("INVALID_PATTERN", "Pattern cannot be empty")
	}
	var model models.MatchRuleModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND normalized_pattern = ?", tenantID, normalizedPattern).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every learned rule of the tenant
func (r *GormMatchRuleRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*ledger.MatchRule, error) {
	var ruleModels []models.MatchRuleModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("hit_count DESC, normalized_pattern ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}

	rules := make([]*ledger.MatchRule, len(ruleModels))
	for i := range ruleModels {
		rules[i] = ruleModels[i].ToDomain()
	}
	return rules, nil
}

// Delete deletes a match rule within a tenant
func (r *GormMatchRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.MatchRuleModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormMatchRuleRepository implements ledger.MatchRuleRepository
var _ ledger.MatchRuleRepository = (*GormMatchRuleRepository)(nil)
