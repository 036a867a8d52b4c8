package persistence

import (
	"context"
	"errors"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEconomicGroupRepository implements billing.EconomicGroupRepository using GORM
type GormEconomicGroupRepository struct {
	db *gorm.DB
}

// NewGormEconomicGroupRepository creates a new GormEconomicGroupRepository
func NewGormEconomicGroupRepository(db *gorm.DB) *GormEconomicGroupRepository {
	return &GormEconomicGroupRepository{db: db}
}

// Save creates or updates an economic group
func (r *GormEconomicGroupRepository) Save(ctx context.Context, group *billing.EconomicGroup) error {
	model := models.EconomicGroupModelFromDomain(group)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds an economic group by ID within a tenant
func (r *GormEconomicGroupRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.EconomicGroup, error) {
	var model models.EconomicGroupModel
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

// FindAll returns every economic group of the tenant
func (r *GormEconomicGroupRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*billing.EconomicGroup, error) {
	var groupModels []models.EconomicGroupModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&groupModels).Error; err != nil {
		return nil, err
	}

	groups := make([]*billing.EconomicGroup, len(groupModels))
	for i := range groupModels {
		groups[i] = groupModels[i].ToDomain()
	}
	return groups, nil
}

// Delete deletes an economic group within a tenant
func (r *GormEconomicGroupRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.EconomicGroupModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormEconomicGroupRepository implements billing.EconomicGroupRepository
var _ billing.EconomicGroupRepository = (*GormEconomicGroupRepository)(nil)
