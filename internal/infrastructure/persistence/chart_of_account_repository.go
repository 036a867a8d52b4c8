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

// GormChartOfAccountRepository implements ledger.ChartOfAccountRepository using GORM
type GormChartOfAccountRepository struct {
	db *gorm.DB
}

// NewGormChartOfAccountRepository creates a new GormChartOfAccountRepository
func NewGormChartOfAccountRepository(db *gorm.DB) *GormChartOfAccountRepository {
	return &GormChartOfAccountRepository{db: db}
}

// Save creates or updates a chart account
func (r *GormChartOfAccountRepository) Save(ctx context.Context, account *ledger.ChartOfAccount) error {
	model := models.ChartOfAccountModelFromDomain(account)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a chart account by ID within a tenant
func (r *GormChartOfAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.ChartOfAccount, error) {
	var model models.ChartOfAccountModel
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

// FindByCode finds a chart account by its dot-separated code
func (r *GormChartOfAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.ChartOfAccount, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	var model models.ChartOfAccountModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClient finds the receivable account attached to a client
func (r *GormChartOfAccountRepository) FindByClient(ctx context.Context, tenantID, clientID uuid.UUID) (*ledger.ChartOfAccount, error) {
	var model models.ChartOfAccountModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindReceivables returns the active per-client receivable accounts
func (r *GormChartOfAccountRepository) FindReceivables(ctx context.Context, tenantID uuid.UUID) ([]*ledger.ChartOfAccount, error) {
	var accountModels []models.ChartOfAccountModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND active = ? AND client_id IS NOT NULL AND code LIKE ?",
			tenantID, true, ledger.ReceivableAccountPrefix+".%").
		Order("code ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return accountModelsToDomain(accountModels), nil
}

// List returns a page of chart accounts
func (r *GormChartOfAccountRepository) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.ChartOfAccount], error) {
	buildQuery := func() *gorm.DB {
		return dbFromContext(ctx, r.db).WithContext(ctx).
			Model(&models.ChartOfAccountModel{}).
			Where("tenant_id = ?", tenantID)
	}

	var total int64
	if err := buildQuery().Count(&total).Error; err != nil {
		return shared.Paginated[*ledger.ChartOfAccount]{}, err
	}

	query := applySort(buildQuery(), filter, ChartOfAccountSortFields, "code")
	query = applyPagination(query, filter)

	var accountModels []models.ChartOfAccountModel
	if err := query.Find(&accountModels).Error; err != nil {
		return shared.Paginated[*ledger.ChartOfAccount]{}, err
	}

	return shared.NewPaginated(accountModelsToDomain(accountModels), total, filter.Page, filter.PageSize), nil
}

func accountModelsToDomain(accountModels []models.ChartOfAccountModel) []*ledger.ChartOfAccount {
	accounts := make([]*ledger.ChartOfAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts
}

// Ensure GormChartOfAccountRepository implements ledger.ChartOfAccountRepository
var _ ledger.ChartOfAccountRepository = (*GormChartOfAccountRepository)(nil)
