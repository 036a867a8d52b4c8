package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankTransactionRepository implements reconciliation.BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// Save creates or updates a bank transaction
func (r *GormBankTransactionRepository) Save(ctx context.Context, transaction *reconciliation.BankTransaction) error {
	model := models.BankTransactionModelFromDomain(transaction)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock updates a transaction only when the stored version still
// equals expectedVersion. Two passes racing to match the same transaction
// resolve here: the loser gets shared.ErrConcurrencyConflict.
func (r *GormBankTransactionRepository) SaveWithLock(ctx context.Context, transaction *reconciliation.BankTransaction, expectedVersion int) error {
	model := models.BankTransactionModelFromDomain(transaction)
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(model).
		Where("id = ? AND tenant_id = ? AND version = ?", transaction.ID, transaction.TenantID, expectedVersion).
		Select("*").
		Omit("id", "tenant_id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a bank transaction by ID within a tenant
func (r *GormBankTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.BankTransaction, error) {
	var model models.BankTransactionModel
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

// FindUnmatchedCredits returns credit transactions still awaiting a match
// with transaction dates inside [from, to]
func (r *GormBankTransactionRepository) FindUnmatchedCredits(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*reconciliation.BankTransaction, error) {
	windowStart, _ := dayBounds(from)
	_, windowEnd := dayBounds(to)

	var transactionModels []models.BankTransactionModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND amount > 0 AND transaction_date >= ? AND transaction_date < ?",
			tenantID, reconciliation.MatchStatusUnmatched, windowStart, windowEnd).
		Order("transaction_date ASC, created_at ASC").
		Find(&transactionModels).Error; err != nil {
		return nil, err
	}
	return transactionModelsToDomain(transactionModels), nil
}

// FindSuggested returns a page of transactions awaiting human review
func (r *GormBankTransactionRepository) FindSuggested(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*reconciliation.BankTransaction], error) {
	buildQuery := func() *gorm.DB {
		return dbFromContext(ctx, r.db).WithContext(ctx).
			Model(&models.BankTransactionModel{}).
			Where("tenant_id = ? AND status = ?", tenantID, reconciliation.MatchStatusSuggested)
	}

	var total int64
	if err := buildQuery().Count(&total).Error; err != nil {
		return shared.Paginated[*reconciliation.BankTransaction]{}, err
	}

	query := applySort(buildQuery(), filter, BankTransactionSortFields, "transaction_date")
	query = applyPagination(query, filter)

	var transactionModels []models.BankTransactionModel
	if err := query.Find(&transactionModels).Error; err != nil {
		return shared.Paginated[*reconciliation.BankTransaction]{}, err
	}

	return shared.NewPaginated(transactionModelsToDomain(transactionModels), total, filter.Page, filter.PageSize), nil
}

// List returns a page of transactions matching the filter
func (r *GormBankTransactionRepository) List(ctx context.Context, tenantID uuid.UUID, filter reconciliation.TransactionFilter) (shared.Paginated[*reconciliation.BankTransaction], error) {
	buildQuery := func() *gorm.DB {
		query := dbFromContext(ctx, r.db).WithContext(ctx).
			Model(&models.BankTransactionModel{}).
			Where("tenant_id = ?", tenantID)
		return r.applyTransactionFilter(query, filter)
	}

	var total int64
	if err := buildQuery().Count(&total).Error; err != nil {
		return shared.Paginated[*reconciliation.BankTransaction]{}, err
	}

	query := applySort(buildQuery(), filter.Filter, BankTransactionSortFields, "transaction_date")
	query = applyPagination(query, filter.Filter)

	var transactionModels []models.BankTransactionModel
	if err := query.Find(&transactionModels).Error; err != nil {
		return shared.Paginated[*reconciliation.BankTransaction]{}, err
	}

	return shared.NewPaginated(transactionModelsToDomain(transactionModels), total, filter.Page, filter.PageSize), nil
}

func (r *GormBankTransactionRepository) applyTransactionFilter(query *gorm.DB, filter reconciliation.TransactionFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreditsOnly {
		query = query.Where("amount > 0")
	}
	if filter.DateFrom != nil {
		dayStart, _ := dayBounds(*filter.DateFrom)
		query = query.Where("transaction_date >= ?", dayStart)
	}
	if filter.DateTo != nil {
		_, dayEnd := dayBounds(*filter.DateTo)
		query = query.Where("transaction_date < ?", dayEnd)
	}
	return query
}

func transactionModelsToDomain(transactionModels []models.BankTransactionModel) []*reconciliation.BankTransaction {
	transactions := make([]*reconciliation.BankTransaction, len(transactionModels))
	for i := range transactionModels {
		transactions[i] = transactionModels[i].ToDomain()
	}
	return transactions
}

// Ensure GormBankTransactionRepository implements reconciliation.BankTransactionRepository
var _ reconciliation.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
