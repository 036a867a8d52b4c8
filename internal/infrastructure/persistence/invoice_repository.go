package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// settleableStatuses are the stored statuses an invoice can be settled from
var settleableStatuses = []billing.InvoiceStatus{
	billing.InvoiceStatusPending,
	billing.InvoiceStatusPartial,
}

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock updates an invoice only when the stored version still equals
// expectedVersion. Returns shared.ErrConcurrencyConflict when another writer
// claimed the invoice first.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice, expectedVersion int) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(model).
		Where("id = ? AND tenant_id = ? AND version = ?", invoice.ID, invoice.TenantID, expectedVersion).
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

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
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

// FindByIDs finds multiple invoices by their IDs
func (r *GormInvoiceRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*billing.Invoice, error) {
	if len(ids) == 0 {
		return []*billing.Invoice{}, nil
	}

	var invoiceModels []models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// FindByClient returns a page of one client's invoices matching the filter
func (r *GormInvoiceRepository) FindByClient(ctx context.Context, tenantID, clientID uuid.UUID, filter billing.InvoiceFilter) (shared.Paginated[*billing.Invoice], error) {
	filter.ClientID = &clientID
	return r.List(ctx, tenantID, filter)
}

// FindOpenByDueDate returns settleable invoices due on the given calendar day
func (r *GormInvoiceRepository) FindOpenByDueDate(ctx context.Context, tenantID uuid.UUID, dueDate time.Time) ([]*billing.Invoice, error) {
	dayStart, dayEnd := dayBounds(dueDate)

	var invoiceModels []models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND due_date >= ? AND due_date < ?",
			tenantID, settleableStatuses, dayStart, dayEnd).
		Order("due_date ASC, invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// FindOpenByClientsAndCompetence returns settleable invoices of the given
// clients for one billing period
func (r *GormInvoiceRepository) FindOpenByClientsAndCompetence(ctx context.Context, tenantID uuid.UUID, clientIDs []uuid.UUID, competence valueobject.Competence) ([]*billing.Invoice, error) {
	if len(clientIDs) == 0 {
		return []*billing.Invoice{}, nil
	}

	var invoiceModels []models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND client_id IN ? AND competence = ?",
			tenantID, settleableStatuses, clientIDs, competence).
		Order("invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// FindOpenByInvoiceNumber returns the settleable invoice carrying the
// exact invoice number
func (r *GormInvoiceRepository) FindOpenByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND invoice_number = ?",
			tenantID, settleableStatuses, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPaidByPaidDate returns invoices marked paid on the given calendar day
func (r *GormInvoiceRepository) FindPaidByPaidDate(ctx context.Context, tenantID uuid.UUID, paidDate time.Time) ([]*billing.Invoice, error) {
	dayStart, dayEnd := dayBounds(paidDate)

	var invoiceModels []models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND paid_date >= ? AND paid_date < ?",
			tenantID, billing.InvoiceStatusPaid, dayStart, dayEnd).
		Order("invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// FindBySettlementTransaction returns the invoices settled by a bank transaction
func (r *GormInvoiceRepository) FindBySettlementTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND settled_by_transaction_id = ?", tenantID, transactionID).
		Order("invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// List returns a page of invoices matching the filter
func (r *GormInvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (shared.Paginated[*billing.Invoice], error) {
	buildQuery := func() *gorm.DB {
		query := dbFromContext(ctx, r.db).WithContext(ctx).
			Model(&models.InvoiceModel{}).
			Where("tenant_id = ?", tenantID)
		return r.applyInvoiceFilter(query, filter)
	}

	var total int64
	if err := buildQuery().Count(&total).Error; err != nil {
		return shared.Paginated[*billing.Invoice]{}, err
	}

	query := applySort(buildQuery(), filter.Filter, InvoiceSortFields, "due_date")
	query = applyPagination(query, filter.Filter)

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return shared.Paginated[*billing.Invoice]{}, err
	}

	return shared.NewPaginated(invoiceModelsToDomain(invoiceModels), total, filter.Page, filter.PageSize), nil
}

// Delete deletes an invoice within a tenant
func (r *GormInvoiceRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.InvoiceModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Competence != nil {
		query = query.Where("competence = ?", *filter.Competence)
	}
	if filter.DueDateFrom != nil {
		dayStart, _ := dayBounds(*filter.DueDateFrom)
		query = query.Where("due_date >= ?", dayStart)
	}
	if filter.DueDateTo != nil {
		_, dayEnd := dayBounds(*filter.DueDateTo)
		query = query.Where("due_date < ?", dayEnd)
	}
	if filter.OverdueAt != nil {
		dayStart, _ := dayBounds(*filter.OverdueAt)
		query = query.Where("status IN ? AND due_date < ?", settleableStatuses, dayStart)
	}
	return query
}

func invoiceModelsToDomain(invoiceModels []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices
}

// dayBounds returns the UTC [start, end) window of the calendar day of t
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Ensure GormInvoiceRepository implements billing.InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
