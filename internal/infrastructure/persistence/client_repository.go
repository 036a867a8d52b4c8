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

// GormClientRepository implements billing.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *billing.Client) error {
	model := models.ClientModelFromDomain(client)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a client by ID within a tenant
func (r *GormClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Client, error) {
	var model models.ClientModel
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

// FindByDocument finds a client by its normalized fiscal document
func (r *GormClientRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, document string) (*billing.Client, error) {
	normalized := billing.NormalizeDocument(document)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document cannot be empty")
	}
	var model models.ClientModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND document = ?", tenantID, normalized).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple clients by their IDs
func (r *GormClientRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*billing.Client, error) {
	if len(ids) == 0 {
		return []*billing.Client{}, nil
	}

	var clientModels []models.ClientModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&clientModels).Error; err != nil {
		return nil, err
	}
	return clientModelsToDomain(clientModels), nil
}

// FindByGroup finds the clients belonging to an economic group
func (r *GormClientRepository) FindByGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]*billing.Client, error) {
	var clientModels []models.ClientModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND economic_group_id = ?", tenantID, groupID).
		Order("name ASC").
		Find(&clientModels).Error; err != nil {
		return nil, err
	}
	return clientModelsToDomain(clientModels), nil
}

// FindActive finds all active clients for a tenant
func (r *GormClientRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*billing.Client, error) {
	var clientModels []models.ClientModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("name ASC").
		Find(&clientModels).Error; err != nil {
		return nil, err
	}
	return clientModelsToDomain(clientModels), nil
}

// List returns a page of clients matching the filter
func (r *GormClientRepository) List(ctx context.Context, tenantID uuid.UUID, filter billing.ClientFilter) (shared.Paginated[*billing.Client], error) {
	buildQuery := func() *gorm.DB {
		query := dbFromContext(ctx, r.db).WithContext(ctx).
			Model(&models.ClientModel{}).
			Where("tenant_id = ?", tenantID)
		return r.applyClientFilter(query, filter)
	}

	var total int64
	if err := buildQuery().Count(&total).Error; err != nil {
		return shared.Paginated[*billing.Client]{}, err
	}

	query := applySort(buildQuery(), filter.Filter, ClientSortFields, "name")
	query = applyPagination(query, filter.Filter)

	var clientModels []models.ClientModel
	if err := query.Find(&clientModels).Error; err != nil {
		return shared.Paginated[*billing.Client]{}, err
	}

	return shared.NewPaginated(clientModelsToDomain(clientModels), total, filter.Page, filter.PageSize), nil
}

// Delete deletes a client within a tenant
func (r *GormClientRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.ClientModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormClientRepository) applyClientFilter(query *gorm.DB, filter billing.ClientFilter) *gorm.DB {
	if filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Document != "" {
		query = query.Where("document = ?", billing.NormalizeDocument(filter.Document))
	}
	if filter.DocumentType != "" {
		query = query.Where("document_type = ?", filter.DocumentType)
	}
	if filter.EconomicGroupID != nil {
		query = query.Where("economic_group_id = ?", *filter.EconomicGroupID)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	return query
}

func clientModelsToDomain(clientModels []models.ClientModel) []*billing.Client {
	clients := make([]*billing.Client, len(clientModels))
	for i := range clientModels {
		clients[i] = clientModels[i].ToDomain()
	}
	return clients
}

// applySort orders the query by the whitelisted sort field of the filter
func applySort(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.SortBy, allowedFields, defaultField)
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	return query.Order(field + " " + direction)
}

// applyPagination applies the filter's page window to the query
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}

// Ensure GormClientRepository implements billing.ClientRepository
var _ billing.ClientRepository = (*GormClientRepository)(nil)
