package persistence

import (
	"context"

	"github.com/contaflow/backend/internal/domain/billing"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantStats answers the cross-tenant questions asked by the batch
// scheduler and the periodic metrics collector: which tenants exist and
// how deep their work queues are. Tenancy is implicit in this schema, so
// the active tenant set is derived from the client registry.
type GormTenantStats struct {
	db *gorm.DB
}

// NewGormTenantStats creates a new GormTenantStats
func NewGormTenantStats(db *gorm.DB) *GormTenantStats {
	return &GormTenantStats{db: db}
}

// GetActiveTenantIDs returns the tenants with at least one active client
func (s *GormTenantStats) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Where("active = ?", true).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// GetPendingSuggestionCount returns how many transactions await review
func (s *GormTenantStats) GetPendingSuggestionCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, domain.MatchStatusSuggested).
		Count(&count).Error
	return count, err
}

// GetOpenInvoiceCount returns how many invoices are not fully paid
func (s *GormTenantStats) GetOpenInvoiceCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND status <> ?", tenantID, billing.InvoiceStatusPaid).
		Count(&count).Error
	return count, err
}
