package persistence

import (
	"context"
	"errors"
	"time"

	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BankClearingAccountCode is the asset account statement credits land on.
// Every settlement debits it against the client's receivable account.
const BankClearingAccountCode = "1.1.1.01"

// GormSettlementEntryService writes the double-entry pair backing an
// invoice settlement. It participates in the caller's unit of work, so a
// failed settlement leaves no orphan bookkeeping rows.
type GormSettlementEntryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormSettlementEntryService creates a new GormSettlementEntryService
func NewGormSettlementEntryService(db *gorm.DB, logger *zap.Logger) *GormSettlementEntryService {
	return &GormSettlementEntryService{db: db, logger: logger}
}

// CreateSettlementEntries records the debit/credit pair for a settled
// invoice: bank clearing debited, client receivable credited, both for
// the full invoice amount.
func (s *GormSettlementEntryService) CreateSettlementEntries(ctx context.Context, tenantID, invoiceID, transactionID uuid.UUID) error {
	db := dbFromContext(ctx, s.db).WithContext(ctx)

	var invoice models.InvoiceModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, invoiceID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}

	var receivable models.ChartOfAccountModel
	if err := db.Where("tenant_id = ? AND client_id = ?", tenantID, invoice.ClientID).First(&receivable).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewDomainError("MISSING_RECEIVABLE_ACCOUNT",
				"Client has no receivable account to settle against")
		}
		return err
	}

	entryDate := time.Now()
	if invoice.PaidDate != nil {
		entryDate = *invoice.PaidDate
	}
	now := time.Now()

	entries := []models.SettlementEntryModel{
		{
			ID:            uuid.New(),
			TenantID:      tenantID,
			InvoiceID:     invoiceID,
			TransactionID: transactionID,
			AccountCode:   BankClearingAccountCode,
			Direction:     models.EntryDirectionDebit,
			Amount:        invoice.Amount,
			EntryDate:     entryDate,
			CreatedAt:     now,
		},
		{
			ID:            uuid.New(),
			TenantID:      tenantID,
			InvoiceID:     invoiceID,
			TransactionID: transactionID,
			AccountCode:   receivable.Code,
			Direction:     models.EntryDirectionCredit,
			Amount:        invoice.Amount,
			EntryDate:     entryDate,
			CreatedAt:     now,
		},
	}
	if err := db.Create(&entries).Error; err != nil {
		return err
	}

	s.logger.Debug("settlement entries created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("receivable_code", receivable.Code))
	return nil
}

// DeleteSettlementEntries removes the bookkeeping rows of an invoice,
// used when a match is reversed
func (s *GormSettlementEntryService) DeleteSettlementEntries(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return dbFromContext(ctx, s.db).WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Delete(&models.SettlementEntryModel{}).Error
}

// Ensure GormSettlementEntryService implements the domain contract
var _ domain.SettlementEntryService = (*GormSettlementEntryService)(nil)
