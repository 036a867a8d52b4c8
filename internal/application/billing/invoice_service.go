package billing

import (
	"context"
	"time"

	domain "github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateInvoiceInput carries the fields for issuing an invoice
type CreateInvoiceInput struct {
	InvoiceNumber string
	ClientID      uuid.UUID
	Amount        decimal.Decimal
	DueDate       time.Time
	Competence    valueobject.Competence
}

// InvoiceService manages invoice issuance and manual settlement. The
// reconciliation engine settles invoices on its own path; this service
// covers the operator flows outside it.
type InvoiceService struct {
	invoiceRepo domain.InvoiceRepository
	clientRepo  domain.ClientRepository
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo domain.InvoiceRepository,
	clientRepo domain.ClientRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		logger:      logger,
	}
}

// Create issues a pending invoice for a client. The denormalized client
// name is captured at issuance so matching never joins back to the
// registry.
func (s *InvoiceService) Create(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceInput) (*domain.Invoice, error) {
	client, err := s.clientRepo.FindByID(ctx, tenantID, input.ClientID)
	if err != nil {
		return nil, err
	}

	invoice, err := domain.NewInvoice(
		tenantID,
		input.InvoiceNumber,
		client.GetID(),
		client.Name,
		valueobject.NewMoneyBRL(input.Amount),
		input.DueDate,
		input.Competence,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoice.GetID().String()),
		zap.String("competence", invoice.Competence.String()))
	return invoice, nil
}

// Get returns one invoice
func (s *InvoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, tenantID, invoiceID)
}

// List returns a page of invoices
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter domain.InvoiceFilter) (shared.Paginated[*domain.Invoice], error) {
	return s.invoiceRepo.List(ctx, tenantID, filter)
}

// SettleManually marks an invoice paid outside reconciliation, with an
// optimistic lock against a concurrent engine pass claiming it.
func (s *InvoiceService) SettleManually(ctx context.Context, tenantID, invoiceID uuid.UUID, paidDate time.Time) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	loadedVersion := invoice.GetVersion()
	if err := invoice.Settle(paidDate, nil, domain.SettlementOriginManual); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice, loadedVersion); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Delete removes an invoice. Settled invoices must be reversed first so
// the ledger trail stays intact.
func (s *InvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if invoice.IsPaid() {
		return shared.NewDomainError("INVALID_STATE", "Reverse the settlement before deleting a paid invoice")
	}
	return s.invoiceRepo.Delete(ctx, tenantID, invoiceID)
}
