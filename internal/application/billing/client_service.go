// Package billing holds the application services behind the client,
// invoice and economic-group HTTP surfaces. The reconciliation engine
// consumes the same repositories; these services exist for the
// operator-facing CRUD flows.
package billing

import (
	"context"

	domain "github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateClientInput carries the fields for registering a client
type CreateClientInput struct {
	Name       string
	Document   string
	MonthlyFee decimal.Decimal
	PaymentDay int
	QSANames   []string
}

// UpdateClientInput carries optional field updates; nil means unchanged
type UpdateClientInput struct {
	Name       *string
	MonthlyFee *decimal.Decimal
	PaymentDay *int
	QSANames   *[]string
	Active     *bool
}

// ClientService manages the client registry. Registering a client also
// creates its receivable chart account, the anchor the reconciliation
// engine resolves payer names against.
type ClientService struct {
	clientRepo  domain.ClientRepository
	accountRepo ledger.ChartOfAccountRepository
	uow         shared.UnitOfWork
	logger      *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(
	clientRepo domain.ClientRepository,
	accountRepo ledger.ChartOfAccountRepository,
	uow shared.UnitOfWork,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		clientRepo:  clientRepo,
		accountRepo: accountRepo,
		uow:         uow,
		logger:      logger,
	}
}

// Create registers a client and its receivable account in one transaction
func (s *ClientService) Create(ctx context.Context, tenantID uuid.UUID, input CreateClientInput) (*domain.Client, error) {
	normalized := domain.NormalizeDocument(input.Document)
	if normalized != "" {
		existing, err := s.clientRepo.FindByDocument(ctx, tenantID, normalized)
		if err != nil && !shared.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			return nil, shared.NewDomainError("DOCUMENT_IN_USE", "Another client already holds this document")
		}
	}

	client, err := domain.NewClient(tenantID, input.Name, input.Document, input.MonthlyFee, input.PaymentDay)
	if err != nil {
		return nil, err
	}
	if len(input.QSANames) > 0 {
		client.SetQSANames(input.QSANames)
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.clientRepo.Save(ctx, client); err != nil {
			return err
		}

		account, err := ledger.NewClientReceivableAccount(
			tenantID, s.receivableCode(client), client.Name, client.GetID())
		if err != nil {
			return err
		}
		return s.accountRepo.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("client_id", client.GetID().String()))
	return client, nil
}

// receivableCode derives the client's receivable account code from a
// short stable suffix of its ID
func (s *ClientService) receivableCode(client *domain.Client) string {
	id := client.GetID().String()
	return ledger.ReceivableAccountPrefix + "." + id[:8]
}

// Get returns one client
func (s *ClientService) Get(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error) {
	return s.clientRepo.FindByID(ctx, tenantID, clientID)
}

// List returns a page of clients
func (s *ClientService) List(ctx context.Context, tenantID uuid.UUID, filter domain.ClientFilter) (shared.Paginated[*domain.Client], error) {
	return s.clientRepo.List(ctx, tenantID, filter)
}

// Update applies partial changes to a client
func (s *ClientService) Update(ctx context.Context, tenantID, clientID uuid.UUID, input UpdateClientInput) (*domain.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
		}
		client.Name = *input.Name
		client.IncrementVersion()
	}
	if input.MonthlyFee != nil {
		if input.MonthlyFee.IsNegative() {
			return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
		}
		client.MonthlyFee = *input.MonthlyFee
		client.IncrementVersion()
	}
	if input.PaymentDay != nil {
		if err := client.SetPaymentDay(*input.PaymentDay); err != nil {
			return nil, err
		}
	}
	if input.QSANames != nil {
		client.SetQSANames(*input.QSANames)
	}
	if input.Active != nil {
		client.Active = *input.Active
		client.IncrementVersion()
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client from the registry. Clients still bound to an
// economic group must leave the group first.
func (s *ClientService) Delete(ctx context.Context, tenantID, clientID uuid.UUID) error {
	client, err := s.clientRepo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		return err
	}
	if client.InGroup() {
		return shared.NewDomainError("INVALID_STATE", "Remove the client from its economic group before deleting it")
	}
	return s.clientRepo.Delete(ctx, tenantID, clientID)
}
