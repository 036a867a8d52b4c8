package billing

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ClientFilter holds query options for client lookups
type ClientFilter struct {
	shared.Filter
	Name            string
	Document        string
	DocumentType    DocumentType
	EconomicGroupID *uuid.UUID
	ActiveOnly      bool
}

// ClientRepository persists Client aggregates
type ClientRepository interface {
	Save(ctx context.Context, client *Client) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)
	FindByDocument(ctx context.Context, tenantID uuid.UUID, document string) (*Client, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Client, error)
	FindByGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]*Client, error)
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]*Client, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ClientFilter) (shared.Paginated[*Client], error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// EconomicGroupRepository persists EconomicGroup aggregates
type EconomicGroupRepository interface {
	Save(ctx context.Context, group *EconomicGroup) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*EconomicGroup, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*EconomicGroup, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// InvoiceFilter holds query options for invoice lookups
type InvoiceFilter struct {
	shared.Filter
	ClientID    *uuid.UUID
	Statuses    []InvoiceStatus
	Competence  *valueobject.Competence
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	OverdueAt   *time.Time
}

// InvoiceRepository persists Invoice aggregates.
//
// SaveWithLock persists with an optimistic version check and returns
// shared.ErrConcurrencyConflict when another writer claimed the invoice
// first; reconciliation relies on this to avoid double settlement.
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Invoice, error)
	FindByClient(ctx context.Context, tenantID, clientID uuid.UUID, filter InvoiceFilter) (shared.Paginated[*Invoice], error)
	// FindOpenByDueDate returns settleable invoices (PENDING or PARTIAL)
	// with the exact due date, for candidate selection.
	FindOpenByDueDate(ctx context.Context, tenantID uuid.UUID, dueDate time.Time) ([]*Invoice, error)
	// FindOpenByInvoiceNumber returns the settleable invoice carrying the
	// exact invoice number, for COB billing-code correlation.
	FindOpenByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*Invoice, error)
	// FindOpenByClientsAndCompetence returns settleable invoices of the
	// given clients for one billing period, for the group payment cascade.
	FindOpenByClientsAndCompetence(ctx context.Context, tenantID uuid.UUID, clientIDs []uuid.UUID, competence valueobject.Competence) ([]*Invoice, error)
	// FindPaidByPaidDate returns invoices marked paid on the given calendar
	// day, for consolidated-receipt reconstruction.
	FindPaidByPaidDate(ctx context.Context, tenantID uuid.UUID, paidDate time.Time) ([]*Invoice, error)
	// FindBySettlementTransaction returns the invoices whose settlement
	// trace points at the given bank transaction.
	FindBySettlementTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (shared.Paginated[*Invoice], error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
