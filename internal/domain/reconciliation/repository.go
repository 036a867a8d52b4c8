package reconciliation

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionFilter holds query options for transaction lookups
type TransactionFilter struct {
	shared.Filter
	Statuses    []MatchStatus
	CreditsOnly bool
	DateFrom    *time.Time
	DateTo      *time.Time
}

// BankTransactionRepository persists BankTransaction aggregates.
// SaveWithLock enforces the optimistic version check; two passes racing
// to match the same transaction resolve through shared.ErrConcurrencyConflict.
type BankTransactionRepository interface {
	Save(ctx context.Context, transaction *BankTransaction) error
	SaveWithLock(ctx context.Context, transaction *BankTransaction, expectedVersion int) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)
	// FindUnmatchedCredits returns credit transactions still awaiting a
	// match with transaction dates inside [from, to], the working set of
	// a batch run.
	FindUnmatchedCredits(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*BankTransaction, error)
	FindSuggested(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*BankTransaction], error)
	List(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) (shared.Paginated[*BankTransaction], error)
}

// SettlementEntryService is the accounting-entries collaborator. The
// engine asks for settlement entries as opaque operations and never
// constructs debit/credit bookkeeping itself.
type SettlementEntryService interface {
	CreateSettlementEntries(ctx context.Context, tenantID, invoiceID, transactionID uuid.UUID) error
	DeleteSettlementEntries(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}

// AdvisoryService optionally produces a natural-language explanation of a
// consolidation decision. It is consulted after the deterministic outcome
// is fixed and must never alter or block it.
type AdvisoryService interface {
	ExplainConsolidation(ctx context.Context, tenantID uuid.UUID, transaction *BankTransaction, invoiceIDs []uuid.UUID) (string, error)
}
