package reconciliation

import (
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for the reconciliation context
const (
	EventTypeTransactionSuggested     = "reconciliation.transaction.suggested"
	EventTypeTransactionMatched       = "reconciliation.transaction.matched"
	EventTypeTransactionMatchReversed = "reconciliation.transaction.match_reversed"
)

// TransactionSuggestedEvent is emitted when candidates await human review
type TransactionSuggestedEvent struct {
	shared.BaseDomainEvent
	Amount          decimal.Decimal `json:"amount"`
	SuggestionCount int             `json:"suggestion_count"`
	TopConfidence   int             `json:"top_confidence"`
}

// NewTransactionSuggestedEvent creates a new transaction suggested event
func NewTransactionSuggestedEvent(t *BankTransaction) *TransactionSuggestedEvent {
	top := 0
	if len(t.Suggestions) > 0 {
		top = t.Suggestions[0].Confidence
	}
	return &TransactionSuggestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionSuggested, "BankTransaction", t.GetID(), t.TenantID),
		Amount:          t.Amount,
		SuggestionCount: len(t.Suggestions),
		TopConfidence:   top,
	}
}

// TransactionMatchedEvent is emitted when a transaction is linked to its invoices
type TransactionMatchedEvent struct {
	shared.BaseDomainEvent
	Amount      decimal.Decimal      `json:"amount"`
	InvoiceIDs  []uuid.UUID          `json:"invoice_ids"`
	AutoMatched bool                 `json:"auto_matched"`
	Method      IdentificationMethod `json:"method"`
	Confidence  int                  `json:"confidence"`
}

// NewTransactionMatchedEvent creates a new transaction matched event
func NewTransactionMatchedEvent(t *BankTransaction) *TransactionMatchedEvent {
	return &TransactionMatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionMatched, "BankTransaction", t.GetID(), t.TenantID),
		Amount:          t.Amount,
		InvoiceIDs:      t.MatchedInvoiceIDs,
		AutoMatched:     t.AutoMatched,
		Method:          t.IdentificationMethod,
		Confidence:      t.IdentificationConfidence,
	}
}

// TransactionMatchReversedEvent is emitted when a match is undone
type TransactionMatchReversedEvent struct {
	shared.BaseDomainEvent
	PreviousInvoiceIDs []uuid.UUID `json:"previous_invoice_ids"`
	Reason             string      `json:"reason"`
}

// NewTransactionMatchReversedEvent creates a new match reversed event
func NewTransactionMatchReversedEvent(t *BankTransaction, previousInvoiceIDs []uuid.UUID, reason string) *TransactionMatchReversedEvent {
	return &TransactionMatchReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeTransactionMatchReversed, "BankTransaction", t.GetID(), t.TenantID),
		PreviousInvoiceIDs: previousInvoiceIDs,
		Reason:             reason,
	}
}
