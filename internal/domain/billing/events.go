package billing

import (
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for the billing context
const (
	EventTypeInvoiceCreated            = "billing.invoice.created"
	EventTypeInvoiceSettled            = "billing.invoice.settled"
	EventTypeInvoiceSettlementReversed = "billing.invoice.settlement_reversed"
)

// InvoiceCreatedEvent is emitted when a new invoice is issued
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Competence    string          `json:"competence"`
}

// NewInvoiceCreatedEvent creates a new invoice created event
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", inv.GetID(), inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		Amount:          inv.Amount,
		DueDate:         inv.DueDate,
		Competence:      inv.Competence.String(),
	}
}

// InvoiceSettledEvent is emitted when an invoice is marked paid,
// whether by reconciliation, cascade or manual action
type InvoiceSettledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber          string           `json:"invoice_number"`
	ClientID               uuid.UUID        `json:"client_id"`
	Amount                 decimal.Decimal  `json:"amount"`
	PaidDate               time.Time        `json:"paid_date"`
	Origin                 SettlementOrigin `json:"origin"`
	SettledByTransactionID *uuid.UUID       `json:"settled_by_transaction_id,omitempty"`
	CascadeOriginInvoiceID *uuid.UUID       `json:"cascade_origin_invoice_id,omitempty"`
}

// NewInvoiceSettledEvent creates a new invoice settled event
func NewInvoiceSettledEvent(inv *Invoice) *InvoiceSettledEvent {
	var paidDate time.Time
	if inv.PaidDate != nil {
		paidDate = *inv.PaidDate
	}
	return &InvoiceSettledEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeInvoiceSettled, "Invoice", inv.GetID(), inv.TenantID),
		InvoiceNumber:          inv.InvoiceNumber,
		ClientID:               inv.ClientID,
		Amount:                 inv.Amount,
		PaidDate:               paidDate,
		Origin:                 inv.SettlementOrigin,
		SettledByTransactionID: inv.SettledByTransactionID,
		CascadeOriginInvoiceID: inv.CascadeOriginInvoiceID,
	}
}

// InvoiceSettlementReversedEvent is emitted when a settlement is undone
type InvoiceSettlementReversedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber         string     `json:"invoice_number"`
	ClientID              uuid.UUID  `json:"client_id"`
	PreviousTransactionID *uuid.UUID `json:"previous_transaction_id,omitempty"`
	Reason                string     `json:"reason"`
}

// NewInvoiceSettlementReversedEvent creates a new settlement reversed event
func NewInvoiceSettlementReversedEvent(inv *Invoice, previousTransactionID *uuid.UUID, reason string) *InvoiceSettlementReversedEvent {
	return &InvoiceSettlementReversedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypeInvoiceSettlementReversed, "Invoice", inv.GetID(), inv.TenantID),
		InvoiceNumber:         inv.InvoiceNumber,
		ClientID:              inv.ClientID,
		PreviousTransactionID: previousTransactionID,
		Reason:                reason,
	}
}
