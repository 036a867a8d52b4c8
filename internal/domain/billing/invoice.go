package billing

import (
	"fmt"
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the stored status of an invoice.
// Overdue is a derived condition (due date in the past while not paid),
// never stored; use IsOverdueAt.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanSettle returns true if the invoice can still be settled in this status
func (s InvoiceStatus) CanSettle() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartial
}

// SettlementOrigin records which actor marked an invoice as paid
type SettlementOrigin string

const (
	SettlementOriginReconciliation SettlementOrigin = "RECONCILIATION" // matched to a bank transaction
	SettlementOriginCascade        SettlementOrigin = "CASCADE"        // propagated from a group sibling
	SettlementOriginManual         SettlementOrigin = "MANUAL"         // human action outside reconciliation
)

// IsValid checks if the settlement origin is valid
func (o SettlementOrigin) IsValid() bool {
	switch o {
	case SettlementOriginReconciliation, SettlementOriginCascade, SettlementOriginManual:
		return true
	}
	return false
}

// Invoice is a monthly service invoice belonging to exactly one client.
// The competence names the billing period, which is independent of the
// due date (a March competence can be due in April).
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string                 `json:"invoice_number"`
	ClientID      uuid.UUID              `json:"client_id"`
	ClientName    string                 `json:"client_name"`
	Amount        decimal.Decimal        `json:"amount"`
	PaidAmount    decimal.Decimal        `json:"paid_amount"`
	DueDate       time.Time              `json:"due_date"`
	Competence    valueobject.Competence `json:"competence"`
	Status        InvoiceStatus          `json:"status"`
	PaidDate      *time.Time             `json:"paid_date"`
	// Settlement trace: which transaction and path marked this invoice paid.
	SettledByTransactionID *uuid.UUID       `json:"settled_by_transaction_id"`
	SettlementOrigin       SettlementOrigin `json:"settlement_origin"`
	CascadeOriginInvoiceID *uuid.UUID       `json:"cascade_origin_invoice_id"`
}

// NewInvoice creates a new pending invoice
func NewInvoice(
	tenantID uuid.UUID,
	invoiceNumber string,
	clientID uuid.UUID,
	clientName string,
	amount valueobject.Money,
	dueDate time.Time,
	competence valueobject.Competence,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if clientName == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT_NAME", "Client name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if competence.IsZero() {
		return nil, shared.NewDomainError("INVALID_COMPETENCE", "Invoice competence is required")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		ClientID:            clientID,
		ClientName:          clientName,
		Amount:              amount.Amount().Round(2),
		PaidAmount:          decimal.Zero,
		DueDate:             dueDate,
		Competence:          competence,
		Status:              InvoiceStatusPending,
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Settle marks the invoice fully paid as a consequence of reconciliation
// or a manual action. Cascade settlement uses SettleViaCascade instead.
func (inv *Invoice) Settle(paidDate time.Time, transactionID *uuid.UUID, origin SettlementOrigin) error {
	if !inv.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot settle invoice in %s status", inv.Status))
	}
	if origin == SettlementOriginCascade {
		return shared.NewDomainError("INVALID_ORIGIN", "Use SettleViaCascade for cascade settlements")
	}
	if !origin.IsValid() {
		return shared.NewDomainError("INVALID_ORIGIN", "Unknown settlement origin")
	}
	if origin == SettlementOriginReconciliation && (transactionID == nil || *transactionID == uuid.Nil) {
		return shared.NewDomainError("INVALID_TRANSACTION", "Reconciliation settlement requires a transaction ID")
	}

	inv.Status = InvoiceStatusPaid
	inv.PaidAmount = inv.Amount
	inv.PaidDate = &paidDate
	inv.SettledByTransactionID = transactionID
	inv.SettlementOrigin = origin
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSettledEvent(inv))
	return nil
}

// SettleViaCascade marks the invoice paid because a sibling invoice of the
// same economic group and competence was settled. The paid date is copied
// from the originating settlement so all members share it.
func (inv *Invoice) SettleViaCascade(paidDate time.Time, originInvoiceID uuid.UUID) error {
	if !inv.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cascade-settle invoice in %s status", inv.Status))
	}
	if originInvoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORIGIN", "Cascade settlement requires the origin invoice ID")
	}

	inv.Status = InvoiceStatusPaid
	inv.PaidAmount = inv.Amount
	inv.PaidDate = &paidDate
	inv.SettlementOrigin = SettlementOriginCascade
	inv.CascadeOriginInvoiceID = &originInvoiceID
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSettledEvent(inv))
	return nil
}

// ApplyPartialPayment records a payment smaller than the outstanding amount
func (inv *Invoice) ApplyPartialPayment(amount valueobject.Money) error {
	if !inv.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	outstanding := inv.Amount.Sub(inv.PaidAmount)
	if amount.Amount().GreaterThanOrEqual(outstanding) {
		return shared.NewDomainError("NOT_PARTIAL",
			"Payment covers the outstanding amount; use Settle instead")
	}

	inv.PaidAmount = inv.PaidAmount.Add(amount.Amount())
	inv.Status = InvoiceStatusPartial
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// ReverseSettlement undoes a settlement, returning the invoice to PENDING.
// Reversal never cascades to group siblings; operators reverse each
// invoice explicitly.
func (inv *Invoice) ReverseSettlement(reason string) error {
	if inv.Status != InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reverse settlement of invoice in %s status", inv.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	previousTransactionID := inv.SettledByTransactionID

	inv.Status = InvoiceStatusPending
	inv.PaidAmount = decimal.Zero
	inv.PaidDate = nil
	inv.SettledByTransactionID = nil
	inv.SettlementOrigin = ""
	inv.CascadeOriginInvoiceID = nil
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSettlementReversedEvent(inv, previousTransactionID, reason))
	return nil
}

// IsOverdueAt returns true when the invoice is unpaid past its due date.
// The comparison is by calendar day, not instant.
func (inv *Invoice) IsOverdueAt(at time.Time) bool {
	if inv.Status == InvoiceStatusPaid {
		return false
	}
	due := time.Date(inv.DueDate.Year(), inv.DueDate.Month(), inv.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	ref := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(ref)
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// OutstandingAmount returns the amount still due
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	return inv.Amount.Sub(inv.PaidAmount)
}

// GetAmountMoney returns the invoice amount as Money
func (inv *Invoice) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(inv.Amount)
}
