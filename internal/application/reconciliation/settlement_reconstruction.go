package reconciliation

import (
	"context"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// ReconstructionSource says how a settlement reconstruction was derived
type ReconstructionSource string

const (
	// ReconstructionFromTrace means the invoices carry a settlement trace
	// pointing at the transaction.
	ReconstructionFromTrace ReconstructionSource = "SETTLEMENT_TRACE"
	// ReconstructionFromCombination means the invoices were recovered by
	// rerunning the combination matcher over invoices paid on the
	// transaction date.
	ReconstructionFromCombination ReconstructionSource = "AMOUNT_COMBINATION"
)

// ReconstructionResult lists the invoices one settled credit covers
type ReconstructionResult struct {
	TransactionID uuid.UUID            `json:"transaction_id"`
	Source        ReconstructionSource `json:"source"`
	InvoiceIDs    []uuid.UUID          `json:"invoice_ids,omitempty"`
	// Exact is true when the listed invoices cover the credit to the cent
	Exact bool `json:"exact"`
}

// ReconstructSettlement explains which invoices a consolidated credit
// covers. For a transaction matched by this engine the settlement trace on
// the invoices is authoritative; for credits whose invoices were settled
// by hand or imported as history it reruns the combination matcher over
// the invoices paid on the transaction date.
func (s *ReconcileService) ReconstructSettlement(ctx context.Context, tenantID, transactionID uuid.UUID) (*ReconstructionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconstruct_settlement")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrTransactionID, transactionID.String(),
	)

	tx, err := s.txRepo.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	traced, err := s.invoiceRepo.FindBySettlementTransaction(ctx, tenantID, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(traced) > 0 {
		return &ReconstructionResult{
			TransactionID: transactionID,
			Source:        ReconstructionFromTrace,
			InvoiceIDs:    invoiceIDsOf(traced),
			Exact:         sumCents(traced) == tx.AmountCents(),
		}, nil
	}

	settled, err := s.selector.SelectSettledByDate(ctx, tenantID, tx.TransactionDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result := &ReconstructionResult{
		TransactionID: transactionID,
		Source:        ReconstructionFromCombination,
	}
	if combined, found := s.searchCombination(ctx, tx.AmountCents(), settled); found {
		result.InvoiceIDs = invoiceIDsOf(combined)
		result.Exact = true
	}
	return result, nil
}

func invoiceIDsOf(invoices []*billing.Invoice) []uuid.UUID {
	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.GetID()
	}
	return ids
}
