package reconciliation

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// CandidateSelector produces the bounded set of invoices eligible to
// explain one transaction. Date filtering here is what keeps the
// combination search tractable.
type CandidateSelector struct {
	invoiceRepo billing.InvoiceRepository
	options     Options
}

// NewCandidateSelector creates a new CandidateSelector
func NewCandidateSelector(invoiceRepo billing.InvoiceRepository, options Options) *CandidateSelector {
	return &CandidateSelector{
		invoiceRepo: invoiceRepo,
		options:     options.normalized(),
	}
}

// SelectByDate returns open invoices due exactly on the target date; only
// when that yields nothing does it fall back day by day to the prior
// calendar days, covering next-business-day bank settlement. Candidates
// are restricted to positive amounts.
func (s *CandidateSelector) SelectByDate(ctx context.Context, tenantID uuid.UUID, targetDate time.Time) ([]*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "candidate_selector", "select_by_date")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	day := truncateToDay(targetDate)
	for offset := 0; offset <= s.options.DateFallbackDays; offset++ {
		invoices, err := s.invoiceRepo.FindOpenByDueDate(ctx, tenantID, day.AddDate(0, 0, -offset))
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if candidates := positiveAmounts(invoices); len(candidates) > 0 {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrCandidates, len(candidates),
				"date_offset", offset,
			)
			return candidates, nil
		}
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCandidates, 0)
	return nil, nil
}

// SelectByClientAndDate narrows SelectByDate to a single client, used by
// the identifier passes where the payer is already known.
func (s *CandidateSelector) SelectByClientAndDate(ctx context.Context, tenantID, clientID uuid.UUID, targetDate time.Time) ([]*billing.Invoice, error) {
	day := truncateToDay(targetDate)
	for offset := 0; offset <= s.options.DateFallbackDays; offset++ {
		invoices, err := s.invoiceRepo.FindOpenByDueDate(ctx, tenantID, day.AddDate(0, 0, -offset))
		if err != nil {
			return nil, err
		}
		filtered := make([]*billing.Invoice, 0, len(invoices))
		for _, inv := range positiveAmounts(invoices) {
			if inv.ClientID == clientID {
				filtered = append(filtered, inv)
			}
		}
		if len(filtered) > 0 {
			return filtered, nil
		}
	}
	return nil, nil
}

// SelectSettledByDate returns invoices already marked paid on the target
// day. This is the candidate set for reconstructing which invoices a
// consolidated receipt covered when no settlement trace exists.
func (s *CandidateSelector) SelectSettledByDate(ctx context.Context, tenantID uuid.UUID, targetDate time.Time) ([]*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "candidate_selector", "select_settled_by_date")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	invoices, err := s.invoiceRepo.FindPaidByPaidDate(ctx, tenantID, truncateToDay(targetDate))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	candidates := positiveAmounts(invoices)
	telemetry.SetAttributes(span, telemetry.SpanAttrCandidates, len(candidates))
	return candidates, nil
}

func positiveAmounts(invoices []*billing.Invoice) []*billing.Invoice {
	candidates := make([]*billing.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Amount.IsPositive() {
			candidates = append(candidates, inv)
		}
	}
	return candidates
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
