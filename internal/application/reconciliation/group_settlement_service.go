package reconciliation

import (
	"context"
	"fmt"

	"github.com/contaflow/backend/internal/domain/billing"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupSettlementService propagates a settled invoice across its economic
// group: when one member's invoice for competence C is paid, every other
// member's open invoice for the same C is marked paid with the same date.
//
// The cascade is one-directional. Settlement propagates; reversal of the
// originating invoice does not, operators reverse cascaded invoices
// explicitly.
type GroupSettlementService struct {
	clientRepo  billing.ClientRepository
	groupRepo   billing.EconomicGroupRepository
	invoiceRepo billing.InvoiceRepository
	entries     domain.SettlementEntryService
	logger      *zap.Logger
}

// NewGroupSettlementService creates a new GroupSettlementService
func NewGroupSettlementService(
	clientRepo billing.ClientRepository,
	groupRepo billing.EconomicGroupRepository,
	invoiceRepo billing.InvoiceRepository,
	entries domain.SettlementEntryService,
	logger *zap.Logger,
) *GroupSettlementService {
	return &GroupSettlementService{
		clientRepo:  clientRepo,
		groupRepo:   groupRepo,
		invoiceRepo: invoiceRepo,
		entries:     entries,
		logger:      logger,
	}
}

// CascadeResult reports what one cascade touched
type CascadeResult struct {
	GroupID           uuid.UUID   `json:"group_id"`
	SettledInvoiceIDs []uuid.UUID `json:"settled_invoice_ids"`
}

// Cascade settles the sibling invoices of origin's competence. It returns
// nil, nil when the client is not in a group or no sibling invoices are
// open. Violated group invariants abort the cascade with
// ErrAmbiguousGroupState; the engine never guesses at an inconsistent
// group. Callers run this inside the settlement transaction.
func (s *GroupSettlementService) Cascade(ctx context.Context, tenantID uuid.UUID, origin *billing.Invoice, transactionID *uuid.UUID) (*CascadeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "group_settlement", "cascade")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, origin.GetID().String(),
		telemetry.SpanAttrCompetence, origin.Competence.String(),
	)

	if !origin.IsPaid() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cascade origin invoice is not paid")
	}
	if origin.PaidDate == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Cascade origin invoice has no paid date")
	}

	client, err := s.clientRepo.FindByID(ctx, tenantID, origin.ClientID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !client.InGroup() {
		return nil, nil
	}

	group, err := s.groupRepo.FindByID(ctx, tenantID, *client.EconomicGroupID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrGroupID, group.GetID().String())

	if err := s.checkInvariants(ctx, tenantID, group); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	siblings := make([]uuid.UUID, 0, len(group.Members))
	for _, memberID := range group.MemberIDs() {
		if memberID != origin.ClientID {
			siblings = append(siblings, memberID)
		}
	}
	if len(siblings) == 0 {
		return &CascadeResult{GroupID: group.GetID()}, nil
	}

	invoices, err := s.invoiceRepo.FindOpenByClientsAndCompetence(ctx, tenantID, siblings, origin.Competence)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &CascadeResult{GroupID: group.GetID()}
	for _, inv := range invoices {
		loadedVersion := inv.GetVersion()
		if err := inv.SettleViaCascade(*origin.PaidDate, origin.GetID()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, inv, loadedVersion); err != nil {
			if shared.IsConcurrencyConflict(err) {
				// another pass settled it first, nothing to propagate
				s.logger.Info("cascade skipped invoice claimed elsewhere",
					zap.String("invoice_id", inv.GetID().String()))
				continue
			}
			telemetry.RecordError(span, err)
			return nil, err
		}
		if transactionID != nil {
			if err := s.entries.CreateSettlementEntries(ctx, tenantID, inv.GetID(), *transactionID); err != nil {
				telemetry.RecordError(span, err)
				return nil, fmt.Errorf("settlement entries for cascaded invoice %s: %w", inv.GetID(), err)
			}
		}
		result.SettledInvoiceIDs = append(result.SettledInvoiceIDs, inv.GetID())
	}

	s.logger.Info("group cascade settled sibling invoices",
		zap.String("tenant_id", tenantID.String()),
		zap.String("group_id", group.GetID().String()),
		zap.String("competence", origin.Competence.String()),
		zap.Int("settled", len(result.SettledInvoiceIDs)))
	telemetry.AddEvent(span, "cascade_settled", "count", len(result.SettledInvoiceIDs))
	return result, nil
}

// checkInvariants validates the group against its main payer's record
func (s *GroupSettlementService) checkInvariants(ctx context.Context, tenantID uuid.UUID, group *billing.EconomicGroup) error {
	payer, err := s.clientRepo.FindByID(ctx, tenantID, group.MainPayerClientID)
	if err != nil {
		return err
	}
	if violations := group.Validate(payer.PaymentDay); len(violations) > 0 {
		codes := make([]string, len(violations))
		for i, v := range violations {
			codes[i] = v.Code
		}
		s.logger.Warn("cascade refused for inconsistent group",
			zap.String("group_id", group.GetID().String()),
			zap.Strings("violations", codes))
		return shared.ErrAmbiguousGroupState
	}
	return nil
}
