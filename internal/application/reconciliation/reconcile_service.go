package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome says how one transaction left a reconciliation pass
type Outcome string

const (
	OutcomeAutoMatched     Outcome = "AUTO_MATCHED"
	OutcomeManualMatched   Outcome = "MANUAL_MATCHED"
	OutcomeSuggested       Outcome = "SUGGESTED"
	OutcomeUnmatched       Outcome = "UNMATCHED"
	OutcomeAlreadyResolved Outcome = "ALREADY_RESOLVED"
)

// ProcessResult is the outcome of processing one transaction
type ProcessResult struct {
	TransactionID uuid.UUID                   `json:"transaction_id"`
	Outcome       Outcome                     `json:"outcome"`
	InvoiceIDs    []uuid.UUID                 `json:"invoice_ids,omitempty"`
	Method        domain.IdentificationMethod `json:"method"`
	Confidence    int                         `json:"confidence"`
	Level         domain.ConfidenceLevel      `json:"level"`
	Reasoning     string                      `json:"reasoning,omitempty"`
	Advisory      string                      `json:"advisory,omitempty"`
	Cascade       *CascadeResult              `json:"cascade,omitempty"`
}

// ReconcileService drives the end-to-end matching flow for one bank
// transaction: identifier passes, exact invoice match, combination match,
// then a reduced-confidence fallback suggestion. High-confidence matches
// apply automatically; the rest stop at SUGGESTED for human review.
//
// Settlement and reversal run inside a single unit of work so invoice
// state, ledger-entry requests and the transaction's match state commit
// or roll back together.
type ReconcileService struct {
	txRepo      domain.BankTransactionRepository
	invoiceRepo billing.InvoiceRepository
	clientRepo  billing.ClientRepository
	selector    *CandidateSelector
	resolution  *AccountResolutionService
	cascade     *GroupSettlementService
	entries     domain.SettlementEntryService
	advisory    domain.AdvisoryService // optional
	uow         shared.UnitOfWork
	options     Options
	logger      *zap.Logger
	metrics     *telemetry.ReconciliationMetrics // optional
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	txRepo domain.BankTransactionRepository,
	invoiceRepo billing.InvoiceRepository,
	clientRepo billing.ClientRepository,
	selector *CandidateSelector,
	resolution *AccountResolutionService,
	cascade *GroupSettlementService,
	entries domain.SettlementEntryService,
	advisory domain.AdvisoryService,
	uow shared.UnitOfWork,
	options Options,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		txRepo:      txRepo,
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		selector:    selector,
		resolution:  resolution,
		cascade:     cascade,
		entries:     entries,
		advisory:    advisory,
		uow:         uow,
		options:     options.normalized(),
		logger:      logger,
	}
}

// SetMetrics attaches the reconciliation metrics recorder. Without one,
// processing runs unchanged and nothing is recorded.
func (s *ReconcileService) SetMetrics(metrics *telemetry.ReconciliationMetrics) {
	s.metrics = metrics
}

// proposal is an internal match candidate before scoring is applied
type proposal struct {
	invoices []*billing.Invoice
	method   domain.IdentificationMethod
	criteria domain.MatchCriteria
}

// ProcessTransaction runs the matching pipeline for one transaction.
// Re-running against an already matched transaction is a no-op.
func (s *ReconcileService) ProcessTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*ProcessResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "process_transaction")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrTransactionID, transactionID.String(),
	)

	start := time.Now()
	tx, err := s.txRepo.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if tx.Status.IsMatched() {
		return &ProcessResult{TransactionID: transactionID, Outcome: OutcomeAlreadyResolved}, nil
	}
	if !tx.IsCredit() {
		return &ProcessResult{TransactionID: transactionID, Outcome: OutcomeUnmatched}, nil
	}

	var result *ProcessResult
	var procErr error
	telemetry.WithProfilingLabels(ctx,
		telemetry.ReconciliationOperationLabels(telemetry.OperationProcessTransaction, ""),
		func(c context.Context) {
			result, procErr = s.process(c, tenantID, tx)
		})
	if procErr != nil {
		telemetry.RecordError(span, procErr)
		return nil, procErr
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionProcessed(ctx, tenantID, string(result.Outcome), result.Method.String())
		s.metrics.RecordMatchDuration(ctx, tenantID, time.Since(start), string(result.Outcome))
	}

	telemetry.SetAttributes(span,
		"outcome", string(result.Outcome),
		telemetry.SpanAttrMethod, result.Method.String(),
		telemetry.SpanAttrConfidence, result.Confidence,
	)
	return result, nil
}

func (s *ReconcileService) process(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*ProcessResult, error) {
	prop, err := s.findProposal(ctx, tenantID, tx)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		// no candidate at all: terminal for this pass, not an error
		return &ProcessResult{
			TransactionID: tx.GetID(),
			Outcome:       OutcomeUnmatched,
			Method:        domain.MethodNone,
			Level:         domain.ConfidenceLow,
		}, nil
	}

	score := domain.ScoreMatch(prop.method, prop.criteria)
	level := domain.LevelForScore(score)
	reasoning := domain.Reasoning(prop.method, prop.criteria, score)

	if score >= s.options.AutoApplyThreshold {
		return s.applyMatch(ctx, tenantID, tx, prop.invoices, prop.method, score, reasoning, true)
	}
	return s.suggest(ctx, tx, prop, score, level, reasoning)
}

// findProposal walks the pipeline in priority order and returns the first
// workable proposal, or nil when nothing fits.
func (s *ReconcileService) findProposal(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*proposal, error) {
	if prop, err := s.identifierPass(ctx, tenantID, tx); err != nil || prop != nil {
		return prop, err
	}
	if prop, err := s.learnedRulePass(ctx, tenantID, tx); err != nil || prop != nil {
		return prop, err
	}

	candidates, err := s.selector.SelectByDate(ctx, tenantID, tx.TransactionDate)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if prop := s.exactAmountPass(tx, candidates); prop != nil {
		return prop, nil
	}
	if prop := s.combinationPass(ctx, tx, candidates); prop != nil {
		return prop, nil
	}
	return s.fallbackPass(tx, candidates), nil
}

// identifierPass matches through identifiers parsed at ingestion: the
// payer's CNPJ or CPF in the description, a COB billing code naming the
// invoice, or a registered partner name (QSA) when a business settles
// through a partner's personal account.
func (s *ReconcileService) identifierPass(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*proposal, error) {
	for _, id := range []struct {
		document string
		method   domain.IdentificationMethod
	}{
		{tx.ExtractedCNPJ, domain.MethodCNPJMatch},
		{tx.ExtractedCPF, domain.MethodCPFMatch},
	} {
		if id.document == "" {
			continue
		}
		client, err := s.clientRepo.FindByDocument(ctx, tenantID, id.document)
		if err != nil {
			if shared.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if prop, err := s.proposeForClient(ctx, tenantID, tx, client, id.method); err != nil || prop != nil {
			return prop, err
		}
	}

	if prop, err := s.cobPass(ctx, tenantID, tx); err != nil || prop != nil {
		return prop, err
	}
	return s.qsaPass(ctx, tenantID, tx)
}

// cobPass correlates the COB billing code stamped in the description with
// the invoice carrying that exact number. The code names the invoice
// directly; amount and date agreement decide whether the match applies on
// its own or stops at a suggestion.
func (s *ReconcileService) cobPass(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*proposal, error) {
	if tx.ExtractedCOB == "" {
		return nil, nil
	}
	inv, err := s.invoiceRepo.FindOpenByInvoiceNumber(ctx, tenantID, tx.ExtractedCOB)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !inv.Amount.IsPositive() {
		return nil, nil
	}
	return &proposal{
		invoices: []*billing.Invoice{inv},
		method:   domain.MethodInvoiceMatch,
		criteria: domain.MatchCriteria{
			ExactAmount:   invoiceCents(inv) == tx.AmountCents(),
			DateProximity: withinDueWindow(inv.DueDate, tx.TransactionDate, s.options.DateFallbackDays),
		},
	}, nil
}

// qsaPass scans active clients' registered partner names against the
// transaction description.
func (s *ReconcileService) qsaPass(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*proposal, error) {
	clients, err := s.clientRepo.FindActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	description := domain.NormalizeName(tx.Description)
	for _, client := range clients {
		for _, partner := range client.QSANames {
			if domain.NameRecognizedIn(description, domain.NormalizeName(partner), s.options.SimilarityThreshold) {
				if prop, err := s.proposeForClient(ctx, tenantID, tx, client, domain.MethodQSAMatch); err != nil || prop != nil {
					return prop, err
				}
			}
		}
	}
	return nil, nil
}

// learnedRulePass resolves the description against learned rules and
// proposes the rule's client when one is bound.
func (s *ReconcileService) learnedRulePass(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction) (*proposal, error) {
	resolution, err := s.resolution.Resolve(ctx, tenantID, tx.Description)
	if err != nil {
		return nil, err
	}
	if resolution == nil || !resolution.ViaRule || resolution.Account.ClientID == nil {
		return nil, nil
	}

	client, err := s.clientRepo.FindByID(ctx, tenantID, *resolution.Account.ClientID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.proposeForClient(ctx, tenantID, tx, client, domain.MethodPatternLearned)
}

// proposeForClient builds a proposal against one known payer: a single
// invoice with the exact amount wins, then a combination over the
// client's own invoices, then the closest single invoice.
func (s *ReconcileService) proposeForClient(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction, client *billing.Client, method domain.IdentificationMethod) (*proposal, error) {
	invoices, err := s.selector.SelectByClientAndDate(ctx, tenantID, client.GetID(), tx.TransactionDate)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	target := tx.AmountCents()
	for _, inv := range invoices {
		if invoiceCents(inv) == target {
			return &proposal{
				invoices: []*billing.Invoice{inv},
				method:   method,
				criteria: domain.MatchCriteria{ExactAmount: true, DateProximity: true},
			}, nil
		}
	}
	if combined, found := s.searchCombination(ctx, target, invoices); found {
		return &proposal{
			invoices: combined,
			method:   method,
			criteria: domain.MatchCriteria{ExactAmount: true, DateProximity: true},
		}, nil
	}

	// identifier says who paid even though no amount lines up
	return &proposal{
		invoices: []*billing.Invoice{invoices[0]},
		method:   method,
		criteria: domain.MatchCriteria{DateProximity: true},
	}, nil
}

// exactAmountPass picks a single candidate whose amount equals the
// transaction's. Ambiguity (two exact-amount invoices of different
// clients) falls through to the combination pass rather than guessing.
func (s *ReconcileService) exactAmountPass(tx *domain.BankTransaction, candidates []*billing.Invoice) *proposal {
	target := tx.AmountCents()
	description := domain.NormalizeName(tx.Description)

	var exact []*billing.Invoice
	for _, inv := range candidates {
		if invoiceCents(inv) == target {
			exact = append(exact, inv)
		}
	}
	if len(exact) == 0 {
		return nil
	}

	pick := exact[0]
	nameSeen := false
	for _, inv := range exact {
		if domain.NameRecognizedIn(description, domain.NormalizeName(inv.ClientName), s.options.SimilarityThreshold) {
			pick = inv
			nameSeen = true
			break
		}
	}
	if len(exact) > 1 && !nameSeen {
		// cannot tell the payers apart; let a human decide
		return nil
	}

	return &proposal{
		invoices: []*billing.Invoice{pick},
		method:   domain.MethodInvoiceMatch,
		criteria: domain.MatchCriteria{ExactAmount: true, DateProximity: true, NameInDescription: nameSeen},
	}
}

// combinationPass searches for a subset of candidates explaining a
// consolidated receipt.
func (s *ReconcileService) combinationPass(ctx context.Context, tx *domain.BankTransaction, candidates []*billing.Invoice) *proposal {
	combined, found := s.searchCombination(ctx, tx.AmountCents(), candidates)
	if !found || len(combined) < 2 {
		return nil
	}
	return &proposal{
		invoices: combined,
		method:   domain.MethodInvoiceMatch,
		criteria: domain.MatchCriteria{ExactAmount: true, DateProximity: true},
	}
}

func (s *ReconcileService) searchCombination(ctx context.Context, targetCents int64, invoices []*billing.Invoice) ([]*billing.Invoice, bool) {
	byID := make(map[uuid.UUID]*billing.Invoice, len(invoices))
	amounts := make([]domain.AmountCandidate, 0, len(invoices))
	for _, inv := range invoices {
		byID[inv.GetID()] = inv
		amounts = append(amounts, domain.AmountCandidate{InvoiceID: inv.GetID(), Cents: invoiceCents(inv)})
	}

	var subset []domain.AmountCandidate
	var found bool
	telemetry.WithProfilingLabels(ctx,
		telemetry.ReconciliationOperationLabels(telemetry.OperationCombinationSearch, ""),
		func(context.Context) {
			subset, found = domain.FindExactCombination(targetCents, amounts, s.options.MaxCombinationCandidates)
		})
	if !found {
		return nil, false
	}

	combined := make([]*billing.Invoice, len(subset))
	for i, c := range subset {
		combined[i] = byID[c.InvoiceID]
	}
	return combined, true
}

// fallbackPass offers the single closest candidate at reduced confidence
// when no exact explanation exists. Only candidates whose client name is
// recognizable in the description qualify; without that signal the
// transaction stays unmatched rather than suggesting fabricated data.
// Closest means smallest amount gap, ties to the oldest due date.
func (s *ReconcileService) fallbackPass(tx *domain.BankTransaction, candidates []*billing.Invoice) *proposal {
	target := tx.AmountCents()
	description := domain.NormalizeName(tx.Description)

	recognized := make([]*billing.Invoice, 0, len(candidates))
	for _, inv := range candidates {
		if domain.NameRecognizedIn(description, domain.NormalizeName(inv.ClientName), s.options.SimilarityThreshold) {
			recognized = append(recognized, inv)
		}
	}
	if len(recognized) == 0 {
		return nil
	}

	sort.Slice(recognized, func(i, j int) bool {
		di, dj := amountGap(recognized[i], target), amountGap(recognized[j], target)
		if di != dj {
			return di < dj
		}
		return recognized[i].DueDate.Before(recognized[j].DueDate)
	})

	return &proposal{
		invoices: []*billing.Invoice{recognized[0]},
		method:   domain.MethodInvoiceMatch,
		criteria: domain.MatchCriteria{DateProximity: true, NameInDescription: true},
	}
}

// applyMatch settles the proposal atomically: claim each invoice with an
// optimistic lock, create ledger entries, record the match on the
// transaction, then cascade group siblings. A lost claim on any invoice
// downgrades the whole proposal to ALREADY_RESOLVED for this pass.
func (s *ReconcileService) applyMatch(
	ctx context.Context,
	tenantID uuid.UUID,
	tx *domain.BankTransaction,
	invoices []*billing.Invoice,
	method domain.IdentificationMethod,
	confidence int,
	reasoning string,
	auto bool,
) (*ProcessResult, error) {
	result := &ProcessResult{
		TransactionID: tx.GetID(),
		Method:        method,
		Confidence:    confidence,
		Level:         domain.LevelForScore(confidence),
		Reasoning:     reasoning,
	}
	paidDate := tx.TransactionDate
	txID := tx.GetID()

	claimLost := false
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		invoiceIDs := make([]uuid.UUID, 0, len(invoices))
		for _, inv := range invoices {
			loadedVersion := inv.GetVersion()
			if err := inv.Settle(paidDate, &txID, billing.SettlementOriginReconciliation); err != nil {
				return err
			}
			if err := s.invoiceRepo.SaveWithLock(ctx, inv, loadedVersion); err != nil {
				if shared.IsConcurrencyConflict(err) {
					claimLost = true
					return err
				}
				return err
			}
			if err := s.entries.CreateSettlementEntries(ctx, tenantID, inv.GetID(), txID); err != nil {
				return fmt.Errorf("settlement entries for invoice %s: %w", inv.GetID(), err)
			}
			invoiceIDs = append(invoiceIDs, inv.GetID())
		}

		txVersion := tx.GetVersion()
		if err := tx.ApplyMatch(invoiceIDs, method, confidence, reasoning, auto, time.Now()); err != nil {
			return err
		}
		if err := s.txRepo.SaveWithLock(ctx, tx, txVersion); err != nil {
			if shared.IsConcurrencyConflict(err) {
				claimLost = true
			}
			return err
		}

		for _, inv := range invoices {
			cascadeResult, err := s.cascade.Cascade(ctx, tenantID, inv, &txID)
			if err != nil {
				if shared.IsAmbiguousGroupState(err) {
					// settlement stands; the group is surfaced for audit
					s.logger.Warn("cascade refused, group flagged for audit",
						zap.String("invoice_id", inv.GetID().String()))
					continue
				}
				return err
			}
			if cascadeResult != nil && len(cascadeResult.SettledInvoiceIDs) > 0 {
				result.Cascade = cascadeResult
			}
		}

		result.InvoiceIDs = invoiceIDs
		return nil
	})
	if err != nil {
		if claimLost {
			// someone else got there first; re-fetch and report resolved
			s.logger.Info("match claim lost to a concurrent pass",
				zap.String("transaction_id", tx.GetID().String()))
			return &ProcessResult{TransactionID: tx.GetID(), Outcome: OutcomeAlreadyResolved}, nil
		}
		return nil, err
	}

	if auto {
		result.Outcome = OutcomeAutoMatched
	} else {
		result.Outcome = OutcomeManualMatched
	}

	if s.metrics != nil {
		s.metrics.RecordMatchedAmount(ctx, tenantID, tx.Amount)
		if result.Cascade != nil {
			s.metrics.RecordCascadeSettlements(ctx, tenantID, int64(len(result.Cascade.SettledInvoiceIDs)))
		}
	}

	s.attachAdvisory(ctx, tenantID, tx, result)
	return result, nil
}

// attachAdvisory asks the optional advisory layer for a narrative after
// the outcome is already fixed; failures are logged and ignored.
func (s *ReconcileService) attachAdvisory(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction, result *ProcessResult) {
	if s.advisory == nil || len(result.InvoiceIDs) < 2 {
		return
	}
	explanation, err := s.advisory.ExplainConsolidation(ctx, tenantID, tx, result.InvoiceIDs)
	if err != nil {
		s.logger.Debug("advisory explanation unavailable",
			zap.String("transaction_id", tx.GetID().String()),
			zap.Error(err))
		return
	}
	result.Advisory = explanation
}

// suggest records the proposal for human review
func (s *ReconcileService) suggest(ctx context.Context, tx *domain.BankTransaction, prop *proposal, score int, level domain.ConfidenceLevel, reasoning string) (*ProcessResult, error) {
	invoiceIDs := make([]uuid.UUID, len(prop.invoices))
	for i, inv := range prop.invoices {
		invoiceIDs[i] = inv.GetID()
	}

	suggestion := domain.MatchSuggestion{
		InvoiceIDs: invoiceIDs,
		Method:     prop.method,
		Confidence: score,
		Level:      level,
		Reasoning:  reasoning,
	}
	txVersion := tx.GetVersion()
	if err := tx.RecordSuggestions([]domain.MatchSuggestion{suggestion}); err != nil {
		return nil, err
	}
	if err := s.txRepo.SaveWithLock(ctx, tx, txVersion); err != nil {
		if shared.IsConcurrencyConflict(err) {
			return &ProcessResult{TransactionID: tx.GetID(), Outcome: OutcomeAlreadyResolved}, nil
		}
		return nil, err
	}

	return &ProcessResult{
		TransactionID: tx.GetID(),
		Outcome:       OutcomeSuggested,
		InvoiceIDs:    invoiceIDs,
		Method:        prop.method,
		Confidence:    score,
		Level:         level,
		Reasoning:     reasoning,
	}, nil
}

// ConfirmMatch applies a human confirmation of specific invoices,
// optionally learning a match rule from the payer description.
func (s *ReconcileService) ConfirmMatch(ctx context.Context, tenantID, transactionID uuid.UUID, invoiceIDs []uuid.UUID) (*ProcessResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "confirm_match")
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
	if len(invoiceIDs) == 0 {
		return nil, shared.NewDomainError("NO_INVOICES", "A confirmation must name at least one invoice")
	}

	invoices, err := s.invoiceRepo.FindByIDs(ctx, tenantID, invoiceIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(invoices) != len(invoiceIDs) {
		return nil, shared.ErrNotFound
	}

	method := tx.IdentificationMethod
	if method == domain.MethodNone {
		method = domain.MethodInvoiceMatch
	}
	if len(tx.Suggestions) > 0 {
		method = tx.Suggestions[0].Method
	}

	criteria := domain.MatchCriteria{
		ExactAmount:   sumCents(invoices) == tx.AmountCents(),
		DateProximity: true,
	}
	score := domain.ScoreMatch(method, criteria)
	reasoning := "operator confirmed: " + domain.Reasoning(method, criteria, score)

	result, err := s.applyMatch(ctx, tenantID, tx, invoices, method, score, reasoning, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.learnFromConfirmation(ctx, tenantID, tx, invoices)
	return result, nil
}

// learnFromConfirmation persists a match rule when the confirmed invoices
// all belong to one client; rule writes never fail the confirmation.
func (s *ReconcileService) learnFromConfirmation(ctx context.Context, tenantID uuid.UUID, tx *domain.BankTransaction, invoices []*billing.Invoice) {
	clientID := invoices[0].ClientID
	for _, inv := range invoices[1:] {
		if inv.ClientID != clientID {
			return
		}
	}

	account, err := s.resolution.accountRepo.FindByClient(ctx, tenantID, clientID)
	if err != nil || account == nil {
		return
	}
	if _, err := s.resolution.LearnRule(ctx, tenantID, tx.Description, account.Code, &clientID); err != nil {
		s.logger.Warn("failed to learn rule from confirmation",
			zap.String("transaction_id", tx.GetID().String()),
			zap.Error(err))
	}
}

// RejectSuggestions discards pending suggestions for a transaction
func (s *ReconcileService) RejectSuggestions(ctx context.Context, tenantID, transactionID uuid.UUID) error {
	tx, err := s.txRepo.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}
	txVersion := tx.GetVersion()
	if err := tx.RejectSuggestions(); err != nil {
		return err
	}
	return s.txRepo.SaveWithLock(ctx, tx, txVersion)
}

// ReverseMatch undoes a settled match atomically: every settled invoice
// returns to PENDING, its ledger entries are deleted, and the transaction
// becomes UNMATCHED and re-eligible for matching. Reversal never cascades
// to group siblings.
func (s *ReconcileService) ReverseMatch(ctx context.Context, tenantID, transactionID uuid.UUID, reason string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reverse_match")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrTransactionID, transactionID.String(),
	)

	tx, err := s.txRepo.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	var reverseErr error
	telemetry.WithProfilingLabels(ctx,
		telemetry.ReconciliationOperationLabels(telemetry.OperationReverseMatch, ""),
		func(c context.Context) {
			reverseErr = s.uow.Execute(c, func(ctx context.Context) error {
				invoices, err := s.invoiceRepo.FindByIDs(ctx, tenantID, tx.MatchedInvoiceIDs)
				if err != nil {
					return err
				}
				for _, inv := range invoices {
					loadedVersion := inv.GetVersion()
					if err := inv.ReverseSettlement(reason); err != nil {
						return err
					}
					if err := s.invoiceRepo.SaveWithLock(ctx, inv, loadedVersion); err != nil {
						return err
					}
					if err := s.entries.DeleteSettlementEntries(ctx, tenantID, inv.GetID()); err != nil {
						return fmt.Errorf("deleting settlement entries for invoice %s: %w", inv.GetID(), err)
					}
				}

				txVersion := tx.GetVersion()
				if err := tx.ReverseMatch(reason); err != nil {
					return err
				}
				return s.txRepo.SaveWithLock(ctx, tx, txVersion)
			})
		})
	if reverseErr != nil {
		telemetry.RecordError(span, reverseErr)
		return reverseErr
	}

	if s.metrics != nil {
		s.metrics.RecordReversal(ctx, tenantID)
	}
	s.logger.Info("match reversed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transaction_id", transactionID.String()),
		zap.String("reason", reason))
	return nil
}

// withinDueWindow reports whether the credit arrived on the invoice's due
// date or within the settlement fallback window after it, mirroring the
// candidate selector's date walk.
func withinDueWindow(dueDate, txDate time.Time, fallbackDays int) bool {
	due := truncateToDay(dueDate)
	day := truncateToDay(txDate)
	if day.Before(due) {
		return false
	}
	return !day.After(due.AddDate(0, 0, fallbackDays))
}

func amountGap(inv *billing.Invoice, targetCents int64) int64 {
	gap := invoiceCents(inv) - targetCents
	if gap < 0 {
		gap = -gap
	}
	return gap
}

func invoiceCents(inv *billing.Invoice) int64 {
	return inv.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func sumCents(invoices []*billing.Invoice) int64 {
	var sum int64
	for _, inv := range invoices {
		sum += invoiceCents(inv)
	}
	return sum
}
