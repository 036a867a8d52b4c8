package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/ledger"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	tenantID uuid.UUID
	clients  *fakeClientRepo
	groups   *fakeGroupRepo
	invoices *fakeInvoiceRepo
	txs      *fakeTxRepo
	accounts *fakeAccountRepo
	rules    *fakeRuleRepo
	entries  *fakeEntryService
	service  *ReconcileService
	batch    *BatchReconcileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tenantID: uuid.New(),
		clients:  newFakeClientRepo(),
		groups:   newFakeGroupRepo(),
		invoices: newFakeInvoiceRepo(),
		txs:      newFakeTxRepo(),
		accounts: newFakeAccountRepo(),
		rules:    newFakeRuleRepo(),
		entries:  newFakeEntryService(),
	}

	logger := zap.NewNop()
	options := DefaultOptions()
	selector := NewCandidateSelector(env.invoices, options)
	resolution := NewAccountResolutionService(env.accounts, env.rules, options, logger)
	cascade := NewGroupSettlementService(env.clients, env.groups, env.invoices, env.entries, logger)
	env.service = NewReconcileService(
		env.txs, env.invoices, env.clients,
		selector, resolution, cascade,
		env.entries, nil, passthroughUoW{}, options, logger,
	)
	env.batch = NewBatchReconcileService(env.txs, env.service, options, logger)
	return env
}

func (e *testEnv) makeClient(t *testing.T, name, document string, fee float64) *billing.Client {
	t.Helper()
	client, err := billing.NewClient(e.tenantID, name, document, decimal.NewFromFloat(fee), 10)
	require.NoError(t, err)
	e.clients.add(client)
	return client
}

func (e *testEnv) makeInvoice(t *testing.T, client *billing.Client, amount float64, dueDate time.Time) *billing.Invoice {
	return e.makeNumberedInvoice(t, client, "FAT-"+uuid.NewString()[:8], amount, dueDate)
}

func (e *testEnv) makeNumberedInvoice(t *testing.T, client *billing.Client, number string, amount float64, dueDate time.Time) *billing.Invoice {
	t.Helper()
	competence, err := valueobject.NewCompetence(int(dueDate.Month()), dueDate.Year())
	require.NoError(t, err)
	inv, err := billing.NewInvoice(e.tenantID, number, client.GetID(), client.Name,
		valueobject.NewMoneyBRLFromFloat(amount), dueDate, competence)
	require.NoError(t, err)
	e.invoices.add(inv)
	return inv
}

func (e *testEnv) makeTx(t *testing.T, amount float64, date time.Time, description string) *domain.BankTransaction {
	t.Helper()
	tx, err := domain.NewBankTransaction(e.tenantID, date, decimal.NewFromFloat(amount), description, "")
	require.NoError(t, err)
	e.txs.add(tx)
	return tx
}

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestProcessTransactionExactMatch(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela LTDA", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	tx := env.makeTx(t, 1518.00, testDate, "TED RECEBIDA PADARIA ESTRELA")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, domain.MethodInvoiceMatch, result.Method)
	assert.GreaterOrEqual(t, result.Confidence, 90)
	assert.Equal(t, domain.ConfidenceHigh, result.Level)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)

	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, testDate, *inv.PaidDate)
	assert.Equal(t, domain.MatchStatusMatchedAuto, tx.Status)
	assert.True(t, tx.AutoMatched)
	assert.Equal(t, 1, env.entries.created[inv.GetID()])
}

func TestProcessTransactionCombinationMatch(t *testing.T) {
	env := newTestEnv(t)
	a := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	b := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 1518.00)
	invA := env.makeInvoice(t, a, 1518.00, testDate)
	invB := env.makeInvoice(t, b, 1518.00, testDate)
	tx := env.makeTx(t, 3036.00, testDate, "DEPOSITO CONSOLIDADO")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	require.Len(t, result.InvoiceIDs, 2)

	// amount invariance: allocations cover the credit to the cent
	assert.Equal(t, billing.InvoiceStatusPaid, invA.Status)
	assert.Equal(t, billing.InvoiceStatusPaid, invB.Status)
	assert.Equal(t, int64(303600), invoiceCents(invA)+invoiceCents(invB))
	assert.Equal(t, 1, env.entries.created[invA.GetID()])
	assert.Equal(t, 1, env.entries.created[invB.GetID()])
}

func TestProcessTransactionNoCandidates(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	env.makeInvoice(t, client, 1518.00, testDate)
	// nothing equals or sums to 500.00 in the window
	tx := env.makeTx(t, 500.00, testDate.AddDate(0, 1, 0), "PIX AVULSO")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnmatched, result.Outcome)
	assert.Empty(t, result.InvoiceIDs, "no suggestion with fabricated data")
	assert.Equal(t, domain.MatchStatusUnmatched, tx.Status)
	assert.Empty(t, env.entries.created)
}

func TestProcessTransactionFallbackSuggestion(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	// close but not exact: falls back to a reduced-confidence suggestion
	tx := env.makeTx(t, 1500.00, testDate, "PIX RECEBIDO PADARIA ESTRELA")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuggested, result.Outcome)
	assert.Less(t, result.Confidence, 90)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)

	assert.Equal(t, domain.MatchStatusSuggested, tx.Status)
	require.Len(t, tx.Suggestions, 1)
	assert.Equal(t, billing.InvoiceStatusPending, inv.Status, "suggestions never settle invoices")
	assert.Empty(t, env.entries.created)
}

func TestProcessTransactionPriorDayFallback(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	// credit settled the next business day
	tx := env.makeTx(t, 1518.00, testDate.AddDate(0, 0, 1), "TED PADARIA ESTRELA")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
}

func TestProcessTransactionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	tx := env.makeTx(t, 1518.00, testDate, "TED PADARIA ESTRELA")

	first, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, OutcomeAutoMatched, first.Outcome)

	again, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, again.Outcome)
	assert.Equal(t, 1, env.entries.created[inv.GetID()], "no duplicate ledger calls")
}

func TestProcessTransactionClaimLost(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	tx := env.makeTx(t, 1518.00, testDate, "TED PADARIA ESTRELA")
	env.invoices.failClaim[inv.GetID()] = true

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err, "a lost claim is not an error")
	assert.Equal(t, OutcomeAlreadyResolved, result.Outcome)
}

func TestProcessTransactionCNPJIdentifier(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	other := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	env.makeInvoice(t, other, 1518.00, testDate)

	// two exact-amount candidates would be ambiguous, the CNPJ decides
	tx := env.makeTx(t, 1518.00, testDate, "PIX 12345678000190")
	tx.SetExtractedIdentifiers("12345678000190", "", "")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, domain.MethodCNPJMatch, result.Method)
	assert.Equal(t, 95, result.Confidence)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)
}

func TestProcessTransactionCOBIdentifier(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	other := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 1518.00)
	inv := env.makeNumberedInvoice(t, client, "778899", 1518.00, testDate)
	env.makeInvoice(t, other, 1518.00, testDate)

	// no payer document and two identical amounts: the billing code stamped
	// by the invoicing system decides
	tx := env.makeTx(t, 1518.00, testDate, "PIX RECEBIDO COB 778899")
	tx.SetExtractedIdentifiers(ExtractIdentifiers(tx.Description))

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, domain.MethodInvoiceMatch, result.Method)
	assert.Equal(t, 90, result.Confidence)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
}

func TestProcessTransactionCOBAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeNumberedInvoice(t, client, "778899", 1518.00, testDate)

	// the code names the invoice but the amount does not line up
	tx := env.makeTx(t, 1200.00, testDate, "TED COB-778899")
	tx.SetExtractedIdentifiers(ExtractIdentifiers(tx.Description))

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuggested, result.Outcome)
	assert.Equal(t, domain.MethodInvoiceMatch, result.Method)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)
	assert.Equal(t, billing.InvoiceStatusPending, inv.Status, "suggestions never settle invoices")
}

func TestProcessTransactionQSAIdentifier(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela LTDA", "12.345.678/0001-90", 1518.00)
	client.SetQSANames([]string{"Maria Aparecida Souza"})
	inv := env.makeInvoice(t, client, 1518.00, testDate)

	// the partner paid from a personal account
	tx := env.makeTx(t, 1518.00, testDate, "PIX MARIA APARECIDA SOUZA")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, domain.MethodQSAMatch, result.Method)
	assert.Equal(t, 85, result.Confidence)
	require.Equal(t, []uuid.UUID{inv.GetID()}, result.InvoiceIDs)
	assert.Equal(t, OutcomeSuggested, result.Outcome, "85 stays below the auto-apply threshold")
}

func TestProcessTransactionAmbiguousExactAmounts(t *testing.T) {
	env := newTestEnv(t)
	a := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	b := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 1518.00)
	env.makeInvoice(t, a, 1518.00, testDate)
	env.makeInvoice(t, b, 1518.00, testDate)

	// description names neither client and no identifiers: two identical
	// candidates must not be auto-picked
	tx := env.makeTx(t, 1518.00, testDate, "DEPOSITO EM DINHEIRO")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	assert.NotEqual(t, OutcomeAutoMatched, result.Outcome)
}

func TestConfirmMatchLearnsRule(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	account, err := ledger.NewClientReceivableAccount(env.tenantID, "1.1.2.01.0001", client.Name, client.GetID())
	require.NoError(t, err)
	env.accounts.add(account)

	tx := env.makeTx(t, 1500.00, testDate, "PIX RECEBIDO PADARIA ESTRELA")
	_, err = env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, domain.MatchStatusSuggested, tx.Status)

	result, err := env.service.ConfirmMatch(context.Background(), env.tenantID, tx.GetID(), []uuid.UUID{inv.GetID()})
	require.NoError(t, err)

	assert.Equal(t, OutcomeManualMatched, result.Outcome)
	assert.Equal(t, domain.MatchStatusMatchedManual, tx.Status)
	assert.False(t, tx.AutoMatched)
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)

	rule, err := env.rules.FindByPattern(context.Background(), env.tenantID, domain.NormalizeName(tx.Description))
	require.NoError(t, err)
	assert.Equal(t, account.Code, rule.AccountCode)
	require.NotNil(t, rule.ClientID)
	assert.Equal(t, client.GetID(), *rule.ClientID)
}

func TestRejectSuggestions(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	env.makeInvoice(t, client, 1518.00, testDate)
	tx := env.makeTx(t, 1500.00, testDate, "PIX RECEBIDO PADARIA ESTRELA")

	_, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, domain.MatchStatusSuggested, tx.Status)

	require.NoError(t, env.service.RejectSuggestions(context.Background(), env.tenantID, tx.GetID()))
	assert.Equal(t, domain.MatchStatusUnmatched, tx.Status)
	assert.Empty(t, tx.Suggestions)
}

func TestReverseMatch(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	tx := env.makeTx(t, 1518.00, testDate, "TED PADARIA ESTRELA")

	_, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, billing.InvoiceStatusPaid, inv.Status)

	require.NoError(t, env.service.ReverseMatch(context.Background(), env.tenantID, tx.GetID(), "matched wrong client"))

	assert.Equal(t, billing.InvoiceStatusPending, inv.Status)
	assert.Nil(t, inv.PaidDate)
	assert.Equal(t, 1, env.entries.deleted[inv.GetID()])
	assert.Equal(t, domain.MatchStatusUnmatched, tx.Status)

	// re-eligible for matching after reversal
	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, 2, env.entries.created[inv.GetID()])
}

func TestReconstructSettlementFromTrace(t *testing.T) {
	env := newTestEnv(t)
	a := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	b := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 1518.00)
	invA := env.makeInvoice(t, a, 1518.00, testDate)
	invB := env.makeInvoice(t, b, 1518.00, testDate)
	tx := env.makeTx(t, 3036.00, testDate, "DEPOSITO CONSOLIDADO")

	_, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	result, err := env.service.ReconstructSettlement(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, ReconstructionFromTrace, result.Source)
	assert.ElementsMatch(t, []uuid.UUID{invA.GetID(), invB.GetID()}, result.InvoiceIDs)
	assert.True(t, result.Exact)
}

func TestReconstructSettlementFromCombination(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	invA := env.makeInvoice(t, client, 1518.00, testDate)
	invB := env.makeInvoice(t, client, 700.00, testDate)
	otherDay := env.makeInvoice(t, client, 999.00, testDate)

	// invoices marked paid by hand; the credit itself was never matched
	require.NoError(t, invA.Settle(testDate, nil, billing.SettlementOriginManual))
	require.NoError(t, invB.Settle(testDate, nil, billing.SettlementOriginManual))
	require.NoError(t, otherDay.Settle(testDate.AddDate(0, 0, -5), nil, billing.SettlementOriginManual))

	tx := env.makeTx(t, 2218.00, testDate, "DEPOSITO CONSOLIDADO HISTORICO")

	result, err := env.service.ReconstructSettlement(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)

	assert.Equal(t, ReconstructionFromCombination, result.Source)
	assert.ElementsMatch(t, []uuid.UUID{invA.GetID(), invB.GetID()}, result.InvoiceIDs)
	assert.True(t, result.Exact)

	t.Run("no subset explains the amount", func(t *testing.T) {
		stray := env.makeTx(t, 50.00, testDate, "PIX AVULSO")
		result, err := env.service.ReconstructSettlement(context.Background(), env.tenantID, stray.GetID())
		require.NoError(t, err)
		assert.Equal(t, ReconstructionFromCombination, result.Source)
		assert.Empty(t, result.InvoiceIDs)
		assert.False(t, result.Exact)
	})
}
