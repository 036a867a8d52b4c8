package reconciliation

import (
	"context"
	"testing"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// groupFixture is a consistent three-member economic group with open
// invoices for March and April
type groupFixture struct {
	payer    *billing.Client
	memberB  *billing.Client
	memberC  *billing.Client
	group    *billing.EconomicGroup
	payerMar *billing.Invoice
	bMar     *billing.Invoice
	cMar     *billing.Invoice
	bApr     *billing.Invoice
}

func buildGroupFixture(t *testing.T, env *testEnv) *groupFixture {
	t.Helper()
	f := &groupFixture{}
	f.payer = env.makeClient(t, "Holding Estrela", "11.111.111/0001-11", 2000.00)
	f.memberB = env.makeClient(t, "Filial Norte", "22.222.222/0001-22", 700.00)
	f.memberC = env.makeClient(t, "Filial Sul", "33.333.333/0001-33", 700.00)

	group, err := billing.NewEconomicGroup(env.tenantID, "Grupo Estrela", f.payer.GetID(), 10)
	require.NoError(t, err)
	require.NoError(t, group.AddMember(f.payer.GetID(), decimal.NewFromFloat(2000.00)))
	require.NoError(t, group.AddMember(f.memberB.GetID(), decimal.NewFromFloat(700.00)))
	require.NoError(t, group.AddMember(f.memberC.GetID(), decimal.NewFromFloat(700.00)))
	env.groups.add(group)
	f.group = group

	for _, c := range []*billing.Client{f.payer, f.memberB, f.memberC} {
		require.NoError(t, c.AssignToGroup(group.GetID()))
	}

	april := testDate.AddDate(0, 1, 0)
	f.payerMar = env.makeInvoice(t, f.payer, 2000.00, testDate)
	f.bMar = env.makeInvoice(t, f.memberB, 700.00, testDate)
	f.cMar = env.makeInvoice(t, f.memberC, 700.00, testDate)
	f.bApr = env.makeInvoice(t, f.memberB, 700.00, april)
	return f
}

func TestCascadeSettlesSiblingsOfSameCompetence(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	tx := env.makeTx(t, 2000.00, testDate, "TED HOLDING ESTRELA")

	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, OutcomeAutoMatched, result.Outcome)

	// siblings of the same competence share the paid date
	assert.Equal(t, billing.InvoiceStatusPaid, f.payerMar.Status)
	assert.Equal(t, billing.InvoiceStatusPaid, f.bMar.Status)
	assert.Equal(t, billing.InvoiceStatusPaid, f.cMar.Status)
	require.NotNil(t, f.bMar.PaidDate)
	require.NotNil(t, f.cMar.PaidDate)
	assert.Equal(t, *f.payerMar.PaidDate, *f.bMar.PaidDate)
	assert.Equal(t, *f.payerMar.PaidDate, *f.cMar.PaidDate)
	assert.Equal(t, billing.SettlementOriginCascade, f.bMar.SettlementOrigin)
	require.NotNil(t, f.bMar.CascadeOriginInvoiceID)
	assert.Equal(t, f.payerMar.GetID(), *f.bMar.CascadeOriginInvoiceID)

	// other competences stay untouched
	assert.Equal(t, billing.InvoiceStatusPending, f.bApr.Status)

	require.NotNil(t, result.Cascade)
	assert.Len(t, result.Cascade.SettledInvoiceIDs, 2)
	assert.Equal(t, 1, env.entries.created[f.bMar.GetID()])
	assert.Equal(t, 1, env.entries.created[f.cMar.GetID()])
}

func TestCascadeRefusesInconsistentGroup(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	// drift the stored fee total so the invariant check fails
	f.group.TotalMonthlyFee = decimal.NewFromFloat(9999.00)

	tx := env.makeTx(t, 2000.00, testDate, "TED HOLDING ESTRELA")
	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err, "a refused cascade does not fail the settlement")

	assert.Equal(t, OutcomeAutoMatched, result.Outcome)
	assert.Equal(t, billing.InvoiceStatusPaid, f.payerMar.Status)
	assert.Equal(t, billing.InvoiceStatusPending, f.bMar.Status, "cascade never guesses at an inconsistent group")
	assert.Equal(t, billing.InvoiceStatusPending, f.cMar.Status)
	assert.Nil(t, result.Cascade)
}

func TestCascadeSkipsAlreadySettledSibling(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	// member B already settled individually
	txID := uuid.New()
	require.NoError(t, f.bMar.Settle(testDate, &txID, billing.SettlementOriginManual))
	env.invoices.add(f.bMar)

	tx := env.makeTx(t, 2000.00, testDate, "TED HOLDING ESTRELA")
	result, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, OutcomeAutoMatched, result.Outcome)

	require.NotNil(t, result.Cascade)
	assert.Equal(t, []uuid.UUID{f.cMar.GetID()}, result.Cascade.SettledInvoiceIDs)
	assert.Equal(t, billing.SettlementOriginManual, f.bMar.SettlementOrigin, "already settled invoice untouched")
}

func TestReversalDoesNotCascade(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	tx := env.makeTx(t, 2000.00, testDate, "TED HOLDING ESTRELA")

	_, err := env.service.ProcessTransaction(context.Background(), env.tenantID, tx.GetID())
	require.NoError(t, err)
	require.Equal(t, billing.InvoiceStatusPaid, f.bMar.Status)

	require.NoError(t, env.service.ReverseMatch(context.Background(), env.tenantID, tx.GetID(), "payment bounced"))

	// only the matched invoice reverses; cascaded siblings stay paid
	assert.Equal(t, billing.InvoiceStatusPending, f.payerMar.Status)
	assert.Equal(t, billing.InvoiceStatusPaid, f.bMar.Status)
	assert.Equal(t, billing.InvoiceStatusPaid, f.cMar.Status)
}

func TestCascadeDirectCallRequiresPaidOrigin(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	cascade := NewGroupSettlementService(env.clients, env.groups, env.invoices, env.entries, zap.NewNop())

	_, err := cascade.Cascade(context.Background(), env.tenantID, f.payerMar, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestCascadeUngroupedClientIsNoop(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Avulso", "44.444.444/0001-44", 500.00)
	inv := env.makeInvoice(t, client, 500.00, testDate)
	txID := uuid.New()
	require.NoError(t, inv.Settle(testDate, &txID, billing.SettlementOriginManual))

	cascade := NewGroupSettlementService(env.clients, env.groups, env.invoices, env.entries, zap.NewNop())
	result, err := cascade.Cascade(context.Background(), env.tenantID, inv, &txID)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCascadeAmbiguousGroupError(t *testing.T) {
	env := newTestEnv(t)
	f := buildGroupFixture(t, env)
	f.group.TotalMonthlyFee = decimal.NewFromFloat(1.00)
	txID := uuid.New()
	require.NoError(t, f.payerMar.Settle(testDate, &txID, billing.SettlementOriginManual))

	cascade := NewGroupSettlementService(env.clients, env.groups, env.invoices, env.entries, zap.NewNop())
	_, err := cascade.Cascade(context.Background(), env.tenantID, f.payerMar, &txID)
	require.Error(t, err)
	assert.True(t, shared.IsAmbiguousGroupState(err))
}
