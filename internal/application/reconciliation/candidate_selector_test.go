package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectByDateExactFirst(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	exact := env.makeInvoice(t, client, 1518.00, testDate)
	env.makeInvoice(t, client, 900.00, testDate.AddDate(0, 0, -1))

	selector := NewCandidateSelector(env.invoices, DefaultOptions())
	candidates, err := selector.SelectByDate(context.Background(), env.tenantID, testDate)
	require.NoError(t, err)

	// the prior-day invoice is not consulted while the exact date has hits
	require.Len(t, candidates, 1)
	assert.Equal(t, exact.GetID(), candidates[0].GetID())
}

func TestSelectByDatePriorDayFallback(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	prior := env.makeInvoice(t, client, 1518.00, testDate.AddDate(0, 0, -1))

	selector := NewCandidateSelector(env.invoices, DefaultOptions())
	candidates, err := selector.SelectByDate(context.Background(), env.tenantID, testDate)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, prior.GetID(), candidates[0].GetID())
}

func TestSelectByDateSkipsSettledInvoices(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	inv := env.makeInvoice(t, client, 1518.00, testDate)
	txID := uuid.New()
	require.NoError(t, inv.Settle(testDate, &txID, "MANUAL"))
	env.invoices.add(inv)

	selector := NewCandidateSelector(env.invoices, DefaultOptions())
	candidates, err := selector.SelectByDate(context.Background(), env.tenantID, testDate)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSelectSettledByDate(t *testing.T) {
	env := newTestEnv(t)
	client := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	settled := env.makeInvoice(t, client, 1518.00, testDate)
	require.NoError(t, settled.Settle(testDate, nil, "MANUAL"))
	earlier := env.makeInvoice(t, client, 900.00, testDate)
	require.NoError(t, earlier.Settle(testDate.AddDate(0, 0, -2), nil, "MANUAL"))
	env.makeInvoice(t, client, 700.00, testDate) // still open

	selector := NewCandidateSelector(env.invoices, DefaultOptions())
	candidates, err := selector.SelectSettledByDate(context.Background(), env.tenantID, testDate)
	require.NoError(t, err)

	// only invoices paid on the target day qualify for reconstruction
	require.Len(t, candidates, 1)
	assert.Equal(t, settled.GetID(), candidates[0].GetID())
}

func TestSelectByClientAndDate(t *testing.T) {
	env := newTestEnv(t)
	a := env.makeClient(t, "Padaria Estrela", "12.345.678/0001-90", 1518.00)
	b := env.makeClient(t, "Mercearia Central", "98.765.432/0001-09", 900.00)
	invA := env.makeInvoice(t, a, 1518.00, testDate.AddDate(0, 0, -1))
	env.makeInvoice(t, b, 900.00, testDate)

	selector := NewCandidateSelector(env.invoices, DefaultOptions())

	// the fallback applies per client: B's exact-date invoice must not
	// mask A's prior-day one
	candidates, err := selector.SelectByClientAndDate(context.Background(), env.tenantID, a.GetID(), testDate)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, invA.GetID(), candidates[0].GetID())
}
