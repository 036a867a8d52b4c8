package billing

import (
	"testing"
	"time"

	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T, amount float64, dueDate time.Time) *Invoice {
	t.Helper()
	competence, err := valueobject.NewCompetence(int(dueDate.Month()), dueDate.Year())
	require.NoError(t, err)
	inv, err := NewInvoice(
		uuid.New(),
		"FAT-2026-0001",
		uuid.New(),
		"Padaria Estrela LTDA",
		valueobject.NewMoneyBRLFromFloat(amount),
		dueDate,
		competence,
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoiceValidation(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	competence, _ := valueobject.NewCompetence(3, 2026)

	tests := []struct {
		name       string
		number     string
		clientID   uuid.UUID
		clientName string
		amount     float64
		wantErr    string
	}{
		{"valid", "FAT-1", uuid.New(), "Cliente", 1518.00, ""},
		{"empty number", "", uuid.New(), "Cliente", 1518.00, "INVALID_INVOICE_NUMBER"},
		{"nil client", "FAT-1", uuid.Nil, "Cliente", 1518.00, "INVALID_CLIENT"},
		{"empty client name", "FAT-1", uuid.New(), "", 1518.00, "INVALID_CLIENT_NAME"},
		{"zero amount", "FAT-1", uuid.New(), "Cliente", 0, "INVALID_AMOUNT"},
		{"negative amount", "FAT-1", uuid.New(), "Cliente", -10, "INVALID_AMOUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(uuid.New(), tt.number, tt.clientID, tt.clientName,
				valueobject.NewMoneyBRLFromFloat(tt.amount), due, competence)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, InvoiceStatusPending, inv.Status)
			assert.Nil(t, inv.PaidDate)
			assert.Len(t, inv.GetDomainEvents(), 1)
		})
	}
}

func TestInvoiceSettle(t *testing.T) {
	inv := newTestInvoice(t, 1518.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	txID := uuid.New()
	paidDate := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	require.NoError(t, inv.Settle(paidDate, &txID, SettlementOriginReconciliation))

	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, paidDate, *inv.PaidDate)
	require.NotNil(t, inv.SettledByTransactionID)
	assert.Equal(t, txID, *inv.SettledByTransactionID)
	assert.Equal(t, SettlementOriginReconciliation, inv.SettlementOrigin)
	assert.True(t, inv.OutstandingAmount().IsZero())

	// already paid
	err := inv.Settle(paidDate, &txID, SettlementOriginReconciliation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestInvoiceSettleRequiresTransactionForReconciliation(t *testing.T) {
	inv := newTestInvoice(t, 1518.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	err := inv.Settle(time.Now(), nil, SettlementOriginReconciliation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_TRANSACTION")

	// manual settlement needs no transaction
	require.NoError(t, inv.Settle(time.Now(), nil, SettlementOriginManual))
}

func TestInvoiceSettleRejectsCascadeOrigin(t *testing.T) {
	inv := newTestInvoice(t, 1518.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	err := inv.Settle(time.Now(), nil, SettlementOriginCascade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_ORIGIN")
}

func TestInvoiceSettleViaCascade(t *testing.T) {
	inv := newTestInvoice(t, 759.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	origin := uuid.New()
	paidDate := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, inv.SettleViaCascade(paidDate, origin))

	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.Equal(t, SettlementOriginCascade, inv.SettlementOrigin)
	require.NotNil(t, inv.CascadeOriginInvoiceID)
	assert.Equal(t, origin, *inv.CascadeOriginInvoiceID)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, paidDate, *inv.PaidDate)
	assert.Nil(t, inv.SettledByTransactionID)

	err := inv.SettleViaCascade(paidDate, origin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestInvoiceApplyPartialPayment(t *testing.T) {
	inv := newTestInvoice(t, 1000.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, inv.ApplyPartialPayment(valueobject.NewMoneyBRLFromFloat(400.00)))
	assert.Equal(t, InvoiceStatusPartial, inv.Status)
	assert.Equal(t, "600.00", inv.OutstandingAmount().StringFixed(2))

	// covering the remainder is a settlement, not a partial payment
	err := inv.ApplyPartialPayment(valueobject.NewMoneyBRLFromFloat(600.00))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_PARTIAL")

	// a partial invoice can still be settled
	txID := uuid.New()
	require.NoError(t, inv.Settle(time.Now(), &txID, SettlementOriginReconciliation))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.OutstandingAmount().IsZero())
}

func TestInvoiceReverseSettlement(t *testing.T) {
	inv := newTestInvoice(t, 1518.00, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	err := inv.ReverseSettlement("wrong match")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")

	txID := uuid.New()
	require.NoError(t, inv.Settle(time.Now(), &txID, SettlementOriginReconciliation))

	err = inv.ReverseSettlement("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_REASON")

	require.NoError(t, inv.ReverseSettlement("matched to the wrong client"))
	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.Nil(t, inv.PaidDate)
	assert.Nil(t, inv.SettledByTransactionID)
	assert.Empty(t, inv.SettlementOrigin)
	assert.True(t, inv.PaidAmount.IsZero())

	// can be settled again after reversal
	require.NoError(t, inv.Settle(time.Now(), &txID, SettlementOriginReconciliation))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
}

func TestInvoiceIsOverdueAt(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inv := newTestInvoice(t, 1518.00, due)

	assert.False(t, inv.IsOverdueAt(due), "due day itself is not overdue")
	assert.False(t, inv.IsOverdueAt(due.Add(23*time.Hour)), "same calendar day is not overdue")
	assert.True(t, inv.IsOverdueAt(due.AddDate(0, 0, 1)))
	assert.False(t, inv.IsOverdueAt(due.AddDate(0, 0, -1)))

	txID := uuid.New()
	require.NoError(t, inv.Settle(due, &txID, SettlementOriginReconciliation))
	assert.False(t, inv.IsOverdueAt(due.AddDate(0, 1, 0)), "paid invoices are never overdue")
}
