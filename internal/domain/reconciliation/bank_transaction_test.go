package reconciliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T, amount float64) *BankTransaction {
	t.Helper()
	tx, err := NewBankTransaction(
		uuid.New(),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		decimal.NewFromFloat(amount),
		"PIX RECEBIDO PADARIA ESTRELA LTDA",
		"REF-001",
	)
	require.NoError(t, err)
	return tx
}

func TestNewBankTransaction(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)
	assert.Equal(t, MatchStatusUnmatched, tx.Status)
	assert.Equal(t, MethodNone, tx.IdentificationMethod)
	assert.True(t, tx.IsCredit())
	assert.Equal(t, int64(151800), tx.AmountCents())

	_, err := NewBankTransaction(uuid.New(), time.Now(), decimal.Zero, "desc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_AMOUNT")

	_, err = NewBankTransaction(uuid.New(), time.Now(), decimal.NewFromInt(10), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_DESCRIPTION")
}

func TestBankTransactionDebitCents(t *testing.T) {
	tx, err := NewBankTransaction(uuid.New(), time.Now(), decimal.NewFromFloat(-350.75), "TARIFA", "")
	require.NoError(t, err)
	assert.False(t, tx.IsCredit())
	assert.Equal(t, int64(35075), tx.AmountCents())
}

func TestBankTransactionSuggestionFlow(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)

	err := tx.RecordSuggestions(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_SUGGESTIONS")

	suggestions := []MatchSuggestion{{
		InvoiceIDs: []uuid.UUID{uuid.New()},
		Method:     MethodInvoiceMatch,
		Confidence: 70,
		Level:      ConfidenceMedium,
		Reasoning:  "invoice match: exact amount, payer name in description (confidence 70)",
	}}
	require.NoError(t, tx.RecordSuggestions(suggestions))
	assert.Equal(t, MatchStatusSuggested, tx.Status)
	assert.Len(t, tx.Suggestions, 1)

	// a re-run may replace pending suggestions
	require.NoError(t, tx.RecordSuggestions(suggestions))

	require.NoError(t, tx.RejectSuggestions())
	assert.Equal(t, MatchStatusUnmatched, tx.Status)
	assert.Empty(t, tx.Suggestions)
}

func TestBankTransactionApplyMatch(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)
	invoiceID := uuid.New()
	matchedAt := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, tx.ApplyMatch([]uuid.UUID{invoiceID}, MethodInvoiceMatch, 90, "exact match", true, matchedAt))
	assert.Equal(t, MatchStatusMatchedAuto, tx.Status)
	assert.True(t, tx.AutoMatched)
	assert.Equal(t, 90, tx.IdentificationConfidence)
	assert.Equal(t, UUIDList{invoiceID}, tx.MatchedInvoiceIDs)
	require.NotNil(t, tx.MatchedAt)
	assert.Equal(t, matchedAt, *tx.MatchedAt)

	// matched transactions cannot be matched again
	err := tx.ApplyMatch([]uuid.UUID{uuid.New()}, MethodInvoiceMatch, 90, "", true, matchedAt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestBankTransactionApplyMatchValidation(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)
	now := time.Now()

	err := tx.ApplyMatch(nil, MethodInvoiceMatch, 90, "", true, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_INVOICES")

	err = tx.ApplyMatch([]uuid.UUID{uuid.New()}, MethodNone, 90, "", true, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_METHOD")

	err = tx.ApplyMatch([]uuid.UUID{uuid.New()}, MethodInvoiceMatch, 101, "", true, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_CONFIDENCE")
}

func TestBankTransactionManualMatchFromSuggested(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)
	invoiceID := uuid.New()

	require.NoError(t, tx.RecordSuggestions([]MatchSuggestion{{
		InvoiceIDs: []uuid.UUID{invoiceID},
		Method:     MethodInvoiceMatch,
		Confidence: 70,
		Level:      ConfidenceMedium,
	}}))

	require.NoError(t, tx.ApplyMatch([]uuid.UUID{invoiceID}, MethodInvoiceMatch, 70, "operator confirmed", false, time.Now()))
	assert.Equal(t, MatchStatusMatchedManual, tx.Status)
	assert.False(t, tx.AutoMatched)
	assert.Empty(t, tx.Suggestions, "suggestions are cleared on match")
}

func TestBankTransactionReverseMatch(t *testing.T) {
	tx := newTestTransaction(t, 1518.00)

	err := tx.ReverseMatch("undo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")

	invoiceID := uuid.New()
	require.NoError(t, tx.ApplyMatch([]uuid.UUID{invoiceID}, MethodCNPJMatch, 95, "cnpj", true, time.Now()))

	err = tx.ReverseMatch("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_REASON")

	require.NoError(t, tx.ReverseMatch("matched wrong client"))
	assert.Equal(t, MatchStatusUnmatched, tx.Status)
	assert.Empty(t, tx.MatchedInvoiceIDs)
	assert.False(t, tx.AutoMatched)
	assert.Equal(t, MethodNone, tx.IdentificationMethod)
	assert.Zero(t, tx.IdentificationConfidence)
	assert.Nil(t, tx.MatchedAt)

	// re-eligible for matching after reversal
	require.NoError(t, tx.ApplyMatch([]uuid.UUID{invoiceID}, MethodInvoiceMatch, 90, "", true, time.Now()))
	assert.Equal(t, MatchStatusMatchedAuto, tx.Status)
}

func TestMatchSuggestionsScanValue(t *testing.T) {
	suggestions := MatchSuggestions{{
		InvoiceIDs: []uuid.UUID{uuid.New(), uuid.New()},
		Method:     MethodInvoiceMatch,
		Confidence: 90,
		Level:      ConfidenceHigh,
		Reasoning:  "combination of 2 invoices",
	}}

	value, err := suggestions.Value()
	require.NoError(t, err)

	var decoded MatchSuggestions
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 1)
	assert.Equal(t, suggestions[0].InvoiceIDs, decoded[0].InvoiceIDs)
	assert.Equal(t, MethodInvoiceMatch, decoded[0].Method)

	var empty MatchSuggestions
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}
