package reconciliation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchStatus is the reconciliation state of a bank transaction
type MatchStatus string

const (
	MatchStatusUnmatched     MatchStatus = "UNMATCHED"
	MatchStatusSuggested     MatchStatus = "SUGGESTED"
	MatchStatusMatchedAuto   MatchStatus = "MATCHED_AUTO"
	MatchStatusMatchedManual MatchStatus = "MATCHED_MANUAL"
)

// IsValid checks if the status is a valid MatchStatus
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusUnmatched, MatchStatusSuggested, MatchStatusMatchedAuto, MatchStatusMatchedManual:
		return true
	}
	return false
}

// String returns the string representation of MatchStatus
func (s MatchStatus) String() string {
	return string(s)
}

// IsMatched returns true for both auto and manual matches
func (s MatchStatus) IsMatched() bool {
	return s == MatchStatusMatchedAuto || s == MatchStatusMatchedManual
}

// CanMatch returns true when a match may still be applied
func (s MatchStatus) CanMatch() bool {
	return s == MatchStatusUnmatched || s == MatchStatusSuggested
}

// MatchSuggestion is one ranked candidate offered to human review
type MatchSuggestion struct {
	InvoiceIDs []uuid.UUID          `json:"invoice_ids"`
	Method     IdentificationMethod `json:"method"`
	Confidence int                  `json:"confidence"`
	Level      ConfidenceLevel      `json:"level"`
	Reasoning  string               `json:"reasoning"`
}

// MatchSuggestions is a ranked suggestion list stored as JSONB
type MatchSuggestions []MatchSuggestion

// Value implements driver.Valuer for GORM to store as JSONB
func (s MatchSuggestions) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (s *MatchSuggestions) Scan(value interface{}) error {
	if value == nil {
		*s = MatchSuggestions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan MatchSuggestions: unsupported type")
	}

	if len(bytes) == 0 {
		*s = MatchSuggestions{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// UUIDList is a JSONB-stored list of aggregate IDs
type UUIDList []uuid.UUID

// Value implements driver.Valuer for GORM to store as JSONB
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = UUIDList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan UUIDList: unsupported type")
	}

	if len(bytes) == 0 {
		*l = UUIDList{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// BankTransaction is an immutable external fact (date, amount,
// description, identifiers parsed at ingestion) carrying mutable
// reconciliation state. Only the reconciliation engine and explicit human
// actions mutate that state; transactions are never deleted.
//
// State machine:
//
//	UNMATCHED -> SUGGESTED -> MATCHED_AUTO | MATCHED_MANUAL
//	MATCHED_* -> (reversal) -> UNMATCHED
//
// UNMATCHED may also jump straight to MATCHED_AUTO when confidence clears
// the auto-apply threshold.
type BankTransaction struct {
	shared.TenantAggregateRoot
	TransactionDate time.Time       `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"` // signed; credits are positive
	Description     string          `json:"description"`
	BankReference   string          `json:"bank_reference"`
	ExtractedCNPJ   string          `json:"extracted_cnpj"` // digits only, set at ingestion
	ExtractedCPF    string          `json:"extracted_cpf"`  // digits only, set at ingestion
	ExtractedCOB    string          `json:"extracted_cob"`  // billing-batch code, set at ingestion

	Status                   MatchStatus          `json:"status"`
	MatchedInvoiceIDs        UUIDList             `json:"matched_invoice_ids"`
	AutoMatched              bool                 `json:"auto_matched"`
	IdentificationMethod     IdentificationMethod `json:"identification_method"`
	IdentificationConfidence int                  `json:"identification_confidence"`
	IdentificationReasoning  string               `json:"identification_reasoning"`
	Suggestions              MatchSuggestions     `json:"suggestions"`
	MatchedAt                *time.Time           `json:"matched_at"`
}

// NewBankTransaction records a statement line delivered by ingestion
func NewBankTransaction(
	tenantID uuid.UUID,
	transactionDate time.Time,
	amount decimal.Decimal,
	description string,
	bankReference string,
) (*BankTransaction, error) {
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be zero")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Transaction description cannot be empty")
	}

	return &BankTransaction{
		TenantAggregateRoot:  shared.NewTenantAggregateRoot(tenantID),
		TransactionDate:      transactionDate,
		Amount:               amount.Round(2),
		Description:          description,
		BankReference:        bankReference,
		Status:               MatchStatusUnmatched,
		IdentificationMethod: MethodNone,
		MatchedInvoiceIDs:    UUIDList{},
		Suggestions:          MatchSuggestions{},
	}, nil
}

// IsCredit returns true for incoming amounts
func (t *BankTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// AmountCents returns the absolute amount in integer cents
func (t *BankTransaction) AmountCents() int64 {
	return t.Amount.Abs().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// SetExtractedIdentifiers attaches identifiers parsed from the description
// by the ingestion layer
func (t *BankTransaction) SetExtractedIdentifiers(cnpj, cpf, cob string) {
	t.ExtractedCNPJ = cnpj
	t.ExtractedCPF = cpf
	t.ExtractedCOB = cob
}

// RecordSuggestions stores ranked candidates and moves the transaction to
// SUGGESTED for human review. Re-running against a SUGGESTED transaction
// replaces the list.
func (t *BankTransaction) RecordSuggestions(suggestions []MatchSuggestion) error {
	if !t.Status.CanMatch() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot suggest matches for transaction in %s status", t.Status))
	}
	if len(suggestions) == 0 {
		return shared.NewDomainError("NO_SUGGESTIONS", "At least one suggestion is required")
	}

	t.Suggestions = suggestions
	t.Status = MatchStatusSuggested
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransactionSuggestedEvent(t))
	return nil
}

// ApplyMatch links the transaction to the invoices that explain it.
// auto marks engine-made links; manual confirmations pass auto=false.
func (t *BankTransaction) ApplyMatch(
	invoiceIDs []uuid.UUID,
	method IdentificationMethod,
	confidence int,
	reasoning string,
	auto bool,
	matchedAt time.Time,
) error {
	if !t.Status.CanMatch() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot match transaction in %s status", t.Status))
	}
	if len(invoiceIDs) == 0 {
		return shared.NewDomainError("NO_INVOICES", "A match must reference at least one invoice")
	}
	if !method.IsValid() || method == MethodNone {
		return shared.NewDomainError("INVALID_METHOD", "A match requires an identification method")
	}
	if confidence < 0 || confidence > 100 {
		return shared.NewDomainError("INVALID_CONFIDENCE", "Confidence must be between 0 and 100")
	}

	if auto {
		t.Status = MatchStatusMatchedAuto
	} else {
		t.Status = MatchStatusMatchedManual
	}
	t.MatchedInvoiceIDs = invoiceIDs
	t.AutoMatched = auto
	t.IdentificationMethod = method
	t.IdentificationConfidence = confidence
	t.IdentificationReasoning = reasoning
	t.MatchedAt = &matchedAt
	t.Suggestions = MatchSuggestions{}
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransactionMatchedEvent(t))
	return nil
}

// RejectSuggestions discards pending suggestions, returning the
// transaction to UNMATCHED
func (t *BankTransaction) RejectSuggestions() error {
	if t.Status != MatchStatusSuggested {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reject suggestions for transaction in %s status", t.Status))
	}

	t.Suggestions = MatchSuggestions{}
	t.Status = MatchStatusUnmatched
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// ReverseMatch undoes a settled match, returning the transaction to
// UNMATCHED and re-eligible for matching
func (t *BankTransaction) ReverseMatch(reason string) error {
	if !t.Status.IsMatched() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reverse transaction in %s status", t.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	previousInvoiceIDs := t.MatchedInvoiceIDs

	t.Status = MatchStatusUnmatched
	t.MatchedInvoiceIDs = UUIDList{}
	t.AutoMatched = false
	t.IdentificationMethod = MethodNone
	t.IdentificationConfidence = 0
	t.IdentificationReasoning = ""
	t.MatchedAt = nil
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransactionMatchReversedEvent(t, previousInvoiceIDs, reason))
	return nil
}
