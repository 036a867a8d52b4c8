package models

import (
	"time"

	"github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/shopspring/decimal"
)

// BankTransactionModel is the persistence model for the BankTransaction
// domain entity. Matched invoice IDs and pending suggestions are JSONB
// documents; they are always read and written with the transaction itself.
type BankTransactionModel struct {
	TenantAggregateModel
	TransactionDate time.Time       `gorm:"not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Description     string          `gorm:"type:text;not null"`
	BankReference   string          `gorm:"type:varchar(100);index"`
	ExtractedCNPJ   string          `gorm:"type:varchar(14);column:extracted_cnpj"`
	ExtractedCPF    string          `gorm:"type:varchar(11);column:extracted_cpf"`
	ExtractedCOB    string          `gorm:"type:varchar(50);column:extracted_cob"`

	Status                   reconciliation.MatchStatus          `gorm:"type:varchar(20);not null;default:'UNMATCHED';index"`
	MatchedInvoiceIDs        reconciliation.UUIDList             `gorm:"type:jsonb;not null;default:'[]'"`
	AutoMatched              bool                                `gorm:"not null;default:false"`
	IdentificationMethod     reconciliation.IdentificationMethod `gorm:"type:varchar(30);not null;default:'none'"`
	IdentificationConfidence int                                 `gorm:"not null;default:0"`
	IdentificationReasoning  string                              `gorm:"type:text"`
	Suggestions              reconciliation.MatchSuggestions     `gorm:"type:jsonb;not null;default:'[]'"`
	MatchedAt                *time.Time                          `gorm:""`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction entity.
func (m *BankTransactionModel) ToDomain() *reconciliation.BankTransaction {
	tx := &reconciliation.BankTransaction{
		TransactionDate:          m.TransactionDate,
		Amount:                   m.Amount,
		Description:              m.Description,
		BankReference:            m.BankReference,
		ExtractedCNPJ:            m.ExtractedCNPJ,
		ExtractedCPF:             m.ExtractedCPF,
		ExtractedCOB:             m.ExtractedCOB,
		Status:                   m.Status,
		MatchedInvoiceIDs:        m.MatchedInvoiceIDs,
		AutoMatched:              m.AutoMatched,
		IdentificationMethod:     m.IdentificationMethod,
		IdentificationConfidence: m.IdentificationConfidence,
		IdentificationReasoning:  m.IdentificationReasoning,
		Suggestions:              m.Suggestions,
		MatchedAt:                m.MatchedAt,
	}
	m.PopulateTenantAggregateRoot(&tx.TenantAggregateRoot)
	return tx
}

// FromDomain populates the persistence model from a domain BankTransaction entity.
func (m *BankTransactionModel) FromDomain(t *reconciliation.BankTransaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.TransactionDate = t.TransactionDate
	m.Amount = t.Amount
	m.Description = t.Description
	m.BankReference = t.BankReference
	m.ExtractedCNPJ = t.ExtractedCNPJ
	m.ExtractedCPF = t.ExtractedCPF
	m.ExtractedCOB = t.ExtractedCOB
	m.Status = t.Status
	m.MatchedInvoiceIDs = t.MatchedInvoiceIDs
	m.AutoMatched = t.AutoMatched
	m.IdentificationMethod = t.IdentificationMethod
	m.IdentificationConfidence = t.IdentificationConfidence
	m.IdentificationReasoning = t.IdentificationReasoning
	m.Suggestions = t.Suggestions
	m.MatchedAt = t.MatchedAt
}

// BankTransactionModelFromDomain creates a new persistence model from a domain BankTransaction entity.
func BankTransactionModelFromDomain(t *reconciliation.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{}
	m.FromDomain(t)
	return m
}
