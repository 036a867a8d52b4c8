package models

import (
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChartOfAccountModel is the persistence model for the ChartOfAccount domain entity.
type ChartOfAccountModel struct {
	TenantAggregateModel
	Code     string               `gorm:"type:varchar(50);not null;index"`
	Name     string               `gorm:"type:varchar(200);not null"`
	Nature   ledger.AccountNature `gorm:"type:varchar(20);not null"`
	ClientID *uuid.UUID           `gorm:"type:uuid;index"`
	Active   bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ChartOfAccountModel) TableName() string {
	return "chart_of_accounts"
}

// ToDomain converts the persistence model to a domain ChartOfAccount entity.
func (m *ChartOfAccountModel) ToDomain() *ledger.ChartOfAccount {
	account := &ledger.ChartOfAccount{
		Code:     m.Code,
		Name:     m.Name,
		Nature:   m.Nature,
		ClientID: m.ClientID,
		Active:   m.Active,
	}
	m.PopulateTenantAggregateRoot(&account.TenantAggregateRoot)
	return account
}

// FromDomain populates the persistence model from a domain ChartOfAccount entity.
func (m *ChartOfAccountModel) FromDomain(a *ledger.ChartOfAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Nature = a.Nature
	m.ClientID = a.ClientID
	m.Active = a.Active
}

// ChartOfAccountModelFromDomain creates a new persistence model from a domain ChartOfAccount entity.
func ChartOfAccountModelFromDomain(a *ledger.ChartOfAccount) *ChartOfAccountModel {
	m := &ChartOfAccountModel{}
	m.FromDomain(a)
	return m
}

// MatchRuleModel is the persistence model for the MatchRule domain entity.
// Pattern lookups run on every reconciliation pass, hence the index.
type MatchRuleModel struct {
	TenantAggregateModel
	NormalizedPattern string     `gorm:"type:text;not null;index"`
	AccountCode       string     `gorm:"type:varchar(50);not null"`
	ClientID          *uuid.UUID `gorm:"type:uuid;index"`
	HitCount          int        `gorm:"not null;default:0"`
	LastHitAt         *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (MatchRuleModel) TableName() string {
	return "match_rules"
}

// ToDomain converts the persistence model to a domain MatchRule entity.
func (m *MatchRuleModel) ToDomain() *ledger.MatchRule {
	rule := &ledger.MatchRule{
		NormalizedPattern: m.NormalizedPattern,
		AccountCode:       m.AccountCode,
		ClientID:          m.ClientID,
		HitCount:          m.HitCount,
		LastHitAt:         m.LastHitAt,
	}
	m.PopulateTenantAggregateRoot(&rule.TenantAggregateRoot)
	return rule
}

// FromDomain populates the persistence model from a domain MatchRule entity.
func (m *MatchRuleModel) FromDomain(r *ledger.MatchRule) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.NormalizedPattern = r.NormalizedPattern
	m.AccountCode = r.AccountCode
	m.ClientID = r.ClientID
	m.HitCount = r.HitCount
	m.LastHitAt = r.LastHitAt
}

// MatchRuleModelFromDomain creates a new persistence model from a domain MatchRule entity.
func MatchRuleModelFromDomain(r *ledger.MatchRule) *MatchRuleModel {
	m := &MatchRuleModel{}
	m.FromDomain(r)
	return m
}

// Entry directions for settlement bookkeeping rows.
const (
	EntryDirectionDebit  = "DEBIT"
	EntryDirectionCredit = "CREDIT"
)

// SettlementEntryModel is one half of a double-entry pair written when an
// invoice settles. Rows are append-only; a reversal deletes the pair
// rather than writing compensating entries.
type SettlementEntryModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode   string          `gorm:"type:varchar(50);not null"`
	Direction     string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EntryDate     time.Time       `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettlementEntryModel) TableName() string {
	return "settlement_entries"
}
