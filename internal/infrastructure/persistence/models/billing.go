package models

import (
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the Client domain entity.
type ClientModel struct {
	TenantAggregateModel
	Name            string               `gorm:"type:varchar(200);not null"`
	Document        string               `gorm:"type:varchar(14);not null;index"`
	DocumentType    billing.DocumentType `gorm:"type:varchar(4);not null"`
	MonthlyFee      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentDay      int                  `gorm:"not null;default:1"`
	EconomicGroupID *uuid.UUID           `gorm:"type:uuid;index"`
	QSANames        pq.StringArray       `gorm:"type:text[];column:qsa_names"`
	Active          bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client entity.
func (m *ClientModel) ToDomain() *billing.Client {
	client := &billing.Client{
		Name:            m.Name,
		Document:        m.Document,
		DocumentType:    m.DocumentType,
		MonthlyFee:      m.MonthlyFee,
		PaymentDay:      m.PaymentDay,
		EconomicGroupID: m.EconomicGroupID,
		QSANames:        []string(m.QSANames),
		Active:          m.Active,
	}
	m.PopulateTenantAggregateRoot(&client.TenantAggregateRoot)
	return client
}

// FromDomain populates the persistence model from a domain Client entity.
func (m *ClientModel) FromDomain(c *billing.Client) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.Document = c.Document
	m.DocumentType = c.DocumentType
	m.MonthlyFee = c.MonthlyFee
	m.PaymentDay = c.PaymentDay
	m.EconomicGroupID = c.EconomicGroupID
	m.QSANames = pq.StringArray(c.QSANames)
	m.Active = c.Active
}

// ClientModelFromDomain creates a new persistence model from a domain Client entity.
func ClientModelFromDomain(c *billing.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// EconomicGroupModel is the persistence model for the EconomicGroup domain entity.
// Members are stored inline as JSONB; the group is always loaded whole.
type EconomicGroupModel struct {
	TenantAggregateModel
	Name              string               `gorm:"type:varchar(200);not null"`
	MainPayerClientID uuid.UUID            `gorm:"type:uuid;not null;index"`
	TotalMonthlyFee   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentDay        int                  `gorm:"not null;default:1"`
	Members           billing.GroupMembers `gorm:"type:jsonb;not null;default:'[]'"`
}

// TableName returns the table name for GORM
func (EconomicGroupModel) TableName() string {
	return "economic_groups"
}

// ToDomain converts the persistence model to a domain EconomicGroup entity.
func (m *EconomicGroupModel) ToDomain() *billing.EconomicGroup {
	group := &billing.EconomicGroup{
		Name:              m.Name,
		MainPayerClientID: m.MainPayerClientID,
		TotalMonthlyFee:   m.TotalMonthlyFee,
		PaymentDay:        m.PaymentDay,
		Members:           m.Members,
	}
	m.PopulateTenantAggregateRoot(&group.TenantAggregateRoot)
	return group
}

// FromDomain populates the persistence model from a domain EconomicGroup entity.
func (m *EconomicGroupModel) FromDomain(g *billing.EconomicGroup) {
	m.FromDomainTenantAggregateRoot(g.TenantAggregateRoot)
	m.Name = g.Name
	m.MainPayerClientID = g.MainPayerClientID
	m.TotalMonthlyFee = g.TotalMonthlyFee
	m.PaymentDay = g.PaymentDay
	m.Members = g.Members
}

// EconomicGroupModelFromDomain creates a new persistence model from a domain EconomicGroup entity.
func EconomicGroupModelFromDomain(g *billing.EconomicGroup) *EconomicGroupModel {
	m := &EconomicGroupModel{}
	m.FromDomain(g)
	return m
}

// InvoiceModel is the persistence model for the Invoice domain entity.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber          string                   `gorm:"type:varchar(50);not null;index"`
	ClientID               uuid.UUID                `gorm:"type:uuid;not null;index"`
	ClientName             string                   `gorm:"type:varchar(200);not null"`
	Amount                 decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	PaidAmount             decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	DueDate                time.Time                `gorm:"not null;index"`
	Competence             valueobject.Competence   `gorm:"type:varchar(7);not null;index"`
	Status                 billing.InvoiceStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaidDate               *time.Time               `gorm:""`
	SettledByTransactionID *uuid.UUID               `gorm:"type:uuid;index"`
	SettlementOrigin       billing.SettlementOrigin `gorm:"type:varchar(20)"`
	CascadeOriginInvoiceID *uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	invoice := &billing.Invoice{
		InvoiceNumber:          m.InvoiceNumber,
		ClientID:               m.ClientID,
		ClientName:             m.ClientName,
		Amount:                 m.Amount,
		PaidAmount:             m.PaidAmount,
		DueDate:                m.DueDate,
		Competence:             m.Competence,
		Status:                 m.Status,
		PaidDate:               m.PaidDate,
		SettledByTransactionID: m.SettledByTransactionID,
		SettlementOrigin:       m.SettlementOrigin,
		CascadeOriginInvoiceID: m.CascadeOriginInvoiceID,
	}
	m.PopulateTenantAggregateRoot(&invoice.TenantAggregateRoot)
	return invoice
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ClientID = inv.ClientID
	m.ClientName = inv.ClientName
	m.Amount = inv.Amount
	m.PaidAmount = inv.PaidAmount
	m.DueDate = inv.DueDate
	m.Competence = inv.Competence
	m.Status = inv.Status
	m.PaidDate = inv.PaidDate
	m.SettledByTransactionID = inv.SettledByTransactionID
	m.SettlementOrigin = inv.SettlementOrigin
	m.CascadeOriginInvoiceID = inv.CascadeOriginInvoiceID
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}
