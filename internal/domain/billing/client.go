package billing

import (
	"strings"
	"unicode"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of fiscal document a client holds
type DocumentType string

const (
	DocumentTypeCNPJ DocumentType = "CNPJ" // legal entity, 14 digits
	DocumentTypeCPF  DocumentType = "CPF"  // natural person, 11 digits
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	return t == DocumentTypeCNPJ || t == DocumentTypeCPF
}

// NormalizeDocument strips every non-digit character from a fiscal document
func NormalizeDocument(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectDocumentType infers CNPJ or CPF from the digit count of a document.
// Returns empty type when the document matches neither format.
func DetectDocumentType(doc string) DocumentType {
	switch len(NormalizeDocument(doc)) {
	case 14:
		return DocumentTypeCNPJ
	case 11:
		return DocumentTypeCPF
	}
	return ""
}

// Client represents a managed accounting client. Each client holds exactly
// one fiscal document (CNPJ or CPF) and may belong to at most one economic
// group. QSA names are the registered partners/shareholders of a legal
// entity, used by the reconciliation engine to recognize payers that settle
// through a partner's personal account.
type Client struct {
	shared.TenantAggregateRoot
	Name            string          `json:"name"`
	Document        string          `json:"document"` // digits only
	DocumentType    DocumentType    `json:"document_type"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	PaymentDay      int             `json:"payment_day"` // 1-31
	EconomicGroupID *uuid.UUID      `json:"economic_group_id"`
	QSANames        []string        `json:"qsa_names"`
	Active          bool            `json:"active"`
}

// NewClient creates a new client
func NewClient(
	tenantID uuid.UUID,
	name string,
	document string,
	monthlyFee decimal.Decimal,
	paymentDay int,
) (*Client, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
	}
	normalized := NormalizeDocument(document)
	docType := DetectDocumentType(normalized)
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document must be a CNPJ (14 digits) or CPF (11 digits)")
	}
	if monthlyFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}
	if paymentDay < 1 || paymentDay > 31 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DAY", "Payment day must be between 1 and 31")
	}

	return &Client{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Document:            normalized,
		DocumentType:        docType,
		MonthlyFee:          monthlyFee,
		PaymentDay:          paymentDay,
		QSANames:            []string{},
		Active:              true,
	}, nil
}

// AssignToGroup places the client in an economic group
func (c *Client) AssignToGroup(groupID uuid.UUID) error {
	if groupID == uuid.Nil {
		return shared.NewDomainError("INVALID_GROUP", "Group ID cannot be empty")
	}
	c.EconomicGroupID = &groupID
	c.IncrementVersion()
	return nil
}

// RemoveFromGroup detaches the client from its economic group
func (c *Client) RemoveFromGroup() {
	c.EconomicGroupID = nil
	c.IncrementVersion()
}

// SetPaymentDay updates the expected payment day of the month
func (c *Client) SetPaymentDay(day int) error {
	if day < 1 || day > 31 {
		return shared.NewDomainError("INVALID_PAYMENT_DAY", "Payment day must be between 1 and 31")
	}
	c.PaymentDay = day
	c.IncrementVersion()
	return nil
}

// SetQSANames replaces the registered partner/shareholder names
func (c *Client) SetQSANames(names []string) {
	c.QSANames = names
	c.IncrementVersion()
}

// InGroup returns true when the client belongs to an economic group
func (c *Client) InGroup() bool {
	return c.EconomicGroupID != nil
}
