package ledger

import (
	"strings"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountNature classifies a chart account
type AccountNature string

const (
	AccountNatureAsset     AccountNature = "ASSET"
	AccountNatureLiability AccountNature = "LIABILITY"
	AccountNatureRevenue   AccountNature = "REVENUE"
	AccountNatureExpense   AccountNature = "EXPENSE"
)

// IsValid checks if the account nature is valid
func (n AccountNature) IsValid() bool {
	switch n {
	case AccountNatureAsset, AccountNatureLiability, AccountNatureRevenue, AccountNatureExpense:
		return true
	}
	return false
}

// ReceivableAccountPrefix is the code prefix under which per-client
// receivable accounts live in the chart.
const ReceivableAccountPrefix = "1.1.2.01"

// ChartOfAccount is one account in the hierarchical chart. Codes are
// dot-separated paths ("1.1.2.01.0042"); the parent relationship is
// derived from the code, not stored.
type ChartOfAccount struct {
	shared.TenantAggregateRoot
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Nature   AccountNature `json:"nature"`
	ClientID *uuid.UUID    `json:"client_id"` // set for per-client receivable accounts
	Active   bool          `json:"active"`
}

// NewChartOfAccount creates a new chart account
func NewChartOfAccount(tenantID uuid.UUID, code, name string, nature AccountNature) (*ChartOfAccount, error) {
	if !ValidAccountCode(code) {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code must be dot-separated numeric segments")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if !nature.IsValid() {
		return nil, shared.NewDomainError("INVALID_NATURE", "Unknown account nature")
	}

	return &ChartOfAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Nature:              nature,
		Active:              true,
	}, nil
}

// NewClientReceivableAccount creates the receivable account for one client,
// placed under the receivable prefix.
func NewClientReceivableAccount(tenantID uuid.UUID, code, clientName string, clientID uuid.UUID) (*ChartOfAccount, error) {
	if !strings.HasPrefix(code, ReceivableAccountPrefix+".") {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE",
			"Client receivable accounts must live under "+ReceivableAccountPrefix)
	}
	account, err := NewChartOfAccount(tenantID, code, clientName, AccountNatureAsset)
	if err != nil {
		return nil, err
	}
	account.ClientID = &clientID
	return account, nil
}

// ValidAccountCode reports whether the code is a dot-separated numeric path
func ValidAccountCode(code string) bool {
	if code == "" {
		return false
	}
	for _, segment := range strings.Split(code, ".") {
		if segment == "" {
			return false
		}
		for _, r := range segment {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// ParentCode returns the code of the parent account, or "" for roots
func (a *ChartOfAccount) ParentCode() string {
	idx := strings.LastIndex(a.Code, ".")
	if idx < 0 {
		return ""
	}
	return a.Code[:idx]
}

// Depth returns the nesting level of the account (roots are 1)
func (a *ChartOfAccount) Depth() int {
	return strings.Count(a.Code, ".") + 1
}

// IsReceivable returns true for accounts under the receivable prefix
func (a *ChartOfAccount) IsReceivable() bool {
	return a.Code == ReceivableAccountPrefix || strings.HasPrefix(a.Code, ReceivableAccountPrefix+".")
}

// Deactivate marks the account inactive
func (a *ChartOfAccount) Deactivate() {
	a.Active = false
	a.IncrementVersion()
}
