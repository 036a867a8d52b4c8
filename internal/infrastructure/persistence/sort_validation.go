package persistence

import (
	"strings"
)

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Sort fields reach the ORDER BY clause verbatim, so everything not on the
// whitelist is discarded.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"document":    true,
	"monthly_fee": true,
	"payment_day": true,
	"active":      true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"client_name":    true,
	"amount":         true,
	"due_date":       true,
	"competence":     true,
	"status":         true,
	"paid_date":      true,
}

// BankTransactionSortFields contains allowed sort fields for bank transactions
var BankTransactionSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"transaction_date": true,
	"amount":           true,
	"status":           true,
	"matched_at":       true,
}

// ChartOfAccountSortFields contains allowed sort fields for chart accounts
var ChartOfAccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"nature":     true,
}
