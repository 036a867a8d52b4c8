package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GroupMember is one client's participation in an economic group.
// Stored as JSONB within the EconomicGroup aggregate.
type GroupMember struct {
	ClientID      uuid.UUID       `json:"client_id"`
	IndividualFee decimal.Decimal `json:"individual_fee"`
	Position      int             `json:"position"` // stable ordering within the group
}

// GroupMembers is a slice of GroupMember implementing Scanner/Valuer for JSONB storage
type GroupMembers []GroupMember

// Value implements driver.Valuer for GORM to store as JSONB
func (m GroupMembers) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (m *GroupMembers) Scan(value interface{}) error {
	if value == nil {
		*m = GroupMembers{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan GroupMembers: unsupported type")
	}

	if len(bytes) == 0 {
		*m = GroupMembers{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// EconomicGroup is a set of client entities billed together, with one
// designated main payer settling on behalf of all members.
//
// Invariants:
//  1. TotalMonthlyFee equals the sum of the members' individual fees.
//  2. The main payer is a member of the group.
//  3. The main payer's client record and the group share the same payment day.
//
// Validate reports violations; the group audit pass repairs or flags them.
// The payment cascade refuses to run against a group that fails validation.
type EconomicGroup struct {
	shared.TenantAggregateRoot
	Name             string          `json:"name"`
	MainPayerClientID uuid.UUID      `json:"main_payer_client_id"`
	TotalMonthlyFee  decimal.Decimal `json:"total_monthly_fee"`
	PaymentDay       int             `json:"payment_day"`
	Members          GroupMembers    `json:"members"`
}

// NewEconomicGroup creates a new economic group
func NewEconomicGroup(
	tenantID uuid.UUID,
	name string,
	mainPayerClientID uuid.UUID,
	paymentDay int,
) (*EconomicGroup, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Group name cannot be empty")
	}
	if mainPayerClientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYER", "Main payer client ID cannot be empty")
	}
	if paymentDay < 1 || paymentDay > 31 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DAY", "Payment day must be between 1 and 31")
	}

	return &EconomicGroup{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		MainPayerClientID:   mainPayerClientID,
		TotalMonthlyFee:     decimal.Zero,
		PaymentDay:          paymentDay,
		Members:             GroupMembers{},
	}, nil
}

// AddMember appends a member and adjusts the total fee
func (g *EconomicGroup) AddMember(clientID uuid.UUID, individualFee decimal.Decimal) error {
	if clientID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLIENT", "Member client ID cannot be empty")
	}
	if individualFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Individual fee cannot be negative")
	}
	for _, m := range g.Members {
		if m.ClientID == clientID {
			return shared.NewDomainError("ALREADY_MEMBER", "Client is already a member of this group")
		}
	}

	g.Members = append(g.Members, GroupMember{
		ClientID:      clientID,
		IndividualFee: individualFee,
		Position:      len(g.Members),
	})
	g.TotalMonthlyFee = g.TotalMonthlyFee.Add(individualFee)
	g.IncrementVersion()
	return nil
}

// RemoveMember drops a member and adjusts the total fee.
// The main payer cannot be removed.
func (g *EconomicGroup) RemoveMember(clientID uuid.UUID) error {
	if clientID == g.MainPayerClientID {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove the main payer from the group")
	}
	for i, m := range g.Members {
		if m.ClientID == clientID {
			g.TotalMonthlyFee = g.TotalMonthlyFee.Sub(m.IndividualFee)
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			for j := range g.Members {
				g.Members[j].Position = j
			}
			g.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("NOT_MEMBER", "Client is not a member of this group")
}

// HasMember returns true when the client belongs to the group
func (g *EconomicGroup) HasMember(clientID uuid.UUID) bool {
	for _, m := range g.Members {
		if m.ClientID == clientID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member client IDs in stable order
func (g *EconomicGroup) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ClientID
	}
	return ids
}

// SumMemberFees returns the sum of the individual member fees
func (g *EconomicGroup) SumMemberFees() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range g.Members {
		sum = sum.Add(m.IndividualFee)
	}
	return sum
}

// GroupViolation describes one invariant violation found by Validate
type GroupViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks the group invariants and returns every violation found.
// An empty result means the group is consistent.
func (g *EconomicGroup) Validate(payerPaymentDay int) []GroupViolation {
	violations := make([]GroupViolation, 0)

	if len(g.Members) == 0 {
		violations = append(violations, GroupViolation{
			Code:    "NO_MEMBERS",
			Message: "Group has no members",
		})
	}
	if !g.HasMember(g.MainPayerClientID) {
		violations = append(violations, GroupViolation{
			Code:    "PAYER_NOT_MEMBER",
			Message: "Main payer is not a member of the group",
		})
	}
	if feeSum := g.SumMemberFees(); !g.TotalMonthlyFee.Equal(feeSum) {
		violations = append(violations, GroupViolation{
			Code: "FEE_MISMATCH",
			Message: fmt.Sprintf("Total monthly fee %s does not match member fee sum %s",
				g.TotalMonthlyFee.StringFixed(2), feeSum.StringFixed(2)),
		})
	}
	if payerPaymentDay != 0 && payerPaymentDay != g.PaymentDay {
		violations = append(violations, GroupViolation{
			Code: "PAYMENT_DAY_DESYNC",
			Message: fmt.Sprintf("Group payment day %d differs from main payer payment day %d",
				g.PaymentDay, payerPaymentDay),
		})
	}

	return violations
}

// RepairFeeTotal resets the total monthly fee to the member fee sum.
// Used by the audit pass when FEE_MISMATCH is found.
func (g *EconomicGroup) RepairFeeTotal() {
	g.TotalMonthlyFee = g.SumMemberFees()
	g.IncrementVersion()
}
