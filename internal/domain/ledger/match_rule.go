package ledger

import (
	"time"

	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MatchRule maps a normalized bank-statement description to a chart
// account code. Rules are learned from manual match confirmations: once
// an operator links a payer description to a client, later statements
// carrying the same normalized text resolve without scoring.
type MatchRule struct {
	shared.TenantAggregateRoot
	NormalizedPattern string     `json:"normalized_pattern"`
	AccountCode       string     `json:"account_code"`
	ClientID          *uuid.UUID `json:"client_id"`
	HitCount          int        `json:"hit_count"`
	LastHitAt         *time.Time `json:"last_hit_at"`
}

// NewMatchRule creates a new learned match rule
func NewMatchRule(tenantID uuid.UUID, normalizedPattern, accountCode string, clientID *uuid.UUID) (*MatchRule, error) {
	if normalizedPattern == "" {
		return nil, shared.NewDomainError("INVALID_PATTERN", "Match rule pattern cannot be empty")
	}
	if !ValidAccountCode(accountCode) {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Match rule account code is not a valid chart code")
	}

	return &MatchRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		NormalizedPattern:   normalizedPattern,
		AccountCode:         accountCode,
		ClientID:            clientID,
	}, nil
}

// RecordHit counts one application of the rule
func (r *MatchRule) RecordHit(at time.Time) {
	r.HitCount++
	r.LastHitAt = &at
	r.IncrementVersion()
}

// Retarget points the rule at a different account, keeping its pattern.
// Used when an operator corrects a previously learned association.
func (r *MatchRule) Retarget(accountCode string, clientID *uuid.UUID) error {
	if !ValidAccountCode(accountCode) {
		return shared.NewDomainError("INVALID_ACCOUNT_CODE", "Match rule account code is not a valid chart code")
	}
	r.AccountCode = accountCode
	r.ClientID = clientID
	r.IncrementVersion()
	return nil
}
