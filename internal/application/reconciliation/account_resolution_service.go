package reconciliation

import (
	"context"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountResolution is the outcome of resolving a payer name to a
// receivable account
type AccountResolution struct {
	Account    *ledger.ChartOfAccount `json:"account"`
	RuleID     *uuid.UUID             `json:"rule_id,omitempty"`
	Similarity float64                `json:"similarity"`
	ViaRule    bool                   `json:"via_rule"`
}

// AccountResolutionService maps free-text payer names to client-receivable
// chart accounts. A learned rule for the exact normalized name wins
// outright; only without one does similarity scoring run over the
// receivable accounts.
type AccountResolutionService struct {
	accountRepo ledger.ChartOfAccountRepository
	ruleRepo    ledger.MatchRuleRepository
	options     Options
	logger      *zap.Logger
}

// NewAccountResolutionService creates a new AccountResolutionService
func NewAccountResolutionService(
	accountRepo ledger.ChartOfAccountRepository,
	ruleRepo ledger.MatchRuleRepository,
	options Options,
	logger *zap.Logger,
) *AccountResolutionService {
	return &AccountResolutionService{
		accountRepo: accountRepo,
		ruleRepo:    ruleRepo,
		options:     options.normalized(),
		logger:      logger,
	}
}

// Resolve finds the receivable account for a payer name, or nil when
// nothing clears the similarity threshold. Rule hits are counted.
func (s *AccountResolutionService) Resolve(ctx context.Context, tenantID uuid.UUID, payerName string) (*AccountResolution, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account_resolution", "resolve")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	normalized := domain.NormalizeName(payerName)
	if normalized == "" {
		return nil, nil
	}

	rule, err := s.ruleRepo.FindByPattern(ctx, tenantID, normalized)
	if err != nil && !shared.IsNotFound(err) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if rule != nil {
		account, err := s.accountRepo.FindByCode(ctx, tenantID, rule.AccountCode)
		if err != nil && !shared.IsNotFound(err) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if account != nil {
			rule.RecordHit(time.Now())
			if err := s.ruleRepo.Save(ctx, rule); err != nil {
				// hit counting is advisory, resolution still succeeded
				s.logger.Warn("failed to record match rule hit",
					zap.String("rule_id", rule.GetID().String()),
					zap.Error(err))
			}
			ruleID := rule.GetID()
			telemetry.AddEvent(span, "rule_hit", "rule_id", ruleID.String())
			return &AccountResolution{Account: account, RuleID: &ruleID, Similarity: 1.0, ViaRule: true}, nil
		}
		s.logger.Warn("match rule points at a missing account",
			zap.String("rule_id", rule.GetID().String()),
			zap.String("account_code", rule.AccountCode))
	}

	accounts, err := s.accountRepo.FindReceivables(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var best *ledger.ChartOfAccount
	bestScore := 0.0
	for _, account := range accounts {
		score := domain.NameSimilarity(normalized, domain.NormalizeName(account.Name))
		if score > bestScore {
			best, bestScore = account, score
		}
	}
	if best == nil || bestScore < s.options.SimilarityThreshold {
		return nil, nil
	}

	telemetry.SetAttributes(span, "similarity", bestScore)
	return &AccountResolution{Account: best, Similarity: bestScore}, nil
}

// LearnRule persists a name-to-account association after a confirmed
// resolution, so future statements with the same payer skip scoring.
// An existing rule for the pattern is retargeted instead of duplicated.
func (s *AccountResolutionService) LearnRule(ctx context.Context, tenantID uuid.UUID, payerName, accountCode string, clientID *uuid.UUID) (*ledger.MatchRule, error) {
	normalized := domain.NormalizeName(payerName)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_PATTERN", "Payer name normalizes to nothing")
	}

	existing, err := s.ruleRepo.FindByPattern(ctx, tenantID, normalized)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if err := existing.Retarget(accountCode, clientID); err != nil {
			return nil, err
		}
		if err := s.ruleRepo.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	rule, err := ledger.NewMatchRule(tenantID, normalized, accountCode, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("learned match rule",
		zap.String("tenant_id", tenantID.String()),
		zap.String("pattern", normalized),
		zap.String("account_code", accountCode))
	return rule, nil
}

// ListRules returns every learned rule of the tenant
func (s *AccountResolutionService) ListRules(ctx context.Context, tenantID uuid.UUID) ([]*ledger.MatchRule, error) {
	return s.ruleRepo.FindAll(ctx, tenantID)
}

// ForgetRule removes a learned rule
func (s *AccountResolutionService) ForgetRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	if err := s.ruleRepo.Delete(ctx, tenantID, ruleID); err != nil {
		return err
	}
	s.logger.Info("forgot match rule",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", ruleID.String()))
	return nil
}
