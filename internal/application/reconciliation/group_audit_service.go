package reconciliation

import (
	"context"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupAuditFinding is one group's violations, with what the audit did
// about them
type GroupAuditFinding struct {
	GroupID    uuid.UUID                `json:"group_id"`
	GroupName  string                   `json:"group_name"`
	Violations []billing.GroupViolation `json:"violations"`
	Repaired   bool                     `json:"repaired"`
}

// GroupAuditReport summarizes one audit pass
type GroupAuditReport struct {
	TenantID      uuid.UUID           `json:"tenant_id"`
	GroupsChecked int                 `json:"groups_checked"`
	Findings      []GroupAuditFinding `json:"findings,omitempty"`
}

// GroupAuditService sweeps economic groups for invariant violations.
// Fee-total drift is repaired in place; everything else is reported for
// manual correction so the payment cascade stops refusing to run.
type GroupAuditService struct {
	groupRepo  billing.EconomicGroupRepository
	clientRepo billing.ClientRepository
	logger     *zap.Logger
}

// NewGroupAuditService creates a new GroupAuditService
func NewGroupAuditService(
	groupRepo billing.EconomicGroupRepository,
	clientRepo billing.ClientRepository,
	logger *zap.Logger,
) *GroupAuditService {
	return &GroupAuditService{
		groupRepo:  groupRepo,
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Audit validates every group of the tenant
func (s *GroupAuditService) Audit(ctx context.Context, tenantID uuid.UUID) (*GroupAuditReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "group_audit", "audit")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	groups, err := s.groupRepo.FindAll(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &GroupAuditReport{TenantID: tenantID, GroupsChecked: len(groups)}
	for _, group := range groups {
		payerPaymentDay := 0
		payer, err := s.clientRepo.FindByID(ctx, tenantID, group.MainPayerClientID)
		if err == nil {
			payerPaymentDay = payer.PaymentDay
		}

		violations := group.Validate(payerPaymentDay)
		if len(violations) == 0 {
			continue
		}

		finding := GroupAuditFinding{
			GroupID:    group.GetID(),
			GroupName:  group.Name,
			Violations: violations,
		}

		if onlyFeeMismatch(violations) {
			group.RepairFeeTotal()
			if err := s.groupRepo.Save(ctx, group); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			finding.Repaired = true
			s.logger.Info("repaired group fee total",
				zap.String("group_id", group.GetID().String()))
		} else {
			s.logger.Warn("group flagged for manual correction",
				zap.String("group_id", group.GetID().String()),
				zap.Int("violations", len(violations)))
		}

		report.Findings = append(report.Findings, finding)
	}

	telemetry.SetAttributes(span,
		"groups_checked", report.GroupsChecked,
		"findings", len(report.Findings),
	)
	return report, nil
}

func onlyFeeMismatch(violations []billing.GroupViolation) bool {
	for _, v := range violations {
		if v.Code != "FEE_MISMATCH" {
			return false
		}
	}
	return true
}
