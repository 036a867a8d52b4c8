package billing

import (
	"context"

	domain "github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateGroupInput carries the fields for forming an economic group.
// The main payer is enrolled as the first member automatically.
type CreateGroupInput struct {
	Name              string
	MainPayerClientID uuid.UUID
	PaymentDay        int
}

// GroupService manages economic groups. Membership changes keep the
// client registry and the group aggregate in step inside one
// transaction; the payment cascade depends on both agreeing.
type GroupService struct {
	groupRepo  domain.EconomicGroupRepository
	clientRepo domain.ClientRepository
	uow        shared.UnitOfWork
	logger     *zap.Logger
}

// NewGroupService creates a new GroupService
func NewGroupService(
	groupRepo domain.EconomicGroupRepository,
	clientRepo domain.ClientRepository,
	uow shared.UnitOfWork,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		groupRepo:  groupRepo,
		clientRepo: clientRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Create forms a group around its main payer. The payer's payment day is
// aligned with the group's so the payment-day invariant holds from the
// start.
func (s *GroupService) Create(ctx context.Context, tenantID uuid.UUID, input CreateGroupInput) (*domain.EconomicGroup, error) {
	payer, err := s.clientRepo.FindByID(ctx, tenantID, input.MainPayerClientID)
	if err != nil {
		return nil, err
	}
	if payer.InGroup() {
		return nil, shared.NewDomainError("ALREADY_MEMBER", "Main payer already belongs to an economic group")
	}

	group, err := domain.NewEconomicGroup(tenantID, input.Name, payer.GetID(), input.PaymentDay)
	if err != nil {
		return nil, err
	}
	if err := group.AddMember(payer.GetID(), payer.MonthlyFee); err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Save(ctx, group); err != nil {
			return err
		}
		if err := payer.AssignToGroup(group.GetID()); err != nil {
			return err
		}
		if err := payer.SetPaymentDay(group.PaymentDay); err != nil {
			return err
		}
		return s.clientRepo.Save(ctx, payer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("economic group created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("group_id", group.GetID().String()))
	return group, nil
}

// Get returns one group
func (s *GroupService) Get(ctx context.Context, tenantID, groupID uuid.UUID) (*domain.EconomicGroup, error) {
	return s.groupRepo.FindByID(ctx, tenantID, groupID)
}

// ListAll returns every group of the tenant
func (s *GroupService) ListAll(ctx context.Context, tenantID uuid.UUID) ([]*domain.EconomicGroup, error) {
	return s.groupRepo.FindAll(ctx, tenantID)
}

// AddMember enrolls a client in the group with its current monthly fee
func (s *GroupService) AddMember(ctx context.Context, tenantID, groupID, clientID uuid.UUID) (*domain.EconomicGroup, error) {
	group, err := s.groupRepo.FindByID(ctx, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if client.InGroup() {
		return nil, shared.NewDomainError("ALREADY_MEMBER", "Client already belongs to an economic group")
	}

	if err := group.AddMember(client.GetID(), client.MonthlyFee); err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Save(ctx, group); err != nil {
			return err
		}
		if err := client.AssignToGroup(group.GetID()); err != nil {
			return err
		}
		return s.clientRepo.Save(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// RemoveMember drops a client from the group. The main payer cannot
// leave; dissolve the group instead.
func (s *GroupService) RemoveMember(ctx context.Context, tenantID, groupID, clientID uuid.UUID) (*domain.EconomicGroup, error) {
	group, err := s.groupRepo.FindByID(ctx, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}

	if err := group.RemoveMember(client.GetID()); err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Save(ctx, group); err != nil {
			return err
		}
		client.RemoveFromGroup()
		return s.clientRepo.Save(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Dissolve deletes the group and detaches every member
func (s *GroupService) Dissolve(ctx context.Context, tenantID, groupID uuid.UUID) error {
	group, err := s.groupRepo.FindByID(ctx, tenantID, groupID)
	if err != nil {
		return err
	}

	return s.uow.Execute(ctx, func(ctx context.Context) error {
		members, err := s.clientRepo.FindByGroup(ctx, tenantID, group.GetID())
		if err != nil {
			return err
		}
		for _, member := range members {
			member.RemoveFromGroup()
			if err := s.clientRepo.Save(ctx, member); err != nil {
				return err
			}
		}
		return s.groupRepo.Delete(ctx, tenantID, group.GetID())
	})
}
