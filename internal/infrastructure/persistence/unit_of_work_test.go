package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUnitOfWorkTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.MatchRuleModel{})
	require.NoError(t, err)

	return db
}

func TestGormUnitOfWork_CommitsOnSuccess(t *testing.T) {
	db := setupUnitOfWorkTestDB(t)
	uow := NewGormUnitOfWork(db)
	repo := NewGormMatchRuleRepository(db)
	tenantID := uuid.New()

	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)

	err = uow.Execute(context.Background(), func(ctx context.Context) error {
		return repo.Save(ctx, rule)
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), tenantID, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, found.ID)
}

func TestGormUnitOfWork_RollsBackOnError(t *testing.T) {
	db := setupUnitOfWorkTestDB(t)
	uow := NewGormUnitOfWork(db)
	repo := NewGormMatchRuleRepository(db)
	tenantID := uuid.New()

	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)

	boom := errors.New("settlement entries failed")
	err = uow.Execute(context.Background(), func(ctx context.Context) error {
		if err := repo.Save(ctx, rule); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(context.Background(), tenantID, rule.ID)
	assert.Equal(t, shared.ErrNotFound, err)
}

func TestGormUnitOfWork_NestedExecuteReusesTransaction(t *testing.T) {
	db := setupUnitOfWorkTestDB(t)
	uow := NewGormUnitOfWork(db)
	repo := NewGormMatchRuleRepository(db)
	tenantID := uuid.New()

	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)

	boom := errors.New("outer failure")
	err = uow.Execute(context.Background(), func(ctx context.Context) error {
		if err := uow.Execute(ctx, func(inner context.Context) error {
			return repo.Save(inner, rule)
		}); err != nil {
			return err
		}
		// the nested save must roll back with the outer transaction
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(context.Background(), tenantID, rule.ID)
	assert.Equal(t, shared.ErrNotFound, err)
}
