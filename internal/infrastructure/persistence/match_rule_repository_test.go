package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMatchRuleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.MatchRuleModel{})
	require.NoError(t, err)

	return db
}

func TestGormMatchRuleRepository_SaveAndFindByPattern(t *testing.T) {
	db := setupMatchRuleTestDB(t)
	repo := NewGormMatchRuleRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	clientID := uuid.New()
	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", &clientID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rule))

	t.Run("finds by normalized pattern", func(t *testing.T) {
		found, err := repo.FindByPattern(ctx, tenantID, "transportes silva")
		require.NoError(t, err)
		assert.Equal(t, rule.ID, found.ID)
		assert.Equal(t, "1.1.2.01.0042", found.AccountCode)
		require.NotNil(t, found.ClientID)
		assert.Equal(t, clientID, *found.ClientID)
	})

	t.Run("not found for unknown pattern", func(t *testing.T) {
		_, err := repo.FindByPattern(ctx, tenantID, "padaria central")
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("not found for other tenant", func(t *testing.T) {
		_, err := repo.FindByPattern(ctx, uuid.New(), "transportes silva")
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := repo.FindByPattern(ctx, tenantID, "")
		assert.Error(t, err)
	})
}

func TestGormMatchRuleRepository_SavePersistsHits(t *testing.T) {
	db := setupMatchRuleTestDB(t)
	repo := NewGormMatchRuleRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rule))

	rule.RecordHit(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, rule))

	found, err := repo.FindByID(ctx, tenantID, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.HitCount)
	require.NotNil(t, found.LastHitAt)
}

func TestGormMatchRuleRepository_FindAllOrdersByUsage(t *testing.T) {
	db := setupMatchRuleTestDB(t)
	repo := NewGormMatchRuleRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	cold, err := ledger.NewMatchRule(tenantID, "padaria central", "1.1.2.01.0007", nil)
	require.NoError(t, err)
	hot, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)
	hot.RecordHit(time.Now())
	hot.RecordHit(time.Now())

	require.NoError(t, repo.Save(ctx, cold))
	require.NoError(t, repo.Save(ctx, hot))

	rules, err := repo.FindAll(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "transportes silva", rules[0].NormalizedPattern)
	assert.Equal(t, "padaria central", rules[1].NormalizedPattern)
}

func TestGormMatchRuleRepository_Delete(t *testing.T) {
	db := setupMatchRuleTestDB(t)
	repo := NewGormMatchRuleRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	rule, err := ledger.NewMatchRule(tenantID, "transportes silva", "1.1.2.01.0042", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rule))

	require.NoError(t, repo.Delete(ctx, tenantID, rule.ID))

	_, err = repo.FindByID(ctx, tenantID, rule.ID)
	assert.Equal(t, shared.ErrNotFound, err)

	t.Run("deleting again reports not found", func(t *testing.T) {
		err := repo.Delete(ctx, tenantID, rule.ID)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}
