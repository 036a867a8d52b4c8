package cache

import (
	"context"
	"testing"
	"time"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRule(t *testing.T, tenantID uuid.UUID, pattern string) *ledger.MatchRule {
	t.Helper()

	rule, err := ledger.NewMatchRule(tenantID, pattern, "1.1.2.01.0042", nil)
	require.NoError(t, err)
	return rule
}

func TestInMemoryRuleCache_SetAndGet(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	rule := newTestRule(t, tenantID, "transportes silva")

	require.NoError(t, cache.Set(ctx, rule, 0))

	found, err := cache.Get(ctx, tenantID, "transportes silva")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rule.ID, found.ID)
	assert.Equal(t, "1.1.2.01.0042", found.AccountCode)
}

func TestInMemoryRuleCache_MissReturnsNilNil(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	found, err := cache.Get(context.Background(), uuid.New(), "padaria central")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInMemoryRuleCache_ExpiredEntryIsAMiss(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	rule := newTestRule(t, tenantID, "transportes silva")

	require.NoError(t, cache.Set(ctx, rule, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	found, err := cache.Get(ctx, tenantID, "transportes silva")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInMemoryRuleCache_TenantIsolation(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	rule := newTestRule(t, tenantID, "transportes silva")
	require.NoError(t, cache.Set(ctx, rule, 0))

	found, err := cache.Get(ctx, uuid.New(), "transportes silva")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInMemoryRuleCache_Delete(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	rule := newTestRule(t, tenantID, "transportes silva")
	require.NoError(t, cache.Set(ctx, rule, 0))

	require.NoError(t, cache.Delete(ctx, tenantID, "transportes silva"))

	found, err := cache.Get(ctx, tenantID, "transportes silva")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInMemoryRuleCache_InvalidateTenant(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	otherTenant := uuid.New()

	require.NoError(t, cache.Set(ctx, newTestRule(t, tenantID, "transportes silva"), 0))
	require.NoError(t, cache.Set(ctx, newTestRule(t, tenantID, "padaria central"), 0))
	kept := newTestRule(t, otherTenant, "transportes silva")
	require.NoError(t, cache.Set(ctx, kept, 0))

	require.NoError(t, cache.InvalidateTenant(ctx, tenantID))

	for _, pattern := range []string{"transportes silva", "padaria central"} {
		found, err := cache.Get(ctx, tenantID, pattern)
		require.NoError(t, err)
		assert.Nil(t, found)
	}

	found, err := cache.Get(ctx, otherTenant, "transportes silva")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, kept.ID, found.ID)
}

func TestInMemoryRuleCache_Stats(t *testing.T) {
	cache := NewInMemoryRuleCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	rule := newTestRule(t, tenantID, "transportes silva")
	require.NoError(t, cache.Set(ctx, rule, 0))

	_, _ = cache.Get(ctx, tenantID, "transportes silva")
	_, _ = cache.Get(ctx, tenantID, "transportes silva")
	_, _ = cache.Get(ctx, tenantID, "padaria central")

	hits, misses := cache.GetStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestInMemoryRuleCache_CloseIsIdempotent(t *testing.T) {
	cache := NewInMemoryRuleCache()
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
