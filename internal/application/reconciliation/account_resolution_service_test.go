package reconciliation

import (
	"context"
	"testing"

	"github.com/contaflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newResolutionEnv(t *testing.T) (*testEnv, *AccountResolutionService) {
	t.Helper()
	env := newTestEnv(t)
	service := NewAccountResolutionService(env.accounts, env.rules, DefaultOptions(), zap.NewNop())
	return env, service
}

func addReceivable(t *testing.T, env *testEnv, code, name string) *ledger.ChartOfAccount {
	t.Helper()
	clientID := uuid.New()
	account, err := ledger.NewClientReceivableAccount(env.tenantID, code, name, clientID)
	require.NoError(t, err)
	env.accounts.add(account)
	return account
}

func TestResolveBySimilarity(t *testing.T) {
	env, service := newResolutionEnv(t)
	abc := addReceivable(t, env, "1.1.2.01.0001", "ABC")
	addReceivable(t, env, "1.1.2.01.0002", "Mercearia Central")

	// legal suffix stripped, then full containment scores 1.0
	resolution, err := service.Resolve(context.Background(), env.tenantID, "COMPANHIA ABC LTDA")
	require.NoError(t, err)
	require.NotNil(t, resolution)
	assert.Equal(t, abc.GetID(), resolution.Account.GetID())
	assert.InDelta(t, 1.0, resolution.Similarity, 0.0001)
	assert.False(t, resolution.ViaRule)
}

func TestResolveBelowThreshold(t *testing.T) {
	env, service := newResolutionEnv(t)
	addReceivable(t, env, "1.1.2.01.0001", "Padaria Estrela Dourada Matriz")

	resolution, err := service.Resolve(context.Background(), env.tenantID, "Oficina Mecanica Silva")
	require.NoError(t, err)
	assert.Nil(t, resolution)
}

func TestResolveRuleShortCircuits(t *testing.T) {
	env, service := newResolutionEnv(t)
	// similarity would pick the closer name; the learned rule wins outright
	similar := addReceivable(t, env, "1.1.2.01.0001", "Transportes Silva")
	ruled := addReceivable(t, env, "1.1.2.01.0002", "Grupo Silva Participacoes")

	_, err := service.LearnRule(context.Background(), env.tenantID, "Transportes Silva", ruled.Code, ruled.ClientID)
	require.NoError(t, err)

	resolution, err := service.Resolve(context.Background(), env.tenantID, "Transportes Silva")
	require.NoError(t, err)
	require.NotNil(t, resolution)
	assert.True(t, resolution.ViaRule)
	assert.Equal(t, ruled.GetID(), resolution.Account.GetID())
	assert.NotEqual(t, similar.GetID(), resolution.Account.GetID())

	// the hit was counted
	rule, err := env.rules.FindByPattern(context.Background(), env.tenantID, "transportes silva")
	require.NoError(t, err)
	assert.Equal(t, 1, rule.HitCount)
}

func TestLearnRuleRetargetsExisting(t *testing.T) {
	env, service := newResolutionEnv(t)
	first := addReceivable(t, env, "1.1.2.01.0001", "Padaria Estrela")
	second := addReceivable(t, env, "1.1.2.01.0002", "Padaria Estrela Filial")

	rule, err := service.LearnRule(context.Background(), env.tenantID, "PIX PADARIA", first.Code, first.ClientID)
	require.NoError(t, err)

	again, err := service.LearnRule(context.Background(), env.tenantID, "PIX PADARIA", second.Code, second.ClientID)
	require.NoError(t, err)

	assert.Equal(t, rule.GetID(), again.GetID(), "same pattern retargets, never duplicates")
	assert.Equal(t, second.Code, again.AccountCode)
}

func TestResolveDegenerateName(t *testing.T) {
	env, service := newResolutionEnv(t)
	addReceivable(t, env, "1.1.2.01.0001", "Padaria Estrela")

	resolution, err := service.Resolve(context.Background(), env.tenantID, "***")
	require.NoError(t, err)
	assert.Nil(t, resolution)
}
