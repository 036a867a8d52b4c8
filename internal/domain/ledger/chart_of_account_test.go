package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAccountCode(t *testing.T) {
	assert.True(t, ValidAccountCode("1"))
	assert.True(t, ValidAccountCode("1.1.2.01"))
	assert.True(t, ValidAccountCode("1.1.2.01.0042"))
	assert.False(t, ValidAccountCode(""))
	assert.False(t, ValidAccountCode("1..2"))
	assert.False(t, ValidAccountCode("1.a.2"))
	assert.False(t, ValidAccountCode("1.1."))
}

func TestChartOfAccountHierarchy(t *testing.T) {
	a, err := NewChartOfAccount(uuid.New(), "1.1.2.01", "Clientes a Receber", AccountNatureAsset)
	require.NoError(t, err)
	assert.Equal(t, "1.1.2", a.ParentCode())
	assert.Equal(t, 4, a.Depth())
	assert.True(t, a.IsReceivable())

	root, err := NewChartOfAccount(uuid.New(), "1", "Ativo", AccountNatureAsset)
	require.NoError(t, err)
	assert.Equal(t, "", root.ParentCode())
	assert.Equal(t, 1, root.Depth())
	assert.False(t, root.IsReceivable())
}

func TestNewClientReceivableAccount(t *testing.T) {
	clientID := uuid.New()
	a, err := NewClientReceivableAccount(uuid.New(), "1.1.2.01.0042", "Padaria Estrela LTDA", clientID)
	require.NoError(t, err)
	assert.True(t, a.IsReceivable())
	require.NotNil(t, a.ClientID)
	assert.Equal(t, clientID, *a.ClientID)

	_, err = NewClientReceivableAccount(uuid.New(), "2.1.1.01.0042", "Fornecedor", clientID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_ACCOUNT_CODE")
}

func TestMatchRule(t *testing.T) {
	clientID := uuid.New()
	rule, err := NewMatchRule(uuid.New(), "pix recebido padaria estrela", "1.1.2.01.0042", &clientID)
	require.NoError(t, err)
	assert.Equal(t, 0, rule.HitCount)
	assert.Nil(t, rule.LastHitAt)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rule.RecordHit(at)
	rule.RecordHit(at.Add(time.Hour))
	assert.Equal(t, 2, rule.HitCount)
	require.NotNil(t, rule.LastHitAt)
	assert.Equal(t, at.Add(time.Hour), *rule.LastHitAt)

	require.NoError(t, rule.Retarget("1.1.2.01.0099", nil))
	assert.Equal(t, "1.1.2.01.0099", rule.AccountCode)
	assert.Nil(t, rule.ClientID)

	err = rule.Retarget("not-a-code", nil)
	require.Error(t, err)

	_, err = NewMatchRule(uuid.New(), "", "1.1.2.01.0042", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_PATTERN")
}
