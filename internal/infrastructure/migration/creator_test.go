package migration

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add settlement entries", "add_settlement_entries"},
		{"Add-Match-Rules", "add_match_rules"},
		{"ADD_BANK_TRANSACTIONS", "add_bank_transactions"},
		{"add__clients__table", "add_clients_table"},
		{"Schema v2", "schema_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "add settlement entries")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Version is a YYYYMMDDHHMMSS timestamp
	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	assert.FileExists(t, mf.UpPath)
	assert.FileExists(t, mf.DownPath)

	migrations, err := ListMigrations(tmpDir)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, upBase, migrations[0])
}

func TestListMigrationsMissingDir(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
