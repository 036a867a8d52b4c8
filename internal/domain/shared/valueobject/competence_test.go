package valueobject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompetence(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		month   int
		year    int
		wantErr bool
	}{
		{name: "valid march", input: "03/2024", month: 3, year: 2024},
		{name: "valid december", input: "12/2025", month: 12, year: 2025},
		{name: "month out of range", input: "13/2024", wantErr: true},
		{name: "zero month", input: "00/2024", wantErr: true},
		{name: "garbage", input: "march 2024", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCompetence(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.month, c.Month())
			assert.Equal(t, tt.year, c.Year())
			assert.Equal(t, tt.input, c.String())
		})
	}
}

func TestCompetenceOrdering(t *testing.T) {
	feb, err := NewCompetence(2, 2024)
	require.NoError(t, err)
	mar, err := NewCompetence(3, 2024)
	require.NoError(t, err)
	jan25, err := NewCompetence(1, 2025)
	require.NoError(t, err)

	assert.True(t, feb.Before(mar))
	assert.True(t, mar.Before(jan25))
	assert.False(t, mar.Before(feb))
	assert.True(t, feb.Equals(feb))
	assert.False(t, feb.Equals(mar))
}

func TestCompetenceNext(t *testing.T) {
	nov, err := NewCompetence(11, 2024)
	require.NoError(t, err)
	assert.Equal(t, "12/2024", nov.Next().String())
	assert.Equal(t, "01/2025", nov.Next().Next().String())
}

func TestCompetenceFromTime(t *testing.T) {
	c := CompetenceFromTime(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "03/2024", c.String())
}

func TestCompetenceScanValue(t *testing.T) {
	var c Competence
	require.NoError(t, c.Scan("07/2024"))
	assert.Equal(t, 7, c.Month())

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "07/2024", v)

	assert.Error(t, c.Scan(42))
}
