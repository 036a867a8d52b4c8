package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailySchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantHour int
		wantMin  int
		wantErr  bool
	}{
		{name: "default nightly", schedule: "0 2 * * *", wantHour: 2, wantMin: 0},
		{name: "late evening", schedule: "30 23 * * *", wantHour: 23, wantMin: 30},
		{name: "midnight", schedule: "0 0 * * *", wantHour: 0, wantMin: 0},
		{name: "hourly is not daily", schedule: "0 * * * *", wantErr: true},
		{name: "day-of-month restriction", schedule: "0 2 1 * *", wantErr: true},
		{name: "too few fields", schedule: "0 2", wantErr: true},
		{name: "minute out of range", schedule: "60 2 * * *", wantErr: true},
		{name: "hour out of range", schedule: "0 24 * * *", wantErr: true},
		{name: "non-numeric", schedule: "a b * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseDailySchedule(tt.schedule)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour)
			assert.Equal(t, tt.wantMin, minute)
		})
	}
}
