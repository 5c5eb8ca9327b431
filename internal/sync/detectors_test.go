package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

func TestDefaultIntervalChecker_IsIntervalRunNeeded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}
	hourly := config.ScheduleConfig{Type: config.RunTypeFull, Interval: "1h"}

	tests := []struct {
		name         string
		schedule     config.ScheduleConfig
		status       *status.RunStatus
		expectNeeded bool
		expectNext   time.Time
		expectError  bool
	}{
		{
			name:         "never attempted",
			schedule:     hourly,
			status:       &status.RunStatus{},
			expectNeeded: true,
			expectNext:   now.Add(time.Hour),
		},
		{
			name:         "nil status",
			schedule:     hourly,
			expectNeeded: true,
			expectNext:   now.Add(time.Hour),
		},
		{
			name:         "interval not elapsed",
			schedule:     hourly,
			status:       &status.RunStatus{LastAttempt: at(-30 * time.Minute)},
			expectNeeded: false,
			expectNext:   now.Add(30 * time.Minute),
		},
		{
			name:         "interval elapsed exactly",
			schedule:     hourly,
			status:       &status.RunStatus{LastAttempt: at(-time.Hour)},
			expectNeeded: true,
			expectNext:   now.Add(time.Hour),
		},
		{
			name:        "invalid interval",
			schedule:    config.ScheduleConfig{Type: config.RunTypeFull, Interval: "hourly"},
			status:      &status.RunStatus{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := &DefaultIntervalChecker{Now: func() time.Time { return now }}
			needed, next, err := checker.IsIntervalRunNeeded(tt.schedule, tt.status)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectNeeded, needed)
			assert.Equal(t, tt.expectNext, next)
		})
	}
}
