package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

type fakeReconciler struct {
	summary  *process.Summary
	selected []process.Selection
}

func (f *fakeReconciler) Reconcile(_ context.Context, sel process.Selection) *process.Summary {
	f.selected = append(f.selected, sel)
	return f.summary
}

func TestDefaultManager_ShouldRun(t *testing.T) {
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
		manual       bool
		expectRun    bool
		expectReason string
	}{
		{
			name:         "running",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseRunning, LastAttempt: at(-time.Minute)},
			manual:       true,
			expectRun:    false,
			expectReason: ReasonAlreadyInProgress,
		},
		{
			name:         "stale running",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseRunning, LastAttempt: at(-7 * time.Hour)},
			expectRun:    true,
			expectReason: ReasonStaleRun,
		},
		{
			name:         "long interval widens the stale window",
			schedule:     config.ScheduleConfig{Type: config.RunTypeFull, Interval: "24h"},
			status:       &status.RunStatus{Phase: status.RunPhaseRunning, LastAttempt: at(-7 * time.Hour)},
			expectRun:    false,
			expectReason: ReasonAlreadyInProgress,
		},
		{
			name:         "manual",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseComplete, LastAttempt: at(-time.Minute)},
			manual:       true,
			expectRun:    true,
			expectReason: ReasonManualRequested,
		},
		{
			name:         "never run",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseFailed},
			expectRun:    true,
			expectReason: ReasonNeverRun,
		},
		{
			name:         "interval elapsed after failure",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseFailed, LastAttempt: at(-2 * time.Hour)},
			expectRun:    true,
			expectReason: ReasonIntervalElapsed,
		},
		{
			name:         "not due",
			schedule:     hourly,
			status:       &status.RunStatus{Phase: status.RunPhaseComplete, LastAttempt: at(-10 * time.Minute)},
			expectRun:    false,
			expectReason: ReasonNotDue,
		},
		{
			name:         "invalid interval",
			schedule:     config.ScheduleConfig{Type: config.RunTypeFull, Interval: "often"},
			status:       &status.RunStatus{Phase: status.RunPhaseComplete, LastAttempt: at(-10 * time.Minute)},
			expectRun:    false,
			expectReason: ReasonErrorParsingInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := func() time.Time { return now }
			m := &defaultManager{
				reconciler:      &fakeReconciler{},
				intervalChecker: &DefaultIntervalChecker{Now: clock},
				now:             clock,
			}

			run, reason := m.ShouldRun(tt.schedule, tt.status, tt.manual)
			assert.Equal(t, tt.expectRun, run)
			assert.Equal(t, tt.expectReason, reason)
		})
	}
}

func TestDefaultManager_PerformRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		summary      *process.Summary
		expectReason string
	}{
		{
			name:    "successful run",
			summary: &process.Summary{RunType: process.RunFull, Total: 3, Succeeded: 2, Skipped: 1},
		},
		{
			name:         "selection failure",
			summary:      &process.Summary{RunType: process.RunFull, Error: "connection refused"},
			expectReason: conditionReasonSelectionFailed,
		},
		{
			name:         "course failures",
			summary:      &process.Summary{RunType: process.RunFull, Total: 3, Succeeded: 2, Failed: 1},
			expectReason: conditionReasonCoursesFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reconciler := &fakeReconciler{summary: tt.summary}
			m := NewDefaultManager(reconciler)

			result, runErr := m.PerformRun(context.Background(), process.Selection{Type: process.RunFull})
			require.NotNil(t, result)
			assert.Same(t, tt.summary, result.Summary)
			assert.Equal(t, []process.Selection{{Type: process.RunFull}}, reconciler.selected)

			if tt.expectReason == "" {
				assert.Nil(t, runErr)
				return
			}
			require.NotNil(t, runErr)
			assert.Equal(t, ConditionRunSuccessful, runErr.ConditionType)
			assert.Equal(t, tt.expectReason, runErr.ConditionReason)
			assert.Equal(t, tt.summary.String(), runErr.Error())
			assert.Error(t, runErr.Unwrap())
		})
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Digest(nil))
	assert.Equal(t, &status.SummaryDigest{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1, Elapsed: "1.5s"},
		Digest(&process.Summary{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1, Elapsed: 1500 * time.Millisecond}))
}

func TestIsManualRun(t *testing.T) {
	t.Parallel()

	assert.True(t, IsManualRun(ReasonManualRequested))
	assert.False(t, IsManualRun(ReasonIntervalElapsed))
}
