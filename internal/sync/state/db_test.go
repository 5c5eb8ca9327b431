package state

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/database"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// exerciseService runs the behaviour every implementation must share
func exerciseService(t *testing.T, svc RunStateService) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.GetRunStatus(ctx, config.RunTypeFull)
	assert.ErrorIs(t, err, ErrRunTypeNotFound, "before Initialize")

	require.NoError(t, svc.Initialize(ctx, testSchedules))

	statuses, err := svc.ListRunStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, status.RunPhaseFailed, statuses["full"].Phase)
	assert.Equal(t, "1h", statuses["full"].Schedule)
	assert.Empty(t, statuses["unlock"].Schedule)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, svc.UpdateRunStatus(ctx, "full", &status.RunStatus{
		Phase:       status.RunPhaseComplete,
		Message:     "Run completed",
		LastAttempt: &now,
		LastSuccess: &now,
		LastSummary: &status.SummaryDigest{Total: 4, Succeeded: 3, Skipped: 1, Elapsed: "2s"},
		Schedule:    "1h",
	}))

	got, err := svc.GetRunStatus(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, status.RunPhaseComplete, got.Phase)
	assert.Equal(t, "Run completed", got.Message)
	require.NotNil(t, got.LastSuccess)
	assert.True(t, now.Equal(*got.LastSuccess))
	assert.Equal(t, &status.SummaryDigest{Total: 4, Succeeded: 3, Skipped: 1, Elapsed: "2s"}, got.LastSummary)

	// Re-initializing keeps state and refreshes the schedule
	require.NoError(t, svc.Initialize(ctx, []config.ScheduleConfig{{Type: config.RunTypeFull, Interval: "30m"}}))
	got, err = svc.GetRunStatus(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, status.RunPhaseComplete, got.Phase)
	assert.Equal(t, "30m", got.Schedule)

	claim := func(s *status.RunStatus) bool {
		if s.IsRunning() {
			return false
		}
		s.Phase = status.RunPhaseRunning
		s.AttemptCount++
		return true
	}

	claimed, err := svc.UpdateStatusAtomically(ctx, "full", claim)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = svc.UpdateStatusAtomically(ctx, "full", claim)
	require.NoError(t, err)
	assert.False(t, claimed, "a running run cannot be claimed twice")

	got, err = svc.GetRunStatus(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, status.RunPhaseRunning, got.Phase)
	assert.Equal(t, 1, got.AttemptCount)

	_, err = svc.UpdateStatusAtomically(ctx, "nope", claim)
	assert.ErrorIs(t, err, ErrRunTypeNotFound)

	// Concurrent claims of an idle run type: exactly one wins
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.UpdateStatusAtomically(ctx, "unlock", claim)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestDBStateService(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("requires docker")
	}
	exerciseService(t, NewDBStateService(database.SetupTestDB(t)))
}
