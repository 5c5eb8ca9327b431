package sync

import (
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// DefaultIntervalChecker implements IntervalChecker
type DefaultIntervalChecker struct {
	// Now overrides the clock in tests
	Now func() time.Time
}

// IsIntervalRunNeeded checks if a run is needed based on the time since the last attempt.
// Returns: (runNeeded, nextRunTime, error)
func (c *DefaultIntervalChecker) IsIntervalRunNeeded(
	schedule config.ScheduleConfig, runStatus *status.RunStatus,
) (bool, time.Time, error) {
	interval, err := time.ParseDuration(schedule.Interval)
	if err != nil {
		return false, time.Time{}, err
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	var lastAttempt *time.Time
	if runStatus != nil {
		lastAttempt = runStatus.LastAttempt
	}

	if lastAttempt == nil {
		return true, now.Add(interval), nil
	}

	nextRunTime := lastAttempt.Add(interval)
	if !now.Before(nextRunTime) {
		return true, now.Add(interval), nil
	}

	return false, nextRunTime, nil
}
