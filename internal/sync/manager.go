package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// Result contains the result of a finished run
type Result struct {
	Summary *process.Summary
}

// Run reason constants
const (
	// Run state related reasons
	ReasonAlreadyInProgress = "run-already-in-progress"
	ReasonStaleRun          = "stale-run"
	ReasonNeverRun          = "never-run"

	// Schedule related reasons
	ReasonIntervalElapsed      = "interval-elapsed"
	ReasonNotDue               = "not-due"
	ReasonErrorParsingInterval = "error-parsing-run-interval"

	// Manual run related reasons
	ReasonManualRequested = "manual-run-requested"
)

// Condition reasons for run errors
const (
	conditionReasonSelectionFailed = "SelectionFailed"
	conditionReasonCoursesFailed   = "CoursesFailed"
)

// Condition types for runs
const (
	// ConditionRunSuccessful indicates whether the last run was successful
	ConditionRunSuccessful = "RunSuccessful"
)

// Error represents a structured error with condition information for a failed run
type Error struct {
	Err             error
	Message         string
	ConditionType   string
	ConditionReason string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reconciler runs a course selection. *process.Reconciler implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, sel process.Selection) *process.Summary
}

// Manager decides when scheduled runs are due and executes them
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/coursesync/sisu-moodle-sync/internal/sync Manager
type Manager interface {
	// ShouldRun determines if a run of the scheduled type is needed.
	// It returns the decision and the reason for it.
	ShouldRun(schedule config.ScheduleConfig, runStatus *status.RunStatus, manualRunRequested bool) (bool, string)

	// PerformRun executes the selection. A run in which any course failed
	// returns both the result and an error.
	PerformRun(ctx context.Context, sel process.Selection) (*Result, *Error)
}

// IntervalChecker handles schedule timing logic
type IntervalChecker interface {
	// IsIntervalRunNeeded checks if a run is needed based on the schedule interval.
	// Returns (runNeeded, nextRunTime, error) where nextRunTime is always in the future.
	IsIntervalRunNeeded(schedule config.ScheduleConfig, runStatus *status.RunStatus) (bool, time.Time, error)
}

// defaultManager is the default implementation of Manager
type defaultManager struct {
	reconciler      Reconciler
	intervalChecker IntervalChecker
	now             func() time.Time
}

// NewDefaultManager creates a new Manager running selections with the reconciler
func NewDefaultManager(reconciler Reconciler) Manager {
	return &defaultManager{
		reconciler:      reconciler,
		intervalChecker: &DefaultIntervalChecker{},
		now:             time.Now,
	}
}

// ShouldRun determines if a run is needed for a schedule
func (m *defaultManager) ShouldRun(
	schedule config.ScheduleConfig,
	runStatus *status.RunStatus,
	manualRunRequested bool,
) (bool, string) {
	if runStatus.IsRunning() {
		// A Running phase that outlived the stale window belongs to an instance that died mid-run
		if isStale(schedule, runStatus, m.now()) {
			return true, ReasonStaleRun
		}
		return false, ReasonAlreadyInProgress
	}

	if manualRunRequested {
		return true, ReasonManualRequested
	}

	if runStatus == nil || runStatus.LastAttempt == nil {
		return true, ReasonNeverRun
	}

	due, _, err := m.intervalChecker.IsIntervalRunNeeded(schedule, runStatus)
	if err != nil {
		slog.Error("Failed to determine if interval has elapsed", "run_type", schedule.Type, "error", err)
		return false, ReasonErrorParsingInterval
	}
	if due {
		return true, ReasonIntervalElapsed
	}
	return false, ReasonNotDue
}

// PerformRun executes the selection with the reconciler
func (m *defaultManager) PerformRun(ctx context.Context, sel process.Selection) (*Result, *Error) {
	summary := m.reconciler.Reconcile(ctx, sel)
	result := &Result{Summary: summary}

	if summary.Error != "" {
		return result, &Error{
			Err:             fmt.Errorf("%s", summary.Error),
			Message:         summary.String(),
			ConditionType:   ConditionRunSuccessful,
			ConditionReason: conditionReasonSelectionFailed,
		}
	}
	if summary.Failed > 0 {
		return result, &Error{
			Err:             fmt.Errorf("%d of %d courses failed", summary.Failed, summary.Total),
			Message:         summary.String(),
			ConditionType:   ConditionRunSuccessful,
			ConditionReason: conditionReasonCoursesFailed,
		}
	}
	return result, nil
}

// staleAfter is how long a run may stay Running before it is considered abandoned
func staleAfter(schedule config.ScheduleConfig) time.Duration {
	window := 6 * time.Hour
	if interval, err := time.ParseDuration(schedule.Interval); err == nil && 2*interval > window {
		window = 2 * interval
	}
	return window
}

func isStale(schedule config.ScheduleConfig, runStatus *status.RunStatus, now time.Time) bool {
	if runStatus.LastAttempt == nil {
		return true
	}
	return now.Sub(*runStatus.LastAttempt) > staleAfter(schedule)
}

// Digest converts a run summary into the digest kept in the run status
func Digest(summary *process.Summary) *status.SummaryDigest {
	if summary == nil {
		return nil
	}
	return &status.SummaryDigest{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Elapsed:   summary.Elapsed.Round(time.Millisecond).String(),
	}
}
