// Package state contains logic for managing the run state which the service persists.
package state

import (
	"context"
	"errors"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// ErrRunTypeNotFound is returned when a run type has no state.
var ErrRunTypeNotFound = errors.New("run type not found")

// RunTypes lists every run type whose state is tracked
var RunTypes = []string{config.RunTypeFull, config.RunTypeUnlock}

// RunStateService provides methods for inspecting and updating the state of scheduled runs.
//
//go:generate mockgen -destination=mocks/mock_run_state_service.go -package=mocks github.com/coursesync/sisu-moodle-sync/internal/sync/state RunStateService
type RunStateService interface {
	// Initialize makes sure every run type has a state and records the
	// configured schedules. Existing state is kept. It is intended that this
	// is called at application startup.
	Initialize(ctx context.Context, schedules []config.ScheduleConfig) error
	// ListRunStatuses lists the status of every run type.
	ListRunStatuses(ctx context.Context) (map[string]*status.RunStatus, error)
	// GetRunStatus returns the status of the run type, or ErrRunTypeNotFound.
	GetRunStatus(ctx context.Context, runType string) (*status.RunStatus, error)
	// UpdateRunStatus overrides the status of the run type.
	UpdateRunStatus(ctx context.Context, runType string, runStatus *status.RunStatus) error
	// UpdateStatusAtomically is used to carry out atomic updates on a run status.
	// Implementations fetch the existing state, apply testAndUpdateFn to it, and
	// store the state if the function reports that it changed it, all as a
	// single atomic action. The boolean returned by testAndUpdateFn is returned.
	UpdateStatusAtomically(
		ctx context.Context,
		runType string,
		testAndUpdateFn func(runStatus *status.RunStatus) bool,
	) (bool, error)
}

// scheduleFor returns the configured interval of the run type, or "" when it is not scheduled
func scheduleFor(schedules []config.ScheduleConfig, runType string) string {
	for _, s := range schedules {
		if s.Type == runType {
			return s.Interval
		}
	}
	return ""
}
