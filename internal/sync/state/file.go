package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

type fileStateService struct {
	statusPersistence status.StatusPersistence

	// Thread-safe status management (per run type)
	mu             sync.RWMutex
	cachedStatuses map[string]*status.RunStatus
}

// NewFileStateService creates a new file-based run state service
func NewFileStateService(statusPersistence status.StatusPersistence) RunStateService {
	return &fileStateService{
		statusPersistence: statusPersistence,
		cachedStatuses:    make(map[string]*status.RunStatus),
	}
}

func (f *fileStateService) Initialize(ctx context.Context, schedules []config.ScheduleConfig) error {
	for _, runType := range RunTypes {
		f.loadOrInitializeRunStatus(ctx, runType, scheduleFor(schedules, runType))
	}
	return nil
}

func (f *fileStateService) ListRunStatuses(_ context.Context) (map[string]*status.RunStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make(map[string]*status.RunStatus, len(f.cachedStatuses))
	for runType, runStatus := range f.cachedStatuses {
		result[runType] = copyStatus(runStatus)
	}
	return result, nil
}

func (f *fileStateService) GetRunStatus(_ context.Context, runType string) (*status.RunStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	runStatus, exists := f.cachedStatuses[runType]
	if !exists {
		return nil, ErrRunTypeNotFound
	}
	return copyStatus(runStatus), nil
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	runType string,
	testAndUpdateFn func(runStatus *status.RunStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists := f.cachedStatuses[runType]
	if !exists {
		return false, ErrRunTypeNotFound
	}

	// The callback works on a copy so a failed save leaves the cache untouched
	runStatus := copyStatus(current)
	if !testAndUpdateFn(runStatus) {
		return false, nil
	}
	if err := f.statusPersistence.SaveStatus(ctx, runType, runStatus); err != nil {
		return false, err
	}
	f.cachedStatuses[runType] = runStatus
	return true, nil
}

func (f *fileStateService) UpdateRunStatus(ctx context.Context, runType string, runStatus *status.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := copyStatus(runStatus)
	if err := f.statusPersistence.SaveStatus(ctx, runType, stored); err != nil {
		return err
	}
	f.cachedStatuses[runType] = stored
	return nil
}

func (f *fileStateService) loadOrInitializeRunStatus(ctx context.Context, runType, schedule string) {
	runStatus, err := f.statusPersistence.LoadStatus(ctx, runType)
	if err != nil {
		slog.Warn("Failed to load run status, initializing with defaults",
			"run_type", runType,
			"error", err)
		runStatus = &status.RunStatus{}
	}

	// A file store is owned by a single process, so a Running phase left on
	// disk can only come from an interrupted run.
	changed := runStatus.Schedule != schedule
	runStatus.Schedule = schedule
	switch {
	case runStatus.Phase == "":
		slog.Info("No previous run status found, initializing with defaults", "run_type", runType)
		runStatus.Phase = status.RunPhaseFailed
		runStatus.Message = "No previous run"
		changed = true
	case runStatus.Phase == status.RunPhaseRunning:
		slog.Warn("Previous run was interrupted, resetting to Failed", "run_type", runType)
		runStatus.Phase = status.RunPhaseFailed
		runStatus.Message = "Previous run was interrupted"
		changed = true
	}

	if changed {
		if err := f.statusPersistence.SaveStatus(ctx, runType, runStatus); err != nil {
			slog.Warn("Failed to persist initial run status", "run_type", runType, "error", err)
		}
	}

	if runStatus.LastSuccess != nil {
		slog.Info("Loaded run status",
			"run_type", runType,
			"phase", runStatus.Phase,
			"last_success", runStatus.LastSuccess.Format(time.RFC3339))
	} else {
		slog.Info("Loaded run status", "run_type", runType, "phase", runStatus.Phase)
	}

	f.mu.Lock()
	f.cachedStatuses[runType] = runStatus
	f.mu.Unlock()
}

func copyStatus(s *status.RunStatus) *status.RunStatus {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastSummary != nil {
		digest := *s.LastSummary
		c.LastSummary = &digest
	}
	return &c
}
