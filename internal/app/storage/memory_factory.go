package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/state"
)

// statusLockFile guards the status path against a second process
const statusLockFile = ".lock"

// MemoryFactory creates in-process storage components. Courses and locks
// live in memory; run state is persisted as files under the status path.
// The status path is owned by one process at a time.
type MemoryFactory struct {
	config            *config.Config
	statusPersistence status.StatusPersistence
	statusLock        *flock.Flock
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new memory storage factory,
// ensuring the status directory exists.
func NewMemoryFactory(cfg *config.Config) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	statusPath := cfg.GetStatusPath()
	if err := os.MkdirAll(statusPath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create status directory %s: %w", statusPath, err)
	}

	statusLock := flock.New(filepath.Join(statusPath, statusLockFile))
	locked, err := statusLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock status directory %s: %w", statusPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("status directory %s is in use by another process", statusPath)
	}

	slog.Info("Creating memory storage factory", "status_path", statusPath)

	return &MemoryFactory{
		config:            cfg,
		statusPersistence: status.NewFileStatusPersistence(statusPath),
		statusLock:        statusLock,
	}, nil
}

// CreateCourseStore creates an in-memory course store.
func (*MemoryFactory) CreateCourseStore(_ context.Context) (course.Store, error) {
	slog.Debug("Creating in-memory course store")
	return course.NewMemoryStore(), nil
}

// CreateLockService creates an in-memory lock service.
func (*MemoryFactory) CreateLockService(_ context.Context) (lock.Service, error) {
	slog.Debug("Creating in-memory lock service")
	return lock.NewMemoryService(), nil
}

// CreateStateService creates a file-based state service for run tracking.
func (f *MemoryFactory) CreateStateService(_ context.Context) (state.RunStateService, error) {
	slog.Debug("Creating file-based state service")
	return state.NewStateService(f.config, f.statusPersistence, nil)
}

// Ping always succeeds for in-process storage
func (*MemoryFactory) Ping(_ context.Context) error {
	return nil
}

// Cleanup releases the status directory lock
func (f *MemoryFactory) Cleanup() {
	slog.Debug("Cleaning up memory storage factory")
	if err := f.statusLock.Unlock(); err != nil {
		slog.Warn("Failed to release status directory lock", "path", f.statusLock.Path(), "error", err)
	}
}
