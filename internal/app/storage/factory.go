// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern to ensure related components (course store,
// lock service, run state service) are created with compatible storage backends.
package storage

import (
	"context"
	"fmt"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/state"
)

// Factory creates storage-dependent components as a family.
// Implementations ensure all components are compatible with each other
// (e.g., all use database or all use memory and file storage).
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateCourseStore creates the store of mirrored courses
	CreateCourseStore(ctx context.Context) (course.Store, error)

	// CreateLockService creates the per-course sync lock service
	CreateLockService(ctx context.Context) (lock.Service, error)

	// CreateStateService creates a state service for scheduled run tracking
	CreateStateService(ctx context.Context) (state.RunStateService, error)

	// Ping checks that the storage backend is reachable
	Ping(ctx context.Context) error

	// Cleanup releases any resources held by this factory.
	// For database factories, this closes the connection pool.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
// Returns a MemoryFactory for memory storage or a DatabaseFactory for database storage.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg)
	case config.StorageTypeMemory:
		return NewMemoryFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
