// Package lock keeps the per-course synchronization lock that stops the
// engine from mutating a course until an operator clears it.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

// SyncLock is the lock record of one course
type SyncLock struct {
	RegistryID string    `json:"registryId"`
	Locked     bool      `json:"locked"`
	Reason     string    `json:"reason,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Service reads and writes course locks. Courses are identified by their registry id.
//
//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=lock.go Service
type Service interface {
	// SetLock locks the course. Locking a locked course overwrites the reason.
	SetLock(ctx context.Context, registryID, reason string) error
	// IsLocked reports whether the course is locked
	IsLocked(ctx context.Context, registryID string) (bool, error)
	// Unlock clears the lock. Unlocking an unlocked course is not an error.
	Unlock(ctx context.Context, registryID string) error
	// Get returns the lock record. A course that was never locked returns an unlocked record.
	Get(ctx context.Context, registryID string) (*SyncLock, error)
	// ListLocked returns the registry ids of every locked course
	ListLocked(ctx context.Context) ([]string, error)
}

// NewService creates a lock Service for the configured storage type.
// The pool must not be nil when database storage is configured.
func NewService(cfg *config.Config, pool *pgxpool.Pool) (Service, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBService(pool), nil
	default:
		return NewMemoryService(), nil
	}
}
