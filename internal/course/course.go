// Package course stores the registry realisations that are mirrored as Moodle courses.
package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

// ImportStatus is the outcome of creating the Moodle course
type ImportStatus string

// Import statuses
const (
	ImportInProgress      ImportStatus = "in_progress"
	ImportCompleted       ImportStatus = "completed"
	ImportCompletedFailed ImportStatus = "completed_failed"
)

// ErrNotFound is returned when no course exists for a registry id
var ErrNotFound = errors.New("course not found")

// Course is one registry course-unit-realisation mirrored as one Moodle course.
// Courses are never deleted, only marked removed.
type Course struct {
	ID            uuid.UUID    `json:"id"`
	RegistryID    string       `json:"registryId"`
	MoodleID      *int64       `json:"moodleId,omitempty"`
	ImportStatus  ImportStatus `json:"importStatus"`
	Removed       bool         `json:"removed"`
	RemovedReason string       `json:"removedReason,omitempty"`
	RemovedAt     *time.Time   `json:"removedAt,omitempty"`
	CreatedBy     string       `json:"createdBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ListOptions filters List results
type ListOptions struct {
	IncludeRemoved bool
}

// Store persists courses
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=course.go Store
type Store interface {
	// FindByRegistryID returns ErrNotFound when the course does not exist
	FindByRegistryID(ctx context.Context, registryID string) (*Course, error)
	// Save inserts the course or replaces the course with the same registry id.
	// A zero ID is assigned before insert.
	Save(ctx context.Context, c *Course) error
	// MarkRemoved flags the course as removed with the given reason
	MarkRemoved(ctx context.Context, registryID, reason string) error
	// MarkImportStatus records the import outcome and the Moodle id, if known.
	// A completed import clears the removed flag.
	MarkImportStatus(ctx context.Context, registryID string, status ImportStatus, moodleID *int64) error
	// List returns courses ordered by registry id
	List(ctx context.Context, opts ListOptions) ([]*Course, error)
}

// NewStore creates a Store for the configured storage type.
// The pool must not be nil when database storage is configured.
func NewStore(cfg *config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStore(pool), nil
	default:
		return NewMemoryStore(), nil
	}
}
