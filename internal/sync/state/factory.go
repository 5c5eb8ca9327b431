package state

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// NewStateService creates a RunStateService based on the configured storage type.
//
// For memory storage, it returns a file-backed service that uses the provided
// StatusPersistence for persisting run status to disk.
//
// For database storage, it returns a service that stores run status in the
// run_status table. The pool parameter must not be nil when database storage
// is configured.
func NewStateService(
	cfg *config.Config,
	statusPersistence status.StatusPersistence,
	pool *pgxpool.Pool,
) (RunStateService, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStateService(pool), nil
	default:
		if statusPersistence == nil {
			statusPersistence = status.NewFileStatusPersistence(cfg.GetStatusPath())
		}
		return NewFileStateService(statusPersistence), nil
	}
}
