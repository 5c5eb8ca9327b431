package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursesync/sisu-moodle-sync/internal/db"
)

type dbService struct {
	db db.DBTX
}

// NewDBService creates a lock Service backed by the sync_lock table
func NewDBService(conn db.DBTX) Service {
	return &dbService{db: conn}
}

func (s *dbService) SetLock(ctx context.Context, registryID, reason string) error {
	const query = `
		INSERT INTO sync_lock (registry_id, locked, reason, updated_at)
		VALUES ($1, TRUE, $2, now())
		ON CONFLICT (registry_id)
		DO UPDATE SET locked = TRUE, reason = EXCLUDED.reason, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, registryID, reason); err != nil {
		return fmt.Errorf("failed to lock course %s: %w", registryID, err)
	}
	return nil
}

func (s *dbService) IsLocked(ctx context.Context, registryID string) (bool, error) {
	l, err := s.Get(ctx, registryID)
	if err != nil {
		return false, err
	}
	return l.Locked, nil
}

func (s *dbService) Unlock(ctx context.Context, registryID string) error {
	const query = `
		UPDATE sync_lock SET locked = FALSE, reason = '', updated_at = now()
		WHERE registry_id = $1`

	if _, err := s.db.Exec(ctx, query, registryID); err != nil {
		return fmt.Errorf("failed to unlock course %s: %w", registryID, err)
	}
	return nil
}

func (s *dbService) Get(ctx context.Context, registryID string) (*SyncLock, error) {
	const query = `SELECT registry_id, locked, reason, updated_at FROM sync_lock WHERE registry_id = $1`

	l := &SyncLock{}
	err := s.db.QueryRow(ctx, query, registryID).Scan(&l.RegistryID, &l.Locked, &l.Reason, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &SyncLock{RegistryID: registryID}, nil
		}
		return nil, fmt.Errorf("failed to read lock of course %s: %w", registryID, err)
	}
	return l, nil
}

func (s *dbService) ListLocked(ctx context.Context) ([]string, error) {
	const query = `SELECT registry_id FROM sync_lock WHERE locked ORDER BY registry_id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list locked courses: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list locked courses: %w", err)
	}
	return ids, nil
}
