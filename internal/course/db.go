package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coursesync/sisu-moodle-sync/internal/db"
)

const courseColumns = `id, registry_id, moodle_id, import_status, removed,
	COALESCE(removed_reason, ''), removed_at, created_by, created_at, updated_at`

type dbStore struct {
	db db.DBTX
}

// NewDBStore creates a Store backed by the courses table
func NewDBStore(conn db.DBTX) Store {
	return &dbStore{db: conn}
}

func scanCourse(row pgx.Row) (*Course, error) {
	c := &Course{}
	err := row.Scan(
		&c.ID, &c.RegistryID, &c.MoodleID, &c.ImportStatus, &c.Removed,
		&c.RemovedReason, &c.RemovedAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (s *dbStore) FindByRegistryID(ctx context.Context, registryID string) (*Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE registry_id = $1`, courseColumns)

	c, err := scanCourse(s.db.QueryRow(ctx, query, registryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course %s: %w", registryID, err)
	}
	return c, nil
}

func (s *dbStore) Save(ctx context.Context, c *Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	var removedReason *string
	if c.RemovedReason != "" {
		removedReason = &c.RemovedReason
	}

	query := fmt.Sprintf(`
		INSERT INTO courses (id, registry_id, moodle_id, import_status, removed, removed_reason,
			removed_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (registry_id) DO UPDATE SET
			moodle_id = EXCLUDED.moodle_id,
			import_status = EXCLUDED.import_status,
			removed = EXCLUDED.removed,
			removed_reason = EXCLUDED.removed_reason,
			removed_at = EXCLUDED.removed_at,
			created_by = EXCLUDED.created_by,
			updated_at = now()
		RETURNING %s`, courseColumns)

	saved, err := scanCourse(s.db.QueryRow(ctx, query,
		c.ID, c.RegistryID, c.MoodleID, c.ImportStatus, c.Removed, removedReason,
		c.RemovedAt, c.CreatedBy,
	))
	if err != nil {
		return fmt.Errorf("failed to save course %s: %w", c.RegistryID, err)
	}
	*c = *saved
	return nil
}

func (s *dbStore) MarkRemoved(ctx context.Context, registryID, reason string) error {
	const query = `
		UPDATE courses SET removed = TRUE, removed_reason = $2, removed_at = now(), updated_at = now()
		WHERE registry_id = $1`

	tag, err := s.db.Exec(ctx, query, registryID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark course %s removed: %w", registryID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *dbStore) MarkImportStatus(ctx context.Context, registryID string, status ImportStatus, moodleID *int64) error {
	const query = `
		UPDATE courses SET import_status = $2, moodle_id = COALESCE($3, moodle_id),
			removed = removed AND NOT $4,
			removed_reason = CASE WHEN $4 THEN NULL ELSE removed_reason END,
			removed_at = CASE WHEN $4 THEN NULL ELSE removed_at END,
			updated_at = now()
		WHERE registry_id = $1`

	completed := status == ImportCompleted
	tag, err := s.db.Exec(ctx, query, registryID, status, moodleID, completed)
	if err != nil {
		return fmt.Errorf("failed to update import status of course %s: %w", registryID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *dbStore) List(ctx context.Context, opts ListOptions) ([]*Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE $1 OR NOT removed ORDER BY registry_id`, courseColumns)

	rows, err := s.db.Query(ctx, query, opts.IncludeRemoved)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}
