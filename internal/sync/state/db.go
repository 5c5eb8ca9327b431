package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/db"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

const selectRunStatus = `
	SELECT run_type, phase, message, attempt_count, last_attempt, last_success, last_summary, schedule
	FROM run_status`

type dbStateService struct {
	db db.TxBeginner
}

// NewDBStateService creates a new database-backed run state service
func NewDBStateService(conn db.TxBeginner) RunStateService {
	return &dbStateService{db: conn}
}

func (d *dbStateService) Initialize(ctx context.Context, schedules []config.ScheduleConfig) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Rows are shared between instances, so a Running row is left alone: it
	// may belong to a run in progress elsewhere.
	const query = `
		INSERT INTO run_status (run_type, phase, message, schedule)
		VALUES ($1, $2, 'No previous run', $3)
		ON CONFLICT (run_type) DO UPDATE SET schedule = EXCLUDED.schedule`

	for _, runType := range RunTypes {
		schedule := scheduleFor(schedules, runType)
		if _, err := tx.Exec(ctx, query, runType, string(status.RunPhaseFailed), schedule); err != nil {
			return fmt.Errorf("failed to initialize run status %s: %w", runType, err)
		}
	}

	return tx.Commit(ctx)
}

func (d *dbStateService) ListRunStatuses(ctx context.Context) (map[string]*status.RunStatus, error) {
	rows, err := d.db.Query(ctx, selectRunStatus+` ORDER BY run_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list run statuses: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*status.RunStatus)
	for rows.Next() {
		runType, runStatus, err := scanRunStatus(rows)
		if err != nil {
			return nil, err
		}
		result[runType] = runStatus
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list run statuses: %w", err)
	}
	return result, nil
}

func (d *dbStateService) GetRunStatus(ctx context.Context, runType string) (*status.RunStatus, error) {
	return getRunStatus(ctx, d.db, runType, false)
}

func (d *dbStateService) UpdateRunStatus(ctx context.Context, runType string, runStatus *status.RunStatus) error {
	return upsertRunStatus(ctx, d.db, runType, runStatus)
}

func (d *dbStateService) UpdateStatusAtomically(
	ctx context.Context,
	runType string,
	testAndUpdateFn func(runStatus *status.RunStatus) bool,
) (bool, error) {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// FOR UPDATE serializes concurrent claims of the same run type
	runStatus, err := getRunStatus(ctx, tx, runType, true)
	if err != nil {
		return false, err
	}

	if !testAndUpdateFn(runStatus) {
		return false, tx.Commit(ctx)
	}

	if err := upsertRunStatus(ctx, tx, runType, runStatus); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit run status %s: %w", runType, err)
	}
	return true, nil
}

func getRunStatus(ctx context.Context, conn db.DBTX, runType string, forUpdate bool) (*status.RunStatus, error) {
	query := selectRunStatus + ` WHERE run_type = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	_, runStatus, err := scanRunStatus(conn.QueryRow(ctx, query, runType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunTypeNotFound
		}
		return nil, err
	}
	return runStatus, nil
}

func upsertRunStatus(ctx context.Context, conn db.DBTX, runType string, runStatus *status.RunStatus) error {
	const query = `
		INSERT INTO run_status
			(run_type, phase, message, attempt_count, last_attempt, last_success, last_summary, schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_type) DO UPDATE SET
			phase = EXCLUDED.phase,
			message = EXCLUDED.message,
			attempt_count = EXCLUDED.attempt_count,
			last_attempt = EXCLUDED.last_attempt,
			last_success = EXCLUDED.last_success,
			last_summary = EXCLUDED.last_summary,
			schedule = EXCLUDED.schedule`

	_, err := conn.Exec(ctx, query,
		runType,
		string(runStatus.Phase),
		runStatus.Message,
		runStatus.AttemptCount,
		runStatus.LastAttempt,
		runStatus.LastSuccess,
		runStatus.LastSummary,
		runStatus.Schedule,
	)
	if err != nil {
		return fmt.Errorf("failed to store run status %s: %w", runType, err)
	}
	return nil
}

func scanRunStatus(row pgx.Row) (string, *status.RunStatus, error) {
	var (
		runType     string
		phase       string
		lastAttempt *time.Time
		lastSuccess *time.Time
	)
	runStatus := &status.RunStatus{}
	err := row.Scan(
		&runType,
		&phase,
		&runStatus.Message,
		&runStatus.AttemptCount,
		&lastAttempt,
		&lastSuccess,
		&runStatus.LastSummary,
		&runStatus.Schedule,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("failed to read run status: %w", err)
	}
	runStatus.Phase = status.RunPhase(phase)
	runStatus.LastAttempt = lastAttempt
	runStatus.LastSuccess = lastSuccess
	return runType, runStatus, nil
}
