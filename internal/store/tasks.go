package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dullfig/claude-rlm/internal/models"
)

// EnqueueTask inserts a pending background task.
func EnqueueTask(ctx context.Context, db *sql.DB, taskType models.BackgroundTaskType, projectDir, payload string) (int64, error) {
	var id int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO background_tasks (task_type, project_dir, payload)
			VALUES (?, ?, ?)
		`, string(taskType), projectDir, nullableString(payload))
		if err != nil {
			return wrapIntegrity("enqueue_task", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ClaimNext atomically transitions the oldest pending task to running and
// returns it, in a single UPDATE-over-SELECT-with-RETURNING statement so
// concurrent claimants can never both claim the same row.
func ClaimNext(ctx context.Context, db *sql.DB) (*models.BackgroundTask, error) {
	var task *models.BackgroundTask
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE background_tasks
			SET status = 'running', started_at = datetime('now')
			WHERE id = (
				SELECT id FROM background_tasks
				WHERE status = 'pending'
				ORDER BY id ASC
				LIMIT 1
			)
			RETURNING id, task_type, status, project_dir, COALESCE(payload, ''), created_at, started_at
		`)
		var t models.BackgroundTask
		var taskType, status string
		var startedAt sql.NullTime
		err := row.Scan(&t.ID, &taskType, &status, &t.ProjectDir, &t.Payload, &t.CreatedAt, &startedAt)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		t.TaskType = models.BackgroundTaskType(taskType)
		t.Status = models.BackgroundTaskStatus(status)
		if startedAt.Valid {
			t.StartedAt = &startedAt.Time
		}
		task = &t
		return nil
	})
	return task, err
}

// CompleteTask marks a task completed.
func CompleteTask(ctx context.Context, db *sql.DB, taskID int64) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE background_tasks SET status = 'completed', completed_at = datetime('now')
			WHERE id = ?
		`, taskID)
		return err
	})
}

// FailTask marks a task failed with an error message. Used both for
// ordinary task errors and for a task runner's panic recovery (the
// SchedulerError path).
func FailTask(ctx context.Context, db *sql.DB, taskID int64, errMsg string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE background_tasks SET status = 'failed', completed_at = datetime('now'), error = ?
			WHERE id = ?
		`, errMsg, taskID)
		return err
	})
}

// RecoverStuckTasks resets any row left running (e.g. from a crashed
// process) back to pending and returns how many rows were reset. Called
// once at server startup.
func RecoverStuckTasks(ctx context.Context, db *sql.DB) (int64, error) {
	var n int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE background_tasks SET status = 'pending', started_at = NULL
			WHERE status = 'running'
		`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// PruneOldTasks deletes completed/failed rows older than maxAgeSeconds.
func PruneOldTasks(ctx context.Context, db *sql.DB, maxAgeSeconds int64) (int64, error) {
	var n int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM background_tasks
			WHERE status IN ('completed', 'failed')
			AND completed_at < datetime('now', ?)
		`, fmt.Sprintf("-%d seconds", maxAgeSeconds))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// DrainStaleShutdownTasks completes any pending/running shutdown task left
// by a prior process, so a fresh server doesn't immediately exit on a stale
// shutdown signal from a process that already died.
func DrainStaleShutdownTasks(ctx context.Context, db *sql.DB) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE background_tasks SET status = 'completed', completed_at = datetime('now')
			WHERE task_type = ? AND status IN ('pending', 'running')
		`, string(models.TaskTypeShutdown))
		return err
	})
}
