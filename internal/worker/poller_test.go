package worker

import (
	stdctx "context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.MigrateDB(db, ":memory:"))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPollerClaimsAndCompletesDistillSessionTask(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	require.NoError(t, store.EnsureSession(ctx, db, "sess-1", "/proj"))
	_, err := store.IndexTurn(ctx, db, &models.Turn{
		SessionID: "sess-1", Role: models.RoleUser, TurnType: models.TurnTypeRequest,
		Content: "always use postgres for storage",
	})
	require.NoError(t, err)

	taskID, err := store.EnqueueTask(ctx, db, models.TaskTypeDistillSession, "/proj", "sess-1")
	require.NoError(t, err)

	p := NewPoller(db, nil, nil)
	task, err := store.ClaimNext(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, taskID, task.ID)

	p.runTask(ctx, task)

	row := db.QueryRowContext(ctx, `SELECT status FROM background_tasks WHERE id = ?`, taskID)
	var status string
	require.NoError(t, row.Scan(&status))
	require.Equal(t, "completed", status)
}

func TestPollerFailsUnknownTaskType(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()

	taskID, err := store.EnqueueTask(ctx, db, models.BackgroundTaskType("bogus"), "/proj", "")
	require.NoError(t, err)

	p := NewPoller(db, nil, nil)
	task, err := store.ClaimNext(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, task)

	p.runTask(ctx, task)

	row := db.QueryRowContext(ctx, `SELECT status FROM background_tasks WHERE id = ?`, taskID)
	var status string
	require.NoError(t, row.Scan(&status))
	require.Equal(t, "failed", status)
}

func TestPollerTickIsIdempotentWhenQueueEmpty(t *testing.T) {
	db := openTestDB(t)
	p := NewPoller(db, nil, nil)
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), 50*time.Millisecond)
	defer cancel()
	p.tick(ctx)
	p.tick(ctx)
}
