package server

import (
	"bytes"
	stdctx "context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

func TestNewOpensAndMigratesStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RLM_DB_PATH", filepath.Join(dir, "rlm.db"))

	s, err := New(dir, nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, s.Close())
}

// One request line in, one response line out; EOF ends the loop cleanly.
func TestServeRequestsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	require.NoError(t, store.EnsureSession(ctx, db, "sess-1", "/proj"))
	_, err := store.IndexTurn(ctx, db, &models.Turn{
		SessionID: "sess-1", Role: models.RoleUser, TurnType: models.TurnTypeRequest,
		Content: "wire up the websocket gateway",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	s := &Server{
		db:     db,
		logger: slog.Default(),
		in: strings.NewReader(
			`{"jsonrpc":"2.0","id":1,"method":"memory_search","params":{"query":"websocket"}}` + "\n" +
				`{"jsonrpc":"2.0","id":2,"method":"memory_files","params":{"file_path":"/x.go"}}` + "\n"),
		out: &out,
	}
	require.NoError(t, s.serveRequests(ctx))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Nil(t, first.Error)
	assert.Contains(t, first.Result.Content[0].Text, "websocket")

	var second rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Nil(t, second.Error)
}

// Startup recovers rows a crashed poller left running and completes stale
// shutdown tasks instead of exiting on them.
func TestRunStartupSequenceOnClosedStdin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RLM_DB_PATH", filepath.Join(dir, "rlm.db"))

	s, err := New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := stdctx.Background()
	stuckID, err := store.EnqueueTask(ctx, s.db, models.TaskTypeReindexStale, dir, "")
	require.NoError(t, err)
	task, err := store.ClaimNext(ctx, s.db)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, stuckID, task.ID)
	_, err = store.EnqueueTask(ctx, s.db, models.TaskTypeShutdown, dir, "")
	require.NoError(t, err)

	s.in = strings.NewReader("")
	s.out = &bytes.Buffer{}
	require.NoError(t, s.Run(ctx))

	var status string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT status FROM background_tasks WHERE task_type = 'shutdown'`).Scan(&status))
	assert.Equal(t, "completed", status, "stale shutdown drained, not executed")
	// The stuck row was reset to pending at startup; depending on timing the
	// poller may already have claimed and finished it, but it can never still
	// be stranded in running.
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT status FROM background_tasks WHERE id = ?`, stuckID).Scan(&status))
	assert.NotEqual(t, "running", status)
}
