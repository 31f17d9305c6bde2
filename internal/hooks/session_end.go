package hooks

import (
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// SessionEnd enqueues a shutdown task (the server drains and exits) and a
// distill_session task, then marks the session ended.
func SessionEnd(in Input) {
	Guard("SessionEnd", func() { sessionEnd(in) })
}

func sessionEnd(in Input) {
	if in.SessionID == "" {
		return
	}
	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("session end: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	// Shutdown goes in first: the FIFO guarantees the running server claims
	// it on its next tick and exits promptly, leaving distillation for
	// whichever server claims it later (usually the next session's).
	if _, err := store.EnqueueTask(ctx, db, models.TaskTypeShutdown, projectDir, ""); err != nil {
		slog.Default().Warn("session end: enqueue shutdown failed", "error", err)
	}
	if _, err := store.EnqueueTask(ctx, db, models.TaskTypeDistillSession, projectDir, in.SessionID); err != nil {
		slog.Default().Warn("session end: enqueue distill failed", "error", err)
	}
	if err := store.EndSession(ctx, db, in.SessionID, ""); err != nil {
		slog.Default().Warn("session end: end session failed", "error", err)
	}
}
