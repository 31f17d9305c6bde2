package hooks

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

const checkpointRecentEdits = 5

// PreCompact builds a checkpoint turn summarizing the session's requests,
// modified files, and recent edits, then enqueues a reindex_stale task —
// per the resolved Open Question, the checkpoint never blocks on a
// synchronous reindex of its own.
func PreCompact(in Input) {
	Guard("PreCompact", func() { preCompact(in) })
}

func preCompact(in Input) {
	if in.SessionID == "" {
		return
	}
	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("pre compact: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	requests, err := store.SessionTurnsByType(ctx, db, in.SessionID, models.TurnTypeRequest)
	if err != nil {
		slog.Default().Warn("pre compact: load requests failed", "error", err)
	}
	edits, err := store.SessionTurnsByType(ctx, db, in.SessionID, models.TurnTypeCodeEdit)
	if err != nil {
		slog.Default().Warn("pre compact: load edits failed", "error", err)
	}
	activeFiles, err := store.ActiveFiles(ctx, db, in.SessionID, 0)
	if err != nil {
		slog.Default().Warn("pre compact: load active files failed", "error", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Checkpoint: %d requests, %d edits, %d modified files\n\n", len(requests), len(edits), len(activeFiles))
	if len(activeFiles) > 0 {
		b.WriteString("Modified files:\n")
		for _, f := range activeFiles {
			b.WriteString("- " + f + "\n")
		}
		b.WriteString("\n")
	}
	recent := edits
	if len(recent) > checkpointRecentEdits {
		recent = recent[len(recent)-checkpointRecentEdits:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent edits:\n")
		for _, e := range recent {
			b.WriteString("- " + truncate(e.Content, 160) + "\n")
		}
	}

	turn := &models.Turn{
		SessionID: in.SessionID,
		Role:      models.RoleSystem,
		TurnType:  models.TurnTypeCheckpoint,
		Content:   b.String(),
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		slog.Default().Warn("pre compact: index checkpoint failed", "error", err)
		return
	}

	if _, err := store.EnqueueTask(ctx, db, models.TaskTypeReindexStale, projectDir, ""); err != nil {
		slog.Default().Warn("pre compact: enqueue reindex failed", "error", err)
	}
}
