package hooks

import (
	"encoding/json"
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

type readToolInput struct {
	FilePath string `json:"file_path"`
}

// PostToolRead indexes a file_read turn with a (file, read) reference.
func PostToolRead(in Input) {
	Guard("PostToolUse:Read", func() { postToolRead(in) })
}

func postToolRead(in Input) {
	if in.SessionID == "" {
		return
	}
	var toolInput readToolInput
	if err := json.Unmarshal(in.ToolInput, &toolInput); err != nil || toolInput.FilePath == "" {
		return
	}

	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("post tool read: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	if err := store.EnsureSession(ctx, db, in.SessionID, projectDir); err != nil {
		slog.Default().Warn("post tool read: ensure session failed", "error", err)
		return
	}

	turn := &models.Turn{
		SessionID: in.SessionID,
		Role:      models.RoleAssistant,
		TurnType:  models.TurnTypeFileRead,
		Content:   "read " + toolInput.FilePath,
		Files:     []models.TurnFile{{FilePath: toolInput.FilePath, Action: models.FileActionRead}},
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		slog.Default().Warn("post tool read: index turn failed", "error", err)
	}
}
