package hooks

import (
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// UserPromptSubmit indexes the submitted prompt as a request turn.
func UserPromptSubmit(in Input) {
	Guard("UserPromptSubmit", func() { userPromptSubmit(in) })
}

func userPromptSubmit(in Input) {
	if in.SessionID == "" || in.Prompt == "" {
		return
	}
	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("user prompt submit: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	if err := store.EnsureSession(ctx, db, in.SessionID, projectDir); err != nil {
		slog.Default().Warn("user prompt submit: ensure session failed", "error", err)
		return
	}

	_, err = store.IndexTurn(ctx, db, &models.Turn{
		SessionID: in.SessionID,
		Role:      models.RoleUser,
		TurnType:  models.TurnTypeRequest,
		Content:   in.Prompt,
	})
	if err != nil {
		slog.Default().Warn("user prompt submit: index turn failed", "error", err)
	}
}
