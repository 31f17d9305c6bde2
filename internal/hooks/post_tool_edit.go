package hooks

import (
	"encoding/json"
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// editToolInput covers both the Edit tool's old_string/new_string shape and
// the Write tool's content shape; whichever pair is present is used.
type editToolInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
	Content   string `json:"content"`
}

const editPreviewCap = 300

// PostToolEdit indexes a code_edit turn with a before/after preview and the
// touched file reference, then incrementally reindexes that file.
func PostToolEdit(in Input) {
	Guard("PostToolUse:Edit", func() { postToolEdit(in) })
}

func postToolEdit(in Input) {
	if in.SessionID == "" {
		return
	}
	var toolInput editToolInput
	if err := json.Unmarshal(in.ToolInput, &toolInput); err != nil || toolInput.FilePath == "" {
		return
	}

	action := models.FileActionEdit
	preview := "-" + truncate(toolInput.OldString, editPreviewCap) + "\n+" + truncate(toolInput.NewString, editPreviewCap)
	if toolInput.OldString == "" && toolInput.Content != "" {
		action = models.FileActionWrite
		preview = truncate(toolInput.Content, editPreviewCap)
	}

	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("post tool edit: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	if err := store.EnsureSession(ctx, db, in.SessionID, projectDir); err != nil {
		slog.Default().Warn("post tool edit: ensure session failed", "error", err)
		return
	}

	turn := &models.Turn{
		SessionID: in.SessionID,
		Role:      models.RoleAssistant,
		TurnType:  models.TurnTypeCodeEdit,
		Content:   preview,
		Files:     []models.TurnFile{{FilePath: toolInput.FilePath, Action: action}},
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		slog.Default().Warn("post tool edit: index turn failed", "error", err)
	}

	if err := index.IndexFile(ctx, db, toolInput.FilePath); err != nil {
		slog.Default().Warn("post tool edit: reindex failed", "file", toolInput.FilePath, "error", err)
	}
}
