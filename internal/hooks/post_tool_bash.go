package hooks

import (
	"encoding/json"
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

type bashToolInput struct {
	Command string `json:"command"`
}

type bashToolResponse struct {
	Output string `json:"output"`
	Stdout string `json:"stdout"`
}

const bashOutputCap = 1000

// PostToolBash indexes a bash_cmd turn with the command and a truncated
// copy of its output.
func PostToolBash(in Input) {
	Guard("PostToolUse:Bash", func() { postToolBash(in) })
}

func postToolBash(in Input) {
	if in.SessionID == "" {
		return
	}
	var toolInput bashToolInput
	_ = json.Unmarshal(in.ToolInput, &toolInput)
	if toolInput.Command == "" {
		return
	}

	var toolResponse bashToolResponse
	_ = json.Unmarshal(in.ToolResponse, &toolResponse)
	output := toolResponse.Output
	if output == "" {
		output = toolResponse.Stdout
	}

	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("post tool bash: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	if err := store.EnsureSession(ctx, db, in.SessionID, projectDir); err != nil {
		slog.Default().Warn("post tool bash: ensure session failed", "error", err)
		return
	}

	content := toolInput.Command + "\n" + truncate(output, bashOutputCap)
	turn := &models.Turn{
		SessionID: in.SessionID,
		Role:      models.RoleAssistant,
		TurnType:  models.TurnTypeBashCmd,
		Content:   content,
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		slog.Default().Warn("post tool bash: index turn failed", "error", err)
	}
}
