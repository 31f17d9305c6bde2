package context

import (
	stdctx "context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/rank"
	"github.com/dullfig/claude-rlm/internal/store"
)

// BuildCompactContext assembles the blob injected right after the host
// compacts its own conversation history: the session's checkpoint turns
// verbatim, its requests verbatim (never elided), the active-file set, and
// whatever budget remains handed to the ranker. Capped at 16,000 chars.
func BuildCompactContext(ctx stdctx.Context, db *sql.DB, projectDir, sessionID string) (string, error) {
	parts := []string{header}

	if plan, err := ActivePlan(projectDir); err == nil && plan != nil {
		parts = append(parts, formatPlanSection(*plan, compactBudget/4))
	}

	activeFiles, err := store.ActiveFiles(ctx, db, sessionID, 20)
	if err != nil {
		return "", err
	}

	sessionTurns, err := store.SessionTurns(ctx, db, sessionID)
	if err != nil {
		return "", err
	}
	if len(sessionTurns) == 0 {
		return "", nil
	}
	allTurns := make([]store.TurnSearchResult, 0, len(sessionTurns))
	for _, t := range sessionTurns {
		allTurns = append(allTurns, turnToSearchResult(t))
	}

	var checkpoints, requests, rankable []store.TurnSearchResult
	for _, t := range allTurns {
		switch t.TurnType {
		case string(models.TurnTypeCheckpoint):
			checkpoints = append(checkpoints, t)
		case string(models.TurnTypeRequest):
			requests = append(requests, t)
		default:
			rankable = append(rankable, t)
		}
	}

	if len(checkpoints) > 0 {
		var b strings.Builder
		b.WriteString("## Session Checkpoint\n")
		for _, cp := range checkpoints {
			b.WriteString(truncate(cp.Content, 2000))
			b.WriteString("\n")
		}
		parts = append(parts, b.String())
	}

	if len(requests) > 0 {
		var b strings.Builder
		b.WriteString("## User Requests\n")
		for _, r := range requests {
			b.WriteString(strconv.FormatInt(r.TurnNumber, 10) + ". " + truncate(r.Content, 300) + "\n")
		}
		parts = append(parts, b.String())
	}

	if len(activeFiles) > 0 {
		var b strings.Builder
		b.WriteString("## Active Files\n")
		for _, f := range activeFiles {
			b.WriteString("- " + f + "\n")
		}
		parts = append(parts, b.String())
	}

	currentSize := 0
	for _, p := range parts {
		currentSize += len(p)
	}
	remaining := compactBudget - currentSize

	if len(rankable) > 0 && remaining > 200 {
		rankedSection := rank.RankedSelect(rankable, activeFiles, remaining)
		if rankedSection != "" {
			parts = append(parts, "## Session Activity\n"+rankedSection)
		}
	}

	return clampBudget(strings.Join(parts, "\n"), compactBudget), nil
}

// turnToSearchResult adapts a stored turn to the shape the ranker scores,
// the same shape memory_search returns over FTS rows.
func turnToSearchResult(t *models.Turn) store.TurnSearchResult {
	return store.TurnSearchResult{
		TurnID:         t.ID,
		SessionID:      t.SessionID,
		TurnNumber:     t.TurnNumber,
		Timestamp:      t.Timestamp.Format("2006-01-02 15:04:05"),
		Role:           string(t.Role),
		TurnType:       string(t.TurnType),
		Content:        t.Content,
		ContentSummary: t.ContentSummary,
		Files:          t.FilePaths(),
	}
}
