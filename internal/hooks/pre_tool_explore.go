package hooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

type taskToolInput struct {
	Prompt      string `json:"prompt"`
	Description string `json:"description"`
}

const keywordLimit = 8
const symbolQueryLimit = 10
const knowledgeQueryLimit = 5

var exploreStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "what": true, "when": true,
	"where": true, "which": true, "have": true, "will": true, "should": true,
	"about": true, "task": true, "please": true, "find": true, "check": true,
}

func extractKeywords(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) <= 3 || exploreStopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) >= keywordLimit {
			break
		}
	}
	return out
}

// PreToolExplore extracts keywords from the subagent task prompt, queries
// the symbol and knowledge indices, optionally synthesizes a briefing
// through the summarizer, and emits a hook response that prepends the
// briefing to the tool input.
func PreToolExplore(in Input) {
	Guard("PreToolUse:Explore", func() { preToolExplore(in) })
}

func preToolExplore(in Input) {
	var toolInput taskToolInput
	if err := json.Unmarshal(in.ToolInput, &toolInput); err != nil {
		return
	}
	prompt := toolInput.Prompt
	if prompt == "" {
		prompt = toolInput.Description
	}
	if prompt == "" {
		return
	}
	keywords := extractKeywords(prompt)
	if len(keywords) == 0 {
		return
	}

	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("pre tool explore: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	symbols, err := store.SearchSymbolsByKeywords(ctx, db, keywords, symbolQueryLimit)
	if err != nil {
		slog.Default().Warn("pre tool explore: symbol search failed", "error", err)
	}
	knowledge, err := store.SearchKnowledge(ctx, db, strings.Join(keywords, " "), knowledgeQueryLimit, "")
	if err != nil {
		slog.Default().Warn("pre tool explore: knowledge search failed", "error", err)
	}
	if len(symbols) == 0 && len(knowledge) == 0 {
		return
	}

	briefing := formatBriefing(symbols, knowledge)
	if provider := summarizerFor(projectDir); provider != nil {
		if synthesized, synthErr := synthesizeBriefing(ctx, provider, prompt, briefing); synthErr == nil {
			briefing = synthesized
		} else {
			slog.Default().Warn("pre tool explore: briefing synthesis failed", "error", synthErr)
		}
	}

	updated := map[string]any{
		"prompt": briefing + "\n\n---\n\n" + prompt,
	}
	if toolInput.Description != "" {
		updated["description"] = toolInput.Description
	}

	WriteOutput(&Output{HookSpecificOutput: &SpecificOutput{
		HookEventName:      "PreToolUse",
		PermissionDecision: "allow",
		UpdatedInput:       updated,
	}})
}

func formatBriefing(symbols []store.SymbolMatch, knowledge []store.KnowledgeSearchResult) string {
	var b strings.Builder
	b.WriteString("Project memory briefing:\n")
	if len(symbols) > 0 {
		b.WriteString("\nRelevant symbols:\n")
		for _, s := range symbols {
			b.WriteString("- " + s.Kind + " " + s.Name + " (" + s.FilePath + ")\n")
		}
	}
	if len(knowledge) > 0 {
		b.WriteString("\nRelevant knowledge:\n")
		for _, k := range knowledge {
			b.WriteString("- [" + k.Category + "] " + k.Subject + ": " + truncate(k.Content, 200) + "\n")
		}
	}
	return b.String()
}

func synthesizeBriefing(ctx context.Context, provider summarizer.Provider, taskPrompt, rawBriefing string) (string, error) {
	prompt := "Condense the following project-memory briefing into a short paragraph relevant to this subagent task.\n\nTask: " +
		taskPrompt + "\n\nBriefing:\n" + rawBriefing
	return provider.Summarize(ctx, prompt)
}
