package distill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

const extractionSystemPrompt = `You are distilling durable facts from a coding session transcript.
Respond with a JSON array only, no prose, of objects shaped:
{"category": one of decision|preference|convention|pattern|bug_fix|architecture|debugging_insight,
 "subject": short string, "content": one or two sentences, "confidence": number 0-1}
If nothing durable happened, respond with an empty array: []`

const transcriptCharBudget = 12000
const perTurnCharCap = 500

type llmFact struct {
	Category   string  `json:"category"`
	Subject    string  `json:"subject"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// buildTranscript renders turns as "[n] [type] body" lines, capping each
// body at perTurnCharCap and the whole transcript at transcriptCharBudget —
// matching the teacher's session-digest prompt assembly.
func buildTranscript(turns []*models.Turn) string {
	var b strings.Builder
	total := 0
	for i, t := range turns {
		body := t.Content
		if len(body) > perTurnCharCap {
			body = body[:perTurnCharCap]
		}
		line := fmt.Sprintf("[%d] [%s] %s\n", i+1, t.TurnType, body)
		if total+len(line) > transcriptCharBudget {
			break
		}
		b.WriteString(line)
		total += len(line)
	}
	return b.String()
}

// stripCodeFence removes a leading/trailing ```json or ``` fence, tolerating
// responses that wrap their JSON array in markdown even though the prompt
// asked for JSON only.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// llmExtract calls the summarizer with a compact transcript and parses its
// response into validated facts. Unknown categories are dropped silently;
// confidence is clamped to [0.1, 1.0]. Network and parse failures are
// returned as an error so the caller falls back to heuristic mode; a
// well-formed empty array (the prompt's instructed response when nothing
// durable happened) is NOT a failure — it returns a nil/empty fact slice
// with a nil error, and the caller must not re-derive facts heuristically
// in that case.
func llmExtract(ctx context.Context, provider summarizer.Provider, turns []*models.Turn) ([]fact, error) {
	prompt := extractionSystemPrompt + "\n\nSession events:\n" + buildTranscript(turns)

	raw, err := provider.Summarize(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("distill: llm extraction failed: %w", err)
	}

	raw = stripCodeFence(raw)

	var parsed []llmFact
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("distill: llm response not valid JSON: %w", err)
	}

	var facts []fact
	for _, p := range parsed {
		cat := models.KnowledgeCategory(p.Category)
		if !models.IsValidKnowledgeCategory(cat) {
			continue
		}
		if p.Subject == "" || p.Content == "" {
			continue
		}
		conf := p.Confidence
		if conf < 0.1 {
			conf = 0.1
		}
		if conf > 1.0 {
			conf = 1.0
		}
		facts = append(facts, fact{Category: cat, Subject: p.Subject, Content: p.Content, Confidence: conf})
	}

	return facts, nil
}
