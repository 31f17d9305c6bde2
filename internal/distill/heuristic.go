package distill

import (
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
)

// fact is one (category, subject, content, confidence) tuple ready for the
// store's knowledge upsert protocol.
type fact struct {
	Category   models.KnowledgeCategory
	Subject    string
	Content    string
	Confidence float64
}

// techKeywords maps a lowercase technology mention to the subject area it
// distills into, per the fixed lexicon.
var techKeywords = map[string]string{
	"postgres":   "database",
	"postgresql": "database",
	"sqlite":     "database",
	"mysql":      "database",
	"redis":      "caching",
	"docker":     "deployment",
	"kubernetes": "deployment",
	"graphql":    "api design",
	"grpc":       "api design",
	"websocket":  "api design",
	"react":      "frontend",
	"vue":        "frontend",
	"typescript": "frontend",
}

var preferenceMarkers = []string{"always", "never", "prefer", "instead of"}

var toolchainInvocations = []string{
	"go build", "go test", "go vet", "go run", "go mod",
	"npm run", "npm install", "npm test", "yarn ", "pnpm ",
	"make ", "cargo build", "cargo test", "pytest", "docker build",
}

// heuristicExtract scans request/edit/bash turns for the fixed lexicon: tech
// keywords (decision), preference markers (preference), "fix"/"bug" mentions
// in edit content (bug_fix), wide edits touching 3+ files (architecture),
// and toolchain invocations in shell content (convention).
func heuristicExtract(turns []*models.Turn) []fact {
	var facts []fact

	for _, t := range turns {
		lower := strings.ToLower(t.Content)

		switch t.TurnType {
		case models.TurnTypeRequest, models.TurnTypeCodeEdit, models.TurnTypeBashCmd:
			for kw, area := range techKeywords {
				if strings.Contains(lower, kw) {
					facts = append(facts, fact{
						Category:   models.KnowledgeCategoryDecision,
						Subject:    area,
						Content:    snippetAround(t.Content, kw),
						Confidence: 0.4,
					})
				}
			}
			for _, marker := range preferenceMarkers {
				if strings.Contains(lower, marker) {
					facts = append(facts, fact{
						Category:   models.KnowledgeCategoryPreference,
						Subject:    marker,
						Content:    snippetAround(t.Content, marker),
						Confidence: 0.4,
					})
				}
			}
		}

		if t.TurnType == models.TurnTypeCodeEdit {
			if strings.Contains(lower, "fix") || strings.Contains(lower, "bug") {
				facts = append(facts, fact{
					Category:   models.KnowledgeCategoryBugFix,
					Subject:    "bug fix",
					Content:    truncate(t.Content, 400),
					Confidence: 0.3,
				})
			}
			if len(t.Files) >= 3 {
				facts = append(facts, fact{
					Category:   models.KnowledgeCategoryArchitecture,
					Subject:    "wide edit",
					Content:    truncate(t.Content, 400),
					Confidence: 0.3,
				})
			}
		}

		if t.TurnType == models.TurnTypeBashCmd {
			for _, inv := range toolchainInvocations {
				if strings.Contains(lower, inv) {
					facts = append(facts, fact{
						Category:   models.KnowledgeCategoryConvention,
						Subject:    "toolchain",
						Content:    truncate(t.Content, 400),
						Confidence: 0.3,
					})
					break
				}
			}
		}
	}

	return facts
}

// snippetAround returns a short window of s centered on the first
// occurrence of needle (case-insensitive), or s truncated if needle isn't
// found (shouldn't happen since callers already confirmed containment).
func snippetAround(s, needle string) string {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, strings.ToLower(needle))
	if idx < 0 {
		return truncate(s, 200)
	}
	start := idx - 60
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + 140
	if end > len(s) {
		end = len(s)
	}
	return strings.TrimSpace(s[start:end])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
