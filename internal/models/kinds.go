package models

// turnTypeWeights is the full weight table the ranker consults. It covers
// tags beyond the stored TurnType constants (decision, explanation, error,
// plan) that can appear as classification labels on summarized rows.
var turnTypeWeights = map[string]float64{
	"decision":   1.5,
	"checkpoint": 1.4,
	"request":    1.3,
	"code_edit":  1.2,
	"explanation": 1.0,
	"error":      1.0,
	"plan":       1.0,
	"file_read":  0.5,
	"bash_cmd":   0.3,
}

// TypeWeightFor returns the ranking weight for a raw turn-type string,
// covering the full table from the ranker's formula (including tags that
// never appear as a TurnType constant but can appear in content_summary
// classification). Falls back to 0.5 for anything unrecognized.
func TypeWeightFor(turnType string) float64 {
	if w, ok := turnTypeWeights[turnType]; ok {
		return w
	}
	return 0.5
}

// typeLabels maps a turn type to the human label used when formatting a
// turn for context injection.
var typeLabels = map[TurnType]string{
	TurnTypeRequest:     "User",
	TurnTypeCodeEdit:    "Edit",
	TurnTypeFileRead:    "Read",
	TurnTypeBashCmd:     "Cmd",
	TurnTypeCheckpoint:  "Checkpoint",
	TurnTypeGitCatchup:  "GitCatchup",
	TurnTypeFileCatchup: "FileCatchup",
}

// Label returns the human-readable display name for a turn type, falling
// back to the raw tag when no label is registered.
func (t TurnType) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// knowledgeCategories is the fixed retrieval order used when the context
// builder buckets active knowledge entries by category.
var knowledgeCategories = []KnowledgeCategory{
	KnowledgeCategoryDecision,
	KnowledgeCategoryArchitecture,
	KnowledgeCategoryConvention,
	KnowledgeCategoryPattern,
	KnowledgeCategoryPreference,
	KnowledgeCategoryBugFix,
	KnowledgeCategoryDebuggingInsight,
}

// KnowledgeCategoryOrder returns the fixed bucket order for startup context
// assembly.
func KnowledgeCategoryOrder() []KnowledgeCategory {
	out := make([]KnowledgeCategory, len(knowledgeCategories))
	copy(out, knowledgeCategories)
	return out
}

// validKnowledgeCategories is the allowed set accepted from distiller
// output (heuristic or LLM); anything else is dropped silently.
var validKnowledgeCategories = map[KnowledgeCategory]bool{
	KnowledgeCategoryDecision:         true,
	KnowledgeCategoryPreference:       true,
	KnowledgeCategoryConvention:       true,
	KnowledgeCategoryPattern:          true,
	KnowledgeCategoryBugFix:           true,
	KnowledgeCategoryArchitecture:     true,
	KnowledgeCategoryDebuggingInsight: true,
}

// IsValidKnowledgeCategory reports whether a category string is one of the
// allowed distillation categories.
func IsValidKnowledgeCategory(c KnowledgeCategory) bool {
	return validKnowledgeCategories[c]
}
