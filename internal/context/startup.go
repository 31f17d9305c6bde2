package context

import (
	stdctx "context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// BuildStartupContext assembles the blob injected at session start: header,
// active plan, codebase map, recent sessions, a fresh catch-up turn if one
// was just written, and active-knowledge buckets. Capped at 8,000 chars.
func BuildStartupContext(ctx stdctx.Context, db *sql.DB, projectDir string) (string, error) {
	parts := []string{header}
	remaining := startupBudget - len(header)

	if plan, err := ActivePlan(projectDir); err == nil && plan != nil {
		section := formatPlanSection(*plan, remaining)
		remaining -= len(section)
		parts = append(parts, section)
	}

	mapSection, err := formatCodebaseMap(ctx, db, projectDir, remaining/2)
	if err != nil {
		return "", err
	}
	if mapSection != "" {
		remaining -= len(mapSection)
		parts = append(parts, mapSection)
	}

	sessions, err := store.RecentSessions(ctx, db, projectDir, 3)
	if err != nil {
		return "", err
	}
	if len(sessions) > 0 {
		var b strings.Builder
		b.WriteString("## Recent Sessions\n")
		budgetHalf := remaining / 2
		for _, s := range sessions {
			ended := "(in progress)"
			if s.EndedAt != nil {
				ended = s.EndedAt.Format("2006-01-02 15:04:05")
			}
			summary := s.Summary
			if summary == "" {
				summary = "(no summary)"
			}
			idPrefix := s.ID
			if len(idPrefix) > 8 {
				idPrefix = idPrefix[:8]
			}
			entry := "- " + idPrefix + " (started: " + s.StartedAt.Format("2006-01-02 15:04:05") +
				", ended: " + ended + "): " + truncate(summary, 200) + "\n"
			if b.Len()+len(entry) > budgetHalf {
				break
			}
			b.WriteString(entry)
		}
		section := b.String()
		remaining -= len(section)
		parts = append(parts, section)
	}

	if catchup, err := recentCatchupTurn(ctx, db); err == nil && catchup != "" {
		section := "## Recent Git Changes\n" + truncate(catchup, 800) + "\n"
		remaining -= len(section)
		parts = append(parts, section)
	}

	knowledgeSection, err := formatKnowledgeBuckets(ctx, db, remaining)
	if err != nil {
		return "", err
	}
	if knowledgeSection != "" {
		parts = append(parts, "## Project Knowledge\n"+knowledgeSection)
	}

	return clampBudget(strings.Join(parts, "\n"), startupBudget), nil
}

// recentCatchupTurn returns the content of the most recent git/file catch-up
// turn written within the last 30 seconds, or "" if none.
func recentCatchupTurn(ctx stdctx.Context, db *sql.DB) (string, error) {
	var content string
	err := db.QueryRowContext(ctx, `
		SELECT content FROM turns
		WHERE turn_type IN ('git_catchup', 'file_catchup')
		  AND timestamp >= datetime('now', '-30 seconds')
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return content, err
}

// formatKnowledgeBuckets renders active knowledge entries (confidence > 0.5)
// grouped by the fixed category order, up to 10 per bucket.
func formatKnowledgeBuckets(ctx stdctx.Context, db *sql.DB, budget int) (string, error) {
	var b strings.Builder
	for _, cat := range models.KnowledgeCategoryOrder() {
		entries, err := store.ActiveKnowledgeByCategory(ctx, db, cat, 0.5, 10)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			continue
		}
		b.WriteString("### " + capitalize(string(cat)) + "\n")
		for _, e := range entries {
			pct := strconv.Itoa(int(e.Confidence*100 + 0.5))
			entry := "- **" + e.Subject + "** (" + pct + "%): " + truncate(e.Content, 150) + "\n"
			if b.Len()+len(entry) > budget {
				return b.String(), nil
			}
			b.WriteString(entry)
		}
	}
	return b.String(), nil
}

// formatPlanSection renders an active plan into a fixed-shape block. A block
// longer than budget is cut by truncate, which keeps budget bytes and
// appends "...".
func formatPlanSection(plan models.Plan, budget int) string {
	title := plan.Title
	if title == "" {
		title = "Untitled Plan"
	}
	section := "## Active Plan: " + title + " [" + plan.Status + "]\nPlan file: " + plan.ID + "\n"
	return truncate(section, budget)
}

// formatCodebaseMap renders the project structure header plus a per-file
// symbol listing, deduplicated and normalized to project-relative paths.
func formatCodebaseMap(ctx stdctx.Context, db *sql.DB, projectDir string, budget int) (string, error) {
	structure, err := store.ProjectStructureSummary(ctx, db)
	if err != nil {
		return "", err
	}
	if structure.TotalSymbols == 0 {
		return "", nil
	}

	fileMap, err := store.CodebaseMap(ctx, db)
	if err != nil {
		return "", err
	}

	var kindStrs []string
	for i, kc := range structure.SymbolKinds {
		if i >= 6 {
			break
		}
		kindStrs = append(kindStrs, strconv.FormatInt(kc.Count, 10)+" "+kc.Kind)
	}
	var dirStrs []string
	for i, dc := range structure.Directories {
		if i >= 8 {
			break
		}
		dirStrs = append(dirStrs, dc.Dir+" ("+strconv.Itoa(dc.Count)+")")
	}

	var section strings.Builder
	section.WriteString("## Project Structure (" + strconv.Itoa(structure.TotalSymbols) +
		" symbols across " + strconv.Itoa(structure.TotalFiles) + " files)\n")
	section.WriteString("Symbols: " + strings.Join(kindStrs, ", ") + "\n")
	if len(dirStrs) > 0 {
		section.WriteString("Directories: " + strings.Join(dirStrs, ", ") + "\n")
	}

	if len(fileMap) == 0 {
		return section.String(), nil
	}
	section.WriteString("\n")

	prefix := strings.TrimRight(strings.ReplaceAll(projectDir, "\\", "/"), "/")

	seen := make(map[string]bool)
	type dedupedEntry struct {
		rel   string
		entry store.FileMapEntry
	}
	var deduped []dedupedEntry
	for _, entry := range fileMap {
		rel := makeRelative(entry.FilePath, prefix)
		if !seen[rel] {
			seen[rel] = true
			deduped = append(deduped, dedupedEntry{rel, entry})
		}
	}

	filesShown := 0
	for _, d := range deduped {
		var symStrs []string
		for _, s := range d.entry.Symbols {
			symStrs = append(symStrs, formatSymbol(s.Name, s.Kind))
		}
		line := d.rel + "\n  " + strings.Join(symStrs, ", ")
		if d.entry.Truncated {
			line += ", ..."
		}
		line += "\n"

		if section.Len()+len(line) > budget {
			break
		}
		section.WriteString(line)
		filesShown++
	}

	remainingFiles := len(deduped) - filesShown
	if remainingFiles > 0 {
		section.WriteString("...and " + strconv.Itoa(remainingFiles) + " more files\n")
	}

	return section.String(), nil
}

func formatSymbol(name, kind string) string {
	switch kind {
	case "struct":
		return "struct " + name
	case "enum":
		return "enum " + name
	case "trait":
		return "trait " + name
	case "function":
		return "fn " + name + "()"
	case "const":
		return "const " + name
	case "impl":
		return "impl " + name
	case "type_alias":
		return "type " + name
	default:
		return name
	}
}

// makeRelative strips prefix from path and normalizes to forward slashes.
func makeRelative(path, prefix string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	rel := strings.TrimPrefix(normalized, prefix)
	return strings.TrimPrefix(rel, "/")
}
