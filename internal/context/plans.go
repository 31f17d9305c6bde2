// Package context assembles the budget-bounded text blobs handed back to
// the assistant at session start and after context compaction.
package context

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dullfig/claude-rlm/internal/app"
	"github.com/dullfig/claude-rlm/internal/models"
)

var statusLineRe = regexp.MustCompile(`(?im)^\s*status\s*:\s*([a-zA-Z_]+)\s*$`)
var titleLineRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ActivePlan reads the host-owned plan files under <project>/.claude/plans/
// and returns the most recently modified plan that isn't completed or
// abandoned. This system never writes to that directory; plans are
// consulted, not authored, here.
func ActivePlan(projectDir string) (*models.Plan, error) {
	dir := app.PlansDir(projectDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var candidates []struct {
		plan    models.Plan
		modTime int64
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		body, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		plan := parsePlan(e.Name(), path, string(body))
		candidates = append(candidates, struct {
			plan    models.Plan
			modTime int64
		}{plan, info.ModTime().UnixNano()})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })

	for _, c := range candidates {
		if c.plan.IsActive() {
			p := c.plan
			return &p, nil
		}
	}
	return nil, nil
}

// parsePlan extracts a title (first "# " heading, falling back to the
// filename) and a status (a "Status: <word>" line, defaulting to active).
func parsePlan(fileName, path, body string) models.Plan {
	title := fileName
	if m := titleLineRe.FindStringSubmatch(body); len(m) == 2 {
		title = strings.TrimSpace(m[1])
	} else {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	status := "active"
	if m := statusLineRe.FindStringSubmatch(body); len(m) == 2 {
		status = strings.ToLower(m[1])
	}

	return models.Plan{
		ID:     path,
		Title:  title,
		Status: status,
		Body:   body,
	}
}
