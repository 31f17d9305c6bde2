// Package rank scores retrieved turns for context injection and selects a
// chronologically-reordered subset that fits a character budget.
package rank

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

const timestampLayout = "2006-01-02 15:04:05"

// Scored is a turn paired with its injection score. TruncateTo is nonzero
// only for the single overflow entry admitted past the budget boundary
// during greedy selection (see RankedSelect) — it records the exact byte
// length that entry was allotted so the final formatting pass, which runs
// after a chronological re-sort, truncates the *right* entry rather than
// whichever one happens to land last in turn_number order.
type Scored struct {
	Turn       store.TurnSearchResult
	Score      float64
	TruncateTo int
}

// RecencyBoost is an exponential decay on age in hours, floored at 0.1 so
// very old turns are never scored to zero.
func RecencyBoost(ageHours float64) float64 {
	decay := math.Exp(-ageHours / 24.0)
	return math.Max(decay, 0.1)
}

// FileAffinity boosts a turn whose files overlap the files currently in
// context. Either side empty means the boost doesn't apply.
func FileAffinity(turnFiles, contextFiles []string) float64 {
	if len(contextFiles) == 0 || len(turnFiles) == 0 {
		return 1.0
	}
	ctx := make(map[string]bool, len(contextFiles))
	for _, f := range contextFiles {
		ctx[f] = true
	}
	overlap := 0
	for _, f := range turnFiles {
		if ctx[f] {
			overlap++
		}
	}
	return 1.0 + float64(overlap)*0.5
}

// scoreTurn combines type weight, recency, and file affinity, then applies a
// length bonus for substantive content.
func scoreTurn(t store.TurnSearchResult, contextFiles []string, now time.Time) float64 {
	ageHours := hoursBetween(t.Timestamp, now)
	score := models.TypeWeightFor(t.TurnType) * RecencyBoost(ageHours) * FileAffinity(t.Files, contextFiles)

	n := len(t.Content)
	if n > 100 {
		score *= 1.1
	}
	if n > 500 {
		score *= 1.1
	}
	return score
}

// hoursBetween parses a turn timestamp and returns the elapsed hours up to
// now. Rows read straight from the store carry SQLite's "datetime('now')"
// layout; rows that round-tripped through a time.Time scan carry RFC 3339.
// Unparseable timestamps default to 1 hour so a bad row never scores as
// either maximally fresh or maximally stale.
func hoursBetween(earlier string, now time.Time) float64 {
	t, err := time.Parse(timestampLayout, earlier)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, earlier)
	}
	if err != nil {
		return 1.0
	}
	return now.Sub(t).Hours()
}

// RankedSelect scores turns, greedily selects the highest-scoring ones that
// fit budgetChars (allowing one final truncated entry when the remainder is
// worth including), then re-sorts the selection chronologically and formats
// it for injection.
func RankedSelect(turns []store.TurnSearchResult, contextFiles []string, budgetChars int) string {
	now := time.Now().UTC()

	scored := make([]Scored, len(turns))
	for i, t := range turns {
		scored[i] = Scored{Turn: t, Score: scoreTurn(t, contextFiles, now)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	var selected []Scored
	used := 0
	for _, st := range scored {
		entry := FormatTurnForInjection(st.Turn)
		if used+len(entry) > budgetChars {
			remaining := budgetChars - used
			if remaining > 100 {
				st.TruncateTo = remaining
				selected = append(selected, st)
				used += remaining
			}
			break
		}
		selected = append(selected, st)
		used += len(entry)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Turn.TurnNumber < selected[j].Turn.TurnNumber
	})

	var out strings.Builder
	for _, st := range selected {
		formatted := FormatTurnForInjection(st.Turn)
		if st.TruncateTo > 0 {
			out.WriteString(safeTruncate(formatted, st.TruncateTo))
			continue
		}
		out.WriteString(formatted)
	}
	return out.String()
}

// FormatTurnForInjection renders one turn as a single markdown bullet,
// truncating long content at a rune boundary.
func FormatTurnForInjection(t store.TurnSearchResult) string {
	label := models.TurnType(t.TurnType).Label()

	filesStr := ""
	if len(t.Files) > 0 {
		filesStr = " [" + strings.Join(t.Files, ", ") + "]"
	}

	content := t.Content
	if len(content) > 800 {
		content = safeTruncate(content, 800) + "..."
	}

	return "- **" + label + "**" + filesStr + ": " + content + "\n"
}

// safeTruncate cuts s to at most n bytes without splitting a multi-byte rune.
func safeTruncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
