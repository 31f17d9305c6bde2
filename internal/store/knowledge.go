package store

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
)

// UpsertResult reports which branch of the knowledge upsert protocol ran.
type UpsertResult string

const (
	UpsertCreated   UpsertResult = "created"
	UpsertConfirmed UpsertResult = "confirmed"
)

// agreementStopWords excludes common short/function words from the
// agreement test's token overlap so near-identical content isn't diluted by
// filler words both strings would share regardless of subject.
var agreementStopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"will": true, "would": true, "should": true, "could": true, "about": true,
	"which": true, "their": true, "there": true, "these": true, "those": true,
	"been": true, "were": true, "what": true, "when": true, "where": true,
}

func agreementTokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) <= 3 || agreementStopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// contentsAgree tokenizes both strings and reports agreement iff either side
// is empty or overlap/min(|A|,|B|) > 0.4.
func contentsAgree(a, b string) bool {
	tokA := agreementTokens(a)
	tokB := agreementTokens(b)
	if len(tokA) == 0 || len(tokB) == 0 {
		return true
	}
	overlap := 0
	for w := range tokA {
		if tokB[w] {
			overlap++
		}
	}
	minLen := len(tokA)
	if len(tokB) < minLen {
		minLen = len(tokB)
	}
	return float64(overlap)/float64(minLen) > 0.4
}

// UpsertKnowledge runs the knowledge distillation protocol: look up the
// active entry sharing (subject, category); if absent insert and return
// created; if present and content agrees, bump confidence by 0.1 (capped at
// 1.0) and refresh last_confirmed; if present and content disagrees, halve
// the old entry's confidence, insert a new row, and link the old row's
// superseded_by to the new id.
func UpsertKnowledge(ctx context.Context, db *sql.DB, sessionID string, category models.KnowledgeCategory, subject, content string, confidence float64) (UpsertResult, int64, error) {
	var result UpsertResult
	var newID int64

	err := Transact(ctx, db, func(tx *sql.Tx) error {
		var existingID int64
		var existingContent string
		var existingConfidence float64
		err := tx.QueryRowContext(ctx, `
			SELECT id, content, confidence FROM knowledge
			WHERE category = ? AND subject = ? AND superseded_by IS NULL
			ORDER BY id DESC LIMIT 1
		`, string(category), subject).Scan(&existingID, &existingContent, &existingConfidence)

		if err == sql.ErrNoRows {
			id, insErr := insertKnowledge(ctx, tx, sessionID, category, subject, content, confidence, nil)
			if insErr != nil {
				return insErr
			}
			newID = id
			result = UpsertCreated
			return nil
		}
		if err != nil {
			return err
		}

		if contentsAgree(existingContent, content) {
			newConfidence := math.Min(existingConfidence+0.1, 1.0)
			if _, err := tx.ExecContext(ctx, `
				UPDATE knowledge SET confidence = ?, last_confirmed = datetime('now')
				WHERE id = ?
			`, newConfidence, existingID); err != nil {
				return wrapIntegrity("confirm_knowledge", err)
			}
			newID = existingID
			result = UpsertConfirmed
			return nil
		}

		id, insErr := insertKnowledge(ctx, tx, sessionID, category, subject, content, confidence, nil)
		if insErr != nil {
			return insErr
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE knowledge SET confidence = confidence / 2, superseded_by = ?
			WHERE id = ?
		`, id, existingID); err != nil {
			return wrapIntegrity("supersede_knowledge", err)
		}
		newID = id
		result = UpsertCreated
		return nil
	})

	return result, newID, err
}

func insertKnowledge(ctx context.Context, tx *sql.Tx, sessionID string, category models.KnowledgeCategory, subject, content string, confidence float64, supersededBy *int64) (int64, error) {
	confidence = math.Max(0.1, math.Min(confidence, 1.0))
	res, err := tx.ExecContext(ctx, `
		INSERT INTO knowledge (session_id, category, subject, content, confidence, superseded_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nullableString(sessionID), string(category), subject, content, confidence, supersededBy)
	if err != nil {
		return 0, wrapIntegrity("insert_knowledge", err)
	}
	return res.LastInsertId()
}

// ActiveKnowledgeByCategory returns active (non-superseded) entries in a
// category ordered by confidence descending then recency, capped at limit.
func ActiveKnowledgeByCategory(ctx context.Context, db *sql.DB, category models.KnowledgeCategory, minConfidence float64, limit int) ([]*models.KnowledgeEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(session_id, ''), category, subject, content, confidence,
		       created_at, last_confirmed, superseded_by
		FROM knowledge
		WHERE category = ? AND superseded_by IS NULL AND confidence > ?
		ORDER BY confidence DESC, created_at DESC
		LIMIT ?
	`, string(category), minConfidence, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanKnowledgeEntry(rows *sql.Rows) (*models.KnowledgeEntry, error) {
	var e models.KnowledgeEntry
	var categoryStr string
	var lastConfirmed sql.NullTime
	var supersededBy sql.NullInt64
	if err := rows.Scan(&e.ID, &e.SessionID, &categoryStr, &e.Subject, &e.Content, &e.Confidence,
		&e.CreatedAt, &lastConfirmed, &supersededBy); err != nil {
		return nil, err
	}
	e.Category = models.KnowledgeCategory(categoryStr)
	if lastConfirmed.Valid {
		e.LastConfirmed = &lastConfirmed.Time
	}
	if supersededBy.Valid {
		e.SupersededByID = &supersededBy.Int64
	}
	return &e, nil
}
