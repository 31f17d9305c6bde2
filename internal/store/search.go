package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
)

// sanitizeFTSQuery tokenizes on whitespace and wraps each token in double
// quotes so FTS5 treats `-`, `*`, OR, AND, NOT as literal text rather than
// query operators. Tokens are joined with spaces, which FTS5 interprets as
// an implicit AND.
func sanitizeFTSQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}
	quoted := make([]string, 0, len(fields))
	for _, tok := range fields {
		clean := strings.ReplaceAll(tok, `"`, "")
		quoted = append(quoted, `"`+clean+`"`)
	}
	return strings.Join(quoted, " ")
}

// TurnSearchResult is one row returned from a turns FTS query, with its
// attached file references populated.
type TurnSearchResult struct {
	TurnID         int64    `json:"turn_id"`
	SessionID      string   `json:"session_id"`
	TurnNumber     int64    `json:"turn_number"`
	Timestamp      string   `json:"timestamp"`
	Role           string   `json:"role"`
	TurnType       string   `json:"turn_type"`
	Content        string   `json:"content"`
	ContentSummary string   `json:"content_summary,omitempty"`
	Rank           float64  `json:"rank"`
	Files          []string `json:"files,omitempty"`
}

// KnowledgeSearchResult is one row returned from a knowledge FTS query.
type KnowledgeSearchResult struct {
	ID         int64   `json:"id"`
	Category   string  `json:"category"`
	Subject    string  `json:"subject"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
	Rank       float64 `json:"rank"`
}

// SearchTurns implements memory_search: FTS over turns, optionally scoped to
// a session and/or turn type, with attached file references.
func SearchTurns(ctx context.Context, db *sql.DB, query string, limit int, sessionID, turnType string) ([]TurnSearchResult, error) {
	sqlStr := `
		SELECT t.id, t.session_id, t.turn_number, t.timestamp,
		       t.role, t.turn_type, t.content, COALESCE(t.content_summary, ''),
		       fts.rank
		FROM turns_fts fts
		JOIN turns t ON t.id = fts.rowid
		WHERE turns_fts MATCH ?`
	args := []any{sanitizeFTSQuery(query)}

	if sessionID != "" {
		sqlStr += " AND t.session_id = ?"
		args = append(args, sessionID)
	}
	if turnType != "" {
		sqlStr += " AND t.turn_type = ?"
		args = append(args, turnType)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []TurnSearchResult
	for rows.Next() {
		var r TurnSearchResult
		if err := rows.Scan(&r.TurnID, &r.SessionID, &r.TurnNumber, &r.Timestamp,
			&r.Role, &r.TurnType, &r.Content, &r.ContentSummary, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachTurnFiles(ctx, db, results); err != nil {
		return nil, err
	}
	return results, nil
}

func attachTurnFiles(ctx context.Context, db *sql.DB, results []TurnSearchResult) error {
	for i := range results {
		files, err := queryStringColumnCtx(ctx, db, `SELECT file_path FROM turn_files WHERE turn_id = ?`, results[i].TurnID)
		if err != nil {
			return err
		}
		results[i].Files = files
	}
	return nil
}

func queryStringColumnCtx(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SearchKnowledge runs an FTS query over active (non-superseded) knowledge
// entries, optionally restricted to a category.
func SearchKnowledge(ctx context.Context, db *sql.DB, query string, limit int, category string) ([]KnowledgeSearchResult, error) {
	sqlStr := `
		SELECT k.id, k.category, k.subject, k.content, k.confidence, k.created_at, fts.rank
		FROM knowledge_fts fts
		JOIN knowledge k ON k.id = fts.rowid
		WHERE knowledge_fts MATCH ? AND k.superseded_by IS NULL`
	args := []any{sanitizeFTSQuery(query)}
	if category != "" {
		sqlStr += " AND k.category = ?"
		args = append(args, category)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []KnowledgeSearchResult
	for rows.Next() {
		var r KnowledgeSearchResult
		if err := rows.Scan(&r.ID, &r.Category, &r.Subject, &r.Content, &r.Confidence, &r.CreatedAt, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// MemoryDecisions implements memory_decisions: FTS over knowledge entries
// tagged decision, plus FTS over decision-labeled turns, merged into one
// list (knowledge entries first, since they are the distilled form).
func MemoryDecisions(ctx context.Context, db *sql.DB, query string, limit int) ([]KnowledgeSearchResult, []TurnSearchResult, error) {
	knowledge, err := SearchKnowledge(ctx, db, query, limit, string(models.KnowledgeCategoryDecision))
	if err != nil {
		return nil, nil, err
	}
	turns, err := SearchTurns(ctx, db, query, limit, "", "decision")
	if err != nil {
		return nil, nil, err
	}
	return knowledge, turns, nil
}

// MemoryFiles implements memory_files: turns referencing file_path, newest
// first.
func MemoryFiles(ctx context.Context, db *sql.DB, filePath string, limit int) ([]TurnSearchResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.id, t.session_id, t.turn_number, t.timestamp,
		       t.role, t.turn_type, t.content, COALESCE(t.content_summary, ''), 0.0
		FROM turns t
		JOIN turn_files tf ON tf.turn_id = t.id
		WHERE tf.file_path = ?
		ORDER BY t.timestamp DESC
		LIMIT ?
	`, filePath, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TurnSearchResult
	for rows.Next() {
		var r TurnSearchResult
		if err := rows.Scan(&r.TurnID, &r.SessionID, &r.TurnNumber, &r.Timestamp,
			&r.Role, &r.TurnType, &r.Content, &r.ContentSummary, &r.Rank); err != nil {
			return nil, err
		}
		r.Files = []string{filePath}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SymbolMatch is one row returned from a symbol lookup. References counts
// how many recorded call/type-reference edges point at the symbol's name.
type SymbolMatch struct {
	FilePath   string `json:"file_path"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	StartLine  int64  `json:"start_line"`
	EndLine    int64  `json:"end_line"`
	Signature  string `json:"signature,omitempty"`
	ParentName string `json:"parent_name,omitempty"`
	DocComment string `json:"doc_comment,omitempty"`
	References int64  `json:"references,omitempty"`
}

// MemorySymbols implements memory_symbols: substring match on symbol name,
// optionally filtered by kind, each row enriched with its inbound reference
// count from the symbol_refs table.
func MemorySymbols(ctx context.Context, db *sql.DB, name, kind string) ([]SymbolMatch, error) {
	sqlStr := `
		SELECT s.file_path, s.name, s.kind, s.start_line, s.end_line,
		       COALESCE(s.signature, ''), COALESCE(s.parent_name, ''), COALESCE(s.doc_comment, ''),
		       (SELECT COUNT(*) FROM symbol_refs r WHERE r.to_name = s.name)
		FROM symbols s WHERE s.name LIKE ?`
	args := []any{"%" + name + "%"}
	if kind != "" {
		sqlStr += " AND s.kind = ?"
		args = append(args, kind)
	}
	sqlStr += " ORDER BY s.file_path, s.start_line"

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanSymbolMatches(rows)
}

func scanSymbolMatches(rows *sql.Rows) ([]SymbolMatch, error) {
	var out []SymbolMatch
	for rows.Next() {
		var m SymbolMatch
		if err := rows.Scan(&m.FilePath, &m.Name, &m.Kind, &m.StartLine, &m.EndLine,
			&m.Signature, &m.ParentName, &m.DocComment, &m.References); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchSymbolsByKeywords ORs a LIKE match for each keyword across name,
// file_path, signature, and doc_comment. Used by the PreToolUse briefing
// path, not by the query server's memory_symbols method.
func SearchSymbolsByKeywords(ctx context.Context, db *sql.DB, keywords []string, limit int) ([]SymbolMatch, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	conditions := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)+1)
	for _, kw := range keywords {
		pattern := "%" + kw + "%"
		conditions = append(conditions, `(name LIKE ? OR file_path LIKE ? OR COALESCE(signature, '') LIKE ? OR COALESCE(doc_comment, '') LIKE ?)`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	sqlStr := `
		SELECT s.file_path, s.name, s.kind, s.start_line, s.end_line,
		       COALESCE(s.signature, ''), COALESCE(s.parent_name, ''), COALESCE(s.doc_comment, ''),
		       (SELECT COUNT(*) FROM symbol_refs r WHERE r.to_name = s.name)
		FROM symbols s
		WHERE s.kind NOT IN ('import', 'variable') AND (` + strings.Join(conditions, " OR ") + `)
		ORDER BY s.file_path, s.start_line
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanSymbolMatches(rows)
}

// ActiveFiles returns the distinct files edited/written/created in a
// session, most recently touched first. A non-positive limit returns the
// whole set (SQLite treats LIMIT -1 as unbounded).
func ActiveFiles(ctx context.Context, db *sql.DB, sessionID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryStringColumnCtx(ctx, db, `
		SELECT DISTINCT tf.file_path
		FROM turn_files tf
		JOIN turns t ON t.id = tf.turn_id
		WHERE t.session_id = ? AND tf.action IN ('edit', 'write', 'create')
		ORDER BY t.turn_number DESC
		LIMIT ?
	`, sessionID, limit)
}

// FileHistory returns turns referencing file_path, newest first. It is the
// non-server name for MemoryFiles and returns exactly what MemoryFiles
// returns.
func FileHistory(ctx context.Context, db *sql.DB, filePath string, limit int) ([]TurnSearchResult, error) {
	return MemoryFiles(ctx, db, filePath, limit)
}

// SymbolMapEntry is one symbol within a codebase-map file entry.
type SymbolMapEntry struct {
	Name string
	Kind string
}

// FileMapEntry is one file's contribution to the codebase map: its
// (deduped, capped) symbols and an importance score used to order files.
type FileMapEntry struct {
	FilePath  string
	Symbols   []SymbolMapEntry
	Truncated bool
	Score     int
}

const codebaseMapMaxSymbolsPerFile = 8

// CodebaseMap groups non-import/variable symbols by file, drops redundant
// `impl X` entries when `struct/enum/trait X` exists in the same file, caps
// each file at 8 symbols, and orders files by a coarse importance score
// (struct/enum/trait=3, function=2, else 1, summed per file).
func CodebaseMap(ctx context.Context, db *sql.DB) ([]FileMapEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT file_path, name, kind FROM symbols
		WHERE kind NOT IN ('import', 'variable')
		ORDER BY file_path, start_line
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type rawSym struct{ path, name, kind string }
	var raw []rawSym
	for rows.Next() {
		var r rawSym
		if err := rows.Scan(&r.path, &r.name, &r.kind); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var files []FileMapEntry
	currentPath := ""
	var currentSymbols []SymbolMapEntry
	flush := func() {
		if currentPath != "" {
			files = append(files, finishFileEntry(currentPath, currentSymbols))
		}
	}
	for _, r := range raw {
		if r.path != currentPath {
			flush()
			currentPath = r.path
			currentSymbols = nil
		}
		currentSymbols = append(currentSymbols, SymbolMapEntry{Name: r.name, Kind: r.kind})
	}
	flush()

	sortFileMapEntries(files)
	return files, nil
}

func sortFileMapEntries(files []FileMapEntry) {
	for i := 1; i < len(files); i++ {
		for j := i; j > 0 && files[j].Score > files[j-1].Score; j-- {
			files[j], files[j-1] = files[j-1], files[j]
		}
	}
}

func finishFileEntry(filePath string, symbols []SymbolMapEntry) FileMapEntry {
	typeNames := make(map[string]bool)
	for _, s := range symbols {
		if s.Kind == "struct" || s.Kind == "enum" || s.Kind == "trait" {
			typeNames[s.Name] = true
		}
	}

	filtered := make([]SymbolMapEntry, 0, len(symbols))
	for _, s := range symbols {
		if s.Kind == "impl" && typeNames[s.Name] {
			continue
		}
		filtered = append(filtered, s)
	}

	score := 0
	for _, s := range filtered {
		switch s.Kind {
		case "struct", "trait", "enum":
			score += 3
		case "function":
			score += 2
		default:
			score++
		}
	}

	truncated := len(filtered) > codebaseMapMaxSymbolsPerFile
	if truncated {
		filtered = filtered[:codebaseMapMaxSymbolsPerFile]
	}

	return FileMapEntry{FilePath: filePath, Symbols: filtered, Truncated: truncated, Score: score}
}

// ProjectStructure summarizes the symbol table: totals, a kind histogram,
// and a coarse directory-frequency count.
type ProjectStructure struct {
	TotalFiles   int
	TotalSymbols int
	SymbolKinds  []KindCount
	Directories  []DirCount
}

type KindCount struct {
	Kind  string
	Count int64
}

type DirCount struct {
	Dir   string
	Count int
}

// ProjectStructureSummary computes aggregate counts over the symbol table
// for the codebase-map header.
func ProjectStructureSummary(ctx context.Context, db *sql.DB) (ProjectStructure, error) {
	var ps ProjectStructure

	kindRows, err := db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM symbols GROUP BY kind ORDER BY COUNT(*) DESC`)
	if err != nil {
		return ps, err
	}
	defer func() { _ = kindRows.Close() }()
	for kindRows.Next() {
		var kc KindCount
		if err := kindRows.Scan(&kc.Kind, &kc.Count); err != nil {
			return ps, err
		}
		ps.SymbolKinds = append(ps.SymbolKinds, kc)
		ps.TotalSymbols += int(kc.Count)
	}
	if err := kindRows.Err(); err != nil {
		return ps, err
	}

	paths, err := queryStringColumnCtx(ctx, db, `SELECT DISTINCT file_path FROM symbols`)
	if err != nil {
		return ps, err
	}
	ps.TotalFiles = len(paths)

	dirCounts := make(map[string]int)
	for _, p := range paths {
		dirCounts[topLevelDir(p)]++
	}
	for dir, count := range dirCounts {
		ps.Directories = append(ps.Directories, DirCount{Dir: dir, Count: count})
	}
	for i := 1; i < len(ps.Directories); i++ {
		for j := i; j > 0 && ps.Directories[j].Count > ps.Directories[j-1].Count; j-- {
			ps.Directories[j], ps.Directories[j-1] = ps.Directories[j-1], ps.Directories[j]
		}
	}

	return ps, nil
}

// topLevelDir picks a representative directory name for a file path: the
// segment after "src" if present, else the file's immediate parent.
func topLevelDir(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) < 2 {
		return ""
	}
	for i, p := range parts {
		if p == "src" {
			if i+1 < len(parts)-1 {
				return "src/" + parts[i+1]
			}
			return "src"
		}
	}
	return parts[len(parts)-2]
}
