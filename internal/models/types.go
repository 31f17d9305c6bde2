// Package models defines the persistent entities shared across the store,
// index, distill, rank, context, hooks, and server packages.
package models

import (
	"encoding/json"
	"time"
)

// Session is a continuous interaction window between a user and the
// assistant, scoped to one project directory. Created by the first hook
// handler that observes its session id; finalized by a session-end hook.
// Never deleted.
type Session struct {
	ID         string     `json:"id"`
	ProjectDir string     `json:"project_dir"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

// IsActive reports whether the session has not yet been finalized.
func (s *Session) IsActive() bool {
	return s.EndedAt == nil
}

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TurnType tags what kind of event a turn records. Ranking weight and
// display label are derived from this tag by the kind tables in kinds.go,
// never by type-switching on a Go type hierarchy.
type TurnType string

const (
	TurnTypeRequest     TurnType = "request"
	TurnTypeCodeEdit    TurnType = "code_edit"
	TurnTypeFileRead    TurnType = "file_read"
	TurnTypeBashCmd     TurnType = "bash_cmd"
	TurnTypeCheckpoint  TurnType = "checkpoint"
	TurnTypeGitCatchup  TurnType = "git_catchup"
	TurnTypeFileCatchup TurnType = "file_catchup"
)

// FileAction tags how a turn's referenced file was touched.
type FileAction string

const (
	FileActionRead       FileAction = "read"
	FileActionEdit       FileAction = "edit"
	FileActionWrite      FileAction = "write"
	FileActionCreate     FileAction = "create"
	FileActionGitChange  FileAction = "git_change"
	FileActionFileChange FileAction = "file_change"
	FileActionFileAdd    FileAction = "file_add"
	FileActionFileDelete FileAction = "file_delete"
)

// TurnFile is one (file_path, action) reference attached to a turn.
type TurnFile struct {
	TurnID   int64      `json:"turn_id"`
	FilePath string     `json:"file_path"`
	Action   FileAction `json:"action"`
}

// Turn is one indexed event inside a session. TurnNumber is dense and
// 1-based per session, assigned by reading max+1 under the store's writer
// lock; (SessionID, TurnNumber) is unique.
type Turn struct {
	ID             int64           `json:"id"`
	SessionID      string          `json:"session_id"`
	TurnNumber     int64           `json:"turn_number"`
	Timestamp      time.Time       `json:"timestamp"`
	Role           Role            `json:"role"`
	TurnType       TurnType        `json:"turn_type"`
	Content        string          `json:"content"`
	ContentSummary string          `json:"content_summary,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Files          []TurnFile      `json:"files,omitempty"`
}

// FilePaths returns the distinct file paths referenced by this turn.
func (t *Turn) FilePaths() []string {
	if len(t.Files) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.Files))
	for _, f := range t.Files {
		out = append(out, f.FilePath)
	}
	return out
}

// SymbolKind is a language-independent tag describing what a Symbol is.
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindStruct    SymbolKind = "struct"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindTrait     SymbolKind = "trait"
	SymbolKindEnum      SymbolKind = "enum"
	SymbolKindTypeAlias SymbolKind = "type_alias"
	SymbolKindConst     SymbolKind = "const"
	SymbolKindImport    SymbolKind = "import"
	SymbolKindVariable  SymbolKind = "variable"
	SymbolKindImpl      SymbolKind = "impl"
	SymbolKindNamespace SymbolKind = "namespace"
	SymbolKindMacro     SymbolKind = "macro"
)

// Symbol is a code artifact discovered by the symbol extractor. Created or
// refreshed whenever its file is (re)indexed; deleted en bloc when the file
// is re-indexed or removed from disk.
type Symbol struct {
	ID         int64      `json:"id"`
	FilePath   string     `json:"file_path"`
	Name       string     `json:"name"`
	Kind       SymbolKind `json:"kind"`
	StartLine  int64      `json:"start_line"`
	EndLine    int64      `json:"end_line"`
	Signature  string     `json:"signature,omitempty"`
	DocComment string     `json:"doc_comment,omitempty"`
	ParentName string     `json:"parent_name,omitempty"`
	IndexedAt  time.Time  `json:"indexed_at"`
}

// SymbolRef is a call or type-reference edge from one symbol to a name
// resolved elsewhere in the same file's extraction pass. Additive: nothing
// in the required retrieval surface depends on this table being populated.
// FromSymbolName (not an id) is what the extractor can actually observe;
// the store resolves it to FromSymbolID during the same transaction that
// inserts the symbols themselves.
type SymbolRef struct {
	ID             int64  `json:"id"`
	FromSymbolName string `json:"-"`
	ToName         string `json:"to_name"`
	FilePath       string `json:"file_path"`
	Line           int64  `json:"line"`
}

// KnowledgeCategory tags a distilled durable fact.
type KnowledgeCategory string

const (
	KnowledgeCategoryDecision          KnowledgeCategory = "decision"
	KnowledgeCategoryPreference        KnowledgeCategory = "preference"
	KnowledgeCategoryConvention        KnowledgeCategory = "convention"
	KnowledgeCategoryPattern           KnowledgeCategory = "pattern"
	KnowledgeCategoryBugFix            KnowledgeCategory = "bug_fix"
	KnowledgeCategoryArchitecture      KnowledgeCategory = "architecture"
	KnowledgeCategoryDebuggingInsight  KnowledgeCategory = "debugging_insight"
)

// KnowledgeEntry is a distilled durable fact. A non-null SupersededBy hides
// the entry from retrieval; the chain it forms is always linear (only ever
// set on a freshly inserted row), never cyclic.
type KnowledgeEntry struct {
	ID              int64             `json:"id"`
	SessionID       string            `json:"session_id"`
	Category        KnowledgeCategory `json:"category"`
	Subject         string            `json:"subject"`
	Content         string            `json:"content"`
	Confidence      float64           `json:"confidence"`
	CreatedAt       time.Time         `json:"created_at"`
	LastConfirmed   *time.Time        `json:"last_confirmed,omitempty"`
	SupersededByID  *int64            `json:"superseded_by,omitempty"`
}

// IsActive reports whether this entry is visible to retrieval.
func (k *KnowledgeEntry) IsActive() bool {
	return k.SupersededByID == nil
}

// FileHash is a (ProjectDir, FilePath) -> ContentHash row maintained by the
// non-VCS catch-up engine.
type FileHash struct {
	ProjectDir  string `json:"project_dir"`
	FilePath    string `json:"file_path"`
	ContentHash uint64 `json:"content_hash"`
}

// VCSState is a ProjectDir -> last observed commit row maintained by the
// VCS catch-up engine.
type VCSState struct {
	ProjectDir string `json:"project_dir"`
	LastCommit string `json:"last_commit"`
}

// BackgroundTaskType tags what a queued background task does when claimed.
type BackgroundTaskType string

const (
	TaskTypeReindexStale   BackgroundTaskType = "reindex_stale"
	TaskTypeDistillSession BackgroundTaskType = "distill_session"
	TaskTypeShutdown       BackgroundTaskType = "shutdown"
)

// BackgroundTaskStatus tags a task's lifecycle state.
type BackgroundTaskStatus string

const (
	TaskStatusPending   BackgroundTaskStatus = "pending"
	TaskStatusRunning   BackgroundTaskStatus = "running"
	TaskStatusCompleted BackgroundTaskStatus = "completed"
	TaskStatusFailed    BackgroundTaskStatus = "failed"
)

// BackgroundTask is one FIFO queue row.
type BackgroundTask struct {
	ID          int64                `json:"id"`
	TaskType    BackgroundTaskType   `json:"task_type"`
	Status      BackgroundTaskStatus `json:"status"`
	ProjectDir  string               `json:"project_dir"`
	Payload     string               `json:"payload,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// IsTerminal reports whether the task has finished (successfully or not).
func (t *BackgroundTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Plan is an external, host-owned plan record consulted (never authored) by
// the context builder when assembling a startup blob.
type Plan struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"` // active | completed | abandoned
	Body      string `json:"body"`
}

// IsActive reports whether a plan should be surfaced in startup context.
func (p *Plan) IsActive() bool {
	return p.Status != "completed" && p.Status != "abandoned"
}
