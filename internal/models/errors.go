package models

import "errors"

// RecoverableError is implemented by enriched errors that carry structured
// context and a remediation hint. The store, index, distill, and server
// packages all return these for the error taxonomy instead of bare errors.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Sentinel errors for errors.Is against the taxonomy without importing the
// concrete types below.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrIndexFailed        = errors.New("index error")
	ErrRetrievalFailed    = errors.New("retrieval error")
	ErrSummarizerFailed   = errors.New("summarizer error")
	ErrSchedulerFailed    = errors.New("scheduler error")
	ErrIntegrityViolation = errors.New("integrity error")
)

// StorageUnavailableError reports that the store file could not be opened
// or migrated. Hooks log and exit 0; the server reports and exits non-zero.
type StorageUnavailableError struct {
	Path string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return "storage unavailable at " + e.Path + ": " + e.Err.Error()
}
func (e *StorageUnavailableError) ErrorCode() string { return "STORAGE_UNAVAILABLE" }
func (e *StorageUnavailableError) Context() map[string]string {
	return map[string]string{"path": e.Path}
}
func (e *StorageUnavailableError) SuggestedAction() string {
	return "check disk permissions and available space at " + e.Path
}
func (e *StorageUnavailableError) Is(target error) bool { return target == ErrStorageUnavailable }
func (e *StorageUnavailableError) Unwrap() error         { return e.Err }

// IndexErr reports that a single file failed to parse during indexing. The
// caller skips it and continues with the remaining files.
type IndexErr struct {
	FilePath string
	Err      error
}

func (e *IndexErr) Error() string     { return "index error for " + e.FilePath + ": " + e.Err.Error() }
func (e *IndexErr) ErrorCode() string { return "INDEX_ERROR" }
func (e *IndexErr) Context() map[string]string {
	return map[string]string{"file_path": e.FilePath}
}
func (e *IndexErr) SuggestedAction() string { return "skip file and continue indexing" }
func (e *IndexErr) Is(target error) bool    { return target == ErrIndexFailed }
func (e *IndexErr) Unwrap() error           { return e.Err }

// RetrievalErr reports that an FTS query failed. The method returns an
// empty result set plus this as a text message rather than propagating it.
type RetrievalErr struct {
	Query string
	Err   error
}

func (e *RetrievalErr) Error() string {
	return "retrieval error for query " + e.Query + ": " + e.Err.Error()
}
func (e *RetrievalErr) ErrorCode() string { return "RETRIEVAL_ERROR" }
func (e *RetrievalErr) Context() map[string]string {
	return map[string]string{"query": e.Query}
}
func (e *RetrievalErr) SuggestedAction() string { return "retry with a simpler query" }
func (e *RetrievalErr) Is(target error) bool    { return target == ErrRetrievalFailed }
func (e *RetrievalErr) Unwrap() error           { return e.Err }

// SummarizerErr reports a network or parse failure calling the summarizer.
// The caller falls back to heuristic distillation or raw-data injection.
type SummarizerErr struct {
	Provider string
	Err      error
}

func (e *SummarizerErr) Error() string {
	return "summarizer error (" + e.Provider + "): " + e.Err.Error()
}
func (e *SummarizerErr) ErrorCode() string { return "SUMMARIZER_ERROR" }
func (e *SummarizerErr) Context() map[string]string {
	return map[string]string{"provider": e.Provider}
}
func (e *SummarizerErr) SuggestedAction() string { return "fall back to heuristic distillation" }
func (e *SummarizerErr) Is(target error) bool    { return target == ErrSummarizerFailed }
func (e *SummarizerErr) Unwrap() error           { return e.Err }

// SchedulerErr reports that a background task execution panicked or
// returned an error. The task row is marked failed with this message; the
// poller continues with the next tick.
type SchedulerErr struct {
	TaskID   int64
	TaskType string
	Err      error
}

func (e *SchedulerErr) Error() string {
	return "scheduler error for task " + e.TaskType + ": " + e.Err.Error()
}
func (e *SchedulerErr) ErrorCode() string { return "SCHEDULER_ERROR" }
func (e *SchedulerErr) Context() map[string]string {
	return map[string]string{"task_type": e.TaskType}
}
func (e *SchedulerErr) SuggestedAction() string { return "inspect the task error column and requeue" }
func (e *SchedulerErr) Is(target error) bool    { return target == ErrSchedulerFailed }
func (e *SchedulerErr) Unwrap() error           { return e.Err }

// IntegrityErr reports a foreign-key or uniqueness violation. The current
// write is aborted and logged; state is never corrupted because each write
// is a single transaction.
type IntegrityErr struct {
	Operation string
	Err       error
}

func (e *IntegrityErr) Error() string {
	return "integrity error during " + e.Operation + ": " + e.Err.Error()
}
func (e *IntegrityErr) ErrorCode() string { return "INTEGRITY_ERROR" }
func (e *IntegrityErr) Context() map[string]string {
	return map[string]string{"operation": e.Operation}
}
func (e *IntegrityErr) SuggestedAction() string {
	return "abort the write and log; do not retry blindly"
}
func (e *IntegrityErr) Is(target error) bool { return target == ErrIntegrityViolation }
func (e *IntegrityErr) Unwrap() error        { return e.Err }
