package store

import (
	"strconv"

	"github.com/dullfig/claude-rlm/internal/models"
)

// RecoverableError is an alias for models.RecoverableError, kept so callers
// can reference store.RecoverableError without importing models directly.
type RecoverableError = models.RecoverableError

// VersionConflictError signals that an optimistic-concurrency write lost a
// race with another writer. Not currently raised by any operation in this
// package (the task queue's atomic UPDATE+RETURNING claim makes a separate
// CAS step unnecessary) but kept as the type retry.go's IsVersionConflict
// checks for, since a future caller doing optimistic updates outside the
// task queue would want the same non-retryable classification.
type VersionConflictError struct {
	Entity  string
	ID      string
	Version int
}

func (e *VersionConflictError) Error() string {
	return "version conflict: record was modified by another process"
}
func (e *VersionConflictError) ErrorCode() string { return "VERSION_CONFLICT" }
func (e *VersionConflictError) Context() map[string]string {
	return map[string]string{
		"entity":  e.Entity,
		"id":      e.ID,
		"version": strconv.Itoa(e.Version),
	}
}
func (e *VersionConflictError) SuggestedAction() string {
	return "reload the record and retry the write"
}
func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }

// wrapStorageUnavailable adapts an open/migrate failure into the taxonomy's
// StorageUnavailable error.
func wrapStorageUnavailable(path string, err error) error {
	if err == nil {
		return nil
	}
	return &models.StorageUnavailableError{Path: path, Err: err}
}

// wrapIntegrity adapts a foreign-key/uniqueness violation into the
// taxonomy's Integrity error.
func wrapIntegrity(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &models.IntegrityErr{Operation: operation, Err: err}
}
