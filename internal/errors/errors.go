// Package errors provides sentinel errors and custom error types for the strata application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrUser indicates invalid input detected before any mutation
	ErrUser = errors.New("user error")

	// ErrImmutableCommit indicates an attempt to rewrite a protected commit
	ErrImmutableCommit = errors.New("commit is immutable")

	// ErrBackend indicates an object-store I/O failure
	ErrBackend = errors.New("backend error")

	// ErrConcurrentModification indicates the operation-log head moved
	// since the transaction's base operation
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrBookmarkExists indicates that a bookmark already exists
	ErrBookmarkExists = errors.New("bookmark already exists")

	// ErrEmptyRevisionSet indicates that a revset resolved to no commits
	// where at least one is required
	ErrEmptyRevisionSet = errors.New("empty revision set")
)

// Hint extracts the actionable hint carried by an error, if any. It unwraps
// through wrapped errors so callers can surface the hint next to the message.
func Hint(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Hint
	}
	var bookmarkErr *BookmarkExistsError
	if errors.As(err, &bookmarkErr) {
		return bookmarkErr.Hint
	}
	return ""
}

// UserError represents invalid input detectable before mutation.
// It carries an optional hint with a suggested remedy.
type UserError struct {
	Message string
	Hint    string
}

func (e *UserError) Error() string {
	return e.Message
}

// Is returns true if the target error is ErrUser
func (e *UserError) Is(target error) bool {
	return target == ErrUser
}

// NewUserError creates a new UserError without a hint
func NewUserError(format string, args ...interface{}) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// NewUserErrorWithHint creates a new UserError with an actionable hint
func NewUserErrorWithHint(message string, hint string) *UserError {
	return &UserError{Message: message, Hint: hint}
}

// ImmutableCommitError represents an attempt to rewrite a protected commit
type ImmutableCommitError struct {
	CommitID string
	Reason   string
}

func (e *ImmutableCommitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("commit %s is immutable: %s", e.CommitID, e.Reason)
	}
	return fmt.Sprintf("commit %s is immutable", e.CommitID)
}

// Is returns true if the target error is ErrImmutableCommit
func (e *ImmutableCommitError) Is(target error) bool {
	return target == ErrImmutableCommit
}

// NewImmutableCommitError creates a new ImmutableCommitError
func NewImmutableCommitError(commitID string, reason string) *ImmutableCommitError {
	return &ImmutableCommitError{CommitID: commitID, Reason: reason}
}

// BackendError represents an object-store I/O failure. A BackendError is
// fatal to the current transaction, which must be discarded wholesale.
type BackendError struct {
	Op       string // operation that failed, e.g. "read commit"
	ObjectID string // id of the object involved, if known
	Err      error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend: %s", e.Op)
	if e.ObjectID != "" {
		msg += fmt.Sprintf(" %s", e.ObjectID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrBackend
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// NewBackendError creates a new BackendError
func NewBackendError(op string, objectID string, err error) *BackendError {
	return &BackendError{Op: op, ObjectID: objectID, Err: err}
}

// ConcurrentModificationError indicates that another process committed an
// operation after this transaction's base. The caller must reload the
// repository at the new head and retry.
type ConcurrentModificationError struct {
	BaseOperation string
	HeadOperation string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf(
		"operation log head moved from %s to %s; reload and retry",
		e.BaseOperation, e.HeadOperation)
}

// Is returns true if the target error is ErrConcurrentModification
func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// NewConcurrentModificationError creates a new ConcurrentModificationError
func NewConcurrentModificationError(base, head string) *ConcurrentModificationError {
	return &ConcurrentModificationError{BaseOperation: base, HeadOperation: head}
}

// EmptyRevisionSetError indicates a revset expression matched no commits
type EmptyRevisionSetError struct {
	Expression string
}

func (e *EmptyRevisionSetError) Error() string {
	return fmt.Sprintf("revset %q resolved to no commits", e.Expression)
}

// Is returns true if the target error is ErrEmptyRevisionSet
func (e *EmptyRevisionSetError) Is(target error) bool {
	return target == ErrEmptyRevisionSet
}

// NewEmptyRevisionSetError creates a new EmptyRevisionSetError
func NewEmptyRevisionSetError(expression string) *EmptyRevisionSetError {
	return &EmptyRevisionSetError{Expression: expression}
}

// BookmarkExistsError represents an attempt to create a bookmark that
// already has a local target
type BookmarkExistsError struct {
	Name string
	Hint string
}

func (e *BookmarkExistsError) Error() string {
	return fmt.Sprintf("bookmark already exists: %s", e.Name)
}

// Is returns true if the target error is ErrBookmarkExists
func (e *BookmarkExistsError) Is(target error) bool {
	return target == ErrBookmarkExists
}

// NewBookmarkExistsError creates a new BookmarkExistsError
func NewBookmarkExistsError(name string, hint string) *BookmarkExistsError {
	return &BookmarkExistsError{Name: name, Hint: hint}
}
