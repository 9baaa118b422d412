package queue

import (
	"errors"
	"fmt"

	"drq/internal/services"
)

// ErrNotFound reports an unknown entry id.
var ErrNotFound = errors.New("queue entry not found")

// ErrAlreadyRunning is returned by Start when the worker is active.
var ErrAlreadyRunning = errors.New("queue worker already running")

// StorageError reports a failed durable read or write. The in-memory queue is
// never rolled back when a write fails.
type StorageError struct {
	Queue string
	Op    string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("queue %s: %s: %v", e.Queue, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExecutionError wraps a failed executor attempt, including recovered panics.
type ExecutionError struct {
	EntryID string
	Attempt int
	Panic   bool
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("entry %s attempt %d failed", e.EntryID, e.Attempt)
	}
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ErrorKind classifies the underlying executor failure.
func (e *ExecutionError) ErrorKind() string {
	return services.KindOf(e.Err)
}

// IsTerminal reports whether err should fail an entry without further
// retries. Missing payloads and invalid input never succeed on retry.
func IsTerminal(err error) bool {
	switch services.KindOf(err) {
	case services.KindNotFound, services.KindValidation:
		return true
	default:
		return false
	}
}
