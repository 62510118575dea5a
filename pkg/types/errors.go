package types

import "errors"

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Linking and lookup errors.
var (
	ErrNotFound    = errors.New("container not found")
	ErrInvalidCode = errors.New("invalid container code")
	ErrInvalidKind = errors.New("invalid container kind")
	ErrEdgeExists  = errors.New("edge already exists")
	ErrLockWait    = errors.New("timed out waiting for parent lock")
)

// retryableError marks an error as transient: the same call may succeed
// if repeated. Business outcomes and validation errors are never marked.
type retryableError struct {
	err error
}

func (r *retryableError) Error() string { return r.err.Error() }

func (r *retryableError) Unwrap() error { return r.err }

// MarkRetryable wraps err so that Retryable reports true for it.
// Returns nil when err is nil.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Retryable reports whether err (or any error it wraps) was marked as
// transient by MarkRetryable.
func Retryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
