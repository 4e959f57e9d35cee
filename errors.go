package visor

import (
	"errors"
	"fmt"

	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/internal/workerpool"
	"github.com/hupe1980/visor/query"
)

var (
	// ErrValidation is returned for query parameters that fail validation.
	ErrValidation = errors.New("invalid query")

	// ErrUnknownEngine is returned when the requested engine is not configured.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("query session not found")

	// ErrExpired is the same condition as ErrNotFound, named for callers that
	// hold a session ID from an earlier request.
	ErrExpired = ErrNotFound

	// ErrNotReady is returned while the execution is still running.
	ErrNotReady = errors.New("query results not ready")

	// ErrNoResults is returned for a finished execution without matches.
	ErrNoResults = errors.New("query returned no results")

	// ErrExecutionFailed is returned when the backend execution failed.
	ErrExecutionFailed = errors.New("query execution failed")

	// ErrWaitTimeout is returned when Wait gives up before the execution ends.
	ErrWaitTimeout = errors.New("timed out waiting for query results")

	// ErrClosed is returned after the service was closed.
	ErrClosed = errors.New("service closed")
)

// ValidationError describes a rejected query parameter.
//
// It satisfies errors.Is(err, ErrValidation). The underlying query error
// can be accessed via errors.Unwrap.
type ValidationError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.cause }

// ExecutionError carries the failure message recorded for a session.
//
// It satisfies errors.Is(err, ErrExecutionFailed).
type ExecutionError struct {
	ID      query.SessionID
	Message string
	cause   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query %s failed: %s", e.ID, e.Message)
}

func (e *ExecutionError) Is(target error) bool { return target == ErrExecutionFailed }

func (e *ExecutionError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ie *query.InvalidQueryError
	if errors.As(err, &ie) {
		return &ValidationError{Field: ie.Field, Reason: ie.Reason, cause: err}
	}
	if errors.Is(err, query.ErrUnknownEngine) {
		return fmt.Errorf("%w: %w", ErrUnknownEngine, err)
	}
	if errors.Is(err, query.ErrInvalidQuery) {
		return &ValidationError{Reason: err.Error(), cause: err}
	}

	var fe *cache.FailedError
	if errors.As(err, &fe) {
		return &ExecutionError{ID: fe.ID, Message: fe.Message, cause: err}
	}
	if errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, cache.ErrNotReady) {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	if errors.Is(err, workerpool.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
