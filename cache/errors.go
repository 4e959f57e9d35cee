package cache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/visor/query"
)

var (
	// ErrNotFound is returned for unknown or evicted session IDs.
	ErrNotFound = errors.New("cache: session not found")

	// ErrNotReady is returned when the execution has not finished yet.
	ErrNotReady = errors.New("cache: result not ready")

	// ErrFailed is returned when the execution ended in an error.
	ErrFailed = errors.New("cache: execution failed")

	// ErrCollision is returned when two distinct definitions share an ID.
	ErrCollision = errors.New("cache: session id collision")
)

// FailedError carries the failure message recorded for a session.
type FailedError struct {
	ID      query.SessionID
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("cache: execution of %s failed: %s", e.ID, e.Message)
}

func (e *FailedError) Unwrap() error { return ErrFailed }
