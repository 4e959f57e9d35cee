package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when raw query parameters fail validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownEngine is returned when the requested engine is not registered.
	ErrUnknownEngine = errors.New("unknown engine")
)

// InvalidQueryError describes which parameter was rejected and why.
//
// It satisfies errors.Is(err, ErrInvalidQuery).
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }

func invalid(field, reason string) error {
	return &InvalidQueryError{Field: field, Reason: reason}
}
