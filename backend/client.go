package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/visor/query"
)

var (
	// ErrTimeout is returned when the engine did not answer in time.
	ErrTimeout = errors.New("backend: request timed out")
	// ErrTransport is returned for connection and I/O failures.
	ErrTransport = errors.New("backend: transport error")
	// ErrProtocol is returned for malformed or oversized answers.
	ErrProtocol = errors.New("backend: protocol error")
	// ErrNoBackend is returned for engines without a backend address.
	ErrNoBackend = errors.New("backend: engine has no backend address")
)

// Client sends one request to an engine and decodes its answer into resp.
type Client interface {
	Send(ctx context.Context, req, resp any) error
}

// ClientFactory returns the client for an engine.
type ClientFactory func(engine query.Engine) (Client, error)

// ResponseError is an answer with "success": false.
type ResponseError struct {
	Func    string
	Message string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("backend: %s failed: %s", e.Func, e.Message)
}

// Reply is the envelope shared by all engine answers.
type Reply struct {
	Success bool   `json:"success"`
	ErrMsg  string `json:"err_msg,omitempty"`
}

// Err returns a *ResponseError when the engine reported a failure.
func (r Reply) Err(fn string) error {
	if r.Success {
		return nil
	}
	msg := r.ErrMsg
	if msg == "" {
		msg = "no error message"
	}
	return &ResponseError{Func: fn, Message: msg}
}
