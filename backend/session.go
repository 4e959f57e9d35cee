package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hupe1980/visor/codec"
	"github.com/hupe1980/visor/query"
)

const (
	// Terminator ends every request and answer frame.
	Terminator = "$$$"
	// DefaultTimeout bounds a request when the engine sets no timeout.
	DefaultTimeout = 30 * time.Second
	// MaxFrameSize caps the size of an answer.
	MaxFrameSize = 64 << 20
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCodec sets the wire codec.
func WithCodec(c codec.Codec) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithDialer replaces the dialer.
func WithDialer(d *net.Dialer) SessionOption {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

// Session is a Client for one engine address.
type Session struct {
	addr    string
	timeout time.Duration
	codec   codec.Codec
	dialer  *net.Dialer
}

// NewSession creates a session for addr.
func NewSession(addr string, opts ...SessionOption) *Session {
	s := &Session{
		addr:    addr,
		timeout: DefaultTimeout,
		codec:   codec.Default,
		dialer:  &net.Dialer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the engine address.
func (s *Session) Addr() string { return s.addr }

// Timeout returns the per-request timeout.
func (s *Session) Timeout() time.Duration { return s.timeout }

// Sessions returns a ClientFactory that creates a Session per engine using
// the engine's address and timeout.
func Sessions(opts ...SessionOption) ClientFactory {
	return func(engine query.Engine) (Client, error) {
		if engine.BackendAddr == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoBackend, engine.Name)
		}
		all := append(append([]SessionOption(nil), opts...), WithTimeout(engine.BackendTimeout))
		return NewSession(engine.BackendAddr, all...), nil
	}
}

// Send implements Client. The request is bounded by the session timeout
// and by the deadline of ctx, whichever comes first.
func (s *Session) Send(ctx context.Context, req, resp any) error {
	payload, err := s.codec.Marshal(req)
	if err != nil {
		return fmt.Errorf("backend: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return s.classify(ctx, "dial", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return s.classify(ctx, "deadline", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	frame := make([]byte, 0, len(payload)+len(Terminator))
	frame = append(frame, payload...)
	frame = append(frame, Terminator...)
	if _, err := conn.Write(frame); err != nil {
		return s.classify(ctx, "write", err)
	}

	answer, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return err
		}
		return s.classify(ctx, "read", err)
	}

	if resp == nil {
		return nil
	}
	if err := s.codec.Unmarshal(answer, resp); err != nil {
		return fmt.Errorf("%w: decode answer: %w", ErrProtocol, err)
	}
	return nil
}

func (s *Session) classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("backend: %s %s: %w", op, s.addr, context.Canceled)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s %s after %s", ErrTimeout, op, s.addr, s.timeout)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrTransport, op, s.addr, err)
}

// ReadFrame reads one terminated frame and returns it without the
// terminator.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice(Terminator[len(Terminator)-1])
		buf = append(buf, chunk...)
		if len(buf) > MaxFrameSize {
			return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrProtocol, MaxFrameSize)
		}
		if bytes.HasSuffix(buf, []byte(Terminator)) {
			return buf[:len(buf)-len(Terminator)], nil
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			if len(buf) == 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("%w: connection closed before terminator", ErrProtocol)
		default:
			return nil, err
		}
	}
}
