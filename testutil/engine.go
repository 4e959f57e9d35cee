package testutil

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/visor/backend"
	"github.com/hupe1980/visor/model"
)

// FakeEngine is an in-process backend engine listening on a loopback TCP
// port. It answers the query protocol with a configured ranking list.
type FakeEngine struct {
	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	ranking  []model.Item
	rois     map[string]any
	failures map[string]string
	delay    time.Duration
	requests map[string][]map[string]any
}

// NewFakeEngine starts an engine that is closed when tb finishes.
func NewFakeEngine(tb testing.TB) *FakeEngine {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("fake engine: listen: %v", err)
	}
	e := &FakeEngine{
		ln:       ln,
		done:     make(chan struct{}),
		rois:     make(map[string]any),
		failures: make(map[string]string),
		requests: make(map[string][]map[string]any),
	}
	e.wg.Add(1)
	go e.serve()
	tb.Cleanup(e.Close)
	return e
}

// Addr returns the host:port of the engine.
func (e *FakeEngine) Addr() string { return e.ln.Addr().String() }

// SetRanking sets the ranking list returned by getRanking.
func (e *FakeEngine) SetRanking(items []model.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ranking = items
}

// SetROI sets the getRoi answer for framePath. roi may be a string or a
// list.
func (e *FakeEngine) SetROI(framePath string, roi any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rois[framePath] = roi
}

// FailOn makes fn answer with success false and msg.
func (e *FakeEngine) FailOn(fn, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[fn] = msg
}

// SetDelay delays every answer by d.
func (e *FakeEngine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// Calls returns how often fn was requested.
func (e *FakeEngine) Calls(fn string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests[fn])
}

// Requests returns the decoded requests for fn.
func (e *FakeEngine) Requests(fn string) []map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]any(nil), e.requests[fn]...)
}

// Close stops the engine.
func (e *FakeEngine) Close() {
	select {
	case <-e.done:
		return
	default:
	}
	close(e.done)
	_ = e.ln.Close()
	e.wg.Wait()
}

func (e *FakeEngine) serve() {
	defer e.wg.Done()
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			return
		}
		e.wg.Add(1)
		go e.handle(conn)
	}
}

func (e *FakeEngine) handle(conn net.Conn) {
	defer e.wg.Done()
	defer conn.Close()

	raw, err := backend.ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return
	}
	var req map[string]any
	if err := gojson.Unmarshal(raw, &req); err != nil {
		return
	}
	fn, _ := req["func"].(string)

	e.mu.Lock()
	e.requests[fn] = append(e.requests[fn], req)
	delay := e.delay
	answer := e.answerLocked(fn, req)
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-e.done:
			return
		}
	}

	out, err := gojson.Marshal(answer)
	if err != nil {
		return
	}
	_, _ = conn.Write(append(out, backend.Terminator...))
}

func (e *FakeEngine) answerLocked(fn string, req map[string]any) map[string]any {
	if msg, ok := e.failures[fn]; ok {
		return map[string]any{"success": false, "err_msg": msg}
	}
	frame, _ := req["frame_path"].(string)

	switch fn {
	case backend.FuncGetRanking:
		ranking := make([]map[string]any, len(e.ranking))
		for i, it := range e.ranking {
			ranking[i] = map[string]any{"path": it.Path, "score": it.Score}
			if it.ROI != "" {
				ranking[i]["roi"] = it.ROI
			}
		}
		return map[string]any{"success": true, "ranking": ranking}
	case backend.FuncGetROI:
		if roi, ok := e.rois[frame]; ok {
			return map[string]any{"roi": roi}
		}
		return map[string]any{}
	default:
		return map[string]any{"success": true}
	}
}
