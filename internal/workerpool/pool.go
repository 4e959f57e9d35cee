// Package workerpool runs query executions on a fixed set of goroutines.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("workerpool: closed")

// Pool manages a fixed pool of goroutines fed by a bounded queue.
type Pool struct {
	workers  int
	workCh   chan func()
	stopCh   chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	submitMu sync.RWMutex

	active atomic.Int64
	queued atomic.Int64
}

// New creates a pool with the given number of workers and queue size.
// Non-positive workers default to GOMAXPROCS, non-positive queue sizes to
// twice the worker count.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	p := &Pool{
		workers: workers,
		workCh:  make(chan func(), queueSize),
		stopCh:  make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	// workCh is closed only after every submitter has left, so ranging
	// drains all enqueued tasks.
	for task := range p.workCh {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.queued.Add(-1)
	p.active.Add(1)
	defer p.active.Add(-1)
	task()
}

// Submit enqueues task. It blocks while the queue is full.
//
// Error conditions:
//   - ErrClosed if the pool is closed
//   - the context error if ctx is done before the task is enqueued
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}

	p.queued.Add(1)
	select {
	case p.workCh <- task:
		return nil
	case <-p.stopCh:
		p.queued.Add(-1)
		return ErrClosed
	case <-ctx.Done():
		p.queued.Add(-1)
		return ctx.Err()
	}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// Active returns the number of tasks currently running.
func (p *Pool) Active() int64 { return p.active.Load() }

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int64 { return p.queued.Load() }

// Close stops accepting work, runs what is queued and waits for all
// workers to exit. It is idempotent.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	// Unblock submitters waiting on a full queue before taking the lock
	// they hold.
	close(p.stopCh)

	p.submitMu.Lock()
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}
