// Package resource bounds the process-wide resources used by query execution:
// memory held by cached results, concurrent backend executions and the
// request rate towards the search backends.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for cached result memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxExecutions is the maximum number of executions talking to a backend
	// at the same time. If 0, unlimited.
	MaxExecutions int64

	// BackendRequestsPerSec limits requests sent to the backends.
	// If 0, unlimited.
	BackendRequestsPerSec float64

	// BackendBurst is the burst size of the backend limiter. Defaults to 1.
	BackendBurst int
}

// Controller manages global resources.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	execSem *semaphore.Weighted // nil if unlimited
	running atomic.Int64

	// Backend requests
	limiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.BackendBurst <= 0 {
		cfg.BackendBurst = 1
	}

	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxExecutions > 0 {
		c.execSem = semaphore.NewWeighted(cfg.MaxExecutions)
	}

	if cfg.BackendRequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.BackendRequestsPerSec), cfg.BackendBurst)
	}

	return c
}

// Config returns the limits the controller was created with.
func (c *Controller) Config() Config { return c.cfg }

// AcquireMemory reserves memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireExecution reserves an execution slot.
// Blocks until a slot is free or ctx is canceled.
func (c *Controller) AcquireExecution(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.execSem != nil {
		if err := c.execSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.running.Add(1)
	return nil
}

// ReleaseExecution releases an execution slot.
func (c *Controller) ReleaseExecution() {
	if c == nil {
		return
	}
	if c.execSem != nil {
		c.execSem.Release(1)
	}
	c.running.Add(-1)
}

// Executions returns the number of executions holding a slot.
func (c *Controller) Executions() int64 {
	if c == nil {
		return 0
	}
	return c.running.Load()
}

// WaitBackend blocks until the backend rate limit allows one more request.
func (c *Controller) WaitBackend(ctx context.Context) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
