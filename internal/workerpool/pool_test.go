package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAll(t *testing.T) {
	p := New(4, 0)
	defer p.Close()

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(100), n.Load())
	assert.Equal(t, 4, p.Workers())
}

func TestPoolCloseDrainsQueue(t *testing.T) {
	p := New(1, 16)

	var n atomic.Int64
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			time.Sleep(time.Millisecond)
			n.Add(1)
		}))
	}
	p.Close()
	assert.Equal(t, int64(10), n.Load())

	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrClosed)
	p.Close()
}

func TestPoolBackpressure(t *testing.T) {
	p := New(1, 1)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-block
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, func() {}), context.DeadlineExceeded)

	assert.Equal(t, int64(1), p.Active())
	assert.Equal(t, int64(1), p.Queued())
	close(block)
}

func TestPoolCloseUnblocksSubmitters(t *testing.T) {
	p := New(1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started

	var ran atomic.Int64
	require.NoError(t, p.Submit(context.Background(), func() { ran.Add(1) }))

	blocked := make(chan error, 1)
	go func() {
		blocked <- p.Submit(context.Background(), func() { ran.Add(1) })
	}()
	require.Eventually(t, func() bool { return p.Queued() == 2 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Submit still blocked after Close")
	}

	close(release)
	<-closed
	assert.Equal(t, int64(1), ran.Load())
}
