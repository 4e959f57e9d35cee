package execution

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStateOrdering(t *testing.T) {
	for s := NotStarted; s < ResultsReady; s++ {
		assert.True(t, s.Running(), s.String())
		assert.False(t, s.Failed(), s.String())
	}
	assert.True(t, ResultsReady.Terminal())
	assert.False(t, ResultsReady.Failed())
	assert.True(t, FatalError.Terminal())
	assert.True(t, FatalError.Failed())

	b, err := Training.MarshalText()
	require.NoError(t, err)
	var s State
	require.NoError(t, s.UnmarshalText(b))
	assert.Equal(t, Training, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestTrackerHappyPath(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(clock.Now)
	assert.Equal(t, NotStarted, tr.State())

	require.ErrorIs(t, tr.Advance(Training), ErrNotClaimed)
	require.True(t, tr.Claim())
	assert.False(t, tr.Claim())

	require.NoError(t, tr.Advance(DownloadingInput))
	clock.Add(2 * time.Second)
	require.NoError(t, tr.Advance(Training))
	clock.Add(3 * time.Second)
	require.NoError(t, tr.Advance(Ranking))
	clock.Add(time.Second)
	require.NoError(t, tr.Complete())

	st := tr.Status()
	assert.Equal(t, ResultsReady, st.State)
	assert.Equal(t, 2*time.Second, st.Timings.Processing)
	assert.Equal(t, 3*time.Second, st.Timings.Training)
	assert.Equal(t, time.Second, st.Timings.Ranking)
	assert.Equal(t, 6*time.Second, st.Timings.Total())
}

func TestTrackerRejectsRegression(t *testing.T) {
	tr := NewTracker(nil)
	require.True(t, tr.Claim())
	require.NoError(t, tr.Advance(Ranking))

	assert.ErrorIs(t, tr.Advance(Training), ErrInvalidTransition)
	assert.NoError(t, tr.Advance(Ranking))
	assert.ErrorIs(t, tr.Advance(ResultsReady), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Advance(Queued), ErrInvalidTransition)
}

func TestTrackerTerminalFidelity(t *testing.T) {
	tr := NewTracker(nil)
	require.True(t, tr.Claim())
	require.NoError(t, tr.Fail("backend timeout"))

	assert.ErrorIs(t, tr.Complete(), ErrTerminal)
	assert.ErrorIs(t, tr.Advance(Ranking), ErrTerminal)
	assert.ErrorIs(t, tr.Fail("again"), ErrTerminal)

	st := tr.Status()
	assert.Equal(t, FatalError, st.State)
	assert.Equal(t, "backend timeout", st.Err)
}

func TestTrackerFailBeforeClaim(t *testing.T) {
	tr := NewTracker(nil)
	require.NoError(t, tr.Fail("queue full"))
	assert.False(t, tr.Claim())
	assert.Equal(t, FatalError, tr.State())
}

func TestTrackerConcurrentClaim(t *testing.T) {
	tr := NewTracker(nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Claim() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestTrackerMonotonicUnderConcurrentReads(t *testing.T) {
	tr := NewTracker(nil)
	require.True(t, tr.Claim())

	done := make(chan struct{})
	var wg sync.WaitGroup
	var violations atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := NotStarted
			for {
				s := tr.State()
				if s < last {
					violations.Add(1)
				}
				last = s
				if s.Terminal() {
					select {
					case <-done:
						return
					default:
					}
				}
			}
		}()
	}

	for _, s := range []State{DownloadingInput, Training, Ranking} {
		require.NoError(t, tr.Advance(s))
	}
	require.NoError(t, tr.Complete())
	close(done)
	wg.Wait()
	assert.Zero(t, violations.Load())
}

func TestTrackerMonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Each step is a target state; invalid ones must be rejected without
	// changing the observed state.
	properties.Property("observed states never decrease", prop.ForAll(
		func(steps []uint8) bool {
			tr := NewTracker(nil)
			tr.Claim()
			last := tr.State()
			for _, step := range steps {
				next := State(step)
				switch {
				case next == ResultsReady:
					_ = tr.Complete()
				case next == FatalError:
					_ = tr.Fail("boom")
				default:
					_ = tr.Advance(next)
				}
				s := tr.State()
				if s < last {
					return false
				}
				if last.Terminal() && s != last {
					return false
				}
				last = s
			}
			return true
		},
		gen.SliceOf(gen.UInt8Range(0, uint8(FatalError))),
	))

	properties.TestingRun(t)
}

func TestRunnerFunc(t *testing.T) {
	called := false
	var r Runner = RunnerFunc(func(_ context.Context, job Job, p Progress) ([]model.Item, error) {
		called = true
		require.NoError(t, p.Advance(Ranking))
		return []model.Item{{Path: job.Def.Spec}}, nil
	})

	tr := NewTracker(nil)
	require.True(t, tr.Claim())
	items, err := r.Run(context.Background(), Job{Def: query.Definition{Spec: "a.jpg"}}, tr)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "a.jpg", items[0].Path)
	assert.Equal(t, Ranking, tr.State())
}
