package frontier_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/frontier"
	"github.com/webscoutlabs/webscout/internal/logger"
)

func TestFrontierConcurrencyBound(t *testing.T) {
	f := frontier.New(2, 0, time.Minute, logger.Nop())

	var current, max, total int64
	var mu sync.Mutex
	for i := 0; i < 6; i++ {
		f.Enqueue(func(ctx context.Context) {
			n := atomic.AddInt64(&current, 1)
			mu.Lock()
			if n > max {
				max = n
			}
			mu.Unlock()
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			atomic.AddInt64(&total, 1)
		})
	}

	f.Start(context.Background())
	f.OnIdle()
	f.Stop()

	assert.Equal(t, int64(6), atomic.LoadInt64(&total))
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, max, int64(2))
}

func TestFrontierOnIdleWaitsForDynamicChildren(t *testing.T) {
	f := frontier.New(3, 0, time.Minute, logger.Nop())

	var ran int64
	var enqueueChild func(depth int) frontier.Task
	enqueueChild = func(depth int) frontier.Task {
		return func(ctx context.Context) {
			atomic.AddInt64(&ran, 1)
			if depth < 3 {
				// children are enqueued while the parent still counts as
				// running, so OnIdle cannot return early
				f.Enqueue(enqueueChild(depth + 1))
				f.Enqueue(enqueueChild(depth + 1))
			}
		}
	}

	f.Start(context.Background())
	f.Enqueue(enqueueChild(1))
	f.OnIdle()
	f.Stop()

	// 1 + 2 + 4 tasks
	assert.Equal(t, int64(7), atomic.LoadInt64(&ran))
}

func TestFrontierPauseAndClear(t *testing.T) {
	f := frontier.New(2, 0, time.Minute, logger.Nop())
	f.Pause()
	f.Start(context.Background())

	var ran int64
	for i := 0; i < 4; i++ {
		f.Enqueue(func(ctx context.Context) { atomic.AddInt64(&ran, 1) })
	}
	assert.Equal(t, 4, f.QueueLen())

	f.Clear()
	assert.Equal(t, 0, f.QueueLen())

	f.Resume()
	f.OnIdle()
	f.Stop()
	assert.Zero(t, atomic.LoadInt64(&ran))
}

func TestFrontierRateLimit(t *testing.T) {
	interval := 150 * time.Millisecond
	f := frontier.New(4, 2, interval, logger.Nop())

	var ran int64
	for i := 0; i < 4; i++ {
		f.Enqueue(func(ctx context.Context) { atomic.AddInt64(&ran, 1) })
	}

	start := time.Now()
	f.Start(context.Background())
	f.OnIdle()
	elapsed := time.Since(start)
	f.Stop()

	require.Equal(t, int64(4), atomic.LoadInt64(&ran))
	// only 2 starts fit in the first window; the rest wait for the next one
	assert.GreaterOrEqual(t, elapsed, interval-20*time.Millisecond)
}

func TestFrontierEnqueueAfterStopIsDiscarded(t *testing.T) {
	f := frontier.New(1, 0, time.Minute, logger.Nop())
	f.Start(context.Background())
	f.Stop()

	var ran int64
	f.Enqueue(func(ctx context.Context) { atomic.AddInt64(&ran, 1) })
	assert.Equal(t, 0, f.QueueLen())
	assert.Zero(t, atomic.LoadInt64(&ran))
}

func TestFrontierStopCancelsTaskContext(t *testing.T) {
	f := frontier.New(1, 0, time.Minute, logger.Nop())
	f.Start(context.Background())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	f.Enqueue(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})

	<-started
	go f.Stop()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("task context not cancelled by Stop")
	}
}
