package frontier

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one async unit of work tied to a single URL. A running task may
// enqueue further tasks, so idle detection tracks dynamically growing work.
type Task func(ctx context.Context)

// Frontier is a concurrency- and interval-bounded task queue. At most
// `workers` tasks run at once and at most `rate` tasks are started per
// `interval` window.
type Frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	running int
	paused  bool
	stopped bool

	workers  int
	rate     int // 0 = unlimited
	interval time.Duration

	windowStart time.Time
	windowCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// New creates a frontier with the given concurrency bound and start-rate
// limit. workers <= 0 defaults to 3; interval <= 0 defaults to one minute.
func New(workers, rate int, interval time.Duration, log zerolog.Logger) *Frontier {
	if workers <= 0 {
		workers = 3
	}
	if interval <= 0 {
		interval = time.Minute
	}
	f := &Frontier{
		workers:  workers,
		rate:     rate,
		interval: interval,
		log:      log.With().Str("component", "frontier").Logger(),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Start spins up the worker pool. Tasks receive a context cancelled on Stop
// or when the passed context ends.
func (f *Frontier) Start(ctx context.Context) {
	f.mu.Lock()
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.mu.Unlock()

	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go func(id int) {
			defer f.wg.Done()
			f.run(id)
		}(i + 1)
	}
}

func (f *Frontier) run(id int) {
	for {
		task, ok := f.next()
		if !ok {
			return
		}
		task(f.ctx)
		f.done()
	}
}

// next blocks until a task may start, honoring pause, the rate window and
// shutdown. It returns false when the frontier has stopped.
func (f *Frontier) next() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.stopped {
			return nil, false
		}
		if !f.paused && len(f.queue) > 0 {
			if delay := f.startDelay(); delay > 0 {
				// Timed wakeup: rate window not yet open.
				time.AfterFunc(delay, f.cond.Broadcast)
				f.cond.Wait()
				continue
			}
			task := f.queue[0]
			f.queue = f.queue[1:]
			f.running++
			return task, true
		}
		f.cond.Wait()
	}
}

// startDelay reports how long until a task start is permitted; 0 means now.
// Caller holds the lock.
func (f *Frontier) startDelay() time.Duration {
	if f.rate <= 0 {
		return 0
	}
	now := time.Now()
	if f.windowStart.IsZero() || now.Sub(f.windowStart) >= f.interval {
		f.windowStart = now
		f.windowCount = 0
	}
	if f.windowCount < f.rate {
		f.windowCount++
		return 0
	}
	return f.windowStart.Add(f.interval).Sub(now)
}

func (f *Frontier) done() {
	f.mu.Lock()
	f.running--
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Enqueue adds a task. Tasks enqueued after Stop are discarded.
func (f *Frontier) Enqueue(task Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.queue = append(f.queue, task)
	f.cond.Broadcast()
}

// OnIdle blocks until all enqueued work, including work enqueued by running
// tasks, has drained.
func (f *Frontier) OnIdle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.stopped && (len(f.queue) > 0 || f.running > 0) {
		f.cond.Wait()
	}
}

// Clear discards all not-yet-started work. In-flight tasks are unaffected.
func (f *Frontier) Clear() {
	f.mu.Lock()
	n := len(f.queue)
	f.queue = nil
	f.cond.Broadcast()
	f.mu.Unlock()
	if n > 0 {
		f.log.Debug().Int("discarded", n).Msg("frontier cleared")
	}
}

// Pause halts new task starts without aborting in-flight work.
func (f *Frontier) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

// Resume allows task starts again after Pause.
func (f *Frontier) Resume() {
	f.mu.Lock()
	f.paused = false
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Stop shuts the pool down and waits for in-flight tasks to return. The
// queue is discarded.
func (f *Frontier) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.queue = nil
	if f.cancel != nil {
		f.cancel()
	}
	f.cond.Broadcast()
	f.mu.Unlock()
	f.wg.Wait()
}

// QueueLen reports how many tasks are waiting to start.
func (f *Frontier) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Running reports how many tasks are in flight.
func (f *Frontier) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
