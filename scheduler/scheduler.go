// Package scheduler implements the cache's shared, process-wide
// background worker: a small fixed pool of goroutines that runs
// registered periodic tasks (expiration sweeps and refresh kicks) without
// any one cache owning dedicated threads.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers matches spec.md's "small number of daemon threads
// (default 2)".
const DefaultWorkers = 2

// resolution is how often the scheduler loop wakes to check for due
// tasks. Individual task intervals are not required to be a multiple of
// it; a task simply runs on the first tick at or after its due time.
const resolution = 25 * time.Millisecond

// Cancel deregisters a task. Calling it more than once is safe.
type Cancel func()

type task struct {
	id       uint64
	interval time.Duration
	next     time.Time
	fn       func(ctx context.Context)
}

// Scheduler runs periodic, idempotent, self-rescheduling tasks on a
// bounded pool of goroutines shared by every cache in the process.
type Scheduler struct {
	workers int

	mu     sync.Mutex
	tasks  map[uint64]*task
	nextID uint64

	startOnce sync.Once
	started   bool
	stop      chan struct{}
	stopped   chan struct{}
}

var (
	shared     *Scheduler
	sharedOnce sync.Once
)

// Shared returns the process-wide Scheduler, creating it on first use;
// its background loop starts with the first Register. All calls to
// Shared in a process return the same instance: it is the only global
// state this package keeps.
func Shared() *Scheduler {
	sharedOnce.Do(func() {
		shared = New(DefaultWorkers)
	})
	return shared
}

// New constructs a standalone Scheduler with the given worker count.
// Most callers should use Shared(); New is exposed for tests and for
// embedders that want an isolated scheduler instance.
func New(workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		workers: workers,
		tasks:   make(map[uint64]*task),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Register adds a periodic task that fires at approximately the given
// interval starting after the first interval elapses, and returns a
// Cancel to deregister it. Registering the first task on s starts s's
// background loop.
func (s *Scheduler) Register(interval time.Duration, fn func(ctx context.Context)) Cancel {
	s.startOnce.Do(s.run)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.tasks[id] = &task{id: id, interval: interval, next: time.Now().Add(interval), fn: fn}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.tasks, id)
			s.mu.Unlock()
		})
	}
}

// Stop halts the background loop. It is intended for tests and for
// embedders running an isolated Scheduler (via New); the process-wide
// Shared() scheduler is normally left running until process exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-s.stop:
		// already stopped
	default:
		close(s.stop)
	}
	<-s.stopped
}

func (s *Scheduler) run() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	due := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !now.Before(t.next) {
			t.next = now.Add(t.interval)
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	if len(due) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	ctx := context.Background()
	for _, t := range due {
		fn := t.fn
		g.Go(func() error {
			fn(ctx)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; Wait only bounds concurrency
}
