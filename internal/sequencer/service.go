// Package sequencer implements the rate-monotonic release mechanism: a
// periodic timer that releases a fixed set of Services at integer
// multiples of a base tick, and the per-service runtime loop that turns
// each release into exactly one invocation of the service's work hook.
//
// The algorithm is a direct descendant of a pthread/POSIX-timer sequencer
// (one OS thread per service, SCHED_FIFO priorities, a sem_post-driven
// release per tick): here "OS thread" becomes a goroutine locked to its
// own OS thread via internal/rtpriority, and "semaphore" becomes a
// counting semaphore built on a buffered channel, which is the idiomatic
// Go equivalent and keeps release credits from collapsing when a service
// is briefly slower than its period.
package sequencer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/neo4reo/real-timely/internal/framepipeline"
)

// Hooks is the small capability set every pipeline stage implements:
// one-time setup, one work invocation per release, and one-time
// teardown. Modeling stages as a value of this type (rather than an
// interface with a type switch, or inheritance) keeps Schedule
// construction a plain table of data, matching spec.md §9's guidance
// that tagged variants or function-pointer tables are both fine.
//
// Work is required. Setup and Teardown may be nil (the select and blur
// stages define neither, the difference stage has no Teardown); the
// runtime skips a nil hook.
type Hooks struct {
	// Setup runs once, before the sequencer's timer is armed. Returning
	// an error here is a fatal-invariant condition (§7): the service
	// could not reach a runnable state.
	Setup func(ctx context.Context, pipeline *framepipeline.Pipeline, svc *Service) error

	// Work runs once per release. requestCounter is the number of work
	// invocations this service has completed so far, including this
	// one. A returned error is logged by the runtime; whether it is
	// fatal or recoverable is a property of the stage, not of the
	// runtime itself (see internal/stages for each stage's policy).
	Work func(ctx context.Context, pipeline *framepipeline.Pipeline, svc *Service, requestCounter uint64) error

	// Teardown runs once, after the service observes its exit signal.
	Teardown func(ctx context.Context, pipeline *framepipeline.Pipeline, svc *Service) error
}

// credit is what flows through a Service's release queue. A plain
// semaphore post (tick-driven release) carries exit=false; the single
// termination credit Terminate enqueues carries exit=true. Carrying the
// exit signal as the last item of the *same* FIFO queue is what makes
// termination drain-safe: POSIX counting semaphores are FIFO per count,
// so a termination sem_post enqueued after N tick-driven posts is only
// observed once the service has processed all N of them. A bare
// "exit flag + separate wakeup channel" design loses that ordering
// guarantee under Go's pseudo-random multi-way select, so the exit
// signal travels through the release channel itself instead.
type credit struct {
	exit bool
}

// Service is a periodic unit of work: identity, period (in base ticks),
// CPU affinity, and the setup/work/teardown hooks that define what it
// does on each release. A Service's period, cpu, name, and hooks are
// fixed at construction; priority, release bookkeeping, and exit state
// are mutated by the sequencer and the service's own runtime loop.
type Service struct {
	ID     int
	Name   string
	Period int // positive integer, in base ticks
	CPU    int
	Hooks  Hooks

	// priorityDescending is 1-is-highest, assigned by AssignPriorities.
	priorityDescending int

	release    chan credit   // counting semaphore, FIFO, carries the exit signal too.
	setupReady chan struct{} // closed once Setup has returned.

	// tickReleases, workCount, and overrun are written by the sequencer's
	// timer goroutine and the service's own runtime loop respectively,
	// and read by the /status handler from a third goroutine; atomic.Uint64
	// keeps all three data-race free the same way Schedule.iterationCounter is.
	tickReleases atomic.Uint64 // releases posted by the sequencer's timer handler (excludes the termination credit).
	workCount    atomic.Uint64 // total work invocations completed.
	overrun      atomic.Uint64 // release credits dropped because the semaphore was full.
}

// NewService constructs a Service. releaseCapacity bounds how many
// outstanding release credits the service's semaphore can hold before a
// post would block; BuildServices sizes this generously
// (ExpectedReleases(period, maxIterations)+1, to also fit the
// termination credit) so that a slow service accumulates credits instead
// of ever blocking the sequencer's timer handler.
func NewService(id int, name string, period, cpu int, hooks Hooks, releaseCapacity int) (*Service, error) {
	if period <= 0 {
		return nil, fmt.Errorf("sequencer: service %q has invalid period %d, must be positive", name, period)
	}
	if releaseCapacity < 1 {
		releaseCapacity = 1
	}
	return &Service{
		ID:         id,
		Name:       name,
		Period:     period,
		CPU:        cpu,
		Hooks:      hooks,
		release:    make(chan credit, releaseCapacity),
		setupReady: make(chan struct{}),
	}, nil
}

// PriorityDescending returns the service's rate-monotonic priority index
// (1 is highest), assigned by AssignPriorities.
func (s *Service) PriorityDescending() int { return s.priorityDescending }

// ReleaseCount returns the number of tick-driven releases this service
// has been posted, matching spec.md §8's "⌈M / s.period⌉" invariant. It
// does not include the single termination credit Terminate posts.
func (s *Service) ReleaseCount() uint64 { return s.tickReleases.Load() }

// WorkCount returns the number of work invocations this service has
// completed.
func (s *Service) WorkCount() uint64 { return s.workCount.Load() }

// Overruns returns the number of release credits that could not be
// delivered because the semaphore's channel was full. A correctly sized
// schedule never increments this.
func (s *Service) Overruns() uint64 { return s.overrun.Load() }

// postTick posts one tick-driven credit. Called only by the sequencer's
// timer handler.
func (s *Service) postTick() {
	select {
	case s.release <- credit{}:
		s.tickReleases.Add(1)
	default:
		// The release channel is sized to never fill in a correctly
		// configured schedule; a full channel here means this service
		// has fallen further behind than the schedule allows for. We
		// still must not block the sequencer's timer handler, so the
		// tick is recorded as an overrun instead of delivered.
		s.overrun.Add(1)
	}
}

// postExit enqueues the single termination credit. Called only by
// Terminate, after the timer has been disarmed, so no further tick
// credits race with it.
func (s *Service) postExit() {
	s.release <- credit{exit: true}
}

// markReady closes the setup-done semaphore; called once by the
// service's runtime loop immediately after Setup returns.
func (s *Service) markReady() {
	close(s.setupReady)
}

// waitReady blocks until markReady has been called, or ctx is done.
func (s *Service) waitReady(ctx context.Context) error {
	select {
	case <-s.setupReady:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
