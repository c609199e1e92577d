package sequencer

import (
	"fmt"
	"time"

	"github.com/neo4reo/real-timely/internal/rtclock"
)

// Schedule is a fixed set of Services released by a single periodic
// timer. Frequency is the base tick rate in Hz; every Service's Period
// is a positive integer number of base ticks. MaxIterations bounds the
// run: the sequencer disarms itself and terminates every service once
// IterationCounter reaches it.
type Schedule struct {
	Frequency     float64
	MaxIterations uint64
	SequencerCPU  int

	services []*Service

	// iterationCounter is written only by the sequencer's timer handler
	// and read only by the sequencer's own termination check and
	// diagnostics; per spec.md §5 this requires no synchronization
	// beyond what a single goroutine naturally provides. It is still
	// exposed through an atomic-style accessor for the control
	// endpoint's /status handler, which reads it from a different
	// goroutine.
	iterationCounter atomicCounter
}

// NewSchedule validates and constructs a Schedule. Services are assigned
// rate-monotonic priorities immediately (AssignPriorities), so the slice
// returned by Services() is always sorted by period ascending.
func NewSchedule(frequency float64, maxIterations uint64, sequencerCPU int, services []*Service) (*Schedule, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("sequencer: frequency %v must be positive", frequency)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("sequencer: schedule has no services")
	}
	AssignPriorities(services)
	return &Schedule{
		Frequency:     frequency,
		MaxIterations: maxIterations,
		SequencerCPU:  sequencerCPU,
		services:      services,
	}, nil
}

// Services returns the schedule's services, sorted ascending by period
// (equivalently, ascending by PriorityDescending).
func (s *Schedule) Services() []*Service { return s.services }

// IterationCounter returns the current tick count, safe to call from any
// goroutine.
func (s *Schedule) IterationCounter() uint64 { return s.iterationCounter.Load() }

// TimerInterval returns the duration between ticks implied by Frequency,
// via rtclock.IntervalFromFrequency: the conversion stays in floating
// point until the very last step (converting to nanoseconds), so
// fractional frequencies never truncate the way a naive integer 1/f
// would (spec.md §9's open question on this is resolved this way).
func (s *Schedule) TimerInterval() time.Duration {
	return rtclock.IntervalFromFrequency(s.Frequency)
}

// ExpectedReleases returns ceil(MaxIterations / period), the number of
// tick-driven releases spec.md §8's quantified invariant predicts for a
// service of the given period — the count already includes the release
// at iteration 0, since 0 is a multiple of every period. Used by tests
// and by schedule construction to size each service's release-semaphore
// capacity (which additionally reserves one slot for the termination
// credit; see BuildServices).
func ExpectedReleases(period int, maxIterations uint64) uint64 {
	if period <= 0 {
		return 0
	}
	p := uint64(period)
	return (maxIterations + p - 1) / p
}
