package sequencer

import (
	"context"
	"time"
)

// RunTimer drives Schedule's periodic release: on every tick it releases
// every service whose period divides the iteration counter, then checks
// whether MaxIterations has been reached.
//
// The reference sequencer fires this logic from a SIGALRM handler; doing
// the same in Go would force every operation the handler calls into
// async-signal-safe territory for no benefit, since Go already gives us
// a dedicated timer-driven goroutine (spec.md §9 recommends exactly
// this substitution). RunTimer is meant to be run pinned to
// Schedule.SequencerCPU at the maximum SCHED_FIFO priority via
// internal/rtpriority, so the tick itself is never preempted by the
// service tasks it releases.
//
// RunTimer blocks until the schedule reaches MaxIterations (in which case
// it calls Terminate itself and returns nil) or ctx is cancelled (in
// which case it also terminates the schedule before returning ctx.Err()).
func RunTimer(ctx context.Context, schedule *Schedule) error {
	interval := schedule.TimerInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if onTick(schedule) {
				return nil
			}
		case <-ctx.Done():
			Terminate(schedule)
			return ctx.Err()
		}
	}
}

// onTick implements the sequencer's per-tick handler:
//
//	if iteration_counter >= max_iterations:
//	  terminate_all(schedule)
//	  return
//	for each service s in schedule.services:
//	  if (iteration_counter mod s.period) == 0:
//	    post(s.release_semaphore)
//	iteration_counter += 1
//	if iteration_counter >= max_iterations:
//	  terminate_all(schedule)
//
// The bound is checked both before and after the release loop: checking
// before is what makes max_iterations=0 release nothing at all (spec.md
// §8); checking after is what terminates promptly once the last eligible
// iteration's releases have gone out, rather than waiting for one more
// tick to notice. It returns true once termination has been triggered,
// so RunTimer can stop ticking.
func onTick(schedule *Schedule) bool {
	counter := schedule.iterationCounter.Load()
	if counter >= schedule.MaxIterations {
		Terminate(schedule)
		return true
	}
	for _, svc := range schedule.services {
		if counter%uint64(svc.Period) == 0 {
			svc.postTick()
		}
	}
	next := schedule.iterationCounter.Add(1)
	if next >= schedule.MaxIterations {
		Terminate(schedule)
		return true
	}
	return false
}

// Terminate implements the termination protocol: for every service, post
// the single termination credit that the service's runtime loop will
// observe after draining whatever tick-driven credits are already queued
// ahead of it. Terminate does not wait for services to actually exit;
// callers join the service tasks separately (Bringup does so through its
// WaitGroup).
func Terminate(schedule *Schedule) {
	for _, svc := range schedule.services {
		svc.postExit()
	}
}
