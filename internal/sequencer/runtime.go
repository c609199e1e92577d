package sequencer

import (
	"context"
	"fmt"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/rtpriority"
)

// Run executes one service's entire lifecycle on the calling goroutine:
// pin to its CPU at its rate-monotonic priority, then run the shared
// setup/release/teardown loop (serviceLoop).
//
// Run is launched with `go sequencer.Run(...)`. It returns after
// Teardown once the termination credit arrives or ctx is cancelled; it
// returns an error without running Teardown when pinning or Setup fails.
// A Work error is logged and the loop waits for the next release.
func Run(ctx context.Context, svc *Service, pipeline *framepipeline.Pipeline, logger *rtlog.Logger) error {
	if err := rtpriority.PinAndPrioritize(svc.CPU, svc.priorityDescending); err != nil {
		return fmt.Errorf("sequencer: service %q: %w", svc.Name, err)
	}
	return serviceLoop(ctx, svc, pipeline, logger)
}

// serviceLoop is Run's body, factored out so tests can exercise the
// setup/release/teardown contract without requiring the real-time
// scheduling privileges rtpriority.PinAndPrioritize needs:
//
//  1. run Setup once; signal the setup-done semaphore.
//  2. loop: wait for a release credit; if it is the termination credit,
//     run Teardown and return; otherwise run Work and log the elapsed
//     time.
func serviceLoop(ctx context.Context, svc *Service, pipeline *framepipeline.Pipeline, logger *rtlog.Logger) error {
	if svc.Hooks.Setup != nil {
		if err := svc.Hooks.Setup(ctx, pipeline, svc); err != nil {
			return fmt.Errorf("sequencer: service %q setup failed: %w", svc.Name, err)
		}
	}
	svc.markReady()

	for {
		var c credit
		select {
		case c = <-svc.release:
		case <-ctx.Done():
			if svc.Hooks.Teardown != nil {
				_ = svc.Hooks.Teardown(ctx, pipeline, svc)
			}
			return ctx.Err()
		}

		if c.exit {
			if svc.Hooks.Teardown != nil {
				if err := svc.Hooks.Teardown(ctx, pipeline, svc); err != nil {
					return fmt.Errorf("sequencer: service %q teardown failed: %w", svc.Name, err)
				}
			}
			return nil
		}

		workCount := svc.workCount.Add(1)
		clockBefore := logger.NowElapsedSeconds()
		err := svc.Hooks.Work(ctx, pipeline, svc, workCount)
		elapsed := logger.NowElapsedSeconds() - clockBefore

		if err != nil {
			logger.Line(svc.priorityDescending, "%s: work error: %v (elapsed %.9fs)", svc.Name, err, elapsed)
			continue
		}
		logger.Line(svc.priorityDescending, "%s: completed request %d in %.9fs", svc.Name, workCount, elapsed)
	}
}

// WaitReady blocks until svc's Setup has completed, or ctx is cancelled.
// Scheduler bring-up uses this to hold the sequencer's timer disarmed
// until every service has reached a runnable state.
func WaitReady(ctx context.Context, svc *Service) error {
	return svc.waitReady(ctx)
}
