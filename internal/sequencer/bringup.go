package sequencer

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/rtpriority"
)

// Bringup pins the calling (main) goroutine to the highest real-time
// priority, starts every service task, waits for all of them to finish
// Setup, then installs the sequencer's timer on Schedule.SequencerCPU and
// blocks until every service task has exited.
//
// This mirrors the reference sequencer's main():
//
//	set_current_thread_to_real_time()
//	validate_current_thread_is_real_time()
//	start_all_services(&schedule)
//	begin_sequencing(&schedule)
//	join_all_service_threads(&schedule)
//
// with one addition: Bringup waits for every service's setup-done
// semaphore before arming the timer, so the first tick can never race a
// service that has not finished opening its camera, allocating its
// state, etc. The reference project's Service struct carries a
// setup_semaphore for exactly this purpose; this is simply the place
// that actually waits on it.
func Bringup(ctx context.Context, schedule *Schedule, pipeline *framepipeline.Pipeline, logger *rtlog.Logger) error {
	// priorityDescending 0 yields MaxFIFOPriority()-0, i.e. the maximum
	// priority: the sequencer task runs at the system's highest
	// real-time priority on its dedicated CPU, so the periodic tick can
	// never itself be preempted by a service task.
	if err := rtpriority.PinAndPrioritize(schedule.SequencerCPU, 0); err != nil {
		return fmt.Errorf("sequencer: main task could not become real-time: %w", err)
	}
	if ok, err := rtpriority.IsCallerRealTime(); err != nil || !ok {
		return fmt.Errorf("sequencer: main task refused to start: not running SCHED_FIFO at maximum priority")
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(schedule.services))
	// setupCtx is cancelled as soon as a service task fails, so the
	// readiness wait below returns instead of waiting on a service whose
	// pinning or Setup errored.
	setupCtx, cancelSetup := context.WithCancel(ctx)
	defer cancelSetup()

	for _, svc := range schedule.services {
		wg.Add(1)
		go func(svc *Service) {
			defer wg.Done()
			if err := Run(ctx, svc, pipeline, logger); err != nil {
				errCh <- fmt.Errorf("service %q: %w", svc.Name, err)
				cancelSetup()
			}
		}(svc)
	}

	for _, svc := range schedule.services {
		if err := WaitReady(setupCtx, svc); err != nil {
			select {
			case serviceErr := <-errCh:
				return serviceErr
			default:
			}
			return fmt.Errorf("sequencer: service %q never became ready: %w", svc.Name, err)
		}
	}

	if err := RunTimer(ctx, schedule); err != nil && ctx.Err() == nil {
		return fmt.Errorf("sequencer: timer loop: %w", err)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}
