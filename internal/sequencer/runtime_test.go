package sequencer

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtclock"
	"github.com/neo4reo/real-timely/internal/rtlog"
)

// TestServiceLoopBookkeeping exercises serviceLoop directly, bypassing
// the CPU pinning Run performs (which needs real-time privileges a test
// runner may not have), to validate the setup -> release-drain ->
// teardown contract end to end.
func TestServiceLoopBookkeeping(t *testing.T) {
	var setupCalls, workCalls, teardownCalls int32

	svc, err := NewService(1, "lifecycle", 1, 0, Hooks{
		Setup: func(ctx context.Context, p *framepipeline.Pipeline, s *Service) error {
			atomic.AddInt32(&setupCalls, 1)
			return nil
		},
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *Service, requestCounter uint64) error {
			atomic.AddInt32(&workCalls, 1)
			return nil
		},
		Teardown: func(ctx context.Context, p *framepipeline.Pipeline, s *Service) error {
			atomic.AddInt32(&teardownCalls, 1)
			return nil
		},
	}, 8)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx := context.Background()
	clock := rtclock.New()
	var buf bytes.Buffer
	logger := rtlog.New(&buf, clock)

	done := make(chan error, 1)
	go func() { done <- serviceLoop(ctx, svc, nil, logger) }()

	if err := WaitReady(ctx, svc); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if got := atomic.LoadInt32(&setupCalls); got != 1 {
		t.Fatalf("setupCalls = %d, want 1", got)
	}

	svc.postTick()
	svc.postTick()
	svc.postExit()

	if err := <-done; err != nil {
		t.Fatalf("serviceLoop returned error: %v", err)
	}

	if got := atomic.LoadInt32(&workCalls); got != 2 {
		t.Errorf("workCalls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&teardownCalls); got != 1 {
		t.Errorf("teardownCalls = %d, want 1", got)
	}
	if svc.WorkCount() != 2 {
		t.Errorf("svc.WorkCount() = %d, want 2", svc.WorkCount())
	}
	if buf.Len() == 0 {
		t.Error("expected at least one log line to have been written")
	}
}

func TestServiceLoopSetupFailureIsFatal(t *testing.T) {
	svc, err := NewService(1, "broken", 1, 0, Hooks{
		Setup: func(context.Context, *framepipeline.Pipeline, *Service) error {
			return context.DeadlineExceeded
		},
		Work:     func(context.Context, *framepipeline.Pipeline, *Service, uint64) error { return nil },
		Teardown: func(context.Context, *framepipeline.Pipeline, *Service) error { return nil },
	}, 2)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	clock := rtclock.New()
	var buf bytes.Buffer
	logger := rtlog.New(&buf, clock)

	if err := serviceLoop(context.Background(), svc, nil, logger); err == nil {
		t.Fatal("expected serviceLoop to return an error when Setup fails")
	}
}
