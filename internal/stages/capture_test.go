package stages

import (
	"bytes"
	"context"
	"testing"

	"github.com/neo4reo/real-timely/internal/camera/mockcamera"
	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtclock"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

func TestCaptureSetupWarmsEveryFrame(t *testing.T) {
	pipeline, err := framepipeline.New(4, 3, 3, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	cam := mockcamera.New(3, 3, nil)
	var buf bytes.Buffer
	logger := rtlog.New(&buf, rtclock.New())

	svc, err := sequencer.NewService(1, "capture", 1, 0, sequencer.Hooks{}, 1)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	hooks := Capture(cam, logger)
	if err := hooks.Setup(context.Background(), pipeline, svc); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	for i := 0; i < pipeline.FrameCount(); i++ {
		if pipeline.Frame(framepipeline.Token(i)).CapturedAt.IsZero() {
			t.Errorf("frame %d was never warmed", i)
		}
	}
}

func TestCaptureWorkMovesTokenFromAvailableToCaptured(t *testing.T) {
	pipeline, err := framepipeline.New(2, 2, 2, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	ctx := context.Background()
	if err := pipeline.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	cam := mockcamera.New(2, 2, nil)
	var buf bytes.Buffer
	logger := rtlog.New(&buf, rtclock.New())
	svc, _ := sequencer.NewService(1, "capture", 1, 0, sequencer.Hooks{}, 1)

	hooks := Capture(cam, logger)
	if err := hooks.Work(ctx, pipeline, svc, 1); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if pipeline.Available.Len() != 1 {
		t.Errorf("available.Len() = %d, want 1", pipeline.Available.Len())
	}
	if pipeline.Captured.Len() != 1 {
		t.Errorf("captured.Len() = %d, want 1", pipeline.Captured.Len())
	}
}
