package stages

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtclock"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

func TestWriteDrainsSelectedAndNeverReturnsTokens(t *testing.T) {
	original := drainTimeout
	drainTimeout = 10 * time.Millisecond
	defer func() { drainTimeout = original }()

	dir := filepath.Join(t.TempDir(), "frames")
	pipeline, err := framepipeline.New(3, 2, 2, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := pipeline.Selected.Send(ctx, framepipeline.Token(i)); err != nil {
			t.Fatalf("seeding selected: %v", err)
		}
	}

	var buf bytes.Buffer
	logger := rtlog.New(&buf, rtclock.New())
	svc, _ := sequencer.NewService(1, "write", 1, 0, sequencer.Hooks{}, 1)

	hooks := Write(dir, logger)
	if err := hooks.Setup(ctx, pipeline, svc); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := hooks.Work(ctx, pipeline, svc, 1); err != nil {
		t.Fatalf("Work: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("wrote %d files, want 4 (2 frames x .ppm + .meta)", len(entries))
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for _, want := range []string{"000000.ppm", "000000.meta", "000001.ppm", "000001.meta"} {
		if !names[want] {
			t.Errorf("expected %q among written files, got %v", want, names)
		}
	}
	if pipeline.Available.Len() != 0 {
		t.Errorf("available.Len() = %d, want 0 (write stage must not return consumed tokens)", pipeline.Available.Len())
	}
}

func TestWriteSetupClearsExistingContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	stale := filepath.Join(dir, "stale.ppm")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pipeline, err := framepipeline.New(2, 1, 1, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	var buf bytes.Buffer
	logger := rtlog.New(&buf, rtclock.New())
	hooks := Write(dir, logger)
	if err := hooks.Setup(context.Background(), pipeline, nil); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected stale.ppm to be removed by Setup, stat err = %v", err)
	}
}
