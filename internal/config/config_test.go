package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
frequency: 30
max_iterations: 60
sequencer_cpu: 0
frame_count: 8
frame_width: 640
frame_height: 480
output_dir: /tmp/frames
camera:
  backend: mock
select:
  threshold: 0.4
  direction: up
services:
  - name: capture
    stage: capture
    period: 1
    cpu: 1
  - name: difference
    stage: difference
    period: 1
    cpu: 2
  - name: select
    stage: select
    period: 1
    cpu: 3
  - name: write
    stage: write
    period: 3
    cpu: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Frequency != 30 {
		t.Errorf("Frequency = %f, want 30", cfg.Frequency)
	}
	if len(cfg.Services) != 4 {
		t.Errorf("len(Services) = %d, want 4", len(cfg.Services))
	}
}

func TestValidateRejectsNonPositiveFrequency(t *testing.T) {
	cfg := &ScheduleConfig{Frequency: 0, FrameCount: 2, FrameWidth: 1, FrameHeight: 1,
		Camera:   CameraConfig{Backend: "mock"},
		Services: []ServiceConfig{{Name: "a", Stage: "capture", Period: 1}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for zero frequency")
	}
}

func TestValidateRejectsTooFewFrames(t *testing.T) {
	cfg := &ScheduleConfig{Frequency: 1, FrameCount: 1, FrameWidth: 1, FrameHeight: 1,
		Camera:   CameraConfig{Backend: "mock"},
		Services: []ServiceConfig{{Name: "a", Stage: "capture", Period: 1}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for frame_count < 2")
	}
}

func TestValidateRejectsUnknownStage(t *testing.T) {
	cfg := &ScheduleConfig{Frequency: 1, FrameCount: 2, FrameWidth: 1, FrameHeight: 1,
		Camera:   CameraConfig{Backend: "mock"},
		Services: []ServiceConfig{{Name: "a", Stage: "sparkle", Period: 1}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unrecognized stage")
	}
}

func TestValidateRequiresOutputDirForWriteStage(t *testing.T) {
	cfg := &ScheduleConfig{Frequency: 1, FrameCount: 2, FrameWidth: 1, FrameHeight: 1,
		Camera:   CameraConfig{Backend: "mock"},
		Services: []ServiceConfig{{Name: "w", Stage: "write", Period: 1}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when write stage configured without output_dir")
	}
}

func TestValidateRequiresRTSPURLForGstreamerBackend(t *testing.T) {
	cfg := &ScheduleConfig{Frequency: 1, FrameCount: 2, FrameWidth: 1, FrameHeight: 1,
		Camera:   CameraConfig{Backend: "gstreamer"},
		Services: []ServiceConfig{{Name: "c", Stage: "capture", Period: 1}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when gstreamer backend configured without rtsp_url")
	}
}
