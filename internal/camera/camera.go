// Package camera defines the capture stage's collaborator contract and
// a registry of the concrete backends (gstcamera, rpicamera,
// mockcamera) a schedule config can select by name.
package camera

import (
	"context"
	"fmt"

	"github.com/neo4reo/real-timely/internal/camera/gstcamera"
	"github.com/neo4reo/real-timely/internal/camera/mockcamera"
	"github.com/neo4reo/real-timely/internal/camera/rpicamera"
)

// Source is the capture stage's view of a camera: open it, fill a
// caller-owned RGB buffer with one frame at a time, close it. Source
// implementations do not retry; the capture stage retries a failed Read
// (captureRetries attempts in internal/stages) and, if every attempt
// fails, logs the failure and forwards the slot with its previous
// contents instead of aborting the pipeline.
type Source interface {
	Open(ctx context.Context) error
	// Read fills dst (which must be exactly Width()*Height()*3 bytes,
	// interleaved RGB) with one frame.
	Read(ctx context.Context, dst []byte) error
	Close() error
	Width() int
	Height() int
}

// Config selects and configures a backend. It carries
// internal/config.CameraConfig's fields plus the frame size;
// cmd/sequencerd fills it field by field from the schedule config.
type Config struct {
	Backend      string
	Width        int
	Height       int
	RTSPURL      string
	ReplayScript []float64
}

// Open constructs the Source named by cfg.Backend and opens it.
func Open(ctx context.Context, cfg Config) (Source, error) {
	var src Source
	switch cfg.Backend {
	case "gstreamer":
		src = gstcamera.New(cfg.RTSPURL, cfg.Width, cfg.Height)
	case "rpicamera":
		src = rpicamera.New(cfg.Width, cfg.Height)
	case "mock", "":
		src = mockcamera.New(cfg.Width, cfg.Height, cfg.ReplayScript)
	default:
		return nil, fmt.Errorf("camera: unrecognized backend %q", cfg.Backend)
	}
	if err := src.Open(ctx); err != nil {
		return nil, fmt.Errorf("camera: opening backend %q: %w", cfg.Backend, err)
	}
	return src, nil
}
