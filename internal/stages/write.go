package stages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/imageio"
	"github.com/neo4reo/real-timely/internal/metasidecar"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

// drainTimeout is how long the write stage waits for the next frame
// before considering its input queue empty for this invocation.
// Generous enough (spec.md §4.7) that the same drain loop doubles as a
// graceful-shutdown drain once the sequencer stops releasing new work.
var drainTimeout = 5 * time.Second

// Write builds the write stage's Hooks (spec.md §4.7). It reads from
// the blurred queue if the pipeline has one configured, otherwise from
// selected directly.
func Write(outputDir string, logger *rtlog.Logger) sequencer.Hooks {
	var frameNumber uint64

	return sequencer.Hooks{
		Setup: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service) error {
			if err := os.RemoveAll(outputDir); err != nil {
				return fmt.Errorf("stages: write setup: clearing %q: %w", outputDir, err)
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("stages: write setup: creating %q: %w", outputDir, err)
			}
			return nil
		},
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service, requestCounter uint64) error {
			queue := p.Selected
			if p.Blurred != nil {
				queue = p.Blurred
			}

			for {
				tok, err := queue.ReceiveTimeout(ctx, drainTimeout)
				if errors.Is(err, framepipeline.ErrTimeout) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("stages: write: %w", err)
				}

				frame := p.Frame(tok)
				stem := fmt.Sprintf("%06d", frameNumber)
				path := filepath.Join(outputDir, stem+".ppm")
				if err := writeFramePPM(path, frame); err != nil {
					return fmt.Errorf("stages: write: %w", err)
				}

				writtenAt := time.Now()
				sidecarPath := filepath.Join(outputDir, stem+".meta")
				if err := metasidecar.Write(sidecarPath, metasidecar.Record{
					RequestID:            frame.RequestID,
					DifferenceAbsolute:   frame.DifferenceAbsolute,
					DifferencePercentage: frame.DifferencePercentage,
					CapturedAt:           frame.CapturedAt,
					WrittenAt:            writtenAt,
				}); err != nil {
					// The sidecar is diagnostic metadata, not the frame
					// itself; a write failure here is recoverable I/O and
					// must not stall the drain of the rest of the queue.
					logger.Line(s.PriorityDescending(), "write: sidecar write failed for %s: %v", stem, err)
				}

				logger.Line(s.PriorityDescending(), "write: emitted %s (request %d, capture request %d)",
					stem, requestCounter, frame.RequestID)
				frameNumber++
				// spec.md §4.7: the write stage consumes ownership of
				// selected frames; tok is intentionally never returned
				// to available.
			}
		},
	}
}

func writeFramePPM(path string, frame *framepipeline.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return imageio.EncodePPM(f, frame.Buffer, frame.Width, frame.Height)
}
