package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4reo/real-timely/internal/camera"
	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

// captureRetries bounds how many attempts (the first one included) a
// single Read gets before the capture stage degrades to forwarding a
// stale buffer (spec.md
// §4.4: "a persistent failure is logged; the service does not abort
// the pipeline").
const captureRetries = 3

// Capture builds the capture stage's Hooks. Setup warms every frame
// slot by reading one real frame into it; each Work invocation dequeues
// a token from available, reads one frame into its slot, and enqueues
// the token into captured.
func Capture(src camera.Source, logger *rtlog.Logger) sequencer.Hooks {
	return sequencer.Hooks{
		Setup: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service) error {
			logger.Assignment(uint64(p.FrameCount()), logger.NowElapsedSeconds())
			for i := 0; i < p.FrameCount(); i++ {
				tok := framepipeline.Token(i)
				frame := p.Frame(tok)
				if err := readWithRetry(ctx, src, frame.Buffer, logger, s.PriorityDescending()); err != nil {
					return fmt.Errorf("stages: capture setup: warming slot %d: %w", i, err)
				}
				frame.CapturedAt = time.Now()
			}
			return nil
		},
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service, requestCounter uint64) error {
			tok, err := p.Available.Receive(ctx)
			if err != nil {
				return fmt.Errorf("stages: capture: %w", err)
			}
			frame := p.Frame(tok)
			if err := readWithRetry(ctx, src, frame.Buffer, logger, s.PriorityDescending()); err != nil {
				logger.Line(s.PriorityDescending(), "capture: persistent read failure, forwarding stale frame: %v", err)
			} else {
				frame.CapturedAt = time.Now()
			}
			frame.RequestID = requestCounter
			return p.Captured.Send(ctx, tok)
		},
		Teardown: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service) error {
			return src.Close()
		},
	}
}

func readWithRetry(ctx context.Context, src camera.Source, dst []byte, logger *rtlog.Logger, priorityDescending int) error {
	var lastErr error
	for attempt := 0; attempt < captureRetries; attempt++ {
		if err := src.Read(ctx, dst); err != nil {
			lastErr = err
			logger.Line(priorityDescending, "capture: read failed (attempt %d/%d): %v", attempt+1, captureRetries, err)
			select {
			case <-time.After(25 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return lastErr
}
