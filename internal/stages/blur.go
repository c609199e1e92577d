package stages

import (
	"context"
	"fmt"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/imageio"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

// Blur builds the optional blur stage's Hooks (spec.md §4.8): a mean
// filter applied in place to a selected frame before the write stage
// ever sees it.
func Blur(radius int, logger *rtlog.Logger) sequencer.Hooks {
	return sequencer.Hooks{
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service, requestCounter uint64) error {
			if p.Blurred == nil {
				return fmt.Errorf("stages: blur: pipeline has no blurred queue configured")
			}
			tok, err := p.Selected.Receive(ctx)
			if err != nil {
				return fmt.Errorf("stages: blur: %w", err)
			}

			start := logger.NowElapsedSeconds()
			frame := p.Frame(tok)
			imageio.BoxBlur(frame.Buffer, frame.Width, frame.Height, radius)
			logger.Line(s.PriorityDescending(), "blur: request %d done in %.9fs", requestCounter, logger.NowElapsedSeconds()-start)

			return p.Blurred.Send(ctx, tok)
		},
	}
}
