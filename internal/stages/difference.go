package stages

import (
	"context"
	"fmt"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/imageio"
	"github.com/neo4reo/real-timely/internal/sequencer"
)

// Difference builds the difference stage's Hooks (spec.md §4.5).
//
// The reference implementation keeps a raw pointer to whichever frame
// slot it last processed and re-reads it as "the previous buffer" on
// the following invocation. That slot can already have been recaptured
// by the capture stage by then, since ownership of a token passes on as
// soon as it's forwarded. This implementation keeps its own grayscale
// snapshot of the previous frame instead, so the comparison never races
// a concurrent capture into the same memory.
func Difference() sequencer.Hooks {
	var maxDiff int64
	var previous []byte

	return sequencer.Hooks{
		Setup: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service) error {
			if p.FrameCount() == 0 {
				return fmt.Errorf("stages: difference setup: empty pipeline")
			}
			first := p.Frame(0)
			maxDiff = imageio.MaxDifference(first.Width, first.Height)
			return nil
		},
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service, requestCounter uint64) error {
			tok, err := p.Captured.Receive(ctx)
			if err != nil {
				return fmt.Errorf("stages: difference: %w", err)
			}
			frame := p.Frame(tok)
			gray := imageio.Grayscale(frame.Buffer, frame.Width, frame.Height, frame.Gray)
			frame.Gray = gray

			if previous == nil {
				previous = make([]byte, len(gray))
				copy(previous, gray)
			}

			diff := imageio.AbsoluteDifference(gray, previous)
			frame.DifferenceAbsolute = diff
			if maxDiff > 0 {
				frame.DifferencePercentage = 100 * float64(diff) / float64(maxDiff)
			}

			copy(previous, gray)

			return p.Differenced.Send(ctx, tok)
		},
	}
}
