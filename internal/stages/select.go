package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/sequencer"
	"github.com/neo4reo/real-timely/internal/telemetry"
)

// SelectConfig configures the select stage's tick detector.
type SelectConfig struct {
	Threshold float64
	// Direction is "up" (a tick is an upward crossing of Threshold,
	// the "selected" variant spec.md §9 resolves the open question
	// toward) or "down". Empty means "up".
	Direction string
}

// Select builds the select stage's Hooks (spec.md §4.6): it tracks the
// most motion-free frame ("current_best") seen since the last tick
// edge, releasing it to the selected queue the moment a new tick edge
// is observed and returning every superseded token to available. Each
// frame emitted to selected is also reported to publisher
// (SPEC_FULL §4.11); pass telemetry.NoopEmitter{} when no mqtt section
// is configured, so this stage never needs a nil check either.
//
// Deviation from the letter of spec.md §4.6: current_best starts
// unowned rather than "initialized to slot 0", because slot 0 is
// already sitting in some other queue at startup and giving select
// a second claim on it would violate pool conservation the first time
// a tie-break tried to return the placeholder to available. Ownership
// begins with the stage's first real Work invocation instead; this
// matches the invariant ("exactly one token is the current best at any
// time") for every instant after startup, which is what the invariant
// is actually protecting.
func Select(cfg SelectConfig, publisher telemetry.Publisher) sequencer.Hooks {
	direction := strings.ToLower(cfg.Direction)
	if direction == "" {
		direction = "up"
	}

	var havePrevious bool
	var previousPercentage float64
	var currentBest framepipeline.Token
	var haveBest bool

	return sequencer.Hooks{
		Work: func(ctx context.Context, p *framepipeline.Pipeline, s *sequencer.Service, requestCounter uint64) error {
			tok, err := p.Differenced.Receive(ctx)
			if err != nil {
				return fmt.Errorf("stages: select: %w", err)
			}
			frame := p.Frame(tok)
			pct := frame.DifferencePercentage

			isTick := false
			if havePrevious {
				if direction == "down" {
					isTick = previousPercentage >= cfg.Threshold && pct < cfg.Threshold
				} else {
					isTick = previousPercentage < cfg.Threshold && pct >= cfg.Threshold
				}
			}

			switch {
			case isTick:
				if haveBest {
					best := p.Frame(currentBest)
					if err := p.Selected.Send(ctx, currentBest); err != nil {
						return err
					}
					// Telemetry is a side channel, not a pipeline invariant:
					// a publish failure never blocks or aborts the
					// selection it describes, it's just logged.
					if err := publisher.PublishSelection(telemetry.SelectionEvent{
						RequestID:            best.RequestID,
						DifferencePercentage: best.DifferencePercentage,
						At:                   time.Now(),
					}); err != nil {
						slog.Debug("stages: select: publishing selection event failed", "error", err)
					}
				}
				currentBest = tok
				haveBest = true

			case !haveBest:
				currentBest = tok
				haveBest = true

			case pct < p.Frame(currentBest).DifferencePercentage:
				superseded := currentBest
				currentBest = tok
				if err := p.Available.Send(ctx, superseded); err != nil {
					return err
				}

			default:
				if err := p.Available.Send(ctx, tok); err != nil {
					return err
				}
			}

			previousPercentage = pct
			havePrevious = true
			return nil
		},
	}
}
