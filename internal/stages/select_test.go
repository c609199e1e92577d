package stages

import (
	"context"
	"testing"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/telemetry"
)

// TestSelectTickDetection reproduces spec.md §8's scripted scenario:
// a differenced stream [0.1, 0.2, 0.5, 0.7, 0.3, 0.2, 0.4, 0.6] with
// threshold T=0.38 should emit exactly two tokens to selected: the
// frame with minimum difference_percentage in [0,1], then the minimum
// in [2,5].
func TestSelectTickDetection(t *testing.T) {
	percentages := []float64{0.1, 0.2, 0.5, 0.7, 0.3, 0.2, 0.4, 0.6}
	pipeline, err := framepipeline.New(len(percentages), 2, 2, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	ctx := context.Background()

	for i, pct := range percentages {
		tok := framepipeline.Token(i)
		pipeline.Frame(tok).DifferencePercentage = pct
		if err := pipeline.Differenced.Send(ctx, tok); err != nil {
			t.Fatalf("seeding differenced queue: %v", err)
		}
	}

	hooks := Select(SelectConfig{Threshold: 0.38, Direction: "up"}, telemetry.NoopEmitter{})
	for i := 0; i < len(percentages); i++ {
		if err := hooks.Work(ctx, pipeline, nil, uint64(i+1)); err != nil {
			t.Fatalf("Work invocation %d: %v", i, err)
		}
	}

	var selected []framepipeline.Token
	for pipeline.Selected.Len() > 0 {
		tok, err := pipeline.Selected.Receive(ctx)
		if err != nil {
			t.Fatalf("draining selected: %v", err)
		}
		selected = append(selected, tok)
	}

	if len(selected) != 2 {
		t.Fatalf("got %d selected tokens, want 2 (tokens: %v)", len(selected), selected)
	}
	if selected[0] != 0 {
		t.Errorf("first selected token = %d, want 0 (minimum of [0,1])", selected[0])
	}
	if selected[1] != 5 {
		t.Errorf("second selected token = %d, want 5 (minimum of [2,5])", selected[1])
	}
}

func TestSelectReturnsSupersededTokensToAvailable(t *testing.T) {
	percentages := []float64{0.9, 0.1}
	pipeline, err := framepipeline.New(len(percentages), 1, 1, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	ctx := context.Background()
	for i, pct := range percentages {
		tok := framepipeline.Token(i)
		pipeline.Frame(tok).DifferencePercentage = pct
		if err := pipeline.Differenced.Send(ctx, tok); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	hooks := Select(SelectConfig{Threshold: 0.5}, telemetry.NoopEmitter{})
	for i := 0; i < len(percentages); i++ {
		if err := hooks.Work(ctx, pipeline, nil, uint64(i+1)); err != nil {
			t.Fatalf("Work: %v", err)
		}
	}

	// token 0 (0.9) should have been superseded by token 1 (0.1) and
	// returned to available; token 1 is held as current_best.
	if pipeline.Available.Len() == 0 {
		t.Fatal("expected a superseded token in available")
	}
	tok, err := pipeline.Available.Receive(ctx)
	if err != nil {
		t.Fatalf("draining available: %v", err)
	}
	if tok != 0 {
		t.Errorf("superseded token = %d, want 0", tok)
	}
}

type recordingPublisher struct {
	selections []telemetry.SelectionEvent
}

func (r *recordingPublisher) PublishTick(telemetry.TickEvent) error { return nil }

func (r *recordingPublisher) PublishSelection(ev telemetry.SelectionEvent) error {
	r.selections = append(r.selections, ev)
	return nil
}

func TestSelectPublishesEachSelectionEvent(t *testing.T) {
	percentages := []float64{0.1, 0.2, 0.5, 0.7, 0.3, 0.2, 0.4, 0.6}
	pipeline, err := framepipeline.New(len(percentages), 2, 2, 3, false)
	if err != nil {
		t.Fatalf("framepipeline.New: %v", err)
	}
	ctx := context.Background()
	for i, pct := range percentages {
		tok := framepipeline.Token(i)
		pipeline.Frame(tok).DifferencePercentage = pct
		pipeline.Frame(tok).RequestID = uint64(i + 1)
		if err := pipeline.Differenced.Send(ctx, tok); err != nil {
			t.Fatalf("seeding differenced queue: %v", err)
		}
	}

	pub := &recordingPublisher{}
	hooks := Select(SelectConfig{Threshold: 0.38, Direction: "up"}, pub)
	for i := 0; i < len(percentages); i++ {
		if err := hooks.Work(ctx, pipeline, nil, uint64(i+1)); err != nil {
			t.Fatalf("Work invocation %d: %v", i, err)
		}
	}

	if len(pub.selections) != 2 {
		t.Fatalf("got %d published selections, want 2 (one per tick edge)", len(pub.selections))
	}
	if pub.selections[0].RequestID != 1 || pub.selections[0].DifferencePercentage != 0.1 {
		t.Errorf("first published selection = %+v, want request_id=1, difference_percentage=0.1", pub.selections[0])
	}
	if pub.selections[1].RequestID != 6 || pub.selections[1].DifferencePercentage != 0.2 {
		t.Errorf("second published selection = %+v, want request_id=6, difference_percentage=0.2", pub.selections[1])
	}
}
