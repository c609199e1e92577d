package framepipeline

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsTooFewFrames(t *testing.T) {
	if _, err := New(1, 4, 4, 1, false); err == nil {
		t.Fatal("expected error for frame count 1, got nil")
	}
	if _, err := New(0, 4, 4, 1, false); err == nil {
		t.Fatal("expected error for frame count 0, got nil")
	}
}

func TestSeedAndEchoConservesTokens(t *testing.T) {
	p, err := New(5, 2, 2, 1, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := p.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if got := p.Available.Len(); got != 5 {
		t.Fatalf("Available.Len() = %d, want 5", got)
	}

	dequeued := 0
	requeued := 0
	for i := 0; i < 5; i++ {
		tok, err := p.Available.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		dequeued++
		if err := p.Available.Send(ctx, tok); err != nil {
			t.Fatalf("Send: %v", err)
		}
		requeued++
	}
	if dequeued != requeued {
		t.Fatalf("dequeued=%d requeued=%d, want equal", dequeued, requeued)
	}
	if got := p.Available.Len(); got != 5 {
		t.Fatalf("Available.Len() after echo = %d, want 5", got)
	}
}

func TestReceiveTimeout(t *testing.T) {
	p, err := New(2, 2, 2, 1, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_, err = p.Selected.ReceiveTimeout(ctx, 10*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("ReceiveTimeout on empty queue = %v, want ErrTimeout", err)
	}
}

func TestPoolConservationAcrossQueues(t *testing.T) {
	const n = 20
	p, err := New(n, 2, 2, 1, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := p.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	// Walk every token all the way around the ring once.
	for i := 0; i < n; i++ {
		tok, err := p.Available.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive available: %v", err)
		}
		if err := p.Captured.Send(ctx, tok); err != nil {
			t.Fatalf("Send captured: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		tok, err := p.Captured.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive captured: %v", err)
		}
		if err := p.Differenced.Send(ctx, tok); err != nil {
			t.Fatalf("Send differenced: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		tok, err := p.Differenced.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive differenced: %v", err)
		}
		if err := p.Available.Send(ctx, tok); err != nil {
			t.Fatalf("Send available: %v", err)
		}
	}

	occ := p.Snapshot()
	total := occ.Available + occ.Captured + occ.Differenced + occ.Selected + occ.Blurred
	if total != n {
		t.Fatalf("total tokens across queues = %d, want %d", total, n)
	}
}
