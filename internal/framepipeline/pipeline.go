// Package framepipeline owns the fixed pool of frame slots and the four
// bounded token queues that move them between pipeline stages.
//
// The queue topology is always: available -> captured -> differenced ->
// selected (-> blurred, if the optional blur stage is configured). Every
// token is in exactly one queue, or held on a single stage's stack,
// at every instant; the queues are the only synchronization the pipeline
// stages need, matching the "at-most-one owner per buffer" guarantee the
// sequencer's frame flow requires.
//
// Queues are implemented as buffered Go channels. A channel of capacity N
// is exactly the bounded MPMC FIFO the design calls for: concurrent sends
// and receives are safe by construction, and a full channel blocks the
// sender instead of silently dropping, matching "blocking enqueue is
// never needed in steady state; treated as fatal if it would block."
package framepipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by ReceiveTimeout when no token becomes
// available within the given duration.
var ErrTimeout = errors.New("framepipeline: receive timed out")

// Queue is a bounded, multi-producer/multi-consumer FIFO of frame tokens.
type Queue struct {
	name string
	ch   chan Token
}

func newQueue(name string, capacity int) *Queue {
	return &Queue{name: name, ch: make(chan Token, capacity)}
}

// Name identifies the queue in logs and fatal-error messages.
func (q *Queue) Name() string { return q.name }

// Send enqueues a token, blocking only if the queue is full. In steady
// state the pipeline is sized so this never blocks; a caller that
// observes Send blocking for longer than its own period has violated a
// pipeline invariant and should treat it as the fatal condition §4.1
// describes. Send itself cannot fail except by the context being
// cancelled, in which case the token is NOT enqueued and the caller still
// owns it.
func (q *Queue) Send(ctx context.Context, tok Token) error {
	select {
	case q.ch <- tok:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("framepipeline: send to %q cancelled: %w", q.name, ctx.Err())
	}
}

// Receive blocks indefinitely until a token is available or ctx is
// cancelled.
func (q *Queue) Receive(ctx context.Context) (Token, error) {
	select {
	case tok := <-q.ch:
		return tok, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("framepipeline: receive from %q cancelled: %w", q.name, ctx.Err())
	}
}

// ReceiveTimeout blocks until a token is available or timeout elapses,
// returning ErrTimeout in the latter case. The write stage uses this to
// drain selected frames in bursts without missing its own release
// deadline, and as a graceful-shutdown signal once the sequencer stops
// releasing new work.
func (q *Queue) ReceiveTimeout(ctx context.Context, timeout time.Duration) (Token, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case tok := <-q.ch:
		return tok, nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, fmt.Errorf("framepipeline: receive from %q cancelled: %w", q.name, ctx.Err())
	}
}

// Len reports the number of tokens currently buffered in the queue. It is
// a diagnostic snapshot for the control endpoint's /status handler, not a
// value any stage should make scheduling decisions on.
func (q *Queue) Len() int { return len(q.ch) }

// Pipeline owns the Frame[N] array and the four queues that move tokens
// between capture, difference, select, and write (plus the optional
// blurred queue, present only when a blur stage is configured).
type Pipeline struct {
	Frames []Frame

	Available  *Queue
	Captured   *Queue
	Differenced *Queue
	Selected   *Queue
	Blurred    *Queue // nil unless a blur stage is configured.
}

// New allocates a Pipeline with frameCount frame slots, each with the
// given width/height/bytes-per-pixel, and capacity-frameCount queues.
// frameCount must be at least 2 (spec.md's boundary: the difference stage
// needs a distinct previous/current pointer pair to be meaningful).
func New(frameCount, width, height, bytesPerPixel int, withBlur bool) (*Pipeline, error) {
	if frameCount < 2 {
		return nil, fmt.Errorf("framepipeline: frame count %d is invalid, need at least 2", frameCount)
	}

	p := &Pipeline{
		Frames:      make([]Frame, frameCount),
		Available:   newQueue("available", frameCount),
		Captured:    newQueue("captured", frameCount),
		Differenced: newQueue("differenced", frameCount),
		Selected:    newQueue("selected", frameCount),
	}
	if withBlur {
		p.Blurred = newQueue("blurred", frameCount)
	}

	stride := width * bytesPerPixel
	for i := range p.Frames {
		p.Frames[i].Buffer = make([]byte, stride*height)
		p.Frames[i].Gray = make([]byte, width*height)
		p.Frames[i].Width = width
		p.Frames[i].Height = height
	}
	return p, nil
}

// Seed primes the available queue with every slot's token, in index
// order. Callers do this once, before starting the capture stage, so
// that capture's first work invocation has somewhere to dequeue from.
func (p *Pipeline) Seed(ctx context.Context) error {
	for i := range p.Frames {
		if err := p.Available.Send(ctx, Token(i)); err != nil {
			return err
		}
	}
	return nil
}

// Frame returns a pointer to the frame slot identified by tok. The
// pointer is stable for the process lifetime; callers must only mutate
// it while they hold tok (i.e. between dequeuing it from one queue and
// enqueuing it into the next).
func (p *Pipeline) Frame(tok Token) *Frame {
	return &p.Frames[tok]
}

// FrameCount returns the number of frame slots the pipeline owns (N in
// spec.md's notation).
func (p *Pipeline) FrameCount() int {
	return len(p.Frames)
}

// Occupancy is a diagnostic snapshot of every queue's current length,
// used by the control endpoint and by tests asserting pool conservation
// (spec.md §8, "pool conservation").
type Occupancy struct {
	Available   int
	Captured    int
	Differenced int
	Selected    int
	Blurred     int
}

// Snapshot returns the current Occupancy. The sum of its fields plus
// whatever tokens are held on stage stacks at the instant of the call
// equals FrameCount(); because stages can be mid-work, Snapshot is a
// diagnostic approximation, not a consistency check.
func (p *Pipeline) Snapshot() Occupancy {
	o := Occupancy{
		Available:   p.Available.Len(),
		Captured:    p.Captured.Len(),
		Differenced: p.Differenced.Len(),
		Selected:    p.Selected.Len(),
	}
	if p.Blurred != nil {
		o.Blurred = p.Blurred.Len()
	}
	return o
}
