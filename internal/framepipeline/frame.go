package framepipeline

import "time"

// Token is a stable reference to one Frame slot in a Pipeline's pool. It
// is an index, not a pointer: indices survive serialization and logging
// trivially and eliminate the lifetime questions a raw pointer into a
// fixed array would raise.
type Token uint16

// Frame is a fixed-size record owning a pixel buffer plus the metadata
// the difference and select stages annotate it with. Frames are
// allocated once, in an array of size N, and never moved; stages mutate
// a Frame's fields only while holding its Token.
type Frame struct {
	// Buffer holds raw pixel data. Its length and interpretation (width,
	// height, stride) are fixed for the lifetime of the Pipeline and set
	// by whichever camera.Source is configured.
	Buffer []byte

	// Gray is a reusable grayscale scratch buffer (width*height bytes)
	// the difference stage converts Buffer into. It is owned by whichever
	// slot's Frame it lives on, so converting never allocates once the
	// pipeline has warmed up.
	Gray []byte

	// Width and Height describe Buffer's dimensions in pixels.
	Width  int
	Height int

	// DifferenceAbsolute is the absolute-sum grayscale difference against
	// the previous captured frame, computed by the difference stage.
	DifferenceAbsolute int64

	// DifferencePercentage is DifferenceAbsolute normalized against the
	// maximum possible difference for this frame size, in [0, 100].
	DifferencePercentage float64

	// CapturedAt is the realtime timestamp the capture stage recorded
	// when it filled this slot.
	CapturedAt time.Time

	// RequestID is the capture stage's request counter at the moment
	// this slot was filled; threaded through to the metadata sidecar and
	// telemetry emitter for traceability.
	RequestID uint64
}

// Reset clears a Frame's metadata fields (not Buffer, which the camera
// source overwrites in place). The pipeline stages do not call it: the
// capture stage overwrites RequestID, and CapturedAt after each
// successful read, directly.
func (f *Frame) Reset() {
	f.DifferenceAbsolute = 0
	f.DifferencePercentage = 0
	f.CapturedAt = time.Time{}
	f.RequestID = 0
}
