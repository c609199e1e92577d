// Package mockcamera is a camera.Source that never touches real
// hardware: it free-runs synthetic frames whose brightness drifts
// smoothly, or, when given a replay script, steps a flat grey level so
// that each frame's difference_percentage approximates the script's
// value for that frame. Each step is a whole grey level across the whole
// frame, so the percentages it produces are multiples of 100/255 (about
// 0.39); script values finer than that are only approximated.
package mockcamera

import (
	"context"
	"fmt"
	"math"
)

// Camera is a synthetic frame source.
type Camera struct {
	width, height int
	replayScript  []float64

	frame int
	level byte
}

// New constructs a mock camera. When replayScript is non-empty, Read
// moves a flat grayscale level by round(replayScript[N]/100*255) from
// the previous frame's level (from level 0 before the first frame),
// upward unless that would pass 255, and clamps it to [0, 255]; past the
// end of the script the last value repeats. The difference stage's
// percentage for frame N against frame N-1 is therefore replayScript[N]
// rounded to a multiple of 100/255. When replayScript is empty, Read
// instead free-runs a slow sinusoidal brightness sweep.
func New(width, height int, replayScript []float64) *Camera {
	return &Camera{width: width, height: height, replayScript: replayScript}
}

func (c *Camera) Width() int  { return c.width }
func (c *Camera) Height() int { return c.height }

// Open is a no-op: there is no hardware to initialize.
func (c *Camera) Open(ctx context.Context) error { return nil }

// Close is a no-op.
func (c *Camera) Close() error { return nil }

// Read fills dst with the next synthetic frame.
func (c *Camera) Read(ctx context.Context, dst []byte) error {
	need := c.width * c.height * 3
	if len(dst) != need {
		return fmt.Errorf("mockcamera: dst has %d bytes, want %d", len(dst), need)
	}

	var level byte
	if len(c.replayScript) > 0 {
		pct := 0.0
		if c.frame < len(c.replayScript) {
			pct = c.replayScript[c.frame]
		} else {
			pct = c.replayScript[len(c.replayScript)-1]
		}
		// Solve for the flat grayscale level L that makes
		// |L - c.level| * width * height / (width*height*255) == pct/100,
		// i.e. |L - c.level| == pct/100*255, walking upward from the
		// previous level so every frame after the first is reachable in
		// byte range.
		delta := int(math.Round(pct / 100 * 255))
		next := int(c.level) + delta
		if next > 255 {
			next = int(c.level) - delta
		}
		if next < 0 {
			next = 0
		}
		if next > 255 {
			next = 255
		}
		level = byte(next)
	} else {
		phase := float64(c.frame) * 0.05
		level = byte(127 + 64*math.Sin(phase))
	}

	for i := 0; i < c.width*c.height; i++ {
		dst[i*3] = level
		dst[i*3+1] = level
		dst[i*3+2] = level
	}

	c.level = level
	c.frame++
	return nil
}
