// Package imageio holds the pure numeric and encoding helpers the
// difference, select, write, and blur stages lean on: RGB-to-grayscale
// conversion, absolute-sum differencing, a box blur, and a PPM encoder.
//
// None of these correspond to a third-party library anywhere in the
// example pack (the pack's image-adjacent code either decodes video via
// GStreamer or is ONNX tensor plumbing); PPM in particular is a header
// plus raw samples, not a format any dependency in the pack encodes, so
// this package is deliberately stdlib-only.
package imageio

import (
	"fmt"
	"io"
)

// Grayscale converts an interleaved RGB buffer (width*height*3 bytes)
// into a single-channel luma buffer (width*height bytes), reusing dst's
// backing array when it is large enough.
func Grayscale(rgb []byte, width, height int, dst []byte) []byte {
	n := width * height
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		r := int(rgb[i*3])
		g := int(rgb[i*3+1])
		b := int(rgb[i*3+2])
		dst[i] = byte((299*r + 587*g + 114*b) / 1000)
	}
	return dst
}

// AbsoluteDifference sums the per-pixel absolute difference between two
// equal-length grayscale buffers.
func AbsoluteDifference(a, b []byte) int64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum int64
	for i := 0; i < n; i++ {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		sum += int64(d)
	}
	return sum
}

// MaxDifference returns the largest possible AbsoluteDifference result
// for a width x height grayscale frame (every pixel saturated at 255).
func MaxDifference(width, height int) int64 {
	return int64(width) * int64(height) * 255
}

// BoxBlur applies an in-place mean filter of the given radius (a
// (2*radius+1)^2 window) to an interleaved RGB buffer.
func BoxBlur(rgb []byte, width, height, radius int) {
	if radius <= 0 || width <= 0 || height <= 0 {
		return
	}
	src := make([]byte, len(rgb))
	copy(src, rgb)

	for y := 0; y < height; y++ {
		yMin, yMax := y-radius, y+radius
		if yMin < 0 {
			yMin = 0
		}
		if yMax >= height {
			yMax = height - 1
		}
		for x := 0; x < width; x++ {
			xMin, xMax := x-radius, x+radius
			if xMin < 0 {
				xMin = 0
			}
			if xMax >= width {
				xMax = width - 1
			}

			var sumR, sumG, sumB, count int
			for yy := yMin; yy <= yMax; yy++ {
				row := yy * width
				for xx := xMin; xx <= xMax; xx++ {
					idx := (row + xx) * 3
					sumR += int(src[idx])
					sumG += int(src[idx+1])
					sumB += int(src[idx+2])
					count++
				}
			}
			idx := (y*width + x) * 3
			rgb[idx] = byte(sumR / count)
			rgb[idx+1] = byte(sumG / count)
			rgb[idx+2] = byte(sumB / count)
		}
	}
}

// EncodePPM writes rgb (an interleaved width*height*3 buffer) to w as a
// binary PPM (P6) image.
func EncodePPM(w io.Writer, rgb []byte, width, height int) error {
	need := width * height * 3
	if len(rgb) < need {
		return fmt.Errorf("imageio: buffer has %d bytes, need %d for a %dx%d RGB frame", len(rgb), need, width, height)
	}
	header := fmt.Sprintf("P6\n%d %d\n255\n", width, height)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("imageio: writing PPM header: %w", err)
	}
	if _, err := w.Write(rgb[:need]); err != nil {
		return fmt.Errorf("imageio: writing PPM pixel data: %w", err)
	}
	return nil
}
