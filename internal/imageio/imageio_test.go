package imageio

import (
	"bytes"
	"testing"
)

func TestGrayscaleFlatColor(t *testing.T) {
	rgb := []byte{100, 100, 100, 100, 100, 100}
	gray := Grayscale(rgb, 2, 1, nil)
	if len(gray) != 2 {
		t.Fatalf("len(gray) = %d, want 2", len(gray))
	}
	for i, v := range gray {
		if v != 100 {
			t.Errorf("gray[%d] = %d, want 100", i, v)
		}
	}
}

func TestAbsoluteDifferenceZeroForIdenticalBuffers(t *testing.T) {
	a := []byte{10, 20, 30}
	b := []byte{10, 20, 30}
	if got := AbsoluteDifference(a, b); got != 0 {
		t.Errorf("AbsoluteDifference = %d, want 0", got)
	}
}

func TestAbsoluteDifferenceAndMaxDifferenceBounds(t *testing.T) {
	a := []byte{0, 0, 0, 0}
	b := []byte{255, 255, 255, 255}
	max := MaxDifference(2, 2)
	got := AbsoluteDifference(a, b)
	if got != max {
		t.Errorf("AbsoluteDifference = %d, want %d (= MaxDifference)", got, max)
	}
	percentage := 100 * float64(got) / float64(max)
	if percentage < 0 || percentage > 100 {
		t.Errorf("percentage = %f, out of [0, 100]", percentage)
	}
}

func TestEncodePPMHeaderAndPayload(t *testing.T) {
	rgb := []byte{1, 2, 3, 4, 5, 6}
	var buf bytes.Buffer
	if err := EncodePPM(&buf, rgb, 2, 1); err != nil {
		t.Fatalf("EncodePPM: %v", err)
	}
	want := "P6\n2 1\n255\n" + string(rgb)
	if buf.String() != want {
		t.Errorf("EncodePPM output = %q, want %q", buf.String(), want)
	}
}

func TestEncodePPMRejectsShortBuffer(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePPM(&buf, []byte{1, 2, 3}, 2, 2); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestBoxBlurPreservesFlatField(t *testing.T) {
	rgb := make([]byte, 5*5*3)
	for i := range rgb {
		rgb[i] = 42
	}
	BoxBlur(rgb, 5, 5, 1)
	for i, v := range rgb {
		if v != 42 {
			t.Fatalf("rgb[%d] = %d, want 42 (blur of a flat field is a no-op)", i, v)
		}
	}
}
