package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSampleBackgroundPlurality(t *testing.T) {
	img := solid(10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	// Paint three of the eight probes red: two corners and the top midpoint.
	red := color.RGBA{R: 200, A: 255}
	img.SetRGBA(0, 0, red)
	img.SetRGBA(9, 0, red)
	img.SetRGBA(5, 0, red)

	got := SampleBackground(FromImage(img))
	if got != White {
		t.Fatalf("background = %v, want %v", got, White)
	}
}

func TestSampleBackgroundTieGoesToFirstSample(t *testing.T) {
	img := solid(10, 10, color.RGBA{G: 100, A: 255})
	blue := color.RGBA{B: 100, A: 255}
	// Corners sampled first become blue, the four midpoints stay green.
	for _, p := range [][2]int{{0, 0}, {9, 0}, {0, 9}, {9, 9}} {
		img.SetRGBA(p[0], p[1], blue)
	}

	got := SampleBackground(FromImage(img))
	want := Color{B: 100}
	if got != want {
		t.Fatalf("background = %v, want %v", got, want)
	}
}

func TestSampleBackgroundTinyImages(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"1x1", 1, 1},
		{"1x5", 1, 5},
		{"5x1", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solid(tt.w, tt.h, color.RGBA{R: 7, G: 8, B: 9, A: 255})
			got := SampleBackground(FromImage(img))
			if got != (Color{R: 7, G: 8, B: 9}) {
				t.Errorf("background = %v", got)
			}
		})
	}
}

func TestColorWithin(t *testing.T) {
	base := Color{R: 100, G: 100, B: 100}
	tests := []struct {
		other Color
		tol   int
		want  bool
	}{
		{Color{R: 110, G: 90, B: 100}, 10, true},
		{Color{R: 111, G: 100, B: 100}, 10, false},
		{Color{R: 100, G: 100, B: 89}, 10, false},
		{Color{R: 100, G: 100, B: 100}, 0, true},
	}
	for _, tt := range tests {
		if got := base.Within(tt.other, tt.tol); got != tt.want {
			t.Errorf("Within(%v, %d) = %v, want %v", tt.other, tt.tol, got, tt.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#ff8000", Color{R: 255, G: 128}, false},
		{"00ff00", Color{G: 255}, false},
		{"255, 255, 255", White, false},
		{"#fff", Color{}, true},
		{"1,2", Color{}, true},
		{"1,2,300", Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if White.Hex() != "#ffffff" {
		t.Errorf("Hex() = %s", White.Hex())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := DecodeBytes([]byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestDecodePNG(t *testing.T) {
	img := solid(4, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	b, format, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %s, want png", format)
	}
	if b.Width() != 4 || b.Height() != 3 {
		t.Errorf("size = %dx%d, want 4x3", b.Width(), b.Height())
	}
	if got := b.At(3, 2); got != (Color{R: 1, G: 2, B: 3}) {
		t.Errorf("At(3,2) = %v", got)
	}
}

func TestNewBufferCopiesPixels(t *testing.T) {
	pix := make([]uint8, 2*2*4)
	b, err := NewBuffer(2, 2, pix)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	pix[0] = 99
	if b.At(0, 0).R != 0 {
		t.Fatal("buffer shares caller memory")
	}
	if _, err := NewBuffer(2, 2, pix[:3]); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
