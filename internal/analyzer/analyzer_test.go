package analyzer

import (
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/ivlev/spritegrid/internal/raster"
)

// sheet builds a white image of w x h and paints each rect black. Rect max
// bounds are exclusive, as in image.Rectangle.
func sheet(w, h int, rects ...image.Rectangle) *raster.Buffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return raster.FromImage(img)
}

func twoBlockSheet() *raster.Buffer {
	return sheet(40, 20,
		image.Rect(2, 2, 10, 11),
		image.Rect(20, 2, 30, 11),
	)
}

func scenarioParams() Params {
	return Params{Background: raster.White, Tolerance: 10, MinWidth: 5, MinHeight: 5}
}

func TestSegmenterTwoBlockScenario(t *testing.T) {
	seg := NewRowColumnSegmenter(scenarioParams())
	buf := twoBlockSheet()

	rows := seg.Rows(buf)
	if want := []Row{{StartY: 2, EndY: 10}}; !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v, want %+v", rows, want)
	}

	boxes, err := seg.Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := []BoundingBox{
		{X: 2, Y: 2, Width: 8, Height: 9, RowIndex: 0},
		{X: 20, Y: 2, Width: 10, Height: 9, RowIndex: 0},
	}
	if !reflect.DeepEqual(boxes, want) {
		t.Fatalf("boxes = %+v, want %+v", boxes, want)
	}
}

func TestSegmenterDeterministic(t *testing.T) {
	seg := NewRowColumnSegmenter(scenarioParams())
	buf := sheet(64, 64,
		image.Rect(1, 1, 12, 12),
		image.Rect(30, 3, 50, 14),
		image.Rect(5, 30, 20, 60),
		image.Rect(40, 40, 63, 64),
	)

	first, err := seg.Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := seg.Detect(buf)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestSegmenterContainment(t *testing.T) {
	params := Params{Background: raster.White, Tolerance: 0, MinWidth: 3, MinHeight: 4}
	// The full-height sliver on the left keeps every scanline occupied, so the
	// whole sheet is one row; the block at the right edge closes on the border.
	buf := sheet(50, 30,
		image.Rect(0, 0, 2, 30),
		image.Rect(10, 0, 20, 3),
		image.Rect(10, 5, 20, 12),
		image.Rect(45, 20, 50, 30),
	)
	seg := NewRowColumnSegmenter(params)

	boxes, err := seg.Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) == 0 {
		t.Fatal("Expected boxes, got none")
	}
	for i, b := range boxes {
		if b.Width < params.MinWidth || b.Height < params.MinHeight {
			t.Errorf("box %d below minimum: %+v", i, b)
		}
		if b.X < 0 || b.Y < 0 || b.X+b.Width > buf.Width() || b.Y+b.Height > buf.Height() {
			t.Errorf("box %d out of bounds: %+v", i, b)
		}
	}
}

func TestSegmenterClosesRunsAtImageEdges(t *testing.T) {
	params := Params{Background: raster.White, Tolerance: 0, MinWidth: 2, MinHeight: 2}
	buf := sheet(10, 10, image.Rect(6, 7, 10, 10))

	boxes, err := NewRowColumnSegmenter(params).Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := []BoundingBox{{X: 6, Y: 7, Width: 4, Height: 3, RowIndex: 0}}
	if !reflect.DeepEqual(boxes, want) {
		t.Fatalf("boxes = %+v, want %+v", boxes, want)
	}
}

func TestSegmenterToleratesNoise(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			// Background jitter within 8 levels.
			v := uint8(247 + (x+y)%8)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 100, A: 255})
		}
	}

	params := Params{Background: raster.White, Tolerance: 10, MinWidth: 1, MinHeight: 1}
	boxes, err := NewRowColumnSegmenter(params).Detect(raster.FromImage(img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := []BoundingBox{{X: 5, Y: 5, Width: 10, Height: 10}}
	if !reflect.DeepEqual(boxes, want) {
		t.Fatalf("boxes = %+v, want %+v", boxes, want)
	}
}

func TestSegmenterRowIndexFollowsEmittedRows(t *testing.T) {
	params := Params{Background: raster.White, Tolerance: 0, MinWidth: 1, MinHeight: 3}
	// The one-line sliver at the top is too short to become a row, so the
	// next band is row 0.
	buf := sheet(30, 30,
		image.Rect(0, 0, 5, 1),
		image.Rect(0, 5, 5, 10),
		image.Rect(10, 5, 15, 10),
		image.Rect(0, 20, 5, 25),
	)

	boxes, _ := NewRowColumnSegmenter(params).Detect(buf)
	if len(boxes) != 3 {
		t.Fatalf("got %d boxes, want 3: %+v", len(boxes), boxes)
	}
	if boxes[0].RowIndex != 0 || boxes[1].RowIndex != 0 || boxes[2].RowIndex != 1 {
		t.Errorf("unexpected row indices: %+v", boxes)
	}
}

func TestParamsNormalize(t *testing.T) {
	p := Params{Tolerance: 400, MinWidth: 0, MinHeight: -3}.Normalize()
	if p.Tolerance != 255 || p.MinWidth != 1 || p.MinHeight != 1 {
		t.Errorf("Normalize() = %+v", p)
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"avni", false},
		{"", false}, // default
		{"rowcol", false},
		{"contrast", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant, DefaultParams())

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}
