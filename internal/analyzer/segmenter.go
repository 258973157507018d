package analyzer

import (
	"fmt"

	"github.com/ivlev/spritegrid/internal/raster"
)

// Params controls how the row/column segmenter separates sprites from the background.
type Params struct {
	Background raster.Color
	Tolerance  int // per-channel distance still counted as background, 0-255
	MinWidth   int // narrower column runs are dropped
	MinHeight  int // shorter row runs are dropped
}

// DefaultParams returns the extractor defaults: white background, tolerance 30, 20x20 minimum.
func DefaultParams() Params {
	return Params{
		Background: raster.White,
		Tolerance:  30,
		MinWidth:   20,
		MinHeight:  20,
	}
}

// Normalize clamps the tolerance into 0-255 and raises the minimum sizes to 1.
func (p Params) Normalize() Params {
	if p.Tolerance < 0 {
		p.Tolerance = 0
	}
	if p.Tolerance > 255 {
		p.Tolerance = 255
	}
	if p.MinWidth < 1 {
		p.MinWidth = 1
	}
	if p.MinHeight < 1 {
		p.MinHeight = 1
	}
	return p
}

// RowColumnSegmenter finds sprites with two run-length passes: first over
// scanlines to find rows, then over the columns inside each row.
type RowColumnSegmenter struct {
	Params Params
}

// NewRowColumnSegmenter creates a segmenter with normalized params
func NewRowColumnSegmenter(params Params) *RowColumnSegmenter {
	return &RowColumnSegmenter{Params: params.Normalize()}
}

// Detect returns sprite boxes in discovery order: rows top to bottom, boxes
// left to right within each row.
func (s *RowColumnSegmenter) Detect(buf *raster.Buffer) ([]BoundingBox, error) {
	if buf == nil {
		return nil, fmt.Errorf("segment: nil buffer")
	}

	boxes := []BoundingBox{}
	for i, row := range s.Rows(buf) {
		boxes = append(boxes, s.spritesInRow(buf, row, i)...)
	}
	return boxes, nil
}

// Rows runs only the scanline pass.
func (s *RowColumnSegmenter) Rows(buf *raster.Buffer) []Row {
	p := s.Params.Normalize()
	rows := []Row{}
	if buf == nil {
		return rows
	}

	inRow := false
	startY := 0
	for y := 0; y < buf.Height(); y++ {
		occupied := false
		for x := 0; x < buf.Width(); x++ {
			if !s.isBackground(buf, x, y) {
				occupied = true
				break
			}
		}

		switch {
		case occupied && !inRow:
			inRow = true
			startY = y
		case !occupied && inRow:
			inRow = false
			if row := (Row{StartY: startY, EndY: y - 1}); row.Height() >= p.MinHeight {
				rows = append(rows, row)
			}
		}
	}
	// A run touching the bottom edge closes exactly like an interior one.
	if inRow {
		if row := (Row{StartY: startY, EndY: buf.Height() - 1}); row.Height() >= p.MinHeight {
			rows = append(rows, row)
		}
	}
	return rows
}

func (s *RowColumnSegmenter) spritesInRow(buf *raster.Buffer, row Row, rowIndex int) []BoundingBox {
	p := s.Params.Normalize()
	var boxes []BoundingBox

	emit := func(startX, endX int) {
		if w := endX - startX; w >= p.MinWidth {
			boxes = append(boxes, BoundingBox{
				X:        startX,
				Y:        row.StartY,
				Width:    w,
				Height:   row.Height(),
				RowIndex: rowIndex,
			})
		}
	}

	inSprite := false
	startX := 0
	for x := 0; x < buf.Width(); x++ {
		occupied := false
		for y := row.StartY; y <= row.EndY; y++ {
			if !s.isBackground(buf, x, y) {
				occupied = true
				break
			}
		}

		switch {
		case occupied && !inSprite:
			inSprite = true
			startX = x
		case !occupied && inSprite:
			inSprite = false
			emit(startX, x)
		}
	}
	if inSprite {
		emit(startX, buf.Width())
	}
	return boxes
}

func (s *RowColumnSegmenter) isBackground(buf *raster.Buffer, x, y int) bool {
	return buf.At(x, y).Within(s.Params.Background, s.Params.Tolerance)
}
