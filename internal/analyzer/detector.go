package analyzer

import (
	"image"

	"github.com/ivlev/spritegrid/internal/raster"
)

// Row is a horizontal band of occupied scanlines, StartY and EndY inclusive.
type Row struct {
	StartY int
	EndY   int
}

// Height returns the number of scanlines in the row.
func (r Row) Height() int {
	return r.EndY - r.StartY + 1
}

// BoundingBox is a detected sprite. RowIndex is the position of its Row in the
// segmenter output.
type BoundingBox struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	RowIndex int `json:"row"`
}

// Rect converts the box into an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Detector is the interface for sprite segmentation strategies
type Detector interface {
	Detect(buf *raster.Buffer) ([]BoundingBox, error)
}
