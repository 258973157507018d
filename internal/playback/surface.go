package playback

import (
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/ivlev/spritegrid/internal/system"
)

// ImageSurface renders into a pooled RGBA canvas. With Scale above 1 each
// frame is enlarged with nearest-neighbour sampling.
type ImageSurface struct {
	Scale int

	mu     sync.Mutex
	canvas *image.RGBA
	draws  int
	onDraw func(*image.RGBA)
}

func NewImageSurface(scale int) *ImageSurface {
	if scale < 1 {
		scale = 1
	}
	return &ImageSurface{Scale: scale}
}

// OnDraw registers a hook called with the canvas after every draw.
func (s *ImageSurface) OnDraw(fn func(*image.RGBA)) {
	s.mu.Lock()
	s.onDraw = fn
	s.mu.Unlock()
}

func (s *ImageSurface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rect := image.Rect(0, 0, w*s.Scale, h*s.Scale)
	if s.canvas != nil && s.canvas.Rect == rect {
		return
	}
	system.PutImage(s.canvas)
	s.canvas = system.GetImage(rect)
}

func (s *ImageSurface) Draw(src image.Image, from, to image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return
	}
	if s.Scale == 1 {
		draw.Copy(s.canvas, to.Min, src, from, draw.Src, nil)
	} else {
		dst := image.Rect(to.Min.X*s.Scale, to.Min.Y*s.Scale, to.Max.X*s.Scale, to.Max.Y*s.Scale)
		draw.NearestNeighbor.Scale(s.canvas, dst, src, from, draw.Src, nil)
	}
	s.draws++
	if s.onDraw != nil {
		s.onDraw(s.canvas)
	}
}

func (s *ImageSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	system.PutImage(s.canvas)
	s.canvas = nil
}

// Snapshot returns a copy of the current canvas, or nil after Clear.
func (s *ImageSurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return nil
	}
	out := image.NewRGBA(s.canvas.Rect)
	copy(out.Pix, s.canvas.Pix)
	return out
}

// Draws counts frames rendered since creation.
func (s *ImageSurface) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}
