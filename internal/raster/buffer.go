// Package raster holds the decoded spritesheet pixels and the background sampler.
//
// A Buffer is built once per upload and never written to afterwards, so the
// segmenter, the sampler and the playback engine can share the same value
// across goroutines without locking.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when uploaded bytes are not an image the host can decode.
var ErrDecode = errors.New("decode image")

// Buffer is an immutable width x height RGBA pixel buffer.
type Buffer struct {
	width  int
	height int
	pix    []uint8
}

// NewBuffer copies pix (RGBA, stride width*4) into a new Buffer.
func NewBuffer(width, height int, pix []uint8) (*Buffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel data length %d does not match %dx%d", len(pix), width, height)
	}
	owned := make([]uint8, len(pix))
	copy(owned, pix)
	return &Buffer{width: width, height: height, pix: owned}, nil
}

// FromImage converts any image into a Buffer whose origin is (0,0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Buffer{width: bounds.Dx(), height: bounds.Dy(), pix: rgba.Pix}
}

// Decode reads an encoded image and returns its pixels together with the format name.
func Decode(r io.Reader) (*Buffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return FromImage(img), format, nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) (*Buffer, string, error) {
	return Decode(bytes.NewReader(data))
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Bounds returns the pixel rectangle, always anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// At returns the RGB color at (x, y). Callers must stay inside Bounds.
func (b *Buffer) At(x, y int) Color {
	i := (y*b.width + x) * 4
	return Color{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2]}
}

// Image exposes the buffer through image.Image without copying. The view is read-only.
func (b *Buffer) Image() image.Image {
	return view{b}
}

type view struct{ b *Buffer }

func (v view) ColorModel() color.Model { return color.RGBAModel }

func (v view) Bounds() image.Rectangle { return v.b.Bounds() }

func (v view) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(v.b.Bounds()) {
		return color.RGBA{}
	}
	i := (y*v.b.width + x) * 4
	p := v.b.pix[i : i+4 : i+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
