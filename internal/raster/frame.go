// Package raster implements the in-memory color grading kernel used for live
// previews. It operates on plain interleaved RGBA buffers and never touches
// the external render engine.
package raster

import (
	"fmt"
	"image"
)

// Frame is an interleaved RGBA raster buffer. A frame is owned exclusively by
// whichever stage is transforming it; callers must not share one across
// concurrent transforms.
type Frame struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*4
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	return &Frame{Width: width, Height: height, Pix: make([]byte, width*height*4)}, nil
}

// FromImage copies an image into a new frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := &Frame{Width: b.Dx(), Height: b.Dy(), Pix: make([]byte, b.Dx()*b.Dy()*4)}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			f.Pix[i] = byte(r >> 8)
			f.Pix[i+1] = byte(g >> 8)
			f.Pix[i+2] = byte(bl >> 8)
			f.Pix[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return f
}

// ToImage wraps the frame buffer as an image.RGBA without copying.
func (f *Frame) ToImage() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

func (f *Frame) offset(x, y int) int {
	return (y*f.Width + x) * 4
}

// luminance is the weighted brightness estimate used to separate shadow,
// midtone and highlight regions.
func luminance(r, g, b byte) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
