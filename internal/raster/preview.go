package raster

import (
	"github.com/nfnt/resize"
)

// PreviewFrame downscales a frame so the live preview stays cheap on large
// sources. Frames already inside the bounds are returned as-is.
func PreviewFrame(f *Frame, maxWidth, maxHeight int) *Frame {
	if maxWidth <= 0 || maxHeight <= 0 {
		return f
	}
	if f.Width <= maxWidth && f.Height <= maxHeight {
		return f
	}
	img := resize.Thumbnail(uint(maxWidth), uint(maxHeight), f.ToImage(), resize.Bilinear)
	return FromImage(img)
}
