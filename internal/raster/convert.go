package raster

import (
	"image"
	"image/color"
)

// ToImage converts the buffer to a standard library image so it can feed
// decoders-agnostic consumers like the corner detector.
func (img *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, img.Width, img.Height)

	switch {
	case img.Channels == 1 && img.Depth == 8:
		out := image.NewGray(rect)
		for y := range img.Height {
			for x := range img.Width {
				out.SetGray(x, y, color.Gray{Y: uint8(img.At(x, y, 0))})
			}
		}
		return out
	case img.Channels == 1:
		out := image.NewGray16(rect)
		for y := range img.Height {
			for x := range img.Width {
				out.SetGray16(x, y, color.Gray16{Y: uint16(img.At(x, y, 0))})
			}
		}
		return out
	case img.Depth == 8:
		out := image.NewRGBA(rect)
		for y := range img.Height {
			for x := range img.Width {
				out.SetRGBA(x, y, color.RGBA{
					R: uint8(img.At(x, y, 0)),
					G: uint8(img.At(x, y, 1)),
					B: uint8(img.At(x, y, 2)),
					A: 255,
				})
			}
		}
		return out
	default:
		out := image.NewRGBA64(rect)
		for y := range img.Height {
			for x := range img.Width {
				out.SetRGBA64(x, y, color.RGBA64{
					R: uint16(img.At(x, y, 0)),
					G: uint16(img.At(x, y, 1)),
					B: uint16(img.At(x, y, 2)),
					A: 65535,
				})
			}
		}
		return out
	}
}
