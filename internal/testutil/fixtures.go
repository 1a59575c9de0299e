package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/platen/internal/raster"
)

// NewGradientRaster builds a raster whose samples vary smoothly with
// position, useful for checking that resampling preserves structure.
func NewGradientRaster(width, height, channels, depth int) (*raster.Image, error) {
	img, err := raster.New(width, height, channels, depth)
	if err != nil {
		return nil, err
	}
	maxVal := img.MaxValue()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				v := (x*3 + y*7 + c*11) % (maxVal + 1)
				img.Set(x, y, c, v)
			}
		}
	}
	return img, nil
}

// NewFlatRaster builds a raster with every sample set to value.
func NewFlatRaster(width, height, channels, depth, value int) (*raster.Image, error) {
	img, err := raster.New(width, height, channels, depth)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				img.Set(x, y, c, value)
			}
		}
	}
	return img, nil
}

// NewBrightRectRaster builds a dark 8-bit grayscale raster containing a
// bright axis-aligned rectangle, the shape the corner detector expects
// from a scanned sheet on a dark platen.
func NewBrightRectRaster(width, height, x0, y0, x1, y1 int) (*raster.Image, error) {
	img, err := raster.New(width, height, 1, 8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 20
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				v = 235
			}
			img.Set(x, y, 0, v)
		}
	}
	return img, nil
}

// NewLabeledImage renders label onto a light background. It gives CLI
// tests an input that is recognizably a document page rather than noise.
func NewLabeledImage(width, height int, label string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{240, 240, 240, 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{10, 10, 10, 255}),
		Face: face,
		Dot:  fixed.P(8, height/2),
	}
	d.DrawString(label)
	return img
}

// RastersEqual reports whether two rasters have identical geometry and
// sample data, with a short description of the first difference.
func RastersEqual(a, b *raster.Image) (bool, string) {
	if a.Width != b.Width || a.Height != b.Height {
		return false, fmt.Sprintf("size %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if a.Channels != b.Channels || a.Depth != b.Depth {
		return false, fmt.Sprintf("layout %dch/%dbit vs %dch/%dbit", a.Channels, a.Depth, b.Channels, b.Depth)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false, fmt.Sprintf("data differs at byte %d: %d vs %d", i, a.Data[i], b.Data[i])
		}
	}
	return true, ""
}
