// Package raster implements the in-memory pixel buffer the remapping engine
// reads from and writes to, together with its PNM wire format.
//
// A buffer holds 1 or 3 channels at 8 or 16 bits per channel, row-major and
// channel-interleaved. Reads outside the pixel grid return 0 (black padding)
// and writes outside it are silently dropped, which lets the resampling code
// run without explicit edge handling.
package raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrFormat is the root of all input-format failures: malformed headers,
// unsupported sample sizes, or impossible dimensions.
var ErrFormat = errors.New("invalid raster format")

// Image is a bounds-checked pixel buffer. 16-bit samples are stored
// big-endian within their two-byte slot.
type Image struct {
	Width    int
	Height   int
	Channels int // 1 (intensity) or 3 (RGB)
	Depth    int // bits per channel, 8 or 16
	Data     []byte
}

// New allocates a zeroed image with the given geometry.
func New(width, height, channels, depth int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrFormat, width, height)
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: %d channels (must be 1 or 3)", ErrFormat, channels)
	}
	if depth != 8 && depth != 16 {
		return nil, fmt.Errorf("%w: %d-bit depth (must be 8 or 16)", ErrFormat, depth)
	}
	// The buffer length must always match the declared geometry; a product
	// that wraps around would allocate a short buffer instead of failing.
	bytesPerPixel := channels * depth / 8
	if width > math.MaxInt/height || width*height > math.MaxInt/bytesPerPixel {
		return nil, fmt.Errorf("%w: dimensions %dx%d overflow the pixel buffer", ErrFormat, width, height)
	}
	img := &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Depth:    depth,
	}
	img.Data = make([]byte, width*height*channels*img.ChannelSize())
	return img, nil
}

// ChannelSize returns the number of bytes per sample.
func (img *Image) ChannelSize() int {
	if img.Depth == 16 {
		return 2
	}
	return 1
}

// MaxValue returns the largest representable sample value.
func (img *Image) MaxValue() int {
	if img.Depth == 16 {
		return 65535
	}
	return 255
}

func (img *Image) offset(x, y, channel int) int {
	return img.ChannelSize() * (img.Channels*(y*img.Width+x) + channel)
}

// At returns the sample at integer coordinates, or 0 outside the grid.
func (img *Image) At(x, y, channel int) int {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return 0
	}
	pos := img.offset(x, y, channel)
	if img.Depth == 16 {
		return int(img.Data[pos])<<8 | int(img.Data[pos+1])
	}
	return int(img.Data[pos])
}

// Sample returns the bilinearly interpolated sample at fractional
// coordinates. The four integer neighbours are fetched through At, so
// neighbours beyond the grid contribute 0.
func (img *Image) Sample(x, y float64, channel int) int {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - math.Floor(x)
	fy := y - math.Floor(y)

	p00 := float64(img.At(x0, y0, channel))
	p10 := float64(img.At(x0+1, y0, channel))
	p01 := float64(img.At(x0, y0+1, channel))
	p11 := float64(img.At(x0+1, y0+1, channel))

	top := (1-fx)*p00 + fx*p10
	bottom := (1-fx)*p01 + fx*p11
	return int(math.Round((1-fy)*top + fy*bottom))
}

// Set stores a sample at integer coordinates, truncated to the channel
// depth. Writes outside the grid are dropped.
//
// The historical C implementation masked the 16-bit low byte with `& 256`
// instead of `& 255`, zeroing it for almost all values. That is treated as
// a bug, not a format property; the correct mask is used here.
func (img *Image) Set(x, y, channel, value int) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return
	}
	pos := img.offset(x, y, channel)
	if img.Depth == 16 {
		img.Data[pos] = byte(value >> 8)
		img.Data[pos+1] = byte(value & 0xFF)
		return
	}
	img.Data[pos] = byte(value)
}
