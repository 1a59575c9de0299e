package raster

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToImage_Gray8(t *testing.T) {
	img, err := New(3, 2, 1, 8)
	require.NoError(t, err)
	img.Set(2, 1, 0, 77)

	std := img.ToImage()
	gray, ok := std.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, 3, gray.Bounds().Dx())
	assert.Equal(t, uint8(77), gray.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
}

func TestToImage_Gray16(t *testing.T) {
	img, err := New(2, 2, 1, 16)
	require.NoError(t, err)
	img.Set(1, 0, 0, 0x1234)

	gray, ok := img.ToImage().(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), gray.Gray16At(1, 0).Y)
}

func TestToImage_RGB8(t *testing.T) {
	img, err := New(2, 1, 3, 8)
	require.NoError(t, err)
	img.Set(0, 0, 0, 10)
	img.Set(0, 0, 1, 20)
	img.Set(0, 0, 2, 30)

	rgba, ok := img.ToImage().(*image.RGBA)
	require.True(t, ok)
	c := rgba.RGBAAt(0, 0)
	assert.Equal(t, uint8(10), c.R)
	assert.Equal(t, uint8(20), c.G)
	assert.Equal(t, uint8(30), c.B)
	assert.Equal(t, uint8(255), c.A)
}

func TestToImage_RGB16(t *testing.T) {
	img, err := New(1, 1, 3, 16)
	require.NoError(t, err)
	img.Set(0, 0, 1, 40000)

	rgba, ok := img.ToImage().(*image.RGBA64)
	require.True(t, ok)
	assert.Equal(t, uint16(40000), rgba.RGBA64At(0, 0).G)
}
