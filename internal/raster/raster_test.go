package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		channels int
		depth    int
		wantErr  bool
	}{
		{"gray 8-bit", 10, 10, 1, 8, false},
		{"rgb 16-bit", 4, 3, 3, 16, false},
		{"zero width", 0, 10, 1, 8, true},
		{"negative height", 10, -1, 1, 8, true},
		{"two channels", 10, 10, 2, 8, true},
		{"four channels", 10, 10, 4, 8, true},
		{"12-bit depth", 10, 10, 1, 12, true},
		{"pixel count overflows", 1 << 62, 4, 1, 8, true},
		{"byte size overflows", 1 << 31, 1 << 31, 3, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := New(tt.w, tt.h, tt.channels, tt.depth)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Len(t, img.Data, tt.w*tt.h*tt.channels*img.ChannelSize())
		})
	}
}

func TestSetGet_RoundTrip8(t *testing.T) {
	img, err := New(5, 4, 3, 8)
	require.NoError(t, err)

	img.Set(2, 3, 1, 200)
	assert.Equal(t, 200, img.At(2, 3, 1))

	// Values beyond the depth are truncated to the low byte.
	img.Set(1, 1, 0, 0x1FF)
	assert.Equal(t, 0xFF, img.At(1, 1, 0))
}

func TestSetGet_RoundTrip16(t *testing.T) {
	img, err := New(5, 4, 1, 16)
	require.NoError(t, err)

	img.Set(4, 0, 0, 0xABCD)
	assert.Equal(t, 0xABCD, img.At(4, 0, 0))

	// Big-endian byte order within the sample slot.
	pos := img.offset(4, 0, 0)
	assert.Equal(t, byte(0xAB), img.Data[pos])
	assert.Equal(t, byte(0xCD), img.Data[pos+1])

	// Odd low bytes survive; a wrong mask here (the historical & 256 bug)
	// would zero them.
	img.Set(0, 0, 0, 257)
	assert.Equal(t, 257, img.At(0, 0, 0))
}

func TestAt_OutOfBoundsReturnsZero(t *testing.T) {
	img, err := New(3, 3, 1, 8)
	require.NoError(t, err)
	for i := range img.Data {
		img.Data[i] = 0xFF
	}

	coords := [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {-100, -100}, {1000, 1000}}
	for _, c := range coords {
		assert.Equal(t, 0, img.At(c[0], c[1], 0), "at (%d,%d)", c[0], c[1])
	}
}

func TestSet_OutOfBoundsIgnored(t *testing.T) {
	img, err := New(3, 3, 1, 8)
	require.NoError(t, err)

	img.Set(-1, 0, 0, 99)
	img.Set(3, 0, 0, 99)
	img.Set(0, 3, 0, 99)
	for _, b := range img.Data {
		assert.Equal(t, byte(0), b)
	}
}

func TestSample_DegeneratesAtGridPoints(t *testing.T) {
	img, err := New(4, 4, 1, 8)
	require.NoError(t, err)
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, 0, (x*37+y*91)%256)
		}
	}

	for y := range 4 {
		for x := range 4 {
			assert.Equal(t, img.At(x, y, 0), img.Sample(float64(x), float64(y), 0))
		}
	}
}

func TestSample_Midpoint(t *testing.T) {
	img, err := New(2, 2, 1, 8)
	require.NoError(t, err)
	img.Set(0, 0, 0, 0)
	img.Set(1, 0, 0, 100)
	img.Set(0, 1, 0, 50)
	img.Set(1, 1, 0, 150)

	// (0.5, 0): horizontal lerp only.
	assert.Equal(t, 50, img.Sample(0.5, 0, 0))
	// (0, 0.5): vertical lerp only.
	assert.Equal(t, 25, img.Sample(0, 0.5, 0))
	// Center: mean of all four, rounded.
	assert.Equal(t, 75, img.Sample(0.5, 0.5, 0))
}

func TestSample_EdgeBlendsToBlack(t *testing.T) {
	img, err := New(2, 2, 1, 8)
	require.NoError(t, err)
	img.Set(1, 1, 0, 200)

	// Right neighbour of (1,1) lies outside the grid and contributes 0.
	assert.Equal(t, 100, img.Sample(1.5, 1, 0))
	// Fully outside.
	assert.Equal(t, 0, img.Sample(-2, -2, 0))
}

func TestSample_PerChannel(t *testing.T) {
	img, err := New(2, 1, 3, 16)
	require.NoError(t, err)
	img.Set(0, 0, 0, 1000)
	img.Set(1, 0, 0, 2000)
	img.Set(0, 0, 2, 60000)
	img.Set(1, 0, 2, 50000)

	assert.Equal(t, 1500, img.Sample(0.5, 0, 0))
	assert.Equal(t, 0, img.Sample(0.5, 0, 1))
	assert.Equal(t, 55000, img.Sample(0.5, 0, 2))
}
