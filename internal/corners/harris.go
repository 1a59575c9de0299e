package corners

import (
	"image"
	"math"
)

// grid is a dense response map with integer values in [0, 255].
type grid struct {
	w, h int
	data []int
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, data: make([]int, w*h)}
}

func (g *grid) at(x, y int) int { return g.data[y*g.w+x] }

// fgrid is the floating-point intermediate used for gradients and the raw
// Harris response.
type fgrid struct {
	w, h int
	data []float64
}

func newFgrid(w, h int) *fgrid {
	return &fgrid{w: w, h: h, data: make([]float64, w*h)}
}

func (g *fgrid) at(x, y int) float64 {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return 0
	}
	return g.data[y*g.w+x]
}

func (g *fgrid) set(x, y int, v float64) { g.data[y*g.w+x] = v }

// luminance extracts a float intensity grid from a grayscale RGBA image.
func luminance(img *image.RGBA) *fgrid {
	b := img.Bounds()
	g := newFgrid(b.Dx(), b.Dy())
	for y := range g.h {
		for x := range g.w {
			// Grayscale output stores the intensity in every channel.
			g.set(x, y, float64(img.RGBAAt(b.Min.X+x, b.Min.Y+y).R))
		}
	}
	return g
}

// harrisResponse computes the Harris corner measure det(M) - k*trace(M)^2
// with Sobel gradients and a 2x2 summation window for the structure tensor.
func harrisResponse(lum *fgrid, k float64) *fgrid {
	w, h := lum.w, lum.h
	ix := newFgrid(w, h)
	iy := newFgrid(w, h)

	for y := range h {
		for x := range w {
			gx := -lum.at(x-1, y-1) + lum.at(x+1, y-1) +
				-2*lum.at(x-1, y) + 2*lum.at(x+1, y) +
				-lum.at(x-1, y+1) + lum.at(x+1, y+1)
			gy := -lum.at(x-1, y-1) - 2*lum.at(x, y-1) - lum.at(x+1, y-1) +
				lum.at(x-1, y+1) + 2*lum.at(x, y+1) + lum.at(x+1, y+1)
			ix.set(x, y, gx)
			iy.set(x, y, gy)
		}
	}

	resp := newFgrid(w, h)
	for y := range h {
		for x := range w {
			var sxx, syy, sxy float64
			for dy := range 2 {
				for dx := range 2 {
					gx := ix.at(x+dx, y+dy)
					gy := iy.at(x+dx, y+dy)
					sxx += gx * gx
					syy += gy * gy
					sxy += gx * gy
				}
			}
			det := sxx*syy - sxy*sxy
			trace := sxx + syy
			resp.set(x, y, det-k*trace*trace)
		}
	}
	return resp
}

// normalize rescales the response onto 0..255. A flat response maps to all
// zeros.
func normalize(resp *fgrid) *grid {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range resp.data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := newGrid(resp.w, resp.h)
	if hi <= lo {
		return out
	}
	scale := 255 / (hi - lo)
	for i, v := range resp.data {
		out.data[i] = int((v - lo) * scale)
	}
	return out
}
