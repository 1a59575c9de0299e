// Package corners locates the four corners of a bright rectangular subject
// in a scanned image. It computes a Harris corner-response map, normalises
// it, and walks a threshold down until every image quadrant contains at
// least one response pixel; the per-quadrant centroids are the corners.
package corners

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/platen/internal/geometry"
)

// ErrDetection reports that no usable corner structure was found.
var ErrDetection = errors.New("corner detection failed")

// Options tunes the detector.
type Options struct {
	// K is the Harris sensitivity parameter.
	K float64
	// BlurRadius presmooths the image before gradient computation.
	BlurRadius float64
	// MaxSize caps the working resolution; larger inputs are scaled down
	// for detection and the results scaled back. 0 disables scaling.
	MaxSize int
}

// DefaultOptions returns the tuning used by the scanning pipeline.
func DefaultOptions() Options {
	return Options{
		K:          0.01,
		BlurRadius: 2,
		MaxSize:    1024,
	}
}

// Result holds the detection output in source-image pixel coordinates.
type Result struct {
	// Threshold is the normalized response level (0-255) at which every
	// quadrant first contains a corner candidate.
	Threshold int
	// Points are all candidates at or above Threshold.
	Points []geometry.Point
	// Corners are the per-quadrant centroids in TL, TR, BL, BR order,
	// ready to feed into rectification.
	Corners [4]geometry.Point
}

// Detect runs the corner pipeline on img.
func Detect(img image.Image, opts Options) (Result, error) {
	b := img.Bounds()
	if b.Dx() < 8 || b.Dy() < 8 {
		return Result{}, fmt.Errorf("%w: image %dx%d too small", ErrDetection, b.Dx(), b.Dy())
	}

	work := img
	scaleX, scaleY := 1.0, 1.0
	if opts.MaxSize > 0 && (b.Dx() > opts.MaxSize || b.Dy() > opts.MaxSize) {
		work = imaging.Fit(img, opts.MaxSize, opts.MaxSize, imaging.Lanczos)
		wb := work.Bounds()
		scaleX = float64(b.Dx()) / float64(wb.Dx())
		scaleY = float64(b.Dy()) / float64(wb.Dy())
	}

	gray := effect.Grayscale(work)
	if opts.BlurRadius > 0 {
		gray = blur.Gaussian(gray, opts.BlurRadius)
	}

	lum := luminance(gray)
	response := harrisResponse(lum, opts.K)
	norm := normalize(response)

	threshold, ok := quadrantThreshold(norm)
	if !ok {
		return Result{}, fmt.Errorf("%w: no response pixels", ErrDetection)
	}

	res := collect(norm, threshold, scaleX, scaleY)
	return res, nil
}

// quadrantThreshold walks the threshold down from 255 until every 2x2
// quadrant of the response map contains at least one pixel at or above it.
func quadrantThreshold(norm *grid) (int, bool) {
	var occurrences [4][256]int
	for y := range norm.h {
		for x := range norm.w {
			occurrences[quadrant(norm, x, y)][norm.at(x, y)]++
		}
	}

	var found [4]int
	for threshold := 255; threshold >= 0; threshold-- {
		everyQuadrant := true
		for q := range 4 {
			found[q] += occurrences[q][threshold]
			if found[q] == 0 {
				everyQuadrant = false
			}
		}
		if everyQuadrant {
			return threshold, true
		}
	}
	return 0, false
}

// quadrant numbers the four image quarters: left half top/bottom are 0/1,
// right half top/bottom are 2/3.
func quadrant(g *grid, x, y int) int {
	if x < g.w/2 {
		if y < g.h/2 {
			return 0
		}
		return 1
	}
	if y < g.h/2 {
		return 2
	}
	return 3
}

// collect gathers all points at or above the threshold and reduces each
// quadrant to its centroid, scaled back to source coordinates.
func collect(norm *grid, threshold int, scaleX, scaleY float64) Result {
	res := Result{Threshold: threshold}

	var sums [4]geometry.Point
	var counts [4]int
	for y := range norm.h {
		for x := range norm.w {
			if norm.at(x, y) < threshold {
				continue
			}
			p := geometry.Point{X: float64(x) * scaleX, Y: float64(y) * scaleY}
			res.Points = append(res.Points, p)
			q := quadrant(norm, x, y)
			sums[q].X += p.X
			sums[q].Y += p.Y
			counts[q]++
		}
	}

	// Quadrant 0 is top-left, 1 bottom-left, 2 top-right, 3 bottom-right;
	// reorder to the TL, TR, BL, BR convention.
	order := [4]int{0, 2, 1, 3}
	for i, q := range order {
		if counts[q] > 0 {
			res.Corners[i] = geometry.Point{
				X: sums[q].X / float64(counts[q]),
				Y: sums[q].Y / float64(counts[q]),
			}
		}
	}
	return res
}
