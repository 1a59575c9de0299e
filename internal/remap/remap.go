// Package remap implements the rectification engine: it wires the optics
// transforms to the pixel buffer, producing a corrected image and the
// bounding rectangle of the photographed subject.
package remap

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/platen/internal/geometry"
	"github.com/MeKo-Tech/platen/internal/mempool"
	"github.com/MeKo-Tech/platen/internal/optics"
	"github.com/MeKo-Tech/platen/internal/raster"
)

// Corner indices in the caller-supplied order.
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// Box is an axis-aligned rectangle in output-image pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Params configures one rectification run.
type Params struct {
	Camera      *optics.Camera
	Lens        *optics.Lens
	CropFactor  float64
	FocalLength float64

	// Workers bounds the number of goroutines used for the dense remap;
	// 0 means GOMAXPROCS.
	Workers int
}

// Rectify produces a geometrically corrected copy of src and the bounding
// box of the subject whose corners are given in TL, TR, BL, BR order.
//
// The source is never mutated. All configuration failures surface before
// any pixel work begins; on error no output is produced.
func Rectify(src *raster.Image, corners [4]geometry.Point, params Params,
	provider optics.Provider,
) (*raster.Image, Box, error) {
	full, back, err := configureTransforms(src, corners, params, provider)
	if err != nil {
		return nil, Box{}, err
	}

	out, err := raster.New(src.Width, src.Height, src.Channels, src.Depth)
	if err != nil {
		return nil, Box{}, err
	}
	remapPixels(src, out, full, params.Workers)

	box, err := backProject(corners, back)
	if err != nil {
		return nil, Box{}, err
	}
	return out, box, nil
}

// configureTransforms runs setup steps 1-4: builds the three modifier
// instances, projects the perspective reference points, and activates
// perspective correction on the full and back transforms.
func configureTransforms(src *raster.Image, corners [4]geometry.Point,
	params Params, provider optics.Provider,
) (full, back optics.Modifier, err error) {
	base := optics.ModifierConfig{
		Camera:      params.Camera,
		Lens:        params.Lens,
		CropFactor:  params.CropFactor,
		Width:       src.Width,
		Height:      src.Height,
		Channels:    src.Channels,
		Depth:       src.Depth,
		FocalLength: params.FocalLength,
	}

	fullCfg := base
	full, err = provider.Modifier(fullCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("full transform: %w", err)
	}

	refCfg := base
	refCfg.Reverse = true
	perspectiveRef, err := provider.Modifier(refCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("perspective reference transform: %w", err)
	}

	backCfg := base
	backCfg.Reverse = true
	back, err = provider.Modifier(backCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("back transform: %w", err)
	}

	transforms := []struct {
		name string
		m    optics.Modifier
	}{
		{"full", full},
		{"perspective reference", perspectiveRef},
		{"back", back},
	}
	for _, t := range transforms {
		if err := t.m.EnableDistortion(); err != nil {
			return nil, nil, fmt.Errorf("activate distortion on %s transform: %w", t.name, err)
		}
	}

	// Chromatic aberration only exists across colour channels; a
	// single-channel image has nothing to correct.
	if src.Channels == 3 {
		if err := full.EnableTCA(); err != nil {
			return nil, nil, fmt.Errorf("activate TCA on full transform: %w", err)
		}
	}

	ref, err := referencePoints(corners, perspectiveRef)
	if err != nil {
		return nil, nil, err
	}
	if err := full.EnablePerspective(ref); err != nil {
		return nil, nil, fmt.Errorf("activate perspective on full transform: %w", err)
	}
	if err := back.EnablePerspective(ref); err != nil {
		return nil, nil, fmt.Errorf("activate perspective on back transform: %w", err)
	}
	return full, back, nil
}

// referencePoints builds the 6-point list the perspective solver expects
// (two vertical edges, then the horizontal top edge: TL, BL, TR, BR, TL,
// TR) and projects it into the distortion-corrected frame.
func referencePoints(corners [4]geometry.Point, perspectiveRef optics.Modifier,
) ([]geometry.Point, error) {
	order := [6]int{TopLeft, BottomLeft, TopRight, BottomRight, TopLeft, TopRight}
	ref := make([]geometry.Point, 6)
	for i, ci := range order {
		p, ok := perspectiveRef.MapPoint(corners[ci].X, corners[ci].Y)
		if !ok {
			return nil, fmt.Errorf("%w: reference corner (%g, %g) cannot be projected",
				optics.ErrConfiguration, corners[ci].X, corners[ci].Y)
		}
		ref[i] = p
	}
	return ref, nil
}

// remapPixels fills out by sampling src at the coordinates the full
// transform reports. Rows are split into disjoint bands, one goroutine per
// band; no band touches another band's output rows.
func remapPixels(src, out *raster.Image, full optics.Modifier, workers int) {
	w, h := src.Width, src.Height

	var grid []float32
	stride := 2
	if src.Channels == 3 {
		grid = full.MapRegionSubpixel(0, 0, w, h)
		stride = 6
	} else {
		grid = full.MapRegion(0, 0, w, h)
	}
	defer mempool.PutFloat32(grid)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > h {
		workers = h
	}

	var wg sync.WaitGroup
	rowsPerBand := (h + workers - 1) / workers
	for band := 0; band < workers; band++ {
		y0 := band * rowsPerBand
		y1 := min(y0+rowsPerBand, h)
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := range w {
					base := stride * (y*w + x)
					for c := range src.Channels {
						sx := float64(grid[base+2*c])
						sy := float64(grid[base+2*c+1])
						out.Set(x, y, c, src.Sample(sx, sy, c))
					}
				}
			}
		}(y0, y1)
	}
	wg.Wait()
}

// backProject maps the original four corners into output coordinates and
// reduces them to a bounding box.
//
// The box is an approximation: it takes the min/max of the transformed
// corners under the TL/TR/BL/BR convention and is only exact when the
// corrected subject is axis-aligned. Residual skew leaves a small error
// that downstream cropping tolerates.
func backProject(corners [4]geometry.Point, back optics.Modifier) (Box, error) {
	var mapped [4]geometry.Point
	for i := range corners {
		p, ok := back.MapPoint(corners[i].X, corners[i].Y)
		if !ok {
			return Box{}, fmt.Errorf("%w: corner (%g, %g) cannot be back-projected",
				optics.ErrConfiguration, corners[i].X, corners[i].Y)
		}
		mapped[i] = p
	}

	x0 := min(mapped[TopLeft].X, mapped[BottomLeft].X)
	y0 := min(mapped[TopLeft].Y, mapped[TopRight].Y)
	x1 := max(mapped[TopRight].X, mapped[BottomRight].X)
	y1 := max(mapped[BottomLeft].Y, mapped[BottomRight].Y)
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, nil
}
