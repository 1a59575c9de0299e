// Package optics supplies the geometry transforms used by the remapping
// engine: lens distortion, transverse chromatic aberration, and perspective
// correction, driven by a calibration database.
//
// The engine only depends on the Provider and Modifier interfaces, so it can
// run against a stub provider in tests while production code uses the
// database-backed implementation in this package.
package optics

import (
	"github.com/MeKo-Tech/platen/internal/geometry"
)

// Modifier is one configured transform instance. Three coexist per
// rectification run (full, perspective reference, and back projection),
// each independently configured and never shared.
type Modifier interface {
	// EnableDistortion activates lens distortion correction.
	EnableDistortion() error

	// EnableTCA activates transverse chromatic aberration correction.
	// Only meaningful for 3-channel data.
	EnableTCA() error

	// EnablePerspective activates perspective correction from a reference
	// point list laid out as TL, BL, TR, BR, TL, TR (two vertical edges
	// followed by the horizontal top edge).
	EnablePerspective(ref []geometry.Point) error

	// MapPoint maps a single coordinate through every enabled correction.
	// Returns false if the point cannot be mapped.
	MapPoint(x, y float64) (geometry.Point, bool)

	// MapRegion computes the dense coordinate grid for a w x h region
	// starting at (x0, y0). The result holds 2 float32 values per pixel
	// (source x, source y), rows in y-major order. Ownership of the grid
	// passes to the caller, who may recycle it via mempool.PutFloat32.
	MapRegion(x0, y0, w, h int) []float32

	// MapRegionSubpixel is the 3-channel variant: 6 float32 values per
	// pixel (xR, yR, xG, yG, xB, yB), each channel's source coordinate
	// computed independently.
	MapRegionSubpixel(x0, y0, w, h int) []float32
}

// ModifierConfig parameterises one Modifier instance.
type ModifierConfig struct {
	Camera      *Camera
	Lens        *Lens
	CropFactor  float64
	Width       int
	Height      int
	Channels    int
	Depth       int
	FocalLength float64

	// Reverse flips the mapping direction: a forward instance maps
	// corrected output coordinates to source coordinates (for pixel
	// resampling), a reverse instance maps source coordinates to
	// corrected output coordinates (for corner bookkeeping).
	Reverse bool
}

// Provider hands out fresh, independently configured Modifier instances.
// Implementations must not share mutable state between instances so
// invocations can run concurrently within one process.
type Provider interface {
	Modifier(cfg ModifierConfig) (Modifier, error)
}
