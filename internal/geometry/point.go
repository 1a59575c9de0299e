// Package geometry provides the point and homography primitives shared by
// the optics and remap packages.
package geometry

import "math"

// Point represents a 2D point with floating-point pixel coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }
