// Package geometry provides the small set of planar/spatial primitives the
// football detectors share: 3-vectors, distance, angle-between, and a
// planar convex hull / bounding rectangle for the team-area detector.
package geometry

import "math"

// Vector3 is a position or velocity sample: x,y are field-plane
// coordinates in metres, z is height in metres.
type Vector3 struct {
	X, Y, Z float64
}

// Finite reports whether every component is a finite double, per the
// stream element invariant that position vectors are finite.
func (v Vector3) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Dist2D returns the Euclidean distance between a and b in the x-y plane,
// ignoring height. Nearly every detector measures proximity this way.
func Dist2D(a, b Vector3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Dist3D returns the full 3-D Euclidean distance between a and b.
func Dist3D(a, b Vector3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AngleBetween2D returns the angle in radians between direction vectors
// (a1-a0) and (b1-b0) projected onto the x-y plane. Used by the
// possession detector's "moving direction changed sharply" test.
func AngleBetween2D(prevDir, curDir Vector3) float64 {
	pm := math.Hypot(prevDir.X, prevDir.Y)
	cm := math.Hypot(curDir.X, curDir.Y)
	if pm == 0 || cm == 0 {
		return 0
	}
	dot := (prevDir.X*curDir.X + prevDir.Y*curDir.Y) / (pm * cm)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}

// Speed2D returns |delta pos| / dt (metres/second) between two samples dt
// milliseconds apart in field-plane distance. Returns 0 when dt <= 0.
func Speed2D(from, to Vector3, dtMillis int64) float64 {
	if dtMillis <= 0 {
		return 0
	}
	return Dist2D(from, to) / (float64(dtMillis) / 1000.0)
}
