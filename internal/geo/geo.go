// Package geo holds the small geometric primitives the network builder
// needs for geographic-proximity transfer synthesis. It stands in for
// the teacher's private git.fiblab.net/general/common/v2/geometry
// package, which is not a fetchable module outside that organization.
package geo

import "math"

type Point struct {
	X, Y float64
}

func Distance(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
