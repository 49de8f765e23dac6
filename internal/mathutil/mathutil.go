// Package mathutil holds small numeric helpers used by the crowding
// cost function.
package mathutil

// Clamp returns x restricted to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
