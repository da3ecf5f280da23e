package shared

import "math"

// Epsilon is the tolerance applied to every quantity comparison in inventory accounting
const Epsilon = 1e-6

// ApproxEqual reports whether two quantities differ by no more than Epsilon
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// IsPositive reports whether q is greater than zero beyond tolerance
func IsPositive(q float64) bool {
	return q > Epsilon
}

// AtLeast reports whether have covers want within tolerance
func AtLeast(have, want float64) bool {
	return have+Epsilon >= want
}
