// Package mathx holds small numeric helpers shared by the camera packages
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// CeilDiv is ceil(a/b) for positive integers
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Lattice enumerates min, min+step, ... up to and including max.  A
// non-positive step yields only min
func Lattice(min, max, step int) []int {
	if step <= 0 || max < min {
		return []int{min}
	}
	out := make([]int, 0, (max-min)/step+1)
	for v := min; v <= max; v += step {
		out = append(out, v)
	}
	return out
}
