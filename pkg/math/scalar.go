// Package math provides small numeric helpers shared by the baking pipeline.
package math

import "golang.org/x/exp/constraints"

// Clamp returns v clamped to the range [low, high].
func Clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Saturate clamps v to [0, 1].
func Saturate[T constraints.Float](v T) T {
	return Clamp(v, 0, 1)
}

// Lerp interpolates linearly between a and b.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// SmoothStep is the Hermite step between edge0 and edge1, as in GLSL.
func SmoothStep[T constraints.Float](edge0, edge1, x T) T {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Saturate((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
