// Package vecmath provides the 2D vector helpers used by the steering code.
// All helpers tolerate zero-length input and never produce NaN from it.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Zero is the zero vector.
var Zero = r2.Vec{}

// Length returns the Euclidean length of v.
func Length(v r2.Vec) float64 {
	return math.Hypot(v.X, v.Y)
}

// LengthSq returns the squared length of v.
func LengthSq(v r2.Vec) float64 {
	return v.X*v.X + v.Y*v.Y
}

// NormalizeOrZero returns v scaled to unit length, or the zero vector when v has
// zero or non-finite length.
func NormalizeOrZero(v r2.Vec) r2.Vec {
	l := Length(v)
	if l == 0 || math.IsInf(l, 0) || math.IsNaN(l) {
		return Zero
	}
	return r2.Vec{X: v.X / l, Y: v.Y / l}
}

// ClampLength rescales v so its length lies in [min, max].
// The zero vector has no direction and is returned unchanged.
func ClampLength(v r2.Vec, min, max float64) r2.Vec {
	l := Length(v)
	if l == 0 {
		return v
	}
	switch {
	case l < min:
		return r2.Scale(min/l, v)
	case l > max:
		return r2.Scale(max/l, v)
	}
	return v
}

// ClampLengthMax limits the length of v to max.
func ClampLengthMax(v r2.Vec, max float64) r2.Vec {
	l := Length(v)
	if l > max && l > 0 {
		return r2.Scale(max/l, v)
	}
	return v
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Strength maps x onto a linear ramp between min and max, clamped to [0, 1].
// A degenerate ramp (max <= min) is a step at min.
func Strength(min, max, x float64) float64 {
	if max <= min {
		if x < min {
			return 0
		}
		return 1
	}
	return Clamp((x-min)/(max-min), 0, 1)
}

// IsFinite reports whether both components of v are finite.
func IsFinite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
