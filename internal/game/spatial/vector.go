// Package spatial holds the shared 2D math used by every simulation path:
// vectors, scalar helpers, hitscan primitives and the static city grid.
//
// All arithmetic is float32 so that AI, movement and combat round identically
// and snapshots encode without conversion.
package spatial

import "math"

// Vec2 is a 2D float32 vector. Value type; never mutated through a pointer.
type Vec2 struct {
	X, Y float32
}

// Zero is the zero vector.
var Zero = Vec2{}

// V returns Vec2{x, y}.
func V(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{a.X + b.X, a.Y + b.Y}
}

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{a.X - b.X, a.Y - b.Y}
}

// Scale returns a * k.
func (a Vec2) Scale(k float32) Vec2 {
	return Vec2{a.X * k, a.Y * k}
}

// Dot returns the dot product.
func (a Vec2) Dot(b Vec2) float32 {
	return a.X*b.X + a.Y*b.Y
}

// LenSq returns the squared length.
func (a Vec2) LenSq() float32 {
	return a.Dot(a)
}

// Len returns the length.
func (a Vec2) Len() float32 {
	return float32(math.Sqrt(float64(a.LenSq())))
}

// IsZero reports whether both components are exactly zero.
func (a Vec2) IsZero() bool {
	return a.X == 0 && a.Y == 0
}

// Normalize returns the unit vector, or Zero if the length is not positive.
func (a Vec2) Normalize() Vec2 {
	l := a.Len()
	if l <= 0 {
		return Zero
	}
	return Vec2{a.X / l, a.Y / l}
}

// Lerp interpolates from a toward b by t (t is not clamped).
func Lerp(a, b Vec2, t float32) Vec2 {
	return Vec2{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// Distance returns |a - b|.
func Distance(a, b Vec2) float32 {
	return a.Sub(b).Len()
}

// DistanceSq returns |a - b|².
func DistanceSq(a, b Vec2) float32 {
	return a.Sub(b).LenSq()
}

// ClampVec clamps each component into [-half.X, half.X] x [-half.Y, half.Y].
func ClampVec(p, half Vec2) Vec2 {
	return Vec2{
		X: Clamp(p.X, -half.X, half.X),
		Y: Clamp(p.Y, -half.Y, half.Y),
	}
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v into [0, 1].
func Clamp01(v float32) float32 {
	return Clamp(v, 0, 1)
}

// LerpScalar interpolates from a toward b by t.
func LerpScalar(a, b, t float32) float32 {
	return a + (b-a)*t
}
