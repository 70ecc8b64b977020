package world

import (
	"math"

	"github.com/talgya/campaign-world/internal/mathx"
)

// Vec2 is a position on the campaign map.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

// Length returns |v|.
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

// Distance returns |v - o|.
func (v Vec2) Distance(o Vec2) float64 { return v.Sub(o).Length() }

// Lerp interpolates toward o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{mathx.Lerp(v.X, o.X, t), mathx.Lerp(v.Y, o.Y, t)}
}

// Normal returns a unit vector perpendicular to v, or zero for a zero vector.
func (v Vec2) Normal() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{-v.Y / l, v.X / l}
}

// positionKey quantizes a position so Voronoi vertices shared by several edges
// resolve to the same location.
type positionKey struct{ x, y int64 }

func keyOf(v Vec2) positionKey {
	const q = 1000
	return positionKey{int64(math.Round(v.X * q)), int64(math.Round(v.Y * q))}
}
