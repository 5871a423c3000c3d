// Package geom provides the small amount of 2D geometry the viewport engine
// needs: axis-aligned rectangles, bounding boxes over point sets, easing
// curves, and guards against degenerate values leaking into viewport state.
//
// World coordinates are unbounded float64 pairs; screen coordinates are pixel
// positions. Vectors are gonum r2.Vec so the engine composes with the rest of
// the gonum spatial tooling.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon below which distances and velocities are treated as zero.
const Epsilon = 1e-9

// Rect is an axis-aligned rectangle in world or screen space.
type Rect struct {
	Min r2.Vec
	Max r2.Vec
}

// NewRect returns a rectangle with normalized corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{Min: r2.Vec{X: x0, Y: y0}, Max: r2.Vec{X: x1, Y: y1}}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Inflate grows the rectangle by m on every side. Negative m shrinks it;
// a rectangle never inverts (it collapses to its center instead).
func (r Rect) Inflate(m float64) Rect {
	out := Rect{
		Min: r2.Vec{X: r.Min.X - m, Y: r.Min.Y - m},
		Max: r2.Vec{X: r.Max.X + m, Y: r.Max.Y + m},
	}
	if out.Min.X > out.Max.X || out.Min.Y > out.Max.Y {
		c := r.Center()
		return Rect{Min: c, Max: c}
	}
	return out
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// IntersectsCircle reports whether a circle of the given radius centered at c
// overlaps the rectangle. A zero radius degenerates to a point test.
func (r Rect) IntersectsCircle(c r2.Vec, radius float64) bool {
	// Closest point on the rect to the circle center.
	cx := math.Max(r.Min.X, math.Min(c.X, r.Max.X))
	cy := math.Max(r.Min.Y, math.Min(c.Y, r.Max.Y))
	dx := c.X - cx
	dy := c.Y - cy
	return dx*dx+dy*dy <= radius*radius
}

// Bounds returns the axis-aligned bounding box of pts. ok is false when pts
// is empty or every coordinate is non-finite; callers must treat that as a
// degenerate input rather than propagate a garbage box.
func Bounds(pts []r2.Vec) (Rect, bool) {
	first := true
	var b Rect
	for _, p := range pts {
		if !Finite(p.X) || !Finite(p.Y) {
			continue
		}
		if first {
			b = Rect{Min: p, Max: p}
			first = false
			continue
		}
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b, !first
}

// Clamp limits v to [lo, hi]. NaN clamps to lo so a bad intermediate value
// can never stick in viewport state.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Lerp linearly interpolates between a and b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// EaseOutCubic maps linear progress t in [0,1] onto the decelerating cubic
// 1-(1-t)^3 used for camera animations.
func EaseOutCubic(t float64) float64 {
	t = Clamp(t, 0, 1)
	u := 1 - t
	return 1 - u*u*u
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b r2.Vec) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
