package camera

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/pkg/geom"
)

// DefaultCullMargin is the buffer, in screen pixels, by which the visible
// region is expanded before culling. Items just outside the frame are still
// rendered so panning does not pop them in.
const DefaultCullMargin = 120.0

// VisibleRect returns the world-space rectangle covered by the viewport,
// expanded by marginPx screen pixels on every side. Pure function of the
// pose and window size.
func (c *Controller) VisibleRect(marginPx float64) geom.Rect {
	p := c.pose
	minW := p.ScreenToWorld(r2.Vec{})
	maxW := p.ScreenToWorld(r2.Vec{X: c.screenW, Y: c.screenH})
	return geom.NewRect(minW.X, minW.Y, maxW.X, maxW.Y).Inflate(marginPx / p.Scale)
}

// IsVisible reports whether a world-space circle overlaps the margin-expanded
// viewport. Safe to call every frame for every candidate item.
func (c *Controller) IsVisible(world r2.Vec, radius float64) bool {
	return c.VisibleRect(c.opts.CullMargin).IntersectsCircle(world, radius)
}
