// Package focus computes camera poses that frame content: fitting a point set
// into the viewport with padding, centering on a single item, and the
// recenter-to-everything sentinel. It talks to the camera only through its
// animator; it never mutates viewport state directly.
package focus

import (
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/geom"
)

const (
	// DefaultFocusScale is the fixed zoom applied when jumping to one item.
	DefaultFocusScale = 1.2
	// DefaultRecenterMaxScale caps how far a fit may zoom in.
	DefaultRecenterMaxScale = 2.0
	// DefaultDuration is the camera animation length for focus moves.
	DefaultDuration = 600 * time.Millisecond

	// fitSlack leaves a sliver of breathing room inside the computed fit so
	// boundary points do not touch the window edge.
	fitSlack = 0.96
)

// PositionIndex is the post-layout item position lookup maintained by scene
// assembly. Positions are actual rendered coordinates, not raw dataset ones.
type PositionIndex interface {
	Position(itemID int64) (r2.Vec, bool)
	AllPositions() []r2.Vec
}

// Coordinator turns framing requests into camera animations.
type Coordinator struct {
	cam      *camera.Controller
	index    PositionIndex
	logger   *log.Logger
	duration time.Duration
}

// NewCoordinator wires a coordinator to the camera and the scene's position
// index. logger may be nil; lookup misses are then only counted, not
// reported.
func NewCoordinator(cam *camera.Controller, index PositionIndex, logger *log.Logger) *Coordinator {
	return &Coordinator{
		cam:      cam,
		index:    index,
		logger:   logger,
		duration: DefaultDuration,
	}
}

// SetDuration overrides the animation length for subsequent requests.
func (c *Coordinator) SetDuration(d time.Duration) {
	if d > 0 {
		c.duration = d
	}
}

// CenterOnPoints animates the camera so the padded bounding box of points
// fits inside the viewport. The fit never zooms in past the recenter cap, and
// degenerate inputs (no finite points, zero-size box) fall back to centering
// at the current scale rather than producing a NaN pose.
func (c *Coordinator) CenterOnPoints(points []r2.Vec, padding float64, now time.Time) {
	box, ok := geom.Bounds(points)
	if !ok {
		return
	}
	box = box.Inflate(padding)

	sw, sh := c.cam.ScreenSize()
	scale := c.cam.Pose().Scale
	if box.Width() > geom.Epsilon && box.Height() > geom.Epsilon {
		fit := min(sw/box.Width(), sh/box.Height()) * fitSlack
		scale = geom.Clamp(fit, c.cam.MinScale(), DefaultRecenterMaxScale)
	}

	center := box.Center()
	c.cam.AnimateTo(camera.Pose{
		X:     sw/2 - center.X*scale,
		Y:     sh/2 - center.Y*scale,
		Scale: scale,
	}, c.duration, now)
}

// FocusOnItem animates to a fixed scale centered on the item's current
// rendered position. When the item is missing from the index, the fallback
// coordinates are used if provided (e.g. from a search-result payload);
// otherwise the request is reported and dropped.
func (c *Coordinator) FocusOnItem(itemID int64, fallback *r2.Vec, now time.Time) {
	pos, ok := c.index.Position(itemID)
	if !ok {
		if fallback == nil {
			if c.logger != nil {
				c.logger.Warn("focus target has no known position", "item", itemID)
			}
			return
		}
		pos = *fallback
	}
	if !geom.Finite(pos.X) || !geom.Finite(pos.Y) {
		if c.logger != nil {
			c.logger.Warn("focus target position is degenerate", "item", itemID)
		}
		return
	}

	sw, sh := c.cam.ScreenSize()
	scale := geom.Clamp(DefaultFocusScale, c.cam.MinScale(), c.cam.MaxScale())
	c.cam.AnimateTo(camera.Pose{
		X:     sw/2 - pos.X*scale,
		Y:     sh/2 - pos.Y*scale,
		Scale: scale,
	}, c.duration, now)
}

// Recenter fits the overall bounding box of every current cluster and item
// position, the sentinel "show me everything" request.
func (c *Coordinator) Recenter(padding float64, now time.Time) {
	c.CenterOnPoints(c.index.AllPositions(), padding, now)
}
