// Package camera owns the viewport pose of the atlas surface and every way it
// can move: focal-point preserving wheel zoom, drag panning with velocity
// sampling, inertial coasting after a flick, and eased programmatic
// animation. The controller is frame driven: nothing here spawns goroutines,
// the host calls Advance once per repaint tick.
//
// At most one motion source is active at any time. Starting a drag, a wheel
// zoom, or an animation cancels whatever else was in flight (mutual exclusion
// by cancellation, not locking).
package camera

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/pkg/geom"
)

// Tuning defaults. All of them can be overridden through Options.
const (
	DefaultMinScale         = 0.1
	DefaultMaxScale         = 8.0
	DefaultWheelSensitivity = 0.001 // scale factor per wheel-delta unit
	DefaultFriction         = 0.92  // per-frame velocity decay during coast
	DefaultFrameBoost       = 16.0  // px advanced per px/ms of velocity per frame
	DefaultCoastMinLaunch   = 0.05  // px/ms below which a flick does not coast
	coastStopEpsilon        = 0.01  // px/ms below which a coast terminates

	// velocitySmoothing blends the instantaneous drag velocity into the
	// running estimate: v' = 0.2*instant + 0.8*previous.
	velocitySmoothing = 0.2
)

// Pose is the affine map from world to screen space:
// screen = world*Scale + (X, Y).
type Pose struct {
	X     float64
	Y     float64
	Scale float64
}

// WorldToScreen projects a world point to screen pixels under this pose.
func (p Pose) WorldToScreen(w r2.Vec) r2.Vec {
	return r2.Vec{X: w.X*p.Scale + p.X, Y: w.Y*p.Scale + p.Y}
}

// ScreenToWorld inverts WorldToScreen. Scale is never zero because the
// controller clamps it, but a zero scale from a hand-built pose yields the
// origin rather than infinities.
func (p Pose) ScreenToWorld(s r2.Vec) r2.Vec {
	if p.Scale == 0 {
		return r2.Vec{}
	}
	return r2.Vec{X: (s.X - p.X) / p.Scale, Y: (s.Y - p.Y) / p.Scale}
}

// Options tunes a Controller. Zero values fall back to the package defaults.
type Options struct {
	MinScale         float64
	MaxScale         float64
	WheelSensitivity float64
	Friction         float64
	FrameBoost       float64
	CoastMinLaunch   float64
	CullMargin       float64 // screen px, see VisibleRect
}

func (o Options) withDefaults() Options {
	if o.MinScale <= 0 {
		o.MinScale = DefaultMinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = DefaultMaxScale
	}
	if o.WheelSensitivity <= 0 {
		o.WheelSensitivity = DefaultWheelSensitivity
	}
	if o.Friction <= 0 || o.Friction >= 1 {
		o.Friction = DefaultFriction
	}
	if o.FrameBoost <= 0 {
		o.FrameBoost = DefaultFrameBoost
	}
	if o.CoastMinLaunch <= 0 {
		o.CoastMinLaunch = DefaultCoastMinLaunch
	}
	if o.CullMargin <= 0 {
		o.CullMargin = DefaultCullMargin
	}
	return o
}

// motion identifies the active camera-motion source.
type motion int

const (
	motionNone motion = iota
	motionDrag
	motionCoast
	motionAnimate
)

// animationTask is an in-flight eased transition to a target pose.
type animationTask struct {
	start    Pose
	target   Pose
	startAt  time.Time
	duration time.Duration
}

// Controller owns the single ViewportState of the engine. It is not safe for
// concurrent use; the engine runs on one frame loop by design.
type Controller struct {
	opts Options

	pose    Pose
	screenW float64
	screenH float64
	locked  bool

	active motion

	// Drag state.
	dragStartPose  Pose
	dragStartPoint r2.Vec
	lastPoint      r2.Vec
	lastMoveAt     time.Time
	velocity       r2.Vec // screen px per millisecond, smoothed

	// Coast state reuses velocity.
	anim animationTask
}

// New returns a controller at the identity pose for the given screen size.
func New(screenW, screenH float64, opts Options) *Controller {
	return &Controller{
		opts:    opts.withDefaults(),
		pose:    Pose{Scale: 1},
		screenW: screenW,
		screenH: screenH,
	}
}

// Pose returns the current viewport pose.
func (c *Controller) Pose() Pose { return c.pose }

// ScreenSize returns the current window dimensions in pixels.
func (c *Controller) ScreenSize() (w, h float64) { return c.screenW, c.screenH }

// Resize updates the window dimensions. The pose is left untouched.
func (c *Controller) Resize(w, h float64) {
	if w > 0 {
		c.screenW = w
	}
	if h > 0 {
		c.screenH = h
	}
}

// SetLocked toggles the external input lock. A locked controller ignores new
// wheel and drag input but lets any already-running animation or coast finish.
func (c *Controller) SetLocked(locked bool) { c.locked = locked }

// Locked reports whether pointer-driven camera motion is disabled.
func (c *Controller) Locked() bool { return c.locked }

// Moving reports whether any motion source (drag, coast, animation) is active.
func (c *Controller) Moving() bool { return c.active != motionNone }

// MinScale returns the lower scale bound.
func (c *Controller) MinScale() float64 { return c.opts.MinScale }

// MaxScale returns the upper scale bound.
func (c *Controller) MaxScale() float64 { return c.opts.MaxScale }

// ZoomAt applies a focal-point preserving zoom: the world point under the
// given screen point stays under it after the scale change. wheelDelta is
// positive to zoom in. Cancels an active coast; out-of-range scales clamp
// silently.
func (c *Controller) ZoomAt(screenPoint r2.Vec, wheelDelta float64) {
	if c.locked {
		return
	}
	if c.active == motionCoast || c.active == motionAnimate {
		c.stopMotion()
	}

	focus := c.pose.ScreenToWorld(screenPoint)
	newScale := geom.Clamp(c.pose.Scale*(1+wheelDelta*c.opts.WheelSensitivity),
		c.opts.MinScale, c.opts.MaxScale)

	// Recompute translation so focus still projects to screenPoint.
	c.pose = Pose{
		X:     screenPoint.X - focus.X*newScale,
		Y:     screenPoint.Y - focus.Y*newScale,
		Scale: newScale,
	}
}

// PanBy translates the viewport by a screen-space delta. Used for keyboard
// panning; cancels any running coast or animation like a drag would.
func (c *Controller) PanBy(dx, dy float64) {
	if c.locked {
		return
	}
	c.stopMotion()
	c.pose.X += dx
	c.pose.Y += dy
}

// BeginDrag snapshots the pose and pointer position and cancels any running
// animation or coast.
func (c *Controller) BeginDrag(screenPoint r2.Vec, now time.Time) {
	if c.locked {
		return
	}
	c.stopMotion()
	c.active = motionDrag
	c.dragStartPose = c.pose
	c.dragStartPoint = screenPoint
	c.lastPoint = screenPoint
	c.lastMoveAt = now
	c.velocity = r2.Vec{}
}

// ContinueDrag translates the viewport by the pointer delta since drag start
// and updates the exponentially smoothed velocity estimate from wall-clock
// deltas.
func (c *Controller) ContinueDrag(screenPoint r2.Vec, now time.Time) {
	if c.locked || c.active != motionDrag {
		return
	}

	c.pose.X = c.dragStartPose.X + (screenPoint.X - c.dragStartPoint.X)
	c.pose.Y = c.dragStartPose.Y + (screenPoint.Y - c.dragStartPoint.Y)

	dt := float64(now.Sub(c.lastMoveAt).Milliseconds())
	if dt > 0 {
		instant := r2.Vec{
			X: (screenPoint.X - c.lastPoint.X) / dt,
			Y: (screenPoint.Y - c.lastPoint.Y) / dt,
		}
		c.velocity = r2.Vec{
			X: velocitySmoothing*instant.X + (1-velocitySmoothing)*c.velocity.X,
			Y: velocitySmoothing*instant.Y + (1-velocitySmoothing)*c.velocity.Y,
		}
	}
	c.lastPoint = screenPoint
	c.lastMoveAt = now
}

// EndDrag releases the pointer. A fast enough final velocity launches an
// inertial coast; otherwise the camera simply stops.
func (c *Controller) EndDrag() {
	if c.active != motionDrag {
		return
	}
	if geom.Dist(r2.Vec{}, c.velocity) > c.opts.CoastMinLaunch {
		c.active = motionCoast
		return
	}
	c.stopMotion()
}

// AnimateTo starts an eased transition to target over the given duration,
// cancelling any running animation or coast. A non-positive duration jumps
// straight to the clamped target.
func (c *Controller) AnimateTo(target Pose, duration time.Duration, now time.Time) {
	c.stopMotion()

	target.Scale = geom.Clamp(target.Scale, c.opts.MinScale, c.opts.MaxScale)
	if !geom.Finite(target.X) || !geom.Finite(target.Y) {
		return
	}
	if duration <= 0 {
		c.pose = target
		return
	}

	c.active = motionAnimate
	c.anim = animationTask{
		start:    c.pose,
		target:   target,
		startAt:  now,
		duration: duration,
	}
}

// Advance steps the active motion source by one frame. The host calls it once
// per repaint tick; it never blocks and does bounded work.
func (c *Controller) Advance(now time.Time) {
	switch c.active {
	case motionCoast:
		c.pose.X += c.velocity.X * c.opts.FrameBoost
		c.pose.Y += c.velocity.Y * c.opts.FrameBoost
		c.velocity.X *= c.opts.Friction
		c.velocity.Y *= c.opts.Friction
		if geom.Dist(r2.Vec{}, c.velocity) < coastStopEpsilon {
			c.stopMotion()
		}

	case motionAnimate:
		elapsed := now.Sub(c.anim.startAt)
		progress := float64(elapsed) / float64(c.anim.duration)
		if progress >= 1 {
			c.pose = c.anim.target
			c.stopMotion()
			return
		}
		eased := geom.EaseOutCubic(progress)
		c.pose = Pose{
			X:     geom.Lerp(c.anim.start.X, c.anim.target.X, eased),
			Y:     geom.Lerp(c.anim.start.Y, c.anim.target.Y, eased),
			Scale: geom.Lerp(c.anim.start.Scale, c.anim.target.Scale, eased),
		}
	}
}

func (c *Controller) stopMotion() {
	c.active = motionNone
	c.velocity = r2.Vec{}
	c.anim = animationTask{}
}
