// Package layout computes where cluster members and loose items sit on the
// atlas surface: deterministic golden-angle spirals for expanded clusters, a
// fixed ring for unclustered items, and a bounded pairwise relaxation that
// pushes overlapping centers apart when explosion mode is on.
//
// Every function here is deterministic and restartable: the same inputs
// always yield the same positions, so re-expanding a cluster reproduces the
// previous arrangement exactly.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// GoldenAngle is the sunflower phyllotaxis increment, pi*(3-sqrt(5)).
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// Relaxation defaults. Iteration count is a quality/cost trade-off, not a
// convergence criterion; five passes reduce overlap without risking a frame
// budget blowout on large clusters.
const (
	DefaultRelaxIterations  = 5
	DefaultRelaxMinDistance = 180.0
	DefaultNoiseRingRadius  = 2400.0
)

// SpiralPosition returns the world position of member index (0-based) out of
// total members expanded around (cx, cy). Radius grows with sqrt(index/total)
// so points neither overlap near the center nor clump at the rim.
//
// total <= 0 returns the center; total == 1 places the single member at
// maxRadius along angle zero.
func SpiralPosition(index, total int, cx, cy, maxRadius float64) r2.Vec {
	if total <= 0 {
		return r2.Vec{X: cx, Y: cy}
	}
	if index < 0 {
		index = 0
	}
	if total == 1 {
		return r2.Vec{X: cx + maxRadius, Y: cy}
	}
	angle := float64(index) * GoldenAngle
	radius := maxRadius * math.Sqrt(float64(index)/float64(total))
	return r2.Vec{
		X: cx + radius*math.Cos(angle),
		Y: cy + radius*math.Sin(angle),
	}
}

// RingPosition returns the world position of unclustered ("noise") item index
// out of total, evenly spaced on a circle of the given radius around the
// origin. Noise items do not participate in relaxation.
func RingPosition(index, total int, radius float64) r2.Vec {
	if total <= 0 {
		return r2.Vec{}
	}
	angle := 2 * math.Pi * float64(index) / float64(total)
	return r2.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
}

// RelaxOptions tunes Relax. Zero values fall back to the package defaults.
type RelaxOptions struct {
	Iterations  int
	MinDistance float64
}

func (o RelaxOptions) withDefaults() RelaxOptions {
	if o.Iterations <= 0 {
		o.Iterations = DefaultRelaxIterations
	}
	if o.MinDistance <= 0 {
		o.MinDistance = DefaultRelaxMinDistance
	}
	return o
}

// Relax runs a fixed number of pairwise repulsion passes over a copy of
// positions and returns the separated set. For every pair closer than
// MinDistance, both points move apart along the connecting axis by half of
// (MinDistance-d)/d each.
//
// This is a bounded local heuristic, not a converged solver: it reduces but
// does not guarantee eliminating overlap. Coincident pairs (distance zero)
// are skipped to avoid dividing by zero and stay coincident.
func Relax(positions []r2.Vec, opts RelaxOptions) []r2.Vec {
	opts = opts.withDefaults()
	out := make([]r2.Vec, len(positions))
	copy(out, positions)

	for iter := 0; iter < opts.Iterations; iter++ {
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				dx := out[j].X - out[i].X
				dy := out[j].Y - out[i].Y
				d := math.Hypot(dx, dy)
				if d >= opts.MinDistance || d == 0 {
					continue
				}
				force := (opts.MinDistance - d) / d * 0.5
				fx := dx * force
				fy := dy * force
				out[i].X -= fx / 2
				out[i].Y -= fy / 2
				out[j].X += fx / 2
				out[j].Y += fy / 2
			}
		}
	}
	return out
}
