package scene

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/debug"
	"github.com/vanderheijden86/atlasview/pkg/layout"
)

// Defaults for scene assembly. LOD kicks in when the viewport scale drops
// below the threshold: the render target substitutes a cheap placeholder so
// image decoding stays off the frame budget when zoomed far out.
const (
	DefaultLODThreshold  = 0.45
	DefaultSpiralRadius  = 320.0
	DefaultItemRadius    = 48.0
	DefaultClusterRadius = 90.0

	dimmedOpacity = 0.25

	// maxTiltRad bounds the deterministic per-item tilt applied to
	// thumbnails for a loose, hand-placed look.
	maxTiltRad = 0.08
)

// Kind distinguishes draw commands for cluster markers and individual items.
type Kind int

const (
	KindCluster Kind = iota
	KindItem
)

// DrawCmd is one entry of the per-frame draw list handed to the render
// target, already culled and ordered back to front.
type DrawCmd struct {
	ID          int64
	Kind        Kind
	Pos         r2.Vec  // world coordinates
	Rotation    float64 // radians
	Opacity     float64
	Dimmed      bool
	LowDetail   bool
	MemberCount int    // cluster markers only; drives marker sizing and labels
	Thumbnail   string // empty for cluster markers
}

// Options tunes the assembler. Zero values fall back to package defaults.
type Options struct {
	LODThreshold  float64
	SpiralRadius  float64
	ItemRadius    float64
	ClusterRadius float64
	Relax         layout.RelaxOptions
	NoiseRadius   float64

	// RelaxRespectsExpansion suspends explosion-mode relaxation while a
	// cluster is expanded, keeping the hover layout stable. Off in the
	// reference behavior.
	RelaxRespectsExpansion bool
}

func (o Options) withDefaults() Options {
	if o.LODThreshold <= 0 {
		o.LODThreshold = DefaultLODThreshold
	}
	if o.SpiralRadius <= 0 {
		o.SpiralRadius = DefaultSpiralRadius
	}
	if o.ItemRadius <= 0 {
		o.ItemRadius = DefaultItemRadius
	}
	if o.ClusterRadius <= 0 {
		o.ClusterRadius = DefaultClusterRadius
	}
	if o.NoiseRadius <= 0 {
		o.NoiseRadius = layout.DefaultNoiseRingRadius
	}
	return o
}

// Assembler combines snapshot, expansion state, explosion mode and search
// filter into draw lists. It also maintains the post-layout position index
// the focus coordinator reads. Single frame loop, no locking.
type Assembler struct {
	opts      Options
	snap      *Snapshot
	expansion *ExpansionState

	explosion bool
	filter    map[int64]struct{} // nil = no active filter

	centers     []r2.Vec // effective centroid positions (raw or relaxed)
	centersOK   bool
	index       map[int64]r2.Vec // item id -> actual rendered world position
	clusterPos  map[int64]r2.Vec // cluster id -> effective centroid
	litClusters map[int64]bool   // clusters with at least one filtered-in member
}

// NewAssembler returns an assembler with an empty snapshot.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts:      opts.withDefaults(),
		snap:      NewSnapshot([16]byte{}, nil, nil),
		expansion: NewExpansionState(),
		index:     make(map[int64]r2.Vec),
	}
}

// SetSnapshot replaces the dataset wholesale and drops every cached layout.
// Expansion state is reset: cluster ids from the old snapshot are meaningless
// in the new one.
func (a *Assembler) SetSnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}
	a.snap = snap
	a.expansion = NewExpansionState()
	a.invalidate()
	a.refreshFilterClusters()
}

// Snapshot returns the current dataset snapshot.
func (a *Assembler) Snapshot() *Snapshot { return a.snap }

// Expansion returns the hover expansion state.
func (a *Assembler) Expansion() *ExpansionState { return a.expansion }

// SetExplosion toggles overlap relaxation of centers.
func (a *Assembler) SetExplosion(on bool) {
	if a.explosion != on {
		a.explosion = on
		a.invalidate()
	}
}

// Explosion reports whether relaxation is active.
func (a *Assembler) Explosion() bool { return a.explosion }

// SetFilter installs the search-result filter. nil means no active filter;
// an empty non-nil set dims everything.
func (a *Assembler) SetFilter(ids []int64) {
	if ids == nil {
		a.filter = nil
		a.litClusters = nil
		return
	}
	a.filter = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		a.filter[id] = struct{}{}
	}
	a.refreshFilterClusters()
}

// Expand opens a cluster, collapsing any other. The position index always
// moves with the expansion (members leave the centroid for the spiral), so
// the cached layout is dropped on every state change, not just when the
// relaxation policy depends on expansion.
func (a *Assembler) Expand(clusterID int64) {
	a.expansion.Expand(clusterID)
	a.invalidate()
}

// Collapse closes the given cluster if it is the expanded one.
func (a *Assembler) Collapse(clusterID int64) {
	a.expansion.Collapse(clusterID)
	a.invalidate()
}

func (a *Assembler) invalidate() {
	a.centersOK = false
}

func (a *Assembler) refreshFilterClusters() {
	if a.filter == nil {
		a.litClusters = nil
		return
	}
	a.litClusters = make(map[int64]bool, len(a.snap.Clusters))
	for _, c := range a.snap.Clusters {
		for _, idx := range a.snap.MemberIndexes(c.ID) {
			if _, ok := a.filter[a.snap.Items[idx].ID]; ok {
				a.litClusters[c.ID] = true
				break
			}
		}
	}
}

// ensureCenters computes the effective centroid positions, relaxed when
// explosion mode is on. The result is cached until the snapshot, explosion
// flag, or expansion state changes, so per-frame work stays constant.
func (a *Assembler) ensureCenters() {
	if a.centersOK {
		return
	}
	start := time.Now()
	raw := a.snap.Centroids()
	relaxing := a.explosion
	if a.opts.RelaxRespectsExpansion {
		if _, open := a.expansion.Expanded(); open {
			relaxing = false
		}
	}
	if relaxing && len(raw) > 1 {
		a.centers = layout.Relax(raw, a.opts.Relax)
	} else {
		a.centers = raw
	}

	a.clusterPos = make(map[int64]r2.Vec, len(a.snap.Clusters))
	for i, c := range a.snap.Clusters {
		a.clusterPos[c.ID] = a.centers[i]
	}
	a.rebuildIndex()
	a.centersOK = true
	debug.Log("scene: recomputed %d centers (explosion=%v)", len(raw), a.explosion)
	debug.LogTiming("scene: layout recompute", time.Since(start))
}

// rebuildIndex refreshes the post-layout item position index: expanded
// members at their spiral offsets, collapsed members at their cluster's
// effective centroid, noise items on the ring (or relaxed raw positions when
// the dataset has no clusters at all).
func (a *Assembler) rebuildIndex() {
	clear(a.index)

	for _, c := range a.snap.Clusters {
		center := a.clusterPos[c.ID]
		members := a.snap.MemberIndexes(c.ID)
		if a.expansion.IsExpanded(c.ID) {
			for i, idx := range members {
				a.index[a.snap.Items[idx].ID] =
					layout.SpiralPosition(i, len(members), center.X, center.Y, a.opts.SpiralRadius)
			}
			continue
		}
		for _, idx := range members {
			a.index[a.snap.Items[idx].ID] = center
		}
	}

	noise := a.snap.NoiseIndexes()
	if len(a.snap.Clusters) == 0 {
		// Fully unclustered dataset: items keep their dataset positions and
		// are themselves the relaxation targets.
		pos := make([]r2.Vec, len(noise))
		for i, idx := range noise {
			it := a.snap.Items[idx]
			pos[i] = r2.Vec{X: it.X, Y: it.Y}
		}
		if a.explosion && len(pos) > 1 {
			pos = layout.Relax(pos, a.opts.Relax)
		}
		for i, idx := range noise {
			a.index[a.snap.Items[idx].ID] = pos[i]
		}
		return
	}
	for i, idx := range noise {
		a.index[a.snap.Items[idx].ID] = layout.RingPosition(i, len(noise), a.opts.NoiseRadius)
	}
}

// Position returns the actual rendered world position of an item, which for
// collapsed members is the cluster centroid rather than the raw dataset
// coordinate.
func (a *Assembler) Position(itemID int64) (r2.Vec, bool) {
	a.ensureCenters()
	p, ok := a.index[itemID]
	return p, ok
}

// ClusterPosition returns the effective centroid of a cluster, relaxed when
// explosion mode is on.
func (a *Assembler) ClusterPosition(clusterID int64) (r2.Vec, bool) {
	a.ensureCenters()
	p, ok := a.clusterPos[clusterID]
	return p, ok
}

// AllPositions returns every current cluster and item position, for
// recenter-to-everything fits.
func (a *Assembler) AllPositions() []r2.Vec {
	a.ensureCenters()
	out := make([]r2.Vec, 0, len(a.centers)+len(a.index))
	out = append(out, a.centers...)
	for _, p := range a.index {
		out = append(out, p)
	}
	return out
}

// Build produces the draw list for the current camera pose: resolve layout,
// cull, dim, order. Hidden (collapsed-member) items emit no command; their
// cluster marker stands in for them.
func (a *Assembler) Build(cam *camera.Controller) []DrawCmd {
	a.ensureCenters()

	lowDetail := cam.Pose().Scale < a.opts.LODThreshold
	cmds := make([]DrawCmd, 0, 64)

	for _, c := range a.snap.Clusters {
		center := a.clusterPos[c.ID]
		expanded := a.expansion.IsExpanded(c.ID)

		if expanded {
			for _, idx := range a.snap.MemberIndexes(c.ID) {
				it := a.snap.Items[idx]
				pos := a.index[it.ID]
				if !cam.IsVisible(pos, a.opts.ItemRadius) {
					continue
				}
				cmds = append(cmds, a.itemCmd(it, pos, lowDetail))
			}
			continue
		}

		if !cam.IsVisible(center, a.opts.ClusterRadius) {
			continue
		}
		dimmed := a.litClusters != nil && !a.litClusters[c.ID]
		cmds = append(cmds, DrawCmd{
			ID:          c.ID,
			Kind:        KindCluster,
			Pos:         center,
			Opacity:     opacityFor(dimmed),
			Dimmed:      dimmed,
			LowDetail:   lowDetail,
			MemberCount: c.MemberCount,
		})
	}

	for _, idx := range a.snap.NoiseIndexes() {
		it := a.snap.Items[idx]
		pos := a.index[it.ID]
		if !cam.IsVisible(pos, a.opts.ItemRadius) {
			continue
		}
		cmds = append(cmds, a.itemCmd(it, pos, lowDetail))
	}

	// Draw order is pointer-enter recency: the most recently entered node
	// renders on top. Ties fall back to id for determinism.
	sort.SliceStable(cmds, func(i, j int) bool {
		ri := a.expansion.Recency(cmds[i].Kind, cmds[i].ID)
		rj := a.expansion.Recency(cmds[j].Kind, cmds[j].ID)
		if ri != rj {
			return ri < rj
		}
		return cmds[i].ID < cmds[j].ID
	})
	return cmds
}

func (a *Assembler) itemCmd(it ItemPosition, pos r2.Vec, lowDetail bool) DrawCmd {
	dimmed := false
	if a.filter != nil {
		_, hit := a.filter[it.ID]
		dimmed = !hit
	}
	return DrawCmd{
		ID:        it.ID,
		Kind:      KindItem,
		Pos:       pos,
		Rotation:  tiltFor(it.ID),
		Opacity:   opacityFor(dimmed),
		Dimmed:    dimmed,
		LowDetail: lowDetail,
		Thumbnail: it.Thumbnail,
	}
}

func opacityFor(dimmed bool) float64 {
	if dimmed {
		return dimmedOpacity
	}
	return 1.0
}

// tiltFor derives a small deterministic rotation from the item id so tiles
// look loosely placed without any per-frame randomness.
func tiltFor(id int64) float64 {
	h := uint64(id) * 0x9e3779b97f4a7c15
	// Map the top bits onto [-maxTiltRad, maxTiltRad].
	unit := float64(h>>40) / float64(1<<24)
	return (unit*2 - 1) * maxTiltRad
}
