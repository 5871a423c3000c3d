package scene

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/layout"
)

// testCam returns a camera showing roughly world (0..800, 0..600).
func testCam() *camera.Controller {
	return camera.New(800, 600, camera.Options{})
}

func countKind(cmds []DrawCmd, k Kind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == k {
			n++
		}
	}
	return n
}

func findCmd(cmds []DrawCmd, id int64, k Kind) (DrawCmd, bool) {
	for _, c := range cmds {
		if c.ID == id && c.Kind == k {
			return c, true
		}
	}
	return DrawCmd{}, false
}

func TestBuild_CollapsedClustersHideMembers(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300, MemberCount: 2}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(1)},
		}))

	cmds := a.Build(testCam())
	if countKind(cmds, KindCluster) != 1 {
		t.Errorf("want 1 cluster command, got %d", countKind(cmds, KindCluster))
	}
	if countKind(cmds, KindItem) != 0 {
		t.Errorf("collapsed members must emit no item commands, got %d", countKind(cmds, KindItem))
	}
}

func TestBuild_ExpandedClusterEmitsSpiralItems(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300, MemberCount: 3}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(1)},
			{ID: 12, ClusterID: ptr(1)},
		}))
	a.Expand(1)

	cmds := a.Build(testCam())
	if countKind(cmds, KindCluster) != 0 {
		t.Error("expanded cluster should not draw its marker")
	}
	if countKind(cmds, KindItem) != 3 {
		t.Fatalf("want 3 item commands, got %d", countKind(cmds, KindItem))
	}

	// Members sit exactly on the golden-angle spiral around the centroid.
	for i, id := range []int64{10, 11, 12} {
		want := layout.SpiralPosition(i, 3, 400, 300, DefaultSpiralRadius)
		cmd, ok := findCmd(cmds, id, KindItem)
		if !ok {
			t.Fatalf("item %d missing from draw list", id)
		}
		if math.Abs(cmd.Pos.X-want.X) > 1e-9 || math.Abs(cmd.Pos.Y-want.Y) > 1e-9 {
			t.Errorf("item %d at %+v, want %+v", id, cmd.Pos, want)
		}
	}
}

func TestExpandAfterBuild_MovesMembersToSpiral(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300, MemberCount: 3}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(1)},
			{ID: 12, ClusterID: ptr(1)},
		}))

	// Warm the layout cache with a collapsed frame first, the way a hover
	// always happens after frames have already rendered.
	a.Build(testCam())
	if p, _ := a.Position(11); p != (r2.Vec{X: 400, Y: 300}) {
		t.Fatalf("collapsed member should sit on the centroid, got %+v", p)
	}

	a.Expand(1)
	cmds := a.Build(testCam())

	want := layout.SpiralPosition(1, 3, 400, 300, DefaultSpiralRadius)
	cmd, ok := findCmd(cmds, 11, KindItem)
	if !ok {
		t.Fatal("expanded member missing from draw list")
	}
	if math.Abs(cmd.Pos.X-want.X) > 1e-9 || math.Abs(cmd.Pos.Y-want.Y) > 1e-9 {
		t.Errorf("item 11 drawn at %+v after expansion, want spiral %+v", cmd.Pos, want)
	}
	if p, _ := a.Position(11); math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
		t.Errorf("Position(11) = %+v after expansion, want spiral %+v", p, want)
	}
}

func TestCollapseAfterBuild_ReturnsMembersToCentroid(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300, MemberCount: 2}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(1)},
		}))

	a.Expand(1)
	a.Build(testCam())

	a.Collapse(1)
	cmds := a.Build(testCam())
	if countKind(cmds, KindItem) != 0 {
		t.Errorf("collapsed members still in draw list: %+v", cmds)
	}
	if countKind(cmds, KindCluster) != 1 {
		t.Error("cluster marker missing after collapse")
	}
	if p, _ := a.Position(11); p != (r2.Vec{X: 400, Y: 300}) {
		t.Errorf("Position(11) = %+v after collapse, want the centroid", p)
	}
}

func TestBuild_ReExpansionIsDeterministic(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300, MemberCount: 2}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(1)},
		}))

	a.Expand(1)
	first := map[int64]r2.Vec{}
	for _, c := range a.Build(testCam()) {
		first[c.ID] = c.Pos
	}

	a.Collapse(1)
	a.Build(testCam())
	a.Expand(1)
	for _, c := range a.Build(testCam()) {
		if c.Pos != first[c.ID] {
			t.Errorf("item %d moved on re-expansion: %+v vs %+v", c.ID, c.Pos, first[c.ID])
		}
	}
}

func TestBuild_CullsOffscreen(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{
			{ID: 1, X: 400, Y: 300},
			{ID: 2, X: 99999, Y: 99999},
		}, nil))

	cmds := a.Build(testCam())
	if len(cmds) != 1 || cmds[0].ID != 1 {
		t.Errorf("far cluster should be culled, got %+v", cmds)
	}
}

func TestBuild_NoiseOnRing(t *testing.T) {
	a := NewAssembler(Options{NoiseRadius: 200})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 5000, Y: 5000}},
		[]ItemPosition{
			{ID: 20, X: 1, Y: 1},
			{ID: 21, X: 2, Y: 2},
		}))

	for i, id := range []int64{20, 21} {
		pos, ok := a.Position(id)
		if !ok {
			t.Fatalf("noise item %d missing from index", id)
		}
		want := layout.RingPosition(i, 2, 200)
		if math.Abs(pos.X-want.X) > 1e-9 || math.Abs(pos.Y-want.Y) > 1e-9 {
			t.Errorf("noise item %d at %+v, want %+v", id, pos, want)
		}
	}
}

func TestBuild_FullyUnclusteredKeepsRawPositions(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(), nil,
		[]ItemPosition{
			{ID: 20, X: 100, Y: 120},
			{ID: 21, X: 700, Y: 500},
		}))

	p, ok := a.Position(20)
	if !ok || p.X != 100 || p.Y != 120 {
		t.Errorf("unclustered item should keep raw position, got %+v", p)
	}

	cmds := a.Build(testCam())
	if countKind(cmds, KindItem) != 2 {
		t.Errorf("want 2 item commands, got %d", countKind(cmds, KindItem))
	}
}

func TestBuild_FullyUnclusteredExplosionRelaxes(t *testing.T) {
	a := NewAssembler(Options{Relax: layout.RelaxOptions{Iterations: 1, MinDistance: 100}})
	a.SetSnapshot(NewSnapshot(uuid.New(), nil,
		[]ItemPosition{
			{ID: 20, X: 100, Y: 100},
			{ID: 21, X: 110, Y: 100},
		}))

	a.SetExplosion(true)
	p0, _ := a.Position(20)
	p1, _ := a.Position(21)
	d := math.Hypot(p1.X-p0.X, p1.Y-p0.Y)
	if d <= 10 {
		t.Errorf("explosion should separate raw positions, distance = %v", d)
	}
}

func TestExplosion_RelaxesCentroids(t *testing.T) {
	a := NewAssembler(Options{Relax: layout.RelaxOptions{Iterations: 1, MinDistance: 100}})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{
			{ID: 1, X: 400, Y: 300},
			{ID: 2, X: 410, Y: 300},
		}, nil))

	off, _ := a.ClusterPosition(1)
	a.SetExplosion(true)
	on1, _ := a.ClusterPosition(1)
	on2, _ := a.ClusterPosition(2)

	if on1 == off {
		t.Error("explosion should move overlapping centroids")
	}
	if d := math.Hypot(on2.X-on1.X, on2.Y-on1.Y); d <= 10 {
		t.Errorf("centroids not separated: %v", d)
	}

	// Toggling off restores raw centroids.
	a.SetExplosion(false)
	back, _ := a.ClusterPosition(1)
	if back.X != 400 || back.Y != 300 {
		t.Errorf("raw centroid not restored: %+v", back)
	}
}

func TestFilter_DimsNonMatches(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{
			{ID: 1, X: 200, Y: 300},
			{ID: 2, X: 600, Y: 300},
		},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 11, ClusterID: ptr(2)},
		}))

	a.SetFilter([]int64{10})
	cmds := a.Build(testCam())

	c1, _ := findCmd(cmds, 1, KindCluster)
	c2, _ := findCmd(cmds, 2, KindCluster)
	if c1.Dimmed {
		t.Error("cluster with a matching member must stay lit")
	}
	if !c2.Dimmed {
		t.Error("cluster without matches must dim")
	}
	if c2.Opacity >= c1.Opacity {
		t.Errorf("dimmed opacity %v should be below lit %v", c2.Opacity, c1.Opacity)
	}
}

func TestFilter_NilVersusEmpty(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300}},
		[]ItemPosition{{ID: 10, ClusterID: ptr(1)}}))

	// nil filter: nothing dims.
	a.SetFilter(nil)
	cmds := a.Build(testCam())
	if c, _ := findCmd(cmds, 1, KindCluster); c.Dimmed {
		t.Error("nil filter must not dim")
	}

	// Empty non-nil filter: everything dims.
	a.SetFilter([]int64{})
	cmds = a.Build(testCam())
	if c, _ := findCmd(cmds, 1, KindCluster); !c.Dimmed {
		t.Error("empty filter set should dim everything")
	}
}

func TestBuild_LowDetailBelowThreshold(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300}}, nil))

	cam := testCam()
	cmds := a.Build(cam)
	if cmds[0].LowDetail {
		t.Error("scale 1.0 should not be low detail")
	}

	cam.ZoomAt(r2.Vec{X: 400, Y: 300}, -600) // scale 0.4 < 0.45
	cmds = a.Build(cam)
	if len(cmds) == 0 || !cmds[0].LowDetail {
		t.Error("scale below the threshold should flag low detail")
	}
}

func TestBuild_RecencyOrdersDrawList(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{
			{ID: 1, X: 200, Y: 300},
			{ID: 2, X: 400, Y: 300},
			{ID: 3, X: 600, Y: 300},
		}, nil))

	a.Expansion().Touch(KindCluster, 3)
	a.Expansion().Touch(KindCluster, 1)

	cmds := a.Build(testCam())
	if len(cmds) != 3 {
		t.Fatalf("want 3 commands, got %d", len(cmds))
	}
	// Untouched first, then touched in enter order; most recent last (on top).
	if cmds[0].ID != 2 || cmds[1].ID != 3 || cmds[2].ID != 1 {
		t.Errorf("draw order = %d %d %d, want 2 3 1", cmds[0].ID, cmds[1].ID, cmds[2].ID)
	}
}

func TestItemTilt_DeterministicAndBounded(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(), nil,
		[]ItemPosition{{ID: 37, X: 400, Y: 300}}))

	first := a.Build(testCam())
	second := a.Build(testCam())
	if first[0].Rotation != second[0].Rotation {
		t.Error("tilt must be deterministic per id")
	}
	if math.Abs(first[0].Rotation) > maxTiltRad {
		t.Errorf("tilt %v exceeds bound %v", first[0].Rotation, maxTiltRad)
	}
}

func TestSetSnapshot_ResetsExpansion(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300}},
		[]ItemPosition{{ID: 10, ClusterID: ptr(1)}}))
	a.Expand(1)

	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300}},
		[]ItemPosition{{ID: 10, ClusterID: ptr(1)}}))
	if _, open := a.Expansion().Expanded(); open {
		t.Error("snapshot replacement must reset expansion state")
	}
}

func TestRelaxRespectsExpansion(t *testing.T) {
	opts := Options{
		Relax:                  layout.RelaxOptions{Iterations: 1, MinDistance: 100},
		RelaxRespectsExpansion: true,
	}
	a := NewAssembler(opts)
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{
			{ID: 1, X: 400, Y: 300},
			{ID: 2, X: 410, Y: 300},
		},
		[]ItemPosition{{ID: 10, ClusterID: ptr(1)}}))

	a.SetExplosion(true)
	relaxed, _ := a.ClusterPosition(1)
	if relaxed.X == 400 {
		t.Fatal("setup: explosion should have relaxed the centroid")
	}

	// Expanding suspends relaxation under this policy.
	a.Expand(1)
	suspended, _ := a.ClusterPosition(1)
	if suspended.X != 400 || suspended.Y != 300 {
		t.Errorf("expansion should suspend relaxation, got %+v", suspended)
	}

	a.Collapse(1)
	resumed, _ := a.ClusterPosition(1)
	if resumed != relaxed {
		t.Errorf("collapse should resume relaxation, got %+v want %+v", resumed, relaxed)
	}
}

func TestAllPositions_IncludesCentersAndItems(t *testing.T) {
	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(),
		[]ClusterNode{{ID: 1, X: 400, Y: 300}},
		[]ItemPosition{
			{ID: 10, ClusterID: ptr(1)},
			{ID: 20, X: 1, Y: 1},
		}))

	got := a.AllPositions()
	// One centroid plus two indexed items.
	if len(got) != 3 {
		t.Errorf("AllPositions returned %d entries, want 3", len(got))
	}
}

func BenchmarkBuild1000Items(b *testing.B) {
	clusters := make([]ClusterNode, 10)
	for i := range clusters {
		clusters[i] = ClusterNode{ID: int64(i), X: float64(i * 80), Y: 300, MemberCount: 100}
	}
	items := make([]ItemPosition, 1000)
	for i := range items {
		cid := int64(i % 10)
		items[i] = ItemPosition{ID: int64(1000 + i), ClusterID: &cid}
	}

	a := NewAssembler(Options{})
	a.SetSnapshot(NewSnapshot(uuid.New(), clusters, items))
	a.Expand(3)
	cam := testCam()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Build(cam)
	}
}
