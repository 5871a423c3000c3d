package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewRect_Normalizes(t *testing.T) {
	r := NewRect(10, 20, -5, 3)
	if r.Min.X != -5 || r.Min.Y != 3 || r.Max.X != 10 || r.Max.Y != 20 {
		t.Errorf("unexpected rect: %+v", r)
	}
}

func TestRect_Inflate(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	g := r.Inflate(5)
	if g.Min.X != -5 || g.Max.X != 15 {
		t.Errorf("inflate by 5: got %+v", g)
	}

	// Deflating past the midpoint collapses to the center, never inverts.
	s := r.Inflate(-20)
	if s.Width() != 0 || s.Height() != 0 {
		t.Errorf("over-deflated rect should collapse, got %+v", s)
	}
	c := s.Center()
	if c.X != 5 || c.Y != 5 {
		t.Errorf("collapsed rect should sit at center, got %+v", c)
	}
}

func TestRect_IntersectsCircle(t *testing.T) {
	r := NewRect(0, 0, 100, 100)

	cases := []struct {
		name   string
		center r2.Vec
		radius float64
		want   bool
	}{
		{"inside", r2.Vec{X: 50, Y: 50}, 1, true},
		{"touching edge", r2.Vec{X: 110, Y: 50}, 10, true},
		{"outside", r2.Vec{X: 150, Y: 50}, 10, false},
		{"corner graze", r2.Vec{X: 105, Y: 105}, 8, true},
		{"corner miss", r2.Vec{X: 110, Y: 110}, 8, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.IntersectsCircle(tc.center, tc.radius); got != tc.want {
				t.Errorf("IntersectsCircle(%+v, %v) = %v, want %v", tc.center, tc.radius, got, tc.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	pts := []r2.Vec{{X: 3, Y: -2}, {X: -1, Y: 7}, {X: 0, Y: 0}}
	box, ok := Bounds(pts)
	if !ok {
		t.Fatal("expected bounds for non-empty input")
	}
	if box.Min.X != -1 || box.Min.Y != -2 || box.Max.X != 3 || box.Max.Y != 7 {
		t.Errorf("unexpected bounds: %+v", box)
	}
}

func TestBounds_SkipsNonFinite(t *testing.T) {
	pts := []r2.Vec{
		{X: math.NaN(), Y: 1},
		{X: 2, Y: math.Inf(1)},
		{X: 5, Y: 5},
	}
	box, ok := Bounds(pts)
	if !ok {
		t.Fatal("expected the finite point to produce bounds")
	}
	if box.Min.X != 5 || box.Max.Y != 5 {
		t.Errorf("unexpected bounds: %+v", box)
	}

	if _, ok := Bounds(nil); ok {
		t.Error("empty input should report no bounds")
	}
	if _, ok := Bounds([]r2.Vec{{X: math.NaN(), Y: math.NaN()}}); ok {
		t.Error("all-NaN input should report no bounds")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("in-range value changed: %v", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Errorf("low clamp: %v", got)
	}
	if got := Clamp(42, 0, 10); got != 10 {
		t.Errorf("high clamp: %v", got)
	}
	if got := Clamp(math.NaN(), 0, 10); got != 0 {
		t.Errorf("NaN should clamp to lower bound, got %v", got)
	}
}

func TestEaseOutCubic(t *testing.T) {
	if got := EaseOutCubic(0); got != 0 {
		t.Errorf("ease(0) = %v", got)
	}
	if got := EaseOutCubic(1); got != 1 {
		t.Errorf("ease(1) = %v", got)
	}
	// Ease-out front-loads motion: halfway in time is past halfway in space.
	if got := EaseOutCubic(0.5); got <= 0.5 {
		t.Errorf("ease(0.5) = %v, want > 0.5", got)
	}
	// Monotonic over [0,1].
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseOutCubic(float64(i) / 100)
		if v < prev {
			t.Fatalf("ease not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(10, 20, 0.5); got != 15 {
		t.Errorf("Lerp midpoint = %v", got)
	}
	if got := Lerp(10, 20, 0); got != 10 {
		t.Errorf("Lerp(.,.,0) = %v", got)
	}
	if got := Lerp(10, 20, 1); got != 20 {
		t.Errorf("Lerp(.,.,1) = %v", got)
	}
}
