package gridmap

import (
	"math"
	"testing"
)

func TestCoordToKeyChecked_RoundTrip(t *testing.T) {
	t.Parallel()
	g := New(0.1)

	coords := []float64{0, 0.05, -0.05, 1.0, -1.0, 12.34, -98.76, 3000.1, -3000.1}
	for _, c := range coords {
		key, ok := g.CoordToKeyChecked(c)
		if !ok {
			t.Fatalf("CoordToKeyChecked(%v) failed", c)
		}
		back := g.KeyToCoord(key)
		if math.Abs(back-c) > g.Resolution() {
			t.Errorf("KeyToCoord(CoordToKey(%v)) = %v, more than one cell away", c, back)
		}
		again, ok := g.CoordToKeyChecked(back)
		if !ok || again != key {
			t.Errorf("re-quantising centre %v gave key %d (ok=%v), want %d", back, again, ok, key)
		}
		if unchecked := g.CoordToKey(c); unchecked != key {
			t.Errorf("CoordToKey(%v) = %d, checked variant gave %d", c, unchecked, key)
		}
	}
}

func TestCoordToKeyChecked_EnvelopeBoundary(t *testing.T) {
	t.Parallel()
	// Envelope is [-8, 8) metres.
	g := NewWithMaxVal(0.5, 16)

	tests := []struct {
		coord float64
		ok    bool
		key   uint16
	}{
		{coord: 8.0, ok: false},
		{coord: 8.5, ok: false},
		{coord: 1e12, ok: false},
		{coord: -8.5, ok: false},
		{coord: -1e12, ok: false},
		{coord: math.NaN(), ok: false},
		{coord: 7.5, ok: true, key: 31},
		{coord: 7.99, ok: true, key: 31},
		{coord: -7.5, ok: true, key: 1},
		{coord: -8.0, ok: true, key: 0},
		{coord: 0, ok: true, key: 16},
		{coord: -0.01, ok: true, key: 15},
	}
	for _, tt := range tests {
		key, ok := g.CoordToKeyChecked(tt.coord)
		if ok != tt.ok {
			t.Errorf("CoordToKeyChecked(%v) ok = %v, want %v", tt.coord, ok, tt.ok)
			continue
		}
		if ok && key != tt.key {
			t.Errorf("CoordToKeyChecked(%v) = %d, want %d", tt.coord, key, tt.key)
		}
	}
}

func TestPointToKeyChecked_NoPartialKey(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)

	if _, ok := g.PointToKeyChecked(Point{X: 0, Y: 100}); ok {
		t.Error("expected failure when only the y axis is out of bounds")
	}
	if _, ok := g.XYToKeyChecked(-100, 0); ok {
		t.Error("expected failure when only the x axis is out of bounds")
	}
	key, ok := g.XYToKeyChecked(2.5, -3.5)
	if !ok {
		t.Fatal("expected in-bounds point to succeed")
	}
	if key != (Key{18, 12}) {
		t.Errorf("key = %v, want (18,12)", key)
	}
	if got := g.PointToKey(Point{X: 2.5, Y: -3.5}); got != key {
		t.Errorf("PointToKey = %v, want %v", got, key)
	}
}

func TestKeyToPoint_CellCentre(t *testing.T) {
	t.Parallel()
	g := New(0.5)

	key := g.PointToKey(Point{X: 1.1, Y: -0.2})
	c := g.KeyToPoint(key)
	if c.X != 1.25 || c.Y != -0.25 {
		t.Errorf("KeyToPoint = %v, want {1.25 -0.25}", c)
	}
}

func TestSetResolution_RederivesFactor(t *testing.T) {
	t.Parallel()
	g := New(1.0)
	g.SetResolution(0.25)

	if g.Resolution() != 0.25 {
		t.Errorf("Resolution = %v, want 0.25", g.Resolution())
	}
	key, ok := g.CoordToKeyChecked(1.0)
	if !ok || int(key) != DefaultGridMaxVal+4 {
		t.Errorf("CoordToKeyChecked(1.0) = %d, want %d", key, DefaultGridMaxVal+4)
	}
	if c := g.GridCenter(); c.X != float64(DefaultGridMaxVal)*0.25 {
		t.Errorf("GridCenter = %v", c)
	}
	if !g.sizeChanged {
		t.Error("SetResolution should invalidate the extent cache")
	}
}

func TestNewWithMaxVal_PanicsOnInvalidArguments(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name       string
		resolution float64
		maxVal     int
	}{
		{"zero resolution", 0, 16},
		{"negative resolution", -1, 16},
		{"nan resolution", math.NaN(), 16},
		{"zero max val", 1, 0},
		{"max val too large", 1, DefaultGridMaxVal + 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewWithMaxVal(tc.resolution, tc.maxVal)
		})
	}
}
