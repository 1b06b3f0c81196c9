package gridmap

import (
	"bytes"
	"strings"
	"testing"
)

// Logging tests mutate package state and must not run in parallel.

func TestSetLogWriters_RoutesStreams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	g := NewWithMaxVal(1.0, 16)
	g.SearchXY(100, 0)
	g.ComputeRay(Point{X: 0.5, Y: 0.5}, Point{X: 3.5, Y: 0.5})

	if !strings.Contains(ops.String(), "out of grid bounds") {
		t.Errorf("ops stream missing out of bounds warning, got %q", ops.String())
	}
	if !strings.Contains(diag.String(), "new grid: resolution=1.0000") {
		t.Errorf("diag stream missing construction message, got %q", diag.String())
	}
	if !strings.Contains(trace.String(), "3 cells") {
		t.Errorf("trace stream missing ray telemetry, got %q", trace.String())
	}
	if !strings.Contains(ops.String(), "[gridmap]") {
		t.Errorf("expected output to contain '[gridmap]' prefix, got %q", ops.String())
	}
}

func TestSetLogWriters_NilDisables(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, nil, nil)
	SetLogWriters(nil, nil, nil)

	for i, l := range streams {
		if l != nil {
			t.Fatalf("stream %d should be disabled after SetLogWriters(nil, nil, nil)", i)
		}
	}
	if tracing() {
		t.Error("tracing() should be false with no trace writer")
	}
	// Should not panic when no logger is configured.
	opsf("discarded %d", 1)
	diagf("discarded %d", 2)
	tracef("discarded %d", 3)
	if buf.Len() != 0 {
		t.Errorf("disabled stream wrote %q", buf.String())
	}
}

func TestSetLogWriters_BatchInsertGoesToDiag(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	if tracing() {
		t.Fatal("tracing() should be false without a trace writer")
	}
	g := NewWithMaxVal(1.0, 16, WithLanes(2))
	g.InsertPointCloudRays(Pointcloud{{X: 3.5, Y: 0.5}, {X: 0.5, Y: 3.5}}, Point{X: 0.5, Y: 0.5}, -1)

	if !strings.Contains(diag.String(), "inserted 2 rays") {
		t.Errorf("diag stream missing batch summary, got %q", diag.String())
	}
	if ops.Len() != 0 {
		t.Errorf("ops stream should be quiet for in-envelope rays, got %q", ops.String())
	}
}
