package hwplanner

import (
	"testing"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwdriver"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

func newLayer(index, z int, kind hwlayer.Kind, frame geom.Rect[int32]) *hwlayer.OverlayLayer {
	buf := &hwdriver.Buffer{W: 100, H: 100, Fmt: 1, FBID: uint32(index + 1)} //nolint:gosec
	host := hwlayer.HostLayer{
		Alpha:           1,
		SourceCrop:      geom.NewRect(0, 0, float64(frame.Width()), float64(frame.Height())),
		DisplayFrame:    frame,
		Blending:        hwlayer.BlendingPremultiplied,
		LeftConstraint:  -1,
		RightConstraint: -1,
	}
	switch kind {
	case hwlayer.KindCursor:
		buf.UsageBit = hwbuffer.UsageCursor
	case hwlayer.KindVideo:
		buf.Video = true
	}
	return hwlayer.NewOverlayLayer(index, z, host, buf, geom.TransformNone, nil)
}

func newTestManager(numPlanes int) (*Manager, *hwdriver.Handler, []*hwdriver.Plane) {
	planes := make([]*hwdriver.Plane, numPlanes)
	ifacePlanes := make([]hwplane.DisplayPlane, numPlanes)
	for i := 0; i < numPlanes; i++ {
		planes[i] = hwdriver.NewPlane(uint32(i), i == 0) //nolint:gosec
		ifacePlanes[i] = planes[i]
	}
	if numPlanes > 1 {
		planes[numPlanes-1].Cursor = true
	}
	handler := hwdriver.NewHandler()
	m := NewManager(ifacePlanes, handler, hwdriver.NewSurfaceFactory())
	return m, handler, planes
}

func TestValidateNoDuplicatePlaneAssignment(t *testing.T) {
	m, _, _ := newTestManager(3)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
		newLayer(1, 1, hwlayer.KindNormal, geom.NewRect[int32](100, 0, 200, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})

	seen := map[uint32]bool{}
	for _, n := range res.Nodes {
		id := n.Plane().ID()
		if seen[id] {
			t.Fatalf("plane %d assigned to more than one node", id)
		}
		seen[id] = true
	}
}

func TestValidateCursorIsolation(t *testing.T) {
	m, _, _ := newTestManager(3)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
		newLayer(1, 1, hwlayer.KindCursor, geom.NewRect[int32](50, 50, 70, 70)),
	}
	res := m.Validate(layers, ValidateOptions{})

	for _, n := range res.Nodes {
		if n.UsesCursorLayer() && len(n.Layers()) != 1 {
			t.Fatalf("cursor layer must never share a plane, got %d layers", len(n.Layers()))
		}
	}
}

func TestValidateMultipleVideoLayersForceVPP(t *testing.T) {
	// Two planes, the second reserved for cursor duty, leaves exactly one
	// plane of budget for two video layers plus whatever else needs a
	// shared off-screen target: not enough room, so both video layers
	// must be forced onto a single VPP-composited node.
	m, _, _ := newTestManager(2)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindVideo, geom.NewRect[int32](0, 0, 100, 100)),
		newLayer(1, 1, hwlayer.KindVideo, geom.NewRect[int32](100, 0, 200, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})

	if len(res.Nodes) != 1 {
		t.Fatalf("expected a single composited node for multi-video fallback, got %d", len(res.Nodes))
	}
	if res.Nodes[0].IsDirectScanout() {
		t.Fatalf("expected the forced-VPP node to be off-screen composed")
	}
	if len(res.Nodes[0].Layers()) != 2 {
		t.Fatalf("expected both video layers merged into one node, got %d", len(res.Nodes[0].Layers()))
	}
}

func TestValidateSingleVideoLayerForcesVPPWhenPlaneBudgetTight(t *testing.T) {
	// A single plane and a single video layer: the plane budget has no
	// room left over for anything else, so even one video layer is
	// forced to VPP rather than scanned out directly.
	m, _, _ := newTestManager(1)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindVideo, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})

	if len(res.Nodes) != 1 {
		t.Fatalf("expected a single node, got %d", len(res.Nodes))
	}
	if res.Nodes[0].IsDirectScanout() {
		t.Fatalf("expected a single video layer to be forced to VPP when no plane budget remains")
	}
}

func TestValidateSingleVideoLayerScansOutDirectlyWithPlaneBudgetToSpare(t *testing.T) {
	// Plenty of planes relative to the single video layer: no budget
	// pressure, so it is free to land on its own plane directly.
	m, _, _ := newTestManager(4)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindVideo, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})

	if len(res.Nodes) != 1 {
		t.Fatalf("expected a single node, got %d", len(res.Nodes))
	}
	if !res.Nodes[0].IsDirectScanout() {
		t.Fatalf("expected the lone video layer to scan out directly when planes are plentiful")
	}
}

func TestValidateZOrderMonotonicWithinNode(t *testing.T) {
	m, handler, _ := newTestManager(1)
	handler.FailAlways = false
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
		newLayer(1, 1, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
		newLayer(2, 2, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})

	if len(res.Nodes) != 1 {
		t.Fatalf("expected one node (single plane forces composition), got %d", len(res.Nodes))
	}
	ls := res.Nodes[0].Layers()
	for i := 1; i < len(ls); i++ {
		if ls[i].ZOrder() < ls[i-1].ZOrder() {
			t.Fatalf("z-order not monotonic within plan node: %v", ls)
		}
	}
}

func TestValidateFallsBackToGPUWhenNoPlanes(t *testing.T) {
	m, _, _ := newTestManager(0)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})
	if len(res.Nodes) != 0 {
		t.Fatalf("expected no nodes when manager has zero planes, got %d", len(res.Nodes))
	}
}

func TestValidateRejectedCommitFallsBackToGPU(t *testing.T) {
	m, handler, _ := newTestManager(2)
	handler.FailAlways = true
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.Validate(layers, ValidateOptions{})
	if len(res.Nodes) != 1 {
		t.Fatalf("expected fallback to a single GPU node, got %d", len(res.Nodes))
	}
	if res.Nodes[0].IsDirectScanout() {
		t.Fatalf("expected forced GPU fallback node to be off-screen composed")
	}
}
