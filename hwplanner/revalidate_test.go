package hwplanner

import (
	"testing"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
)

func TestReValidateReusesPlanWhenNothingPending(t *testing.T) {
	m, _, _ := newTestManager(2)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	first := m.Validate(layers, ValidateOptions{})
	if len(first.Nodes) != 1 {
		t.Fatalf("setup: expected one node, got %d", len(first.Nodes))
	}

	second := m.ReValidate(layers)
	if len(second.Nodes) != 1 {
		t.Fatalf("expected ReValidate to keep one node, got %d", len(second.Nodes))
	}
	if second.Nodes[0].Plane().ID() != first.Nodes[0].Plane().ID() {
		t.Fatalf("expected ReValidate to reuse the same plane")
	}
}

func TestReValidateKeepsPlanWhenRotationUnsupported(t *testing.T) {
	m, _, planes := newTestManager(1)
	planes[0].Rotation = false
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	first := m.Validate(layers, ValidateOptions{})
	first.Nodes[0].SetRotation(geom.Rotate90)

	res := m.ReValidate(layers)
	if len(res.Nodes) == 0 {
		t.Fatal("expected ReValidate to still produce a plan")
	}
}

func TestReValidateWithNoActivePlanRunsFullValidate(t *testing.T) {
	m, _, _ := newTestManager(2)
	layers := []*hwlayer.OverlayLayer{
		newLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, 100, 100)),
	}
	res := m.ReValidate(layers)
	if len(res.Nodes) != 1 {
		t.Fatalf("expected ReValidate with no prior plan to behave like Validate, got %d nodes", len(res.Nodes))
	}
}
