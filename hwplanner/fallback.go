package hwplanner

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// fallbackToGPU is the hardware test-commit oracle: it decides whether a
// single layer can be scanned out directly by plane, or must fall back to
// GPU/VPP composition. It checks, in order, the same conditions the
// hardware itself would reject a commit for, cheapest first, so the
// expensive real TestCommit call only runs once everything else already
// looks plausible.
//
// committed carries every plane already tentatively committed earlier in
// the same greedy pass; layer's prospective commit is tested appended to
// that accumulated list, not in isolation, so a total bandwidth or
// plane-count constraint violated only by the combination of assignments
// made so far is still caught here rather than slipping through to the
// final validateFinalLayers commit.
func (m *Manager) fallbackToGPU(layer *hwlayer.OverlayLayer, plane hwplane.DisplayPlane, committed []hwplane.CommitPlane) bool {
	if layer.IsSolidColor() {
		return true
	}

	if layer.Kind() == hwlayer.KindVideo {
		if !plane.ValidateLayer(layer) {
			return true
		}
	}

	if !plane.ValidateLayer(layer) {
		return true
	}

	buf := layer.Buffer()
	if buf == nil || buf.Buffer() == nil || buf.Buffer().FrameBufferID() == 0 {
		return true
	}

	cp := append(append([]hwplane.CommitPlane(nil), committed...), hwplane.CommitPlane{
		Plane:        plane,
		FrameBuffer:  buf.Buffer().FrameBufferID(),
		DisplayFrame: layer.DisplayFrame(),
		SourceCrop:   layer.SourceCrop(),
		Transform:    layer.PlaneTransform(),
		ZOrder:       layer.ZOrder(),
	})
	if !m.handler.TestCommit(cp) {
		return true
	}

	return false
}

// forceGPUForAllLayers collapses every layer onto a single off-screen
// node, to be fully composited by the GPU. Used when the plane budget is
// exhausted, disabled, or the final commit test fails outright.
func (m *Manager) forceGPUForAllLayers(layers []*hwlayer.OverlayLayer) []*hwplane.State {
	m.resetStates()
	if len(m.states) == 0 || len(layers) == 0 {
		return nil
	}
	node := m.states[0]
	for _, l := range layers {
		node.AddLayer(l)
	}
	node.MarkNeedsGPU()
	m.markActive(node.PlaneRef)
	m.logf("forced all %d layers to GPU composition", len(layers))
	return []*hwplane.State{node}
}

// forceVPPForAllLayers is the video-specific analogue of
// forceGPUForAllLayers: used whenever at least one video layer is present
// and the whole stack must be composited (overlay disabled, the video
// layers outnumbering the remaining plane budget, or a failed final
// test-commit), since the hardware's video post-processor (VPP), not the
// general GPU path, is what composites video streams.
func (m *Manager) forceVPPForAllLayers(layers []*hwlayer.OverlayLayer) []*hwplane.State {
	nodes := m.forceGPUForAllLayers(layers)
	m.logf("forced all %d layers to VPP composition (video layers present)", len(layers))
	return nodes
}
