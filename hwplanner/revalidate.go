package hwplanner

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// ReValidate re-checks an existing plan against a display-state change
// (typically a rotation or scaling change) that does not alter which
// layers exist or how they are grouped, without paying for a full greedy
// re-assignment. It only looks at the revalidation bits each node
// accumulated since the last Validate (see hwplane.State.SetRotation and
// friends); any node with no pending bits is trusted as-is.
//
// RevalidateScanout is an opportunity, not a recheck: it fires on a node
// that is currently GPU-composited with exactly one layer, and tries to
// demote it back to direct scanout now that whatever forced it to GPU
// composition may no longer apply. The node's plane is temporarily
// swapped to carry just that single layer and tested again; success wins
// back a plane's worth of bandwidth, failure leaves the node exactly as
// it was.
//
// A node whose targeted recheck fails keeps (or reverts to) its previous
// setting for that aspect; that alone never abandons the plan. If the
// nodes together then fail the hardware test-commit, ReValidate gives up
// and falls back to a full Validate rather than leaving a
// partially-patched, unverified plan in place.
func (m *Manager) ReValidate(layers []*hwlayer.OverlayLayer) Result {
	nodes := m.nodesInUse()
	if len(nodes) == 0 {
		return m.Validate(layers, ValidateOptions{})
	}

	for _, n := range nodes {
		bits := n.Revalidation()
		if bits == 0 {
			continue
		}

		if bits.Has(hwplane.RevalidateScanout) && !n.IsDirectScanout() && len(n.Layers()) == 1 {
			if m.tryDemoteToScanout(n) {
				n.ClearRevalidation(hwplane.RevalidateScanout)
				continue
			}
		}

		if bits.Has(hwplane.RevalidateRotation) {
			m.validateDisplayRotation(n)
			n.ClearRevalidation(hwplane.RevalidateRotation)
		}

		if bits.Has(hwplane.RevalidateUpScalar) {
			m.validateUpScalar(n)
			n.ClearRevalidation(hwplane.RevalidateUpScalar)
		}

		if bits.Has(hwplane.RevalidateDownScaling) {
			m.validateDownScaling(n)
			n.ClearRevalidation(hwplane.RevalidateDownScaling)
		}
	}

	if !m.validateFinalLayers(nodes) {
		return m.Validate(layers, ValidateOptions{})
	}

	return m.finish(nodes, layers, true)
}

// validateDisplayRotation re-checks whether a node currently relying on
// GPU pre-rotation can be satisfied by the display's own rotation property
// instead, now that the global display transform may have changed. A plane
// that cannot rotate at all in hardware is always pinned to GPURotation.
func (m *Manager) validateDisplayRotation(n *hwplane.State) {
	if m.displayRotation == geom.TransformNone || len(n.Layers()) == 0 {
		return
	}
	if !n.Plane().CanRotate() {
		n.SetRotationType(hwplane.RotationGPU, false)
		return
	}

	n.SetRotationType(hwplane.RotationDisplay, false)
	if m.fallbackToGPU(n.Layers()[0], n.Plane(), nil) {
		n.SetRotationType(hwplane.RotationGPU, false)
	}
}

// validateUpScalar re-checks whether a node whose display frame is larger
// than its source crop can still have that gap closed by the plane's own
// scaler, rather than by asking the GPU to render the off-screen surface
// already upscaled. Video layers never use the plane scalar: the video
// post-processor handles their scaling itself.
func (m *Manager) validateUpScalar(n *hwplane.State) {
	if len(n.Layers()) == 0 {
		return
	}
	layer := n.Layers()[0]

	if n.UsesPlaneScalar() {
		n.SetUsesPlaneScalar(false, false)
	}

	crop := layer.SourceCrop()
	frame := layer.DisplayFrame()
	needsScaling := float64(frame.Width()) != crop.Width() || float64(frame.Height()) != crop.Height()
	if !needsScaling || !n.Plane().CanScale() || layer.Kind() == hwlayer.KindVideo {
		return
	}

	n.SetUsesPlaneScalar(true, false)
	if m.fallbackToGPU(layer, n.Plane(), nil) {
		n.SetUsesPlaneScalar(false, false)
	}
}

// validateDownScaling re-checks whether a node's off-screen surface can be
// rendered at a coarser resolution than the display frame and then
// stretched back up by the plane's scaler, trading render cost for scaler
// bandwidth. It tries the widest supported factor first and backs off to
// no down-scaling at all if the hardware rejects it.
func (m *Manager) validateDownScaling(n *hwplane.State) {
	if len(n.Layers()) == 0 {
		return
	}

	n.SetDownScalingFactor(1, false)
	if n.UsesPlaneScalar() || !n.Plane().CanScale() {
		return
	}

	layer := n.Layers()[0]
	n.SetDownScalingFactor(4, false)
	if m.fallbackToGPU(layer, n.Plane(), nil) {
		n.SetDownScalingFactor(1, false)
	}
}

// tryDemoteToScanout attempts to swap a GPU-composited single-layer node
// back to a direct-scanout node: it carries the exact same plane and
// layer either way, so on success nothing about n's identity changes,
// only its disposition and the surface it no longer needs.
func (m *Manager) tryDemoteToScanout(n *hwplane.State) bool {
	layer := n.Layers()[0]
	if m.fallbackToGPU(layer, n.Plane(), nil) {
		return false
	}
	surfaceRef := n.SurfaceRef()
	n.Reset()
	n.AddLayer(layer)
	if surfaceRef.IsValid() {
		m.pool.Release(surfaceRef)
	}
	return true
}
