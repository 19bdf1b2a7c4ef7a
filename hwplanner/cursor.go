package hwplanner

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// isCursorPlane reports whether ref names the plane this manager reserved
// exclusively for cursor scanout (see ResizeOverlays).
func (m *Manager) isCursorPlane(ref hwplane.Ref) bool {
	return m.cursorPlane.IsValid() && ref == m.cursorPlane
}

// prepareCursorPlane attempts to scan the cursor layer out directly on the
// reserved cursor plane. It returns the node it used and whether the
// attempt succeeded; on failure the cursor layer is left for the general
// greedy loop to place like any other layer (falling back to GPU
// composition if nothing else works either).
func (m *Manager) prepareCursorPlane(cursor *hwlayer.OverlayLayer) (*hwplane.State, bool) {
	if !m.cursorPlane.IsValid() {
		return nil, false
	}
	node := m.states[m.cursorPlane]
	if m.fallbackToGPU(cursor, node.Plane(), nil) {
		return node, false
	}
	node.AddLayer(cursor)
	m.markActive(node.PlaneRef)
	return node, true
}

// prepareCursorPlanes places at most one cursor layer on the plane
// reserved for cursor duty. When more than one cursor layer is present,
// only the first (lowest z-order) one is special-cased this way; the rest
// consume general overlay planes like any other layer, through the
// caller's regular greedy loop, per the original driver's documented
// multi-cursor handling.
func (m *Manager) prepareCursorPlanes(cursors []*hwlayer.OverlayLayer) map[*hwlayer.OverlayLayer]*hwplane.State {
	if len(cursors) == 0 {
		return nil
	}
	assigned := make(map[*hwlayer.OverlayLayer]*hwplane.State, 1)
	if node, ok := m.prepareCursorPlane(cursors[0]); ok {
		assigned[cursors[0]] = node
	}
	return assigned
}

// cursorPlaneAvailableForOverlay allows the reserved cursor plane to serve a
// non-cursor layer on frames that have no cursor at all, rather than
// leaving it idle. It is the other half of the ResizeOverlays heuristic:
// reserving the plane only pays off if it can still be put to work when
// unneeded for cursor duty.
func (m *Manager) cursorPlaneAvailableForOverlay(haveCursorLayer bool) bool {
	return m.cursorPlane.IsValid() && !haveCursorLayer
}
