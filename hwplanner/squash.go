package hwplanner

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// forceSeparatePlane reports whether into and from must stay on separate
// planes even though both are off-screen composed: a cursor or video
// layer can never be folded into a shared composition group, and two
// otherwise-mergeable groups must still stay apart if their combined
// footprint would exceed what a single plane's scaler can read as a
// source.
func (m *Manager) forceSeparatePlane(into, from *hwplane.State) bool {
	if into.UsesVideoLayer() || into.UsesCursorLayer() || from.UsesVideoLayer() || from.UsesCursorLayer() {
		return true
	}
	union := into.DisplayFrame().Union(from.DisplayFrame())
	plane := into.Plane()
	if maxW := plane.MaxSourceWidth(); maxW > 0 && union.Width() > maxW {
		return true
	}
	if maxH := plane.MaxSourceHeight(); maxH > 0 && union.Height() > maxH {
		return true
	}
	return false
}

// squashTrailingPair tries to fold the most recently assigned node (last)
// into the one before it (prev), freeing last's plane for reuse on a
// later layer. It only does so when neither must stay separate and their
// display frames actually overlap (frames that merely share an edge do
// not count) — squashing two groups that do not overlap would just waste
// the freed plane's bandwidth on dead space.
func (m *Manager) squashTrailingPair(prev, last *hwplane.State) bool {
	if prev == nil || last == nil {
		return false
	}
	if m.forceSeparatePlane(prev, last) {
		return false
	}
	if prev.DisplayFrame().Classify(last.DisplayFrame()) == geom.OverlapOutside {
		return false
	}
	for _, l := range last.Layers() {
		prev.AddLayer(l)
	}
	last.Reset()
	return true
}

// squashNonVideoPlanes is invoked when the greedy assignment has run out
// of planes but still has layers left to place. It walks the active
// non-video nodes from the end backward, merging adjacent pairs until
// either want planes have been freed or no more legal merges remain,
// returning the refs of the planes freed this way so the caller can hand
// them straight back out rather than waiting for the next forward pass
// over the plane list.
func (m *Manager) squashNonVideoPlanes(nodes []*hwplane.State, want int) []hwplane.Ref {
	var freed []hwplane.Ref
	for len(freed) < want {
		merged := false
		for i := len(nodes) - 1; i > 0; i-- {
			if len(nodes[i].Layers()) == 0 {
				continue
			}
			var prev *hwplane.State
			for j := i - 1; j >= 0; j-- {
				if len(nodes[j].Layers()) > 0 {
					prev = nodes[j]
					break
				}
			}
			if prev == nil {
				continue
			}
			if m.squashTrailingPair(prev, nodes[i]) {
				m.active[nodes[i].PlaneRef] = false
				nodes[i].Plane().SetInUse(false)
				freed = append(freed, nodes[i].PlaneRef)
				merged = true
				if len(freed) >= want {
					return freed
				}
				break
			}
		}
		if !merged {
			break
		}
	}
	return freed
}
