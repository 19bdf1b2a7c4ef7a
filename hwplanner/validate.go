package hwplanner

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwsurface"
)

// Result is the outcome of one Validate or ReValidate call: the plan
// nodes the host should program the hardware with, the off-screen
// surfaces that fell out of use this frame but may still be on screen
// from a previous present and so must be aged out rather than freed
// outright, and two flags summarizing what the call actually did.
type Result struct {
	Nodes     []*hwplane.State
	MarkLater []hwsurface.Ref
	// CommitChecked reports whether Nodes is backed by a hardware
	// test-commit that actually succeeded against the plane set built for
	// it, as opposed to a forced GPU/VPP fallback taken without ever
	// asking the hardware (zero planes, overlay disabled, or the final
	// test-commit itself having failed).
	CommitChecked bool
	// RevalidationNeeded reports whether any node in Nodes still carries
	// pending revalidation bits (see hwplane.State.Revalidation), meaning
	// a future ReValidate pass has work left to do even though this
	// Validate call itself succeeded.
	RevalidationNeeded bool
}

// ValidateOptions carries Validate's optional behavior switches.
type ValidateOptions struct {
	// AddIndex, when greater than zero and less than len(layers), means
	// only layers from this index onward are new or changed: composition
	// entries Previous already holds for the layers before AddIndex are
	// kept as-is, and the greedy assignment loop runs only over the
	// suffix. This is the incremental validation path — e.g. a single
	// cursor layer moving while everything beneath it stays put — that
	// lets the planner skip re-placing the whole stack.
	AddIndex int
	// Previous is the Result of the last Validate/ReValidate call,
	// consulted when AddIndex > 0 to seed the preserved composition
	// entries.
	Previous Result
	// DisableOverlay forces every layer straight to GPU (or VPP, when a
	// video layer is present) without consulting any plane or running any
	// test-commit at all.
	DisableOverlay bool
}

// Validate is the planner's entry point: it builds a fresh composition
// plan for layers (expected in ascending z-order, bottom to top),
// maximizing how many of them land on a dedicated hardware plane.
//
// Disabling overlay planes altogether shortcuts straight to full GPU or VPP
// composition; so does running out of plane budget for the video layers
// still to be placed, since the hardware's video post-processor is what
// composites concurrent video streams once there is no plane left to also
// host the layers around them. Neither condition depends on what the
// hardware's test-commit says, since both are known unsupported up front.
func (m *Manager) Validate(layers []*hwlayer.OverlayLayer, opts ValidateOptions) Result {
	startAt := 0
	incremental := opts.AddIndex > 0 && opts.AddIndex < len(layers) && len(opts.Previous.Nodes) > 0
	if incremental {
		startAt = opts.AddIndex
	}

	// video/cursor classification only covers the suffix actually being
	// (re)placed this call: layers before startAt are already accounted
	// for by the preserved incremental composition entries.
	videoCount, cursorLayers := classifyLayers(layers[startAt:])

	if opts.DisableOverlay {
		if videoCount > 0 {
			return m.finish(m.forceVPPForAllLayers(layers), layers, false)
		}
		return m.finish(m.forceGPUForAllLayers(layers), layers, false)
	}

	if len(m.planes) == 0 || m.handler == nil {
		return m.finish(m.forceGPUForAllLayers(layers), layers, false)
	}

	compositionSize := 0
	if incremental {
		compositionSize = len(opts.Previous.Nodes)
	}
	availPlanes := len(m.planes) - compositionSize
	if m.cursorPlane.IsValid() {
		// The reserved cursor plane can't also absorb a video layer.
		availPlanes--
	}
	if videoCount > 0 && videoCount >= availPlanes {
		return m.finish(m.forceVPPForAllLayers(layers), layers, false)
	}

	if incremental {
		m.seedFromPrevious(opts.Previous)
	} else {
		m.resetStates()
	}

	cursorAssigned := m.prepareCursorPlanes(cursorLayers)

	planeIdx := 0
	var lastComposed *hwplane.State
	nodes := append([]*hwplane.State(nil), m.nodesInUse()...)
	var commit []hwplane.CommitPlane

	nextPlane := func() (*hwplane.State, bool) {
		for planeIdx < len(m.planes) {
			// #nosec G115 -- plane count is small and bounded by hardware, well under uint32 max
			ref := hwplane.Ref(uint32(planeIdx))
			planeIdx++
			if m.active[ref] {
				// Already claimed, either by a preserved incremental
				// entry or earlier in this same pass.
				continue
			}
			if m.isCursorPlane(ref) && !m.cursorPlaneAvailableForOverlay(len(cursorLayers) > 0) {
				// Either a cursor layer is present (the reserved plane
				// is spoken for) or this manager has no cursor plane to
				// reclaim here; either way skip it for overlay duty.
				continue
			}
			return m.states[ref], true
		}
		return nil, false
	}

	for _, l := range layers[startAt:] {
		if node, ok := cursorAssigned[l]; ok {
			nodes = append(nodes, node)
			continue
		}

		node, ok := nextPlane()
		if !ok {
			// Out of planes: try freeing one by squashing two already-
			// composed neighbors together before giving up and sharing
			// whatever composition group is already open.
			if freed := m.squashNonVideoPlanes(m.nodesInUse(), 1); len(freed) > 0 {
				node, ok = m.states[freed[0]], true
			}
		}
		if !ok {
			if lastComposed == nil && len(nodes) > 0 {
				lastComposed = nodes[len(nodes)-1]
				lastComposed.MarkNeedsGPU()
			}
			if lastComposed != nil {
				lastComposed.AddLayer(l)
				continue
			}
			// No plane at all could be opened (degenerate: zero usable
			// planes survived cursor reservation). Fall back wholesale.
			return m.finish(m.forceGPUForAllLayers(layers), layers, false)
		}

		if m.fallbackToGPU(l, node.Plane(), commit) {
			node.AddLayer(l)
			node.MarkNeedsGPU()
			m.markActive(node.PlaneRef)
			lastComposed = node
			nodes = append(nodes, node)
			continue
		}

		node.AddLayer(l)
		m.markActive(node.PlaneRef)
		nodes = append(nodes, node)
		lastComposed = nil
		commit = append(commit, node.CommitPlane(0))
	}

	// Trailing squash: fold the last two nodes together when doing so
	// does not violate cursor/video isolation or plane scaling limits,
	// freeing a plane for a future frame with more layers to place.
	active := m.nodesInUse()
	if len(active) >= 2 {
		last := active[len(active)-1]
		prev := active[len(active)-2]
		if m.squashTrailingPair(prev, last) {
			m.active[last.PlaneRef] = false
			last.Plane().SetInUse(false)
			active = m.nodesInUse()
		}
	}

	if !m.validateFinalLayers(active) {
		if videoCount > 0 {
			return m.finish(m.forceVPPForAllLayers(layers), layers, false)
		}
		return m.finish(m.forceGPUForAllLayers(layers), layers, false)
	}

	return m.finish(active, layers, true)
}

// classifyLayers counts video layers and collects cursor layers, in the
// order they appear in the input stack.
func classifyLayers(layers []*hwlayer.OverlayLayer) (videoCount int, cursors []*hwlayer.OverlayLayer) {
	for _, l := range layers {
		switch l.Kind() {
		case hwlayer.KindVideo:
			videoCount++
		case hwlayer.KindCursor:
			cursors = append(cursors, l)
		}
	}
	return videoCount, cursors
}

// seedFromPrevious resets every plane not referenced by prev's nodes and
// marks the referenced ones active again, so Validate's incremental path
// can resume the greedy loop over the suffix of layers without disturbing
// the composition entries that already exist for the unchanged prefix.
func (m *Manager) seedFromPrevious(prev Result) {
	keep := make(map[hwplane.Ref]bool, len(prev.Nodes))
	for _, n := range prev.Nodes {
		keep[n.PlaneRef] = true
	}
	for i, s := range m.states {
		if keep[s.PlaneRef] {
			m.active[i] = true
			s.Plane().SetInUse(true)
			continue
		}
		s.Reset()
		m.active[i] = false
		s.Plane().SetInUse(false)
	}
}

// validateFinalLayers builds the tentative hardware commit for every
// active node (allocating off-screen surfaces for composed nodes first)
// and asks the hardware test-commit oracle whether the whole set together
// is something it can actually program. If the first attempt fails, it
// tries once more after blacklisting the preferred format modifier of
// every composed node's plane, on the chance the rejection was a modifier
// the hardware would not honor rather than the assignment itself.
func (m *Manager) validateFinalLayers(nodes []*hwplane.State) bool {
	if m.buildAndTestCommit(nodes) {
		return true
	}
	if !m.blacklistComposedModifiers(nodes) {
		return false
	}
	return m.buildAndTestCommit(nodes)
}

func (m *Manager) buildAndTestCommit(nodes []*hwplane.State) bool {
	commit := make([]hwplane.CommitPlane, 0, len(nodes))
	for _, n := range nodes {
		fb, err := m.resolveFrameBuffer(n)
		if err != nil {
			return false
		}
		commit = append(commit, n.CommitPlane(fb))
	}
	if m.handler == nil {
		return true
	}
	return m.handler.TestCommit(commit)
}

// blacklistComposedModifiers marks each off-screen node's plane's
// preferred modifier as rejected, so a retried resolveFrameBuffer falls
// back to an unmodified surface instead of repeating the same failing
// commit. It reports whether any modifier was actually blacklisted, so
// the caller knows whether a retry stands any chance of succeeding.
func (m *Manager) blacklistComposedModifiers(nodes []*hwplane.State) bool {
	changed := false
	for _, n := range nodes {
		if n.IsDirectScanout() {
			continue
		}
		plane := n.Plane()
		format := plane.GetPreferredFormat()
		if n.UsesVideoLayer() {
			format = plane.GetPreferredVideoFormat()
		}
		if plane.PreferredFormatModifierValidated(format) {
			plane.BlackListPreferredFormatModifier(format)
			changed = true
		}
	}
	return changed
}

// resolveFrameBuffer returns the framebuffer id a node's plane should
// scan out of: the single layer's own buffer for a direct-scanout node,
// or the off-screen surface's framebuffer (allocating/reusing one from
// the pool as needed) for a composed node. The composed path prefers the
// node's actual buffer format when the plane supports it, falling back to
// the plane's own preferred format (video or otherwise) when it does not
// or when the node has no buffer of its own yet.
func (m *Manager) resolveFrameBuffer(n *hwplane.State) (uint32, error) {
	if n.IsDirectScanout() {
		layers := n.Layers()
		if len(layers) == 0 || layers[0].Buffer() == nil || layers[0].Buffer().Buffer() == nil {
			return 0, nil
		}
		return layers[0].Buffer().Buffer().FrameBufferID(), nil
	}

	plane := n.Plane()
	format := plane.GetPreferredFormat()
	if n.UsesVideoLayer() {
		format = plane.GetPreferredVideoFormat()
	}
	if layers := n.Layers(); len(layers) > 0 && layers[0].Buffer() != nil && layers[0].Buffer().Buffer() != nil {
		if bufFmt := layers[0].Buffer().Buffer().Format(); plane.SupportsFormat(bufFmt) {
			format = bufFmt
		}
	}

	modifier := uint64(0)
	if plane.PreferredFormatModifierValidated(format) {
		modifier = plane.GetPreferredFormatModifier(format)
	}

	ref, err := m.pool.EnsureTarget(format, modifier, true, m.factory)
	if err != nil {
		return 0, err
	}
	n.SetSurfaceRef(ref)
	surf := m.pool.Get(ref)
	if surf == nil {
		return 0, nil
	}
	return surf.FrameBufferID(), nil
}

// finish records per-layer history (see Manager.Previous) and sweeps the
// surface pool for entries that fell out of use this frame, producing
// the Result the host will act on. checked reports whether nodes was
// actually proven against the hardware by a successful test-commit this
// call, as opposed to a forced fallback taken without one.
func (m *Manager) finish(nodes []*hwplane.State, layers []*hwlayer.OverlayLayer, checked bool) Result {
	for _, l := range layers {
		m.lastLayers[l.Index()] = l
	}

	inUse := make(map[hwsurface.Ref]bool)
	needsRevalidation := false
	for _, n := range nodes {
		if n.SurfaceRef().IsValid() {
			inUse[n.SurfaceRef()] = true
		}
		if n.Revalidation() != 0 {
			needsRevalidation = true
		}
	}
	markLater := m.pool.MarkForRecycling(inUse, true)

	return Result{
		Nodes:              nodes,
		MarkLater:          markLater,
		CommitChecked:      checked,
		RevalidationNeeded: needsRevalidation,
	}
}
