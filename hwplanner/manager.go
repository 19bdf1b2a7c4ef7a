// Package hwplanner implements the plane-composition planner: given an
// ordered stack of application layers and a display's hardware overlay
// planes, it assigns each layer to either a dedicated plane (direct
// scanout) or a group composited through an off-screen surface, using the
// hardware's own test-commit as the final arbiter.
//
// A Manager is not safe for concurrent use. Exactly one Manager exists per
// physical display, driven from a single goroutine per the host's commit
// cycle (see SPEC_FULL.md §7).
package hwplanner

import (
	"fmt"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlog"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwsurface"
)

// Manager owns one display's hardware overlay planes and builds a fresh
// composition plan from them on every frame.
type Manager struct {
	planes  []hwplane.DisplayPlane
	states  []*hwplane.State
	active  []bool // which entries of states are participating in the current plan

	cursorPlane hwplane.Ref // InvalidRef if no plane is reserved for cursor

	handler hwplane.DisplayPlaneHandler
	pool    *hwsurface.Pool
	factory hwsurface.Factory

	displayRotation geom.Transform

	// lastLayers remembers, by layer index, the OverlayLayer assigned on
	// the previous successful Validate, so the next frame's diff
	// (hwlayer.NewOverlayLayer's `previous` argument) can look it up
	// through Previous.
	lastLayers map[int]*hwlayer.OverlayLayer
}

// NewManager builds a planner over the given planes. planes must be in
// hardware preference order (the order the original driver enumerates
// them); ResizeOverlays below may reserve the last one for cursor use.
func NewManager(planes []hwplane.DisplayPlane, handler hwplane.DisplayPlaneHandler, factory hwsurface.Factory) *Manager {
	m := &Manager{
		handler:     handler,
		pool:        hwsurface.NewPool(),
		factory:     factory,
		cursorPlane: hwplane.InvalidRef,
		lastLayers:  make(map[int]*hwlayer.OverlayLayer),
	}
	m.ResizeOverlays(planes)
	return m
}

// ResizeOverlays installs a new plane set, reserving the last plane for
// exclusive cursor use when there is more than one plane and the last one
// is not a universal plane (i.e. it would otherwise sit idle on frames
// with no cursor layer). This mirrors the original driver's own heuristic
// for not wasting a perfectly good overlay plane on cursor duty alone
// unless there is nothing better for it to do.
func (m *Manager) ResizeOverlays(planes []hwplane.DisplayPlane) {
	m.planes = planes
	m.states = make([]*hwplane.State, len(planes))
	for i, p := range planes {
		if p == nil {
			panic(fmt.Sprintf("hwplanner: plane %d is nil", i))
		}
		// #nosec G115 -- plane count is small and bounded by hardware, well under uint32 max
		m.states[i] = hwplane.NewState(hwplane.Ref(uint32(i)), p)
	}
	m.active = make([]bool, len(planes))

	m.cursorPlane = hwplane.InvalidRef
	if len(planes) > 1 {
		last := planes[len(planes)-1]
		if !last.IsUniversal() {
			// #nosec G115 -- plane count is small and bounded by hardware, well under uint32 max
			m.cursorPlane = hwplane.Ref(uint32(len(planes) - 1))
		}
	}
}

// ReserveOnly restricts the manager to using only the planes at the given
// indices into the set last passed to ResizeOverlays, releasing every
// other plane back to whichever display wants it next. This supplements
// the distilled core spec with the original driver's support for planes
// being shared and reassigned across displays at runtime.
func (m *Manager) ReserveOnly(indices []int) {
	keep := make(map[int]bool, len(indices))
	for _, idx := range indices {
		keep[idx] = true
	}
	kept := make([]hwplane.DisplayPlane, 0, len(indices))
	for i, p := range m.planes {
		if keep[i] {
			kept = append(kept, p)
			continue
		}
		p.Disable()
	}
	m.ResizeOverlays(kept)
}

// SupportsFormat reports whether any managed plane can scan out the given
// pixel format. This supplements the distilled core spec with the
// original driver's CheckPlaneFormat query, used by hosts deciding
// upfront whether a given buffer format is worth importing at all.
func (m *Manager) SupportsFormat(format uint32) bool {
	for _, p := range m.planes {
		if p.SupportsFormat(format) {
			return true
		}
	}
	return false
}

// SetDisplayRotation records the display's current scanout rotation, used
// to resolve each layer's plane transform (geom.ResolveTransform).
func (m *Manager) SetDisplayRotation(t geom.Transform) { m.displayRotation = t }

// DisplayRotation returns the display's current scanout rotation.
func (m *Manager) DisplayRotation() geom.Transform { return m.displayRotation }

// PlaneCount returns the number of planes this manager owns.
func (m *Manager) PlaneCount() int { return len(m.planes) }

// Previous looks up the OverlayLayer assigned at layerIndex on the last
// successful Validate, or nil if there is none (first frame, or the
// layer stack has grown).
func (m *Manager) Previous(layerIndex int) *hwlayer.OverlayLayer {
	return m.lastLayers[layerIndex]
}

func (m *Manager) resetStates() {
	for i := range m.states {
		m.states[i].Reset()
		m.active[i] = false
		m.states[i].Plane().SetInUse(false)
	}
}

func (m *Manager) markActive(ref hwplane.Ref) {
	m.active[ref] = true
	m.states[ref].Plane().SetInUse(true)
}

// nodesInUse returns the plan nodes marked active by the last Validate or
// ReValidate call, in plane order.
func (m *Manager) nodesInUse() []*hwplane.State {
	var out []*hwplane.State
	for i, used := range m.active {
		if used {
			out = append(out, m.states[i])
		}
	}
	return out
}

func (m *Manager) logf(format string, args ...any) {
	hwlog.Logger().Debug(fmt.Sprintf(format, args...))
}
