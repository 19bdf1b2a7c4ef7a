package hwplane

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwsurface"
)

// Disposition is the tagged union spec'd for a plan node: a plane either
// scans one layer's buffer out directly, or composites a group of layers
// through an off-screen surface that the GPU/VPP renderer fills in.
type Disposition int

const (
	DirectScanout Disposition = iota
	OffScreenComposed
)

func (d Disposition) String() string {
	if d == DirectScanout {
		return "scanout"
	}
	return "offscreen"
}

// RevalidationFlags records which aspects of a plan node need to be
// re-checked against the hardware on the next ReValidate pass, without
// re-running the full greedy assignment.
type RevalidationFlags uint32

const (
	RevalidateScanout     RevalidationFlags = 1 << 0
	RevalidateUpScalar    RevalidationFlags = 1 << 1
	RevalidateRotation    RevalidationFlags = 1 << 2
	RevalidateDownScaling RevalidationFlags = 1 << 3
)

func (f RevalidationFlags) Has(mask RevalidationFlags) bool { return f&mask == mask }

// RotationType records whether a plane's rotation is currently being
// satisfied by the hardware's own rotation property (DisplayRotation) or by
// having the GPU pre-rotate the off-screen surface it reads from
// (GPURotation). A plane that cannot rotate in hardware must fall back to
// GPURotation whenever its node carries a non-identity transform.
type RotationType int

const (
	RotationDisplay RotationType = iota
	RotationGPU
)

// State is one node of the composition plan: the plane it is bound to,
// the layer(s) it carries, and the disposition deciding whether those
// layers scan out directly or are composited into an off-screen surface
// first.
type State struct {
	PlaneRef         Ref
	plane            DisplayPlane
	disposition      Disposition
	layers           []*hwlayer.OverlayLayer
	rotation         geom.Transform
	rotationType     RotationType
	downScalingFactor int
	usesPlaneScalar  bool
	surfaceRef       hwsurface.Ref
	revalidation     RevalidationFlags
	needsGPU         bool
}

// NewState starts a fresh plan node bound to plane, with no layers yet.
func NewState(ref Ref, plane DisplayPlane) *State {
	return &State{PlaneRef: ref, plane: plane, disposition: DirectScanout, surfaceRef: hwsurface.InvalidRef, downScalingFactor: 1}
}

// Plane returns the hardware plane this node is bound to.
func (s *State) Plane() DisplayPlane { return s.plane }

// Disposition reports whether this node scans out directly or composites
// through an off-screen surface.
func (s *State) Disposition() Disposition { return s.disposition }

// IsDirectScanout reports whether this node currently carries exactly one
// layer scanned out without GPU composition.
func (s *State) IsDirectScanout() bool { return s.disposition == DirectScanout }

// Layers returns the layers currently assigned to this plane, in z-order.
func (s *State) Layers() []*hwlayer.OverlayLayer { return s.layers }

// AddLayer assigns layer to this plane. The first layer added keeps the
// node as DirectScanout; a second or later layer forces OffScreenComposed,
// since more than one layer can only reach the display through GPU/VPP
// composition into a shared surface.
func (s *State) AddLayer(layer *hwlayer.OverlayLayer) {
	s.layers = append(s.layers, layer)
	if len(s.layers) > 1 {
		s.disposition = OffScreenComposed
		layer.MarkGPURendered()
	}
}

// Reset clears this node back to an empty, scanout-disposed plane, ready
// for reuse on the next frame or by ForceGpuForAllLayers/ForceVppForAllLayers.
// Any off-screen surface the node was bound to is unbound too: a node that
// goes back to direct scanout after Reset must not keep reporting its old
// surface as in use, or that surface would never be eligible for recycling.
func (s *State) Reset() {
	s.layers = s.layers[:0]
	s.disposition = DirectScanout
	s.rotation = geom.TransformNone
	s.rotationType = RotationDisplay
	s.downScalingFactor = 1
	s.usesPlaneScalar = false
	s.revalidation = 0
	s.needsGPU = false
	s.surfaceRef = hwsurface.InvalidRef
}

// UsesCursorLayer reports whether any assigned layer is the cursor layer.
func (s *State) UsesCursorLayer() bool {
	for _, l := range s.layers {
		if l.Kind() == hwlayer.KindCursor {
			return true
		}
	}
	return false
}

// UsesVideoLayer reports whether any assigned layer is a video layer.
func (s *State) UsesVideoLayer() bool {
	for _, l := range s.layers {
		if l.Kind() == hwlayer.KindVideo {
			return true
		}
	}
	return false
}

// DisplayFrame returns the union of all assigned layers' display frames,
// i.e. the area of the screen this plan node covers.
func (s *State) DisplayFrame() geom.Rect[int32] {
	var out geom.Rect[int32]
	for _, l := range s.layers {
		out = out.Union(l.DisplayFrame())
	}
	return out
}

// Rotation returns the transform this plane must apply.
func (s *State) Rotation() geom.Transform { return s.rotation }

// SetRotation sets the transform this plane must apply and marks rotation
// for revalidation on the next ReValidate pass.
func (s *State) SetRotation(t geom.Transform) {
	s.rotation = t
	s.revalidation |= RevalidateRotation
}

// RotationType reports whether this node's rotation is currently satisfied
// by the display's own rotation property or by GPU pre-rotation.
func (s *State) RotationType() RotationType { return s.rotationType }

// SetRotationType records how this node's rotation is being satisfied.
// markRevalidate schedules a follow-up rotation recheck, for callers that
// are merely inheriting the current type rather than having just verified
// it against the hardware.
func (s *State) SetRotationType(t RotationType, markRevalidate bool) {
	s.rotationType = t
	if markRevalidate {
		s.revalidation |= RevalidateRotation
	}
}

// DownScalingFactor returns the divisor (1, 2, 3 or 4) the display's scaler
// is currently asked to shrink this node's source by before scanout.
func (s *State) DownScalingFactor() int { return s.downScalingFactor }

// SetDownScalingFactor records the display down-scaling factor in effect
// for this node.
func (s *State) SetDownScalingFactor(factor int, markRevalidate bool) {
	s.downScalingFactor = factor
	if markRevalidate {
		s.revalidation |= RevalidateDownScaling
	}
}

// UsesPlaneScalar reports whether this node is currently relying on the
// plane's hardware scaler (as opposed to a GPU-scaled off-screen surface)
// to reconcile a source/destination size mismatch.
func (s *State) UsesPlaneScalar() bool { return s.usesPlaneScalar }

// SetUsesPlaneScalar records whether this node is using the plane's
// hardware scaler.
func (s *State) SetUsesPlaneScalar(uses bool, markRevalidate bool) {
	s.usesPlaneScalar = uses
	if markRevalidate {
		s.revalidation |= RevalidateUpScalar
	}
}

// SurfaceRef returns the off-screen surface bound to this node, or
// hwsurface.InvalidRef for a direct-scanout node.
func (s *State) SurfaceRef() hwsurface.Ref { return s.surfaceRef }

// SetSurfaceRef binds an off-screen surface to this node.
func (s *State) SetSurfaceRef(ref hwsurface.Ref) { s.surfaceRef = ref }

// NeedsGPU reports whether this node's layer(s) could not be scanned out
// by hardware at all and must be fully GPU/VPP composited.
func (s *State) NeedsGPU() bool { return s.needsGPU }

// MarkNeedsGPU forces this node into off-screen composition regardless of
// layer count (used by ForceGpuForAllLayers / the FallbacktoGPU oracle).
func (s *State) MarkNeedsGPU() {
	s.needsGPU = true
	s.disposition = OffScreenComposed
	for _, l := range s.layers {
		l.MarkGPURendered()
	}
}

// Revalidation returns the bits of this node pending re-check.
func (s *State) Revalidation() RevalidationFlags { return s.revalidation }

// ClearRevalidation marks the given bits as checked.
func (s *State) ClearRevalidation(bits RevalidationFlags) { s.revalidation &^= bits }

// CommitPlane builds the tentative hardware-commit descriptor for this
// node, suitable for DisplayPlaneHandler.TestCommit. A direct-scanout node
// reports its one layer's buffer and geometry; an off-screen node reports
// the off-screen surface's framebuffer and the node's own union frame
// instead.
func (s *State) CommitPlane(fb uint32) CommitPlane {
	cp := CommitPlane{
		Plane:        s.plane,
		FrameBuffer:  fb,
		DisplayFrame: s.DisplayFrame(),
		Transform:    s.rotation,
	}
	if len(s.layers) > 0 {
		cp.SourceCrop = s.layers[0].SourceCrop()
		cp.ZOrder = s.layers[0].ZOrder()
	}
	return cp
}
