// Package hwlayer models one application layer as seen by the plane
// planner: its geometry, its resolved hardware transform, and the state
// it carries over between frames (damage, content-change flags).
package hwlayer

import (
	"fmt"
	"math"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
)

// Kind classifies a layer for the purposes of plane assignment rules.
type Kind int

const (
	KindNormal Kind = iota
	KindCursor
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindCursor:
		return "cursor"
	case KindVideo:
		return "video"
	default:
		return "normal"
	}
}

// Blending is the Porter-Duff blend mode a layer composites with.
type Blending int

const (
	BlendingNone Blending = iota
	BlendingPremultiplied
	BlendingCoverage
)

// ChangeFlags records what changed about a layer since the previous frame,
// as reported by the host windowing system.
type ChangeFlags uint32

const (
	ContentAttributesChanged ChangeFlags = 1 << 0
	VisibleRegionChanged     ChangeFlags = 1 << 1
	LayerAttributesChanged   ChangeFlags = 1 << 2
	DimensionsChanged        ChangeFlags = 1 << 3
)

func (f ChangeFlags) Has(mask ChangeFlags) bool { return f&mask == mask }

// HostLayer is what the windowing host hands the planner for one layer of
// one frame. It is read once, during Initialize.
type HostLayer struct {
	Transform       geom.Transform
	Alpha           float32
	SourceCrop      geom.Rect[float64]
	DisplayFrame    geom.Rect[int32]
	Blending        Blending
	Buffer          hwbuffer.OverlayBuffer
	AcquireFence    int32
	Changes         ChangeFlags
	LeftConstraint  int32 // -1 if unconstrained
	RightConstraint int32 // -1 if unconstrained
	MaxWidth        int32
	MaxHeight       int32
	// SolidColor marks a layer with no backing buffer at all, filled with
	// a flat color by the client. Hardware planes cannot scan these out;
	// they always fall back to GPU composition.
	SolidColor bool
	// Damage is the region of this layer that actually changed since the
	// host last reported it, in display-frame coordinates. The zero Rect
	// (no damage reported) is treated as "nothing new this frame".
	Damage geom.Rect[int32]
}

// state bits, internal to OverlayLayer. gpu_rendered is deliberately not
// one of these: it is tracked as its own field, not part of the diffed
// change bitset, matching the original's separate gpu_rendered_ bool.
type stateBits uint32

const (
	stateClearSurface           stateBits = 1 << 0
	stateDimensionsChanged      stateBits = 1 << 1
	stateLayerAttributesChanged stateBits = 1 << 2
	stateLayerContentChanged    stateBits = 1 << 3
)

func (f stateBits) Has(mask stateBits) bool { return f&mask == mask }

// OverlayLayer is the planner's per-frame view of one application layer.
type OverlayLayer struct {
	index       int
	zOrder      int
	kind        Kind
	blending    Blending
	alpha       float32
	transform   geom.Transform // the layer's own content transform
	planeTransform geom.Transform // transform resolved against display rotation
	sourceCrop  geom.Rect[float64]
	displayFrame geom.Rect[int32]
	buffer      *hwbuffer.ImportedBuffer
	state       stateBits
	gpuRendered bool
	solidColor  bool
	sourceCropWidth   float64
	sourceCropHeight  float64
	surfaceDamage     geom.Rect[int32]
	lastSurfaceDamage geom.Rect[int32]
}

// NewOverlayLayer initializes a layer at the given z-order/index, resolving
// its transform against the display's current rotation and clipping its
// geometry to the constraints the host supplied (typically the visible
// region of a multi-display span). previous is the OverlayLayer this one
// replaces from the prior frame, or nil on the first frame or when there is
// no continuity to diff against.
func NewOverlayLayer(index, zOrder int, host HostLayer, buf hwbuffer.OverlayBuffer, displayRotation geom.Transform, previous *OverlayLayer) *OverlayLayer {
	l := &OverlayLayer{
		index:        index,
		zOrder:       zOrder,
		alpha:        host.Alpha,
		blending:     host.Blending,
		sourceCrop:   host.SourceCrop,
		displayFrame: host.DisplayFrame,
		transform:    host.Transform,
		solidColor:   host.SolidColor,
	}
	if displayRotation != geom.TransformNone {
		l.planeTransform = geom.ResolveTransform(host.Transform, displayRotation)
		l.transform = l.planeTransform
	} else {
		l.planeTransform = l.transform
	}
	l.buffer = hwbuffer.NewImportedBuffer(buf, host.AcquireFence, nil)
	l.sourceCropWidth = math.Ceil(host.SourceCrop.Right) - math.Floor(host.SourceCrop.Left)
	l.sourceCropHeight = math.Ceil(host.SourceCrop.Bottom) - math.Floor(host.SourceCrop.Top)

	l.validateForOverlayUsage(buf)

	if host.Changes.Has(DimensionsChanged) {
		l.state |= stateDimensionsChanged
	}
	if host.Changes.Has(LayerAttributesChanged) {
		l.state |= stateLayerAttributesChanged
	}
	if host.Changes.Has(ContentAttributesChanged) || host.Changes.Has(VisibleRegionChanged) {
		l.state |= stateLayerContentChanged
	}

	if previous != nil {
		l.validatePreviousFrameState(previous, host)
	} else {
		l.state |= stateClearSurface
	}

	l.clipToConstraints(host)
	l.updateSurfaceDamage(host, previous)
	return l
}

// validateForOverlayUsage classifies the layer kind from buffer usage,
// mirroring the hardware's own cursor/video detection: a cursor usage bit
// always wins over a video buffer, since a single buffer cannot be both.
func (l *OverlayLayer) validateForOverlayUsage(buf hwbuffer.OverlayBuffer) {
	if buf == nil {
		return
	}
	switch {
	case buf.Usage().Has(hwbuffer.UsageCursor):
		l.kind = KindCursor
	case buf.IsVideoBuffer():
		l.kind = KindVideo
	default:
		l.kind = KindNormal
	}
}

// validatePreviousFrameState diffs this layer against the one it replaces.
// If the buffer format changed it returns at once, inheriting nothing.
// Otherwise gpu_rendered is inherited from previous, whichever of the two
// branches below is taken: only whether ClearSurface/the per-attribute
// change bits end up set differs. If the previous frame's layer was GPU-composited, or this
// layer is itself a cursor, any content or geometry change forces a fresh
// surface (ClearSurface). If the previous frame's layer was scanned out
// directly, a change to opacity, blending or geometry means the plan built
// around it is stale and the caller must re-run Validate rather than trust
// the inherited state — signaled by the returned bool being false.
func (l *OverlayLayer) validatePreviousFrameState(previous *OverlayLayer, host HostLayer) bool {
	if previous.buffer != nil && l.buffer != nil &&
		previous.buffer.Buffer() != nil && l.buffer.Buffer() != nil &&
		previous.buffer.Buffer().Format() != l.buffer.Buffer().Format() {
		// Format changed entirely: nothing to inherit, keep every change
		// bit set as it already is.
		return true
	}

	rectChanged := previous.displayFrame != l.displayFrame
	sourceSizeChanged := previous.sourceCropWidth != l.sourceCropWidth || previous.sourceCropHeight != l.sourceCropHeight
	attrsChanged := l.state.Has(stateLayerAttributesChanged) || previous.alpha != l.alpha || previous.blending != l.blending
	wentPartiallyTransparent := previous.alpha == 1 && l.alpha != previous.alpha

	l.gpuRendered = previous.gpuRendered

	if l.kind == KindCursor || previous.gpuRendered {
		if rectChanged || attrsChanged || sourceSizeChanged {
			l.state |= stateClearSurface
		}
	} else {
		// Previous frame scanned this content out directly: going opaque
		// to partially transparent, or a blending/attribute/geometry
		// change, invalidates the existing plan outright.
		if wentPartiallyTransparent || attrsChanged || rectChanged {
			return false
		}
	}

	// Unchanged (a source-crop delta that does not move the overall
	// width/height does not count): clear the bits that turned out not to
	// reflect a real change.
	l.state &^= stateLayerAttributesChanged
	if !rectChanged {
		l.state &^= stateDimensionsChanged
	}
	if !sourceSizeChanged {
		l.state &^= stateLayerContentChanged
	}
	return true
}

// clipToConstraints clips display_frame and source_crop to the host's
// left/right span constraints (used when a layer spans multiple displays),
// translating the remaining frame back to origin-relative coordinates when
// the left edge was clipped away.
func (l *OverlayLayer) clipToConstraints(host HostLayer) {
	if host.LeftConstraint < 0 || host.RightConstraint < 0 {
		return
	}

	df := l.displayFrame
	if df.Right > host.RightConstraint {
		df.Right = host.RightConstraint
	}
	if df.Left < host.LeftConstraint {
		df.Left = host.LeftConstraint
	}
	if df.Left >= df.Right {
		df.Right = df.Left
	}
	if host.MaxHeight > 0 && df.Bottom > host.MaxHeight {
		df.Bottom = host.MaxHeight
	}
	if host.LeftConstraint > 0 {
		df = df.Translate(-host.LeftConstraint, 0)
	}
	l.displayFrame = df

	sc := l.sourceCrop
	leftF := float64(host.LeftConstraint)
	rightF := float64(host.RightConstraint)
	if sc.Right > rightF {
		sc.Right = rightF
	}
	if sc.Left < leftF {
		sc.Left = leftF
	}
	if sc.Left >= sc.Right {
		sc.Right = sc.Left
	}
	if host.LeftConstraint > 0 {
		sc = sc.Translate(-leftF, 0)
	}
	l.sourceCrop = sc
}

// updateSurfaceDamage recomputes the region of this layer's surface that
// changed since the last frame. A GPU-composited layer with no usable
// history, or one whose geometry/content changed outright, is considered
// damaged in full; otherwise the damage is the union of this frame's
// reported damage and whatever was still outstanding from the last one.
func (l *OverlayLayer) updateSurfaceDamage(host HostLayer, previous *OverlayLayer) {
	fullDamage := l.displayFrame

	if !l.gpuRendered {
		l.surfaceDamage = fullDamage
		l.lastSurfaceDamage = fullDamage
		return
	}

	if previous == nil || l.state.Has(stateClearSurface) ||
		l.state.Has(stateDimensionsChanged) || l.transform != geom.TransformNone {
		l.surfaceDamage = fullDamage
		l.lastSurfaceDamage = fullDamage
		return
	}

	l.surfaceDamage = host.Damage.Union(previous.lastSurfaceDamage)
	l.lastSurfaceDamage = host.Damage
}

// MarkGPURendered records that this layer's content will be produced by
// GPU/VPP composition rather than scanned out directly; this changes how
// ValidatePreviousFrameState and UpdateSurfaceDamage behave for the next
// frame that inherits from this one.
func (l *OverlayLayer) MarkGPURendered() { l.gpuRendered = true }

// Index returns the layer's position in the host's input stack.
func (l *OverlayLayer) Index() int { return l.index }

// ZOrder returns the layer's depth ordering (lower draws first).
func (l *OverlayLayer) ZOrder() int { return l.zOrder }

// Kind returns the layer's classification (normal/cursor/video).
func (l *OverlayLayer) Kind() Kind { return l.kind }

// IsSolidColor reports whether this layer has no backing buffer and must
// always be GPU-filled rather than scanned out.
func (l *OverlayLayer) IsSolidColor() bool { return l.solidColor }

// DisplayFrame returns the layer's clipped destination rectangle.
func (l *OverlayLayer) DisplayFrame() geom.Rect[int32] { return l.displayFrame }

// SourceCrop returns the layer's clipped source rectangle.
func (l *OverlayLayer) SourceCrop() geom.Rect[float64] { return l.sourceCrop }

// PlaneTransform returns the transform a plane scanning this layer out
// directly would need to apply.
func (l *OverlayLayer) PlaneTransform() geom.Transform { return l.planeTransform }

// Alpha returns the layer's plane blending alpha in [0, 1].
func (l *OverlayLayer) Alpha() float32 { return l.alpha }

// Blending returns the layer's blend mode.
func (l *OverlayLayer) Blending() Blending { return l.blending }

// Buffer returns the layer's imported buffer wrapper.
func (l *OverlayLayer) Buffer() *hwbuffer.ImportedBuffer { return l.buffer }

// NeedsClearSurface reports whether the off-screen surface backing this
// layer (if any) must be fully repainted rather than incrementally damaged.
func (l *OverlayLayer) NeedsClearSurface() bool { return l.state.Has(stateClearSurface) }

// SurfaceDamage returns this frame's accumulated surface damage region.
func (l *OverlayLayer) SurfaceDamage() geom.Rect[int32] { return l.surfaceDamage }

// String renders a short diagnostic summary, grounded on the original
// implementation's layer Dump() trace helper.
func (l *OverlayLayer) String() string {
	return fmt.Sprintf("layer[%d] z=%d kind=%s blend=%d alpha=%.2f frame=%+v crop=%+v transform=%v",
		l.index, l.zOrder, l.kind, l.blending, l.alpha, l.displayFrame, l.sourceCrop, l.planeTransform)
}
