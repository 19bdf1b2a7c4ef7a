// Package hwdriver is a software reference implementation of the
// hardware-facing interfaces (hwplane.DisplayPlane, hwplane.DisplayPlaneHandler,
// hwbuffer.NativeBufferHandler, hwsurface.NativeSurface) that the planner
// consumes. It stands in for a real KMS/DRM driver in tests and in
// cmd/hwplanedemo; a production host supplies its own implementations
// talking to actual display hardware instead.
//
// Field names here (PlaneID, PossibleCRTCs) follow DRM's own
// plane-object vocabulary so a reader coming from the ioctl layer
// recognizes the shape immediately.
package hwdriver

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// Plane is an in-memory stand-in for a DRM overlay plane.
type Plane struct {
	PlaneID       uint32
	PossibleCRTCs uint32
	Universal     bool
	Cursor        bool
	Formats       []uint32
	Modifiers     map[uint32][]uint64
	MaxSrcWidth   int32
	MaxSrcHeight  int32
	Scaling       bool
	Rotation      bool
	// MaxDownscale records how far below the source resolution the plane's
	// scaler can shrink an image (0 for no limit). ValidateLayer does not
	// consult it.
	MaxDownscale float64
	// PreferredFormat and PreferredVideoFormat are the plane's preferred
	// pixel formats for composited off-screen surfaces; they default to
	// the plane's first supported format in NewPlane.
	PreferredFormat      uint32
	PreferredVideoFormat uint32

	blacklisted map[uint32]bool
	inUse       bool
	disabled    bool
}

// NewPlane returns a Plane with the given id and reasonably permissive
// defaults, suitable for tests that only care about assignment logic.
func NewPlane(id uint32, universal bool) *Plane {
	return &Plane{
		PlaneID:              id,
		Universal:            universal,
		Formats:              []uint32{1},
		Modifiers:            map[uint32][]uint64{1: {0}},
		MaxSrcWidth:          4096,
		MaxSrcHeight:         4096,
		Scaling:              true,
		Rotation:             true,
		PreferredFormat:      1,
		PreferredVideoFormat: 1,
		blacklisted:          map[uint32]bool{},
	}
}

func (p *Plane) ID() uint32         { return p.PlaneID }
func (p *Plane) IsUniversal() bool  { return p.Universal }
func (p *Plane) IsCursorPlane() bool { return p.Cursor }
func (p *Plane) MaxSourceWidth() int32  { return p.MaxSrcWidth }
func (p *Plane) MaxSourceHeight() int32 { return p.MaxSrcHeight }
func (p *Plane) CanScale() bool  { return p.Scaling }
func (p *Plane) CanRotate() bool { return p.Rotation }

func (p *Plane) SupportsFormat(format uint32) bool {
	for _, f := range p.Formats {
		if f == format {
			return true
		}
	}
	return false
}

func (p *Plane) SupportsModifier(format uint32, modifier uint64) bool {
	mods, ok := p.Modifiers[format]
	if !ok {
		return modifier == 0
	}
	for _, m := range mods {
		if m == modifier {
			return true
		}
	}
	return false
}

// GetPreferredFormat returns the plane's preferred pixel format for an
// off-screen composited surface.
func (p *Plane) GetPreferredFormat() uint32 { return p.PreferredFormat }

// GetPreferredVideoFormat returns the plane's preferred pixel format for
// an off-screen surface carrying video content.
func (p *Plane) GetPreferredVideoFormat() uint32 { return p.PreferredVideoFormat }

// GetPreferredFormatModifier returns the first modifier this plane lists
// for format, unless it has been blacklisted.
func (p *Plane) GetPreferredFormatModifier(format uint32) uint64 {
	if p.blacklisted[format] {
		return 0
	}
	mods := p.Modifiers[format]
	if len(mods) == 0 {
		return 0
	}
	return mods[0]
}

// PreferredFormatModifierValidated reports whether format's preferred
// modifier has not been rejected by a prior failed test-commit.
func (p *Plane) PreferredFormatModifierValidated(format uint32) bool {
	return !p.blacklisted[format]
}

// BlackListPreferredFormatModifier marks format's preferred modifier as
// rejected, so GetPreferredFormatModifier falls back to 0 for it.
func (p *Plane) BlackListPreferredFormatModifier(format uint32) {
	if p.blacklisted == nil {
		p.blacklisted = map[uint32]bool{}
	}
	p.blacklisted[format] = true
}

// Disable marks the plane as not participating in the current plan.
func (p *Plane) Disable() { p.disabled = true }

// SetInUse marks whether some display's plan currently claims this plane.
func (p *Plane) SetInUse(inUse bool) { p.inUse = inUse }

// InUse reports whether some display's plan currently claims this plane.
func (p *Plane) InUse() bool { return p.inUse }

// ValidateLayer checks a layer's geometry and format against this plane's
// capabilities: the plane must support the buffer's format, the source
// region must fit within the scaler's maximum read size, and a cursor
// layer may only land on a cursor plane or a universal plane.
func (p *Plane) ValidateLayer(layer *hwlayer.OverlayLayer) bool {
	buf := layer.Buffer()
	if buf == nil || buf.Buffer() == nil {
		return false
	}
	if !p.SupportsFormat(buf.Buffer().Format()) {
		return false
	}
	if !p.SupportsModifier(buf.Buffer().Format(), buf.Buffer().Modifier()) {
		return false
	}
	crop := layer.SourceCrop()
	if float64(p.MaxSrcWidth) > 0 && crop.Width() > float64(p.MaxSrcWidth) {
		return false
	}
	if float64(p.MaxSrcHeight) > 0 && crop.Height() > float64(p.MaxSrcHeight) {
		return false
	}
	if layer.Kind() == hwlayer.KindCursor && !p.Cursor && !p.Universal {
		return false
	}
	if layer.PlaneTransform() != geom.TransformNone && !p.Rotation {
		return false
	}
	frame := layer.DisplayFrame()
	if !p.Scaling {
		sw, sh := crop.Width(), crop.Height()
		if float64(frame.Width()) != sw || float64(frame.Height()) != sh {
			return false
		}
	}
	return true
}

// Handler is an always-succeeds test-commit oracle by default, with the
// option to fail specific plane ids or fail unconditionally, so tests can
// exercise the planner's fallback paths deterministically.
type Handler struct {
	FailAlways    bool
	FailPlaneIDs  map[uint32]bool
	Commits       [][]hwplane.CommitPlane // history, for test assertions
}

// NewHandler returns a Handler that accepts every commit.
func NewHandler() *Handler {
	return &Handler{FailPlaneIDs: map[uint32]bool{}}
}

func (h *Handler) TestCommit(planes []hwplane.CommitPlane) bool {
	h.Commits = append(h.Commits, planes)
	if h.FailAlways {
		return false
	}
	for _, p := range planes {
		if h.FailPlaneIDs[p.Plane.ID()] {
			return false
		}
	}
	return true
}

// BufferHandler is a trivial in-memory NativeBufferHandler: it treats the
// NativeHandle itself as an already-imported OverlayBuffer.
type BufferHandler struct{}

func (BufferHandler) Import(handle hwbuffer.NativeHandle) (hwbuffer.OverlayBuffer, error) {
	if buf, ok := handle.(hwbuffer.OverlayBuffer); ok {
		return buf, nil
	}
	return nil, nil
}

func (BufferHandler) UnMap(hwbuffer.NativeHandle) error { return nil }

// Buffer is a plain-data OverlayBuffer for tests and the demo command.
type Buffer struct {
	W, H     int32
	Fmt      uint32
	Mod      uint64
	UsageBit hwbuffer.Usage
	Video    bool
	FBID     uint32
}

func (b *Buffer) Width() int32          { return b.W }
func (b *Buffer) Height() int32         { return b.H }
func (b *Buffer) Format() uint32        { return b.Fmt }
func (b *Buffer) Modifier() uint64      { return b.Mod }
func (b *Buffer) Usage() hwbuffer.Usage { return b.UsageBit }
func (b *Buffer) IsVideoBuffer() bool   { return b.Video }
func (b *Buffer) FrameBufferID() uint32 { return b.FBID }
