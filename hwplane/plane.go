// Package hwplane models one hardware overlay plane's capabilities and the
// plan node the planner builds around it (DisplayPlaneState): which layers
// it will carry, whether it scans a buffer out directly or composites a
// group through an off-screen surface, and the rotation/scaling state the
// hardware must be programmed with.
package hwplane

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
)

// Ref is an index into the DisplayPlaneManager's plane slice. Plan nodes
// refer to their plane (and to off-screen surfaces, see hwsurface.Ref) by
// integer handle rather than by pointer, so nothing in the plan owns a
// reference cycle back to the manager.
type Ref uint32

// InvalidRef marks the absence of a plane/surface reference.
const InvalidRef = ^Ref(0)

// IsValid reports whether r refers to a real plane.
func (r Ref) IsValid() bool { return r != InvalidRef }

// DisplayPlane is the capability surface the planner needs from one
// hardware overlay plane. The real implementation talks to KMS/DRM; it is
// supplied by the host. hwdriver provides a software reference used by
// tests and the demo command.
type DisplayPlane interface {
	// ID is the hardware plane identifier (e.g. a DRM plane id).
	ID() uint32
	// IsUniversal reports whether the plane can be used as the primary
	// (full-screen) plane in addition to an overlay.
	IsUniversal() bool
	// IsCursorPlane reports whether this plane is hardware-reserved for
	// cursor scanout exclusively.
	IsCursorPlane() bool
	// SupportsFormat reports whether the plane's scanout hardware can
	// consume the given pixel format.
	SupportsFormat(format uint32) bool
	// SupportsModifier reports whether the plane can scan out a buffer
	// laid out with the given format modifier.
	SupportsModifier(format uint32, modifier uint64) bool
	// ValidateLayer reports whether the plane's hardware can scan this
	// layer out directly given its current geometry and transform
	// (size limits, scaling ratio limits, rotation support).
	ValidateLayer(layer *hwlayer.OverlayLayer) bool
	// MaxSourceWidth and MaxSourceHeight bound what the plane's scaler
	// can read from a source buffer.
	MaxSourceWidth() int32
	MaxSourceHeight() int32
	// CanScale reports whether the plane has an upscale/downscale unit.
	CanScale() bool
	// CanRotate reports whether the plane can apply a transform other
	// than TransformNone itself, versus requiring pre-rotated content.
	CanRotate() bool

	// GetPreferredFormat returns the plane's most preferred pixel format
	// for an off-screen surface composited onto it.
	GetPreferredFormat() uint32
	// GetPreferredVideoFormat is the video-content analogue of
	// GetPreferredFormat, used when the surface carries a video layer.
	GetPreferredVideoFormat() uint32
	// GetPreferredFormatModifier returns the plane's preferred format
	// modifier for format, or 0 if it has no preference.
	GetPreferredFormatModifier(format uint32) uint64
	// PreferredFormatModifierValidated reports whether format's preferred
	// modifier is still considered usable, i.e. has not been rejected by
	// a prior failed test-commit.
	PreferredFormatModifierValidated(format uint32) bool
	// BlackListPreferredFormatModifier records that format's preferred
	// modifier was rejected by the hardware, so later surface allocations
	// for this plane fall back to an unmodified layout instead of
	// retrying the same rejected modifier.
	BlackListPreferredFormatModifier(format uint32)
	// Disable marks the plane as not participating in the current plan at
	// all, distinct from SetInUse: a disabled plane is turned off, not
	// merely free for another display to claim.
	Disable()
	// SetInUse marks whether some display's plan currently claims this
	// plane, for planes shared across more than one display.
	SetInUse(inUse bool)
	// InUse reports whether some display's plan currently claims this
	// plane.
	InUse() bool
}

// CommitPlane is one entry of a tentative hardware commit, as passed to
// DisplayPlaneHandler.TestCommit.
type CommitPlane struct {
	Plane        DisplayPlane
	FrameBuffer  uint32
	DisplayFrame geom.Rect[int32]
	SourceCrop   geom.Rect[float64]
	Transform    geom.Transform
	ZOrder       int
}

// DisplayPlaneHandler is the hardware test-commit oracle: it reports
// whether a tentative set of plane assignments is one the display
// controller can actually program, without presenting anything. The real
// implementation performs an atomic KMS TEST_ONLY commit.
type DisplayPlaneHandler interface {
	TestCommit(planes []CommitPlane) bool
}
