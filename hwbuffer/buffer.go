// Package hwbuffer defines the buffer-side boundary of the planner: the
// capability surface a host's gralloc/DRM buffer exposes, and the
// move-only acquire-fence ownership wrapper the planner hands around.
//
// Actual buffer import (gralloc, dma-buf, DRM framebuffer creation) is an
// external collaborator; this package only describes the shape it must
// have.
package hwbuffer

// Usage is a bitset of buffer usage hints a NativeHandle may carry.
type Usage uint32

const (
	UsageCursor    Usage = 1 << 0
	UsageVideo     Usage = 1 << 1
	UsageProtected Usage = 1 << 2
)

// Has reports whether all bits of mask are set.
func (u Usage) Has(mask Usage) bool { return u&mask == mask }

// OverlayBuffer is the capability surface the planner needs from an
// imported graphics buffer. A real implementation backs this with a
// dma-buf/gralloc handle; tests and hwdriver back it with a plain struct.
type OverlayBuffer interface {
	Width() int32
	Height() int32
	Format() uint32
	Modifier() uint64
	Usage() Usage
	// IsVideoBuffer reports whether the buffer holds decoded video
	// content, which forces a stricter plane-assignment path.
	IsVideoBuffer() bool
	// FrameBufferID is the id the display hardware knows this buffer by
	// (0 if the buffer has not been attached to any framebuffer yet).
	FrameBufferID() uint32
}

// NativeHandle is an opaque reference to a still-unimported buffer, as
// handed to the compositor by its windowing client.
type NativeHandle interface{}

// NativeBufferHandler imports and releases native buffers on behalf of
// the planner. The real implementation talks to gralloc; it is supplied
// by the host, not by this module.
type NativeBufferHandler interface {
	Import(handle NativeHandle) (OverlayBuffer, error)
	// UnMap releases a previously imported buffer. The original C/C++
	// interface this is modeled on returns void; an error return is
	// used here instead since import/unmap are otherwise uniformly
	// fallible in this API (see DESIGN.md).
	UnMap(handle NativeHandle) error
}

// FenceCloser closes a raw acquire-fence file descriptor. Supplied by the
// host; a no-op implementation is fine for tests that never populate
// fences with real descriptors.
type FenceCloser interface {
	CloseFence(fd int32) error
}

// NoFence is the sentinel value meaning "no acquire fence".
const NoFence int32 = -1

// ImportedBuffer owns one imported OverlayBuffer and the acquire fence
// that currently guards it. Setting a new fence closes whatever fence it
// already held; Close and ReleaseAcquireFence are the only two ways to
// relinquish the one currently held, and both leave fence ownership in a
// well-defined empty state (NoFence).
type ImportedBuffer struct {
	buffer       OverlayBuffer
	acquireFence int32
	closer       FenceCloser
}

// NewImportedBuffer wraps buf, taking ownership of fence (NoFence if the
// buffer arrived without one).
func NewImportedBuffer(buf OverlayBuffer, fence int32, closer FenceCloser) *ImportedBuffer {
	return &ImportedBuffer{buffer: buf, acquireFence: fence, closer: closer}
}

// Buffer returns the wrapped buffer.
func (b *ImportedBuffer) Buffer() OverlayBuffer { return b.buffer }

// SetBuffer replaces the wrapped buffer and its fence, closing whichever
// fence was previously held.
func (b *ImportedBuffer) SetBuffer(buf OverlayBuffer, fence int32) {
	b.closeHeldFence()
	b.buffer = buf
	b.acquireFence = fence
}

// AcquireFence returns the fence currently held, without transferring
// ownership.
func (b *ImportedBuffer) AcquireFence() int32 { return b.acquireFence }

// SetAcquireFence closes whatever fence is currently held and stores fence
// in its place.
func (b *ImportedBuffer) SetAcquireFence(fence int32) {
	b.closeHeldFence()
	b.acquireFence = fence
}

// ReleaseAcquireFence hands ownership of the held fence to the caller,
// leaving this ImportedBuffer holding none. The caller is responsible for
// eventually closing the returned descriptor if it is not NoFence.
func (b *ImportedBuffer) ReleaseAcquireFence() int32 {
	f := b.acquireFence
	b.acquireFence = NoFence
	return f
}

// Close releases the fence this ImportedBuffer still owns, if any. It is
// idempotent: calling it again after Close or ReleaseAcquireFence is a
// no-op.
func (b *ImportedBuffer) Close() error {
	return b.closeHeldFence()
}

func (b *ImportedBuffer) closeHeldFence() error {
	if b.acquireFence == NoFence {
		return nil
	}
	fence := b.acquireFence
	b.acquireFence = NoFence
	if b.closer == nil {
		return nil
	}
	return b.closer.CloseFence(fence)
}
