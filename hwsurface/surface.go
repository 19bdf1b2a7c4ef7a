// Package hwsurface manages the pool of off-screen surfaces the planner
// hands to off-screen (GPU/VPP composited) plan nodes, and the age-based
// bookkeeping that lets surfaces be recycled once nothing references them
// anymore.
package hwsurface

import "github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"

// Ref is an index into a Pool's surface slice, used the same way
// hwplane.Ref indexes the manager's plane slice: an integer handle instead
// of a shared pointer, so nothing in the plan owns a lifetime cycle back
// into the pool.
type Ref uint32

// InvalidRef marks the absence of a bound surface.
const InvalidRef = ^Ref(0)

// IsValid reports whether r refers to a real pool entry.
func (r Ref) IsValid() bool { return r != InvalidRef }

// NativeSurface is the capability surface the planner needs from one
// off-screen render target. The real implementation allocates a GPU
// buffer through the host's allocator; hwdriver provides a software
// reference for tests.
type NativeSurface interface {
	Width() int32
	Height() int32
	Format() uint32
	Modifier() uint64
	// Init (re)configures the surface for format/usage/modifier. It
	// returns whether the requested modifier was honored; callers that
	// need a specific modifier (e.g. for video) must check this and fall
	// back to an unmodified allocation if false.
	Init(format uint32, usage hwbuffer.Usage, modifier uint64) (modifierHonored bool, err error)
	FrameBufferID() uint32
	Close() error
}

// entry is one pool slot: a surface plus the bookkeeping that decides
// whether it is free to reuse.
type entry struct {
	surface  NativeSurface
	age      int32 // -1 == free for reuse; >=0 == frames since last bound
	onScreen bool
	format   uint32
	modifier uint64
}

// Pool owns a set of off-screen surfaces shared across a display's plan
// nodes from frame to frame, so a scanout->composite transition does not
// need a fresh allocation every time a layer stack changes shape.
//
// Pool is not safe for concurrent use, matching the single-threaded,
// one-manager-per-display model the rest of this module assumes.
type Pool struct {
	entries []entry
}

// NewPool returns an empty surface pool.
func NewPool() *Pool {
	return &Pool{entries: make([]entry, 0, 4)}
}

// Factory constructs a new NativeSurface sized and formatted for one
// plan node. The planner supplies this; hwdriver's reference
// implementation backs it with an in-memory stand-in.
type Factory func(format uint32, modifier uint64) (NativeSurface, error)

// EnsureTarget returns a surface bound to (format, modifier), reusing a
// free (age == -1) surface already in the pool with a matching format and
// modifier if one exists, or constructing a new one via make otherwise.
// onScreen is recorded on the entry and decides whether MarkForRecycling
// later defers it. If a newly made surface's Init does not honor modifier,
// the surface is re-initialized with modifier 0 and pooled under modifier 0.
func (p *Pool) EnsureTarget(format uint32, modifier uint64, onScreen bool, make Factory) (Ref, error) {
	for i := range p.entries {
		e := &p.entries[i]
		if e.age == -1 && e.format == format && e.modifier == modifier {
			e.age = 0
			e.onScreen = onScreen
			// #nosec G115 -- pool size bounded by plane count, well under uint32 max
			return Ref(uint32(i)), nil
		}
	}

	surf, err := make(format, modifier)
	if err != nil {
		return InvalidRef, err
	}
	honored, err := surf.Init(format, 0, modifier)
	if err != nil {
		return InvalidRef, err
	}
	if !honored {
		// Fall back to an unmodified allocation rather than fail the
		// whole frame over a modifier the hardware won't honor.
		if _, err := surf.Init(format, 0, 0); err != nil {
			return InvalidRef, err
		}
		modifier = 0
	}

	p.entries = append(p.entries, entry{surface: surf, age: 0, onScreen: onScreen, format: format, modifier: modifier})
	// #nosec G115 -- pool size bounded by plane count, well under uint32 max
	return Ref(uint32(len(p.entries) - 1)), nil
}

// Get returns the surface bound to ref, or nil if ref is invalid.
func (p *Pool) Get(ref Ref) NativeSurface {
	if int(ref) < 0 || int(ref) >= len(p.entries) {
		return nil
	}
	return p.entries[ref].surface
}

// Age returns the pool entry's current age, or -1 if ref is invalid.
func (p *Pool) Age(ref Ref) int32 {
	if int(ref) < 0 || int(ref) >= len(p.entries) {
		return -1
	}
	return p.entries[ref].age
}

// Release marks the entry at ref as free for immediate reuse.
func (p *Pool) Release(ref Ref) {
	if int(ref) < 0 || int(ref) >= len(p.entries) {
		return
	}
	p.entries[ref].age = -1
}

// MarkForRecycling sweeps every pool entry not present in inUse. When
// recycle is true, on-screen surfaces that are still aging (age >= 0) are
// deferred: their refs are returned so the caller (the planner) can hand
// them back to the host to be aged out naturally once the frame using
// them has been presented, instead of freeing them while they might still
// be on screen. When recycle is false, every entry not in inUse is freed
// immediately.
func (p *Pool) MarkForRecycling(inUse map[Ref]bool, recycle bool) []Ref {
	var deferred []Ref
	for i := range p.entries {
		// #nosec G115 -- pool size bounded by plane count, well under uint32 max
		ref := Ref(uint32(i))
		if inUse[ref] {
			continue
		}
		e := &p.entries[i]
		if recycle && e.onScreen && e.age >= 0 {
			deferred = append(deferred, ref)
			continue
		}
		e.age = -1
	}
	return deferred
}

// Len returns the number of surfaces currently tracked by the pool.
func (p *Pool) Len() int { return len(p.entries) }
