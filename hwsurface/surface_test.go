package hwsurface

import (
	"testing"

	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
)

type fakeSurface struct {
	format   uint32
	modifier uint64
	closed   bool
}

func (s *fakeSurface) Width() int32      { return 1920 }
func (s *fakeSurface) Height() int32     { return 1080 }
func (s *fakeSurface) Format() uint32    { return s.format }
func (s *fakeSurface) Modifier() uint64  { return s.modifier }
func (s *fakeSurface) FrameBufferID() uint32 { return 1 }
func (s *fakeSurface) Close() error      { s.closed = true; return nil }
func (s *fakeSurface) Init(format uint32, _ hwbuffer.Usage, modifier uint64) (bool, error) {
	s.format = format
	s.modifier = modifier
	return true, nil
}

func factory() Factory {
	return func(format uint32, modifier uint64) (NativeSurface, error) {
		return &fakeSurface{}, nil
	}
}

func TestEnsureTargetCreatesWhenPoolEmpty(t *testing.T) {
	p := NewPool()
	ref, err := p.EnsureTarget(1, 0, false, factory())
	if err != nil {
		t.Fatalf("EnsureTarget error: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if p.Age(ref) != 0 {
		t.Fatalf("Age() = %d, want 0", p.Age(ref))
	}
}

func TestEnsureTargetReusesFreeMatchingSurface(t *testing.T) {
	p := NewPool()
	ref, _ := p.EnsureTarget(1, 5, false, factory())
	p.Release(ref)
	if p.Age(ref) != -1 {
		t.Fatalf("Age() after release = %d, want -1", p.Age(ref))
	}

	calls := 0
	f := func(format uint32, modifier uint64) (NativeSurface, error) {
		calls++
		return &fakeSurface{}, nil
	}

	reused, err := p.EnsureTarget(1, 5, false, f)
	if err != nil {
		t.Fatalf("EnsureTarget error: %v", err)
	}
	if reused != ref {
		t.Fatalf("expected to reuse ref %d, got %d", ref, reused)
	}
	if calls != 0 {
		t.Fatalf("expected factory not to be called on reuse, called %d times", calls)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (no new allocation)", p.Len())
	}
}

func TestEnsureTargetAllocatesOnFormatMismatch(t *testing.T) {
	p := NewPool()
	ref, _ := p.EnsureTarget(1, 0, false, factory())
	p.Release(ref)

	ref2, err := p.EnsureTarget(2, 0, false, factory())
	if err != nil {
		t.Fatalf("EnsureTarget error: %v", err)
	}
	if ref2 == ref {
		t.Fatalf("expected a new surface for a different format, got same ref")
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
}

func TestMarkForRecyclingDefersOnScreenSurfaces(t *testing.T) {
	p := NewPool()
	ref, _ := p.EnsureTarget(1, 0, true, factory())

	deferred := p.MarkForRecycling(map[Ref]bool{}, true)
	if len(deferred) != 1 || deferred[0] != ref {
		t.Fatalf("expected ref %d deferred, got %v", ref, deferred)
	}
	if p.Age(ref) != 0 {
		t.Fatalf("expected deferred surface to keep its age, got %d", p.Age(ref))
	}
}

func TestMarkForRecyclingFreesImmediatelyWhenNotRecycling(t *testing.T) {
	p := NewPool()
	ref, _ := p.EnsureTarget(1, 0, true, factory())

	deferred := p.MarkForRecycling(map[Ref]bool{}, false)
	if len(deferred) != 0 {
		t.Fatalf("expected no deferred surfaces, got %v", deferred)
	}
	if p.Age(ref) != -1 {
		t.Fatalf("expected surface freed immediately, age = %d", p.Age(ref))
	}
}

func TestMarkForRecyclingSkipsInUse(t *testing.T) {
	p := NewPool()
	ref, _ := p.EnsureTarget(1, 0, true, factory())

	deferred := p.MarkForRecycling(map[Ref]bool{ref: true}, false)
	if len(deferred) != 0 {
		t.Fatalf("expected no deferred surfaces, got %v", deferred)
	}
	if p.Age(ref) != 0 {
		t.Fatalf("expected in-use surface untouched, age = %d", p.Age(ref))
	}
}
