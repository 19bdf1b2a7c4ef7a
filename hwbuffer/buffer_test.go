package hwbuffer

import "testing"

type countingCloser struct {
	closes []int32
}

func (c *countingCloser) CloseFence(fd int32) error {
	c.closes = append(c.closes, fd)
	return nil
}

type fakeBuffer struct {
	video bool
}

func (f *fakeBuffer) Width() int32         { return 1920 }
func (f *fakeBuffer) Height() int32        { return 1080 }
func (f *fakeBuffer) Format() uint32       { return 1 }
func (f *fakeBuffer) Modifier() uint64     { return 0 }
func (f *fakeBuffer) Usage() Usage         { return 0 }
func (f *fakeBuffer) IsVideoBuffer() bool  { return f.video }
func (f *fakeBuffer) FrameBufferID() uint32 { return 7 }

func TestSetAcquireFenceClosesPrevious(t *testing.T) {
	closer := &countingCloser{}
	b := NewImportedBuffer(&fakeBuffer{}, 10, closer)

	b.SetAcquireFence(11)
	if len(closer.closes) != 1 || closer.closes[0] != 10 {
		t.Fatalf("expected fence 10 to be closed once, got %v", closer.closes)
	}

	b.SetAcquireFence(12)
	if len(closer.closes) != 2 || closer.closes[1] != 11 {
		t.Fatalf("expected fence 11 to be closed once, got %v", closer.closes)
	}
}

func TestReleaseAcquireFenceTransfersOwnership(t *testing.T) {
	closer := &countingCloser{}
	b := NewImportedBuffer(&fakeBuffer{}, 10, closer)

	got := b.ReleaseAcquireFence()
	if got != 10 {
		t.Fatalf("ReleaseAcquireFence() = %d, want 10", got)
	}
	if b.AcquireFence() != NoFence {
		t.Fatalf("AcquireFence() after release = %d, want NoFence", b.AcquireFence())
	}
	// Close must not double-close a fence that was already released.
	if err := b.Close(); err != nil {
		t.Fatalf("Close() after release returned error: %v", err)
	}
	if len(closer.closes) != 0 {
		t.Fatalf("expected no closes after release, got %v", closer.closes)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	closer := &countingCloser{}
	b := NewImportedBuffer(&fakeBuffer{}, 10, closer)

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if len(closer.closes) != 1 {
		t.Fatalf("expected exactly one close, got %v", closer.closes)
	}
}

func TestCloseWithNoFenceIsNoop(t *testing.T) {
	closer := &countingCloser{}
	b := NewImportedBuffer(&fakeBuffer{}, NoFence, closer)

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if len(closer.closes) != 0 {
		t.Fatalf("expected no closes, got %v", closer.closes)
	}
}

func TestUsageHas(t *testing.T) {
	u := UsageCursor | UsageProtected
	if !u.Has(UsageCursor) {
		t.Error("expected Has(UsageCursor)")
	}
	if u.Has(UsageVideo) {
		t.Error("expected !Has(UsageVideo)")
	}
}
