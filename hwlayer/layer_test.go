package hwlayer

import (
	"testing"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
)

type fakeBuffer struct {
	video  bool
	usage  hwbuffer.Usage
	format uint32
}

func (f *fakeBuffer) Width() int32          { return 100 }
func (f *fakeBuffer) Height() int32         { return 100 }
func (f *fakeBuffer) Format() uint32        { return f.format }
func (f *fakeBuffer) Modifier() uint64      { return 0 }
func (f *fakeBuffer) Usage() hwbuffer.Usage { return f.usage }
func (f *fakeBuffer) IsVideoBuffer() bool   { return f.video }
func (f *fakeBuffer) FrameBufferID() uint32 { return 0 }

func baseHost() HostLayer {
	return HostLayer{
		Alpha:           1.0,
		SourceCrop:      geom.NewRect[float64](0, 0, 100, 100),
		DisplayFrame:    geom.NewRect[int32](0, 0, 100, 100),
		Blending:        BlendingPremultiplied,
		LeftConstraint:  -1,
		RightConstraint: -1,
	}
}

func TestValidateForOverlayUsageCursorWinsOverVideo(t *testing.T) {
	buf := &fakeBuffer{video: true, usage: hwbuffer.UsageCursor}
	l := NewOverlayLayer(0, 0, baseHost(), buf, geom.TransformNone, nil)
	if l.Kind() != KindCursor {
		t.Errorf("Kind() = %v, want KindCursor", l.Kind())
	}
}

func TestValidateForOverlayUsageVideo(t *testing.T) {
	buf := &fakeBuffer{video: true}
	l := NewOverlayLayer(0, 0, baseHost(), buf, geom.TransformNone, nil)
	if l.Kind() != KindVideo {
		t.Errorf("Kind() = %v, want KindVideo", l.Kind())
	}
}

func TestUpdateSurfaceDamageFullWhenNotGPURendered(t *testing.T) {
	buf := &fakeBuffer{}
	l := NewOverlayLayer(0, 0, baseHost(), buf, geom.TransformNone, nil)
	if l.SurfaceDamage() != l.DisplayFrame() {
		t.Errorf("SurfaceDamage() = %+v, want full frame %+v", l.SurfaceDamage(), l.DisplayFrame())
	}
}

func TestUpdateSurfaceDamageUnionsWithPrevious(t *testing.T) {
	buf := &fakeBuffer{}
	host := baseHost()
	prev := NewOverlayLayer(0, 0, host, buf, geom.TransformNone, nil)
	prev.MarkGPURendered()
	prev.lastSurfaceDamage = geom.NewRect[int32](10, 10, 20, 20)

	curHost := host
	curHost.Damage = geom.NewRect[int32](5, 5, 15, 15)
	cur := NewOverlayLayer(0, 0, curHost, buf, geom.TransformNone, prev)
	if !cur.gpuRendered {
		t.Fatal("expected gpu_rendered to be inherited from previous at construction time")
	}

	want := curHost.Damage.Union(geom.NewRect[int32](10, 10, 20, 20))
	if cur.SurfaceDamage() != want {
		t.Errorf("SurfaceDamage() = %+v, want %+v", cur.SurfaceDamage(), want)
	}
	if cur.SurfaceDamage() == cur.DisplayFrame() {
		t.Error("expected surface damage to be smaller than the full display frame")
	}
	if cur.lastSurfaceDamage != curHost.Damage {
		t.Errorf("lastSurfaceDamage = %+v, want this frame's reported damage %+v", cur.lastSurfaceDamage, curHost.Damage)
	}
}

func TestValidatePreviousFrameStateRejectsChangedScanoutGeometry(t *testing.T) {
	buf := &fakeBuffer{}
	host := baseHost()
	prev := NewOverlayLayer(0, 0, host, buf, geom.TransformNone, nil)
	// prev is not GPU-rendered and not cursor: a direct-scanout layer.

	changed := baseHost()
	changed.DisplayFrame = geom.NewRect[int32](0, 0, 50, 50)
	cur := &OverlayLayer{displayFrame: changed.DisplayFrame, sourceCrop: changed.SourceCrop, alpha: changed.Alpha, blending: changed.Blending}

	ok := cur.validatePreviousFrameState(prev, changed)
	if ok {
		t.Error("expected validatePreviousFrameState to report stale plan (false) on scanout geometry change")
	}
}

func TestClipToConstraintsTranslatesOrigin(t *testing.T) {
	host := baseHost()
	host.DisplayFrame = geom.NewRect[int32](0, 0, 300, 100)
	host.SourceCrop = geom.NewRect[float64](0, 0, 300, 100)
	host.LeftConstraint = 100
	host.RightConstraint = 250
	host.MaxHeight = 100

	buf := &fakeBuffer{}
	l := NewOverlayLayer(0, 0, host, buf, geom.TransformNone, nil)

	want := geom.NewRect[int32](0, 0, 150, 100)
	if l.DisplayFrame() != want {
		t.Errorf("DisplayFrame() = %+v, want %+v", l.DisplayFrame(), want)
	}
}
