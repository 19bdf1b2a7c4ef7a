package hwdriver

import (
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwsurface"
)

// Surface is an in-memory NativeSurface: it tracks format/modifier state
// without backing any real GPU memory, enough for the planner's pool
// bookkeeping and tests to exercise reuse and recycling.
type Surface struct {
	id       uint32
	format   uint32
	modifier uint64
	closed   bool
}

var nextSurfaceID uint32 = 1000

// NewSurfaceFactory returns an hwsurface.Factory that hands out Surfaces
// with sequential framebuffer ids, suitable for the planner's off-screen
// target pool in tests and the demo command.
func NewSurfaceFactory() hwsurface.Factory {
	return func(format uint32, modifier uint64) (hwsurface.NativeSurface, error) {
		id := nextSurfaceID
		nextSurfaceID++
		return &Surface{id: id, format: format, modifier: modifier}, nil
	}
}

func (s *Surface) Width() int32      { return 1920 }
func (s *Surface) Height() int32     { return 1080 }
func (s *Surface) Format() uint32    { return s.format }
func (s *Surface) Modifier() uint64  { return s.modifier }
func (s *Surface) FrameBufferID() uint32 { return s.id }

func (s *Surface) Init(format uint32, _ hwbuffer.Usage, modifier uint64) (bool, error) {
	s.format = format
	s.modifier = modifier
	return true, nil
}

func (s *Surface) Close() error {
	s.closed = true
	return nil
}
