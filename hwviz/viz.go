// Package hwviz renders a composition plan to a terminal, for the demo
// command and for debugging planner decisions interactively. It draws
// plane rectangles as colored terminal cells; it never touches pixel
// buffers and has no role in the planner itself.
package hwviz

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
)

// Screen adapts a tcell.Screen to the small surface this package needs,
// mirroring how a windowing host's own screen driver would be wrapped.
type Screen struct {
	screen tcell.Screen
}

// NewScreen initializes a new terminal screen for rendering composition
// plans. Callers must call Close when done.
func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("hwviz: create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("hwviz: init screen: %w", err)
	}
	s.HideCursor()
	return &Screen{screen: s}, nil
}

// Close releases the underlying terminal screen.
func (s *Screen) Close() { s.screen.Fini() }

// Size returns the terminal's current dimensions in cells.
func (s *Screen) Size() (int, int) { return s.screen.Size() }

var planeStyles = []tcell.Style{
	tcell.StyleDefault.Background(tcell.ColorBlue),
	tcell.StyleDefault.Background(tcell.ColorGreen),
	tcell.StyleDefault.Background(tcell.ColorPurple),
	tcell.StyleDefault.Background(tcell.ColorOlive),
	tcell.StyleDefault.Background(tcell.ColorTeal),
	tcell.StyleDefault.Background(tcell.ColorMaroon),
}

// Render draws one frame's plan: each node's display frame as a block of
// its plane's color, labeled with the plane id and disposition, scaled
// down from display pixel space into terminal cells by displayW/displayH.
func (s *Screen) Render(nodes []*hwplane.State, displayW, displayH int32) {
	s.screen.Clear()
	cols, rows := s.screen.Size()
	if displayW == 0 || displayH == 0 || cols == 0 || rows == 0 {
		s.screen.Show()
		return
	}

	for i, n := range nodes {
		style := planeStyles[i%len(planeStyles)]
		frame := n.DisplayFrame()

		x0 := int(frame.Left) * cols / int(displayW)
		x1 := int(frame.Right) * cols / int(displayW)
		y0 := int(frame.Top) * rows / int(displayH)
		y1 := int(frame.Bottom) * rows / int(displayH)

		label := []rune(fmt.Sprintf("p%d:%s", n.Plane().ID(), n.Disposition()))
		for y := y0; y < y1 && y < rows; y++ {
			for x := x0; x < x1 && x < cols; x++ {
				ch := rune(' ')
				li := x - x0
				if y == y0 && li >= 0 && li < len(label) {
					ch = label[li]
				}
				s.screen.SetContent(x, y, ch, nil, style)
			}
		}
	}

	s.screen.Show()
}

// PollQuit blocks until the next terminal event and reports whether it was
// the user pressing 'q' or Escape; the demo command calls it in a loop
// until it returns true.
func (s *Screen) PollQuit() bool {
	switch ev := s.screen.PollEvent().(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
			return true
		}
	}
	return false
}
