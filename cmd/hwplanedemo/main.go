// Command hwplanedemo drives a handful of synthetic layer stacks through
// the plane-composition planner and renders the resulting plan to a
// terminal, so planner decisions (which layers land on a dedicated plane,
// which get grouped for GPU composition, where the cursor ends up) can be
// inspected interactively instead of only through test assertions.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/YuanjunHuang/IA-Hardware-Composer/geom"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwbuffer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwdriver"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlayer"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwlog"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplane"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwplanner"
	"github.com/YuanjunHuang/IA-Hardware-Composer/hwviz"
)

func main() {
	var (
		planeCount = flag.Int("planes", 4, "number of hardware overlay planes to simulate")
		scenario   = flag.String("scenario", "typical", "typical|video|overflow|cursor")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
		width      = flag.Int("width", 1920, "display width")
		height     = flag.Int("height", 1080, "display height")
	)
	flag.Parse()

	if *verbose {
		hwlog.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	planes := make([]hwplane.DisplayPlane, *planeCount)
	backing := make([]*hwdriver.Plane, *planeCount)
	for i := range planes {
		p := hwdriver.NewPlane(uint32(i), i == 0) //nolint:gosec
		backing[i] = p
		planes[i] = p
	}
	if len(backing) > 1 {
		backing[len(backing)-1].Cursor = true
	}

	handler := hwdriver.NewHandler()
	manager := hwplanner.NewManager(planes, handler, hwdriver.NewSurfaceFactory())

	layers := buildScenario(*scenario, int32(*width), int32(*height))
	result := manager.Validate(layers, hwplanner.ValidateOptions{})

	fmt.Printf("scenario %q: %d layers -> %d plan nodes\n", *scenario, len(layers), len(result.Nodes))
	for _, n := range result.Nodes {
		fmt.Printf("  plane %d: %s, %d layer(s), frame=%+v\n", n.Plane().ID(), n.Disposition(), len(n.Layers()), n.DisplayFrame())
	}

	screen, err := hwviz.NewScreen()
	if err != nil {
		log.Printf("terminal visualization unavailable: %v", err)
		return
	}
	defer screen.Close()

	screen.Render(result.Nodes, int32(*width), int32(*height))
	for {
		if screen.PollQuit() {
			return
		}
	}
}

func buildScenario(name string, w, h int32) []*hwlayer.OverlayLayer {
	switch name {
	case "video":
		return []*hwlayer.OverlayLayer{
			makeLayer(0, 0, hwlayer.KindVideo, geom.NewRect[int32](0, 0, w/2, h), false),
			makeLayer(1, 1, hwlayer.KindVideo, geom.NewRect[int32](w/2, 0, w, h), false),
		}
	case "overflow":
		layers := make([]*hwlayer.OverlayLayer, 0, 8)
		step := w / 8
		for i := int32(0); i < 8; i++ {
			layers = append(layers, makeLayer(int(i), int(i), hwlayer.KindNormal, geom.NewRect(i*step, 0, (i+1)*step, h), false))
		}
		return layers
	case "cursor":
		return []*hwlayer.OverlayLayer{
			makeLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, w, h), false),
			makeLayer(1, 1, hwlayer.KindCursor, geom.NewRect(w/2, h/2, w/2+32, h/2+32), false),
		}
	default: // "typical"
		return []*hwlayer.OverlayLayer{
			makeLayer(0, 0, hwlayer.KindNormal, geom.NewRect[int32](0, 0, w, h), false),
			makeLayer(1, 1, hwlayer.KindNormal, geom.NewRect[int32](100, 100, 600, 500), false),
			makeLayer(2, 2, hwlayer.KindCursor, geom.NewRect[int32](300, 300, 332, 332), false),
		}
	}
}

func makeLayer(index, z int, kind hwlayer.Kind, frame geom.Rect[int32], solid bool) *hwlayer.OverlayLayer {
	buf := &hwdriver.Buffer{W: frame.Width(), H: frame.Height(), Fmt: 1, FBID: uint32(index + 1)} //nolint:gosec
	switch kind {
	case hwlayer.KindCursor:
		buf.UsageBit = hwbuffer.UsageCursor
	case hwlayer.KindVideo:
		buf.Video = true
	}
	host := hwlayer.HostLayer{
		Alpha:           1,
		SourceCrop:      geom.NewRect(0, 0, float64(frame.Width()), float64(frame.Height())),
		DisplayFrame:    frame,
		Blending:        hwlayer.BlendingPremultiplied,
		LeftConstraint:  -1,
		RightConstraint: -1,
		SolidColor:      solid,
	}
	return hwlayer.NewOverlayLayer(index, z, host, buf, geom.TransformNone, nil)
}
