// Package viewer implements the interactive grid viewer and painter.
package viewer

import (
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/editor"
	"github.com/Faultbox/gridmesh/internal/engine/camera"
	"github.com/Faultbox/gridmesh/internal/engine/debug"
	"github.com/Faultbox/gridmesh/internal/engine/input"
	"github.com/Faultbox/gridmesh/internal/engine/render"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/texture"
	"github.com/Faultbox/gridmesh/internal/engine/window"
	"github.com/Faultbox/gridmesh/internal/logger"
	"github.com/Faultbox/gridmesh/internal/preview"
	"github.com/Faultbox/gridmesh/internal/workspace"
	"github.com/Faultbox/gridmesh/pkg/math"
)

const title = "gridmesh"

// overlayMode selects the debug lines drawn over the grid.
type overlayMode int

const (
	overlayNone overlayMode = iota
	overlayChunks
	overlayCells
	overlayModes
)

// Viewer is the main viewer instance.
type Viewer struct {
	ws      *workspace.Workspace
	editor  *editor.Editor
	running bool

	window *window.Window
	input  *input.Input
	camera *camera.PanCamera
	sink   *render.GLSink
	lines  *render.LineRenderer

	overlay overlayMode

	width, height int

	panning  bool
	painting bool
	erasing  bool
	capture  bool
	pending  chan fileRequest
	lastX    int
	lastY    int

	log *zap.Logger
}

// New opens the window and uploads nothing yet; the first frame draws the
// whole grid.
func New(ws *workspace.Workspace) (*Viewer, error) {
	cfg := ws.Config.Viewer
	v := &Viewer{
		ws:      ws,
		editor:  editor.New(ws),
		input:   input.New(),
		camera:  camera.NewPanCamera(),
		pending: make(chan fileRequest, 1),
		log:     logger.Named("viewer"),
	}
	v.camera.XZ = ws.Grid.Shape().Config().Orientation == shape.OrientXZ

	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Fullscreen: cfg.Fullscreen,
		VSync:      cfg.VSync,
		Samples:    cfg.Samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// OpenGL must be initialized after the context exists
	if err := gl.Init(); err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	v.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	if cfg.Samples > 0 {
		gl.Enable(gl.MULTISAMPLE)
	}
	gl.ClearColor(0.1, 0.1, 0.12, 1.0)

	var loader render.TextureLoader
	if cfg.Materials != "" {
		loader = texture.Loader(cfg.Materials)
	}
	m := ws.Grid
	origin := func(start shape.Coord) math.Vec3 {
		if c := m.ChunkByOrigin(start); c != nil {
			return c.Origin()
		}
		return m.TesselatedPosition(start)
	}
	v.sink, err = render.NewGLSink(origin, m.Layers(), loader, v.log.Named("sink"))
	if err != nil {
		v.window.Close()
		return nil, err
	}

	v.lines, err = render.NewLineRenderer()
	if err != nil {
		v.sink.Destroy()
		v.window.Close()
		return nil, err
	}

	v.width, v.height = v.window.DrawableSize()
	gl.Viewport(0, 0, int32(v.width), int32(v.height))
	v.fit()

	v.log.Info("viewer initialized",
		zap.Int("width", v.width),
		zap.Int("height", v.height),
		zap.Int("chunks", len(m.Chunks())))
	return v, nil
}

// fit frames the whole grid.
func (v *Viewer) fit() {
	b := v.ws.Grid.WorldBounds()
	s := v.ws.Grid.Shape()
	lo, hi := s.Flatten(b.Min), s.Flatten(b.Max)
	v.camera.FitToBounds(
		math.Vec2{X: min(lo.X, hi.X), Y: min(lo.Y, hi.Y)},
		math.Vec2{X: max(lo.X, hi.X), Y: max(lo.Y, hi.Y)},
		v.width, v.height)
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		for _, event := range v.input.Events() {
			v.handle(event)
		}
		v.processPending()

		// 2. Fuse changes and upload them
		if err := v.ws.Draw(v.sink); err != nil {
			v.log.Warn("upload failed", zap.Error(err))
		}

		// 3. Render
		gl.Clear(gl.COLOR_BUFFER_BIT)
		viewProj := v.camera.ViewProj(v.width, v.height)
		v.sink.Render(viewProj)
		v.lines.Render(viewProj)
		if v.capture {
			v.screenshot()
			v.capture = false
		}

		// 4. Present
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.updateTitle(frameCount)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) updateTitle(fps int) {
	batches, draws := v.sink.Stats()
	brush := "-"
	if b := v.editor.Brush(); b != nil {
		brush = b.Name()
	}
	t := fmt.Sprintf("%s - %s / %s", title, v.editor.Layer(), brush)
	if v.ws.Config.Viewer.ShowStats {
		t += fmt.Sprintf(" - %d fps, %d batches, %d draws, %d cells", fps, batches, draws, v.ws.Grid.Len())
	}
	v.window.SetTitle(t)
}

func (v *Viewer) handle(e input.Event) {
	switch e.Type {
	case input.EventWindowResize:
		v.width, v.height = v.window.DrawableSize()
		gl.Viewport(0, 0, int32(v.width), int32(v.height))

	case input.EventMouseWheel:
		v.camera.HandleZoom(e.Wheel)

	case input.EventMouseDown:
		v.lastX, v.lastY = e.MouseX, e.MouseY
		switch e.Button {
		case sdl.BUTTON_LEFT:
			v.painting = true
			v.stroke(e.MouseX, e.MouseY)
		case sdl.BUTTON_RIGHT:
			v.erasing = true
			v.stroke(e.MouseX, e.MouseY)
		case sdl.BUTTON_MIDDLE:
			v.panning = true
		}

	case input.EventMouseUp:
		switch e.Button {
		case sdl.BUTTON_LEFT:
			v.painting = false
		case sdl.BUTTON_RIGHT:
			v.erasing = false
		case sdl.BUTTON_MIDDLE:
			v.panning = false
		}
		v.editor.EndStroke()

	case input.EventMouseMove:
		if v.panning {
			v.camera.HandleDrag(float32(e.MouseX-v.lastX), float32(e.MouseY-v.lastY))
		} else if v.painting || v.erasing {
			v.stroke(e.MouseX, e.MouseY)
		}
		v.lastX, v.lastY = e.MouseX, e.MouseY

	case input.EventKeyDown:
		v.key(e)
	}
}

// stroke paints or erases under a window position.
func (v *Viewer) stroke(x, y int) {
	p := v.screenToPlane(x, y)
	if v.painting {
		v.editor.PaintAt(p)
	} else {
		v.editor.EraseAt(p)
	}
}

// screenToPlane converts window coordinates, which differ from drawable
// pixels on high-DPI displays.
func (v *Viewer) screenToPlane(x, y int) math.Vec2 {
	ww, wh := v.window.GetSize()
	if ww > 0 && wh > 0 {
		x = x * v.width / ww
		y = y * v.height / wh
	}
	return v.camera.ScreenToPlane(x, y, v.width, v.height)
}

func (v *Viewer) key(e input.Event) {
	switch e.Key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_TAB:
		v.editor.NextLayer()
	case sdl.SCANCODE_E:
		v.editor.NextBrush(1)
	case sdl.SCANCODE_Q:
		v.editor.NextBrush(-1)
	case sdl.SCANCODE_P:
		v.editor.Pick(v.screenToPlane(v.lastX, v.lastY))
	case sdl.SCANCODE_F:
		v.fit()
	case sdl.SCANCODE_K:
		mode, err := v.editor.ToggleKeyMode()
		if err != nil {
			v.log.Warn("key mode switch failed", zap.Error(err))
			return
		}
		v.log.Info("key mode switched", zap.String("layer", v.editor.Layer()), zap.Stringer("mode", mode))
	case sdl.SCANCODE_H:
		kind, err := v.editor.ToggleShape()
		if err != nil {
			v.log.Warn("reshape failed", zap.Error(err))
			return
		}
		v.log.Info("shape switched", zap.Stringer("shape", kind))
		v.updateOverlay()
		v.fit()
	case sdl.SCANCODE_G:
		v.overlay = (v.overlay + 1) % overlayModes
		v.updateOverlay()
	case sdl.SCANCODE_C:
		if e.Shift {
			if err := v.ws.Grid.Clear(); err != nil {
				v.log.Warn("clear failed", zap.Error(err))
			}
		}
	case sdl.SCANCODE_F5:
		v.save()
	case sdl.SCANCODE_S:
		if e.Ctrl {
			v.saveDialog()
		}
	case sdl.SCANCODE_O:
		if e.Ctrl {
			v.openDialog()
		}
	case sdl.SCANCODE_F12:
		v.capture = true
	}
}

// updateOverlay regenerates the debug lines for the current mode.
func (v *Viewer) updateOverlay() {
	var lines []debug.LineVertex
	m := v.ws.Grid
	if v.overlay == overlayCells {
		lines = debug.CellOutlines(m, m.Bounds(), debug.CellColor)
	}
	if v.overlay != overlayNone {
		lines = append(lines, debug.ChunkOutlines(m, debug.ChunkColor)...)
	}
	v.lines.Upload(lines)
}

// screenshot reads back the frame before it is presented and writes it as
// PNG.
func (v *Viewer) screenshot() {
	pixels := make([]byte, v.width*v.height*4)
	gl.ReadPixels(0, 0, int32(v.width), int32(v.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	img, err := preview.FromPixels(pixels, v.width, v.height)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	path := preview.Filename(v.ws.Config.Store.Dir, "screenshot", time.Now())
	if err := preview.WritePNG(path, img); err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases GPU resources and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.lines != nil {
		v.lines.Destroy()
	}
	if v.sink != nil {
		v.sink.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}
