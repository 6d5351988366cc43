// Package editor applies brush strokes from the viewer to a workspace.
package editor

import (
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/internal/workspace"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// Editor tracks the active layer and brush of one painting session.
type Editor struct {
	ws    *workspace.Workspace
	layer int
	brush int
	last  shape.Coord
}

// New starts on the first layer with the first palette style.
func New(ws *workspace.Workspace) *Editor {
	return &Editor{ws: ws, last: shape.Invalid}
}

// Layer returns the layer strokes are applied to.
func (e *Editor) Layer() string {
	return e.ws.Grid.Layers()[e.layer]
}

// Brush returns the style painted by strokes, or nil with an empty palette.
func (e *Editor) Brush() *style.Style {
	return e.ws.Palette.At(e.brush)
}

// NextLayer cycles through the layers.
func (e *Editor) NextLayer() {
	e.layer = (e.layer + 1) % len(e.ws.Grid.Layers())
	e.last = shape.Invalid
}

// NextBrush moves step styles through the palette.
func (e *Editor) NextBrush(step int) {
	n := e.ws.Palette.Len()
	if n == 0 {
		return
	}
	e.brush = ((e.brush+step)%n + n) % n
	e.last = shape.Invalid
}

// EndStroke forgets the last painted cell.
func (e *Editor) EndStroke() {
	e.last = shape.Invalid
}

// cellAt resolves a point on the grid plane.
func (e *Editor) cellAt(p math.Vec2) shape.Coord {
	m := e.ws.Grid
	return m.GridCoordinate(m.Shape().Embed(p))
}

// PaintAt paints the cell under p. Repeated calls on the same cell during
// one stroke do nothing.
func (e *Editor) PaintAt(p math.Vec2) (shape.Coord, bool) {
	c := e.cellAt(p)
	brush := e.Brush()
	if !c.Valid() || brush == nil || c == e.last {
		return c, false
	}
	e.last = c
	return c, e.ws.Grid.InsertVisualData(e.Layer(), c, brush)
}

// EraseAt resets the cell under p to the layer default, or deletes it.
func (e *Editor) EraseAt(p math.Vec2) (shape.Coord, bool) {
	c := e.cellAt(p)
	if !c.Valid() || c == e.last {
		return c, false
	}
	e.last = c
	return c, e.ws.Grid.RemoveVisualData(e.Layer(), c)
}

// Pick selects the style under p as the brush.
func (e *Editor) Pick(p math.Vec2) bool {
	s := e.ws.Grid.VisualDataAt(e.Layer(), e.cellAt(p))
	if s == nil {
		return false
	}
	for i, ps := range e.ws.Palette.Styles() {
		if ps == s {
			e.brush = i
			return true
		}
	}
	return false
}

// ToggleKeyMode switches the active layer between visual and reference
// grouping.
func (e *Editor) ToggleKeyMode() (style.KeyMode, error) {
	name := e.Layer()
	mode := style.ByReference
	if e.ws.Grid.Chunks()[0].Layer(name).KeyMode() == style.ByReference {
		mode = style.ByVisual
	}
	return mode, e.ws.Grid.SetKeyMode(name, mode)
}

// ToggleShape switches between rectangular and hexagonal cells.
func (e *Editor) ToggleShape() (shape.Kind, error) {
	cfg := e.ws.Grid.Shape().Config()
	if cfg.Kind == shape.KindHex {
		cfg.Kind = shape.KindRect
	} else {
		cfg.Kind = shape.KindHex
	}
	return cfg.Kind, e.ws.Grid.Reshape(cfg)
}
