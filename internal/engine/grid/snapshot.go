package grid

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
)

// CellRef is one persisted assignment. Styles are referenced by name.
type CellRef struct {
	X     int32  `yaml:"x"`
	Y     int32  `yaml:"y"`
	Style string `yaml:"style"`
}

// LayerSnapshot is the ordered assignment list of one layer.
type LayerSnapshot struct {
	Name  string    `yaml:"name"`
	Cells []CellRef `yaml:"cells"`
}

// Snapshot is the persisted form of every layer of a grid.
type Snapshot struct {
	Layers []LayerSnapshot `yaml:"layers"`
}

// Len returns the number of cells across every layer.
func (s Snapshot) Len() int {
	n := 0
	for _, l := range s.Layers {
		n += len(l.Cells)
	}
	return n
}

// Resolver maps a persisted style name back to a style, or nil.
type Resolver func(name string) *style.Style

// Snapshot captures every assignment. Layers follow configuration order;
// cells follow chunk order, then row-major order inside each chunk.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{Layers: make([]LayerSnapshot, len(m.cfg.Layers))}
	for i, lc := range m.cfg.Layers {
		snap.Layers[i].Name = lc.Name
		for _, c := range m.chunks {
			for _, cell := range c.Layer(lc.Name).Cells() {
				snap.Layers[i].Cells = append(snap.Layers[i].Cells, CellRef{
					X:     cell.Coord.X,
					Y:     cell.Coord.Y,
					Style: cell.Style.Name(),
				})
			}
		}
	}
	return snap
}

// Restore inserts every assignment of snap. All layer names and style
// references are checked before anything is inserted.
func (m *Manager) Restore(snap Snapshot, resolve Resolver) error {
	type pending struct {
		layer  string
		coords []shape.Coord
		styles []*style.Style
	}

	var errs error
	work := make([]pending, 0, len(snap.Layers))
	for _, l := range snap.Layers {
		if !m.HasLayer(l.Name) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownLayer, l.Name))
			continue
		}
		p := pending{
			layer:  l.Name,
			coords: make([]shape.Coord, len(l.Cells)),
			styles: make([]*style.Style, len(l.Cells)),
		}
		missing := make(map[string]bool)
		for i, c := range l.Cells {
			p.coords[i] = shape.Coord{X: c.X, Y: c.Y}
			p.styles[i] = resolve(c.Style)
			if p.styles[i] == nil && !missing[c.Style] {
				missing[c.Style] = true
				errs = multierr.Append(errs, fmt.Errorf("%w: layer %q style %q", ErrUnknownStyle, l.Name, c.Style))
			}
		}
		work = append(work, p)
	}
	if errs != nil {
		return errs
	}

	for _, p := range work {
		if _, err := m.InsertPositionBlock(p.layer, p.coords, p.styles); err != nil {
			return err
		}
	}
	return nil
}
