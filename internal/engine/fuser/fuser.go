// Package fuser accumulates the cells sharing one style into fused geometry
// buffers that never exceed a vertex ceiling.
package fuser

import (
	"errors"
	"fmt"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/parallel"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// ErrCeilingTooSmall is returned when one cell alone exceeds the vertex ceiling.
var ErrCeilingTooSmall = errors.New("fuser: vertex ceiling smaller than one cell")

// White is the vertex color used outside color mode.
var White = color.RGBA{255, 255, 255, 255}

type cell struct {
	coord shape.Coord
	key   uint64
	color color.RGBA
}

// Fuser owns the set of coordinates drawn with one style. It is not safe for
// concurrent use; a layer owns each fuser exclusively.
type Fuser struct {
	shape     *shape.Shape
	template  []math.Vec3
	origin    math.Vec3
	ceiling   int
	colorMode bool
	log       *zap.Logger

	cells []cell
	index map[uint64]int

	dirty   bool
	buffers []*mesh.Buffer
}

// Option configures a Fuser.
type Option func(*Fuser)

// WithLogger sets the logger used to report failed removals.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fuser) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates an empty fuser. Vertex positions are emitted relative to origin.
// In color mode each cell is painted with its own color, otherwise white.
func New(s *shape.Shape, origin math.Vec3, ceiling int, colorMode bool, opts ...Option) (*Fuser, error) {
	f := &Fuser{
		origin:    origin,
		ceiling:   ceiling,
		colorMode: colorMode,
		log:       zap.NewNop(),
		index:     make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.SetShape(s, origin); err != nil {
		return nil, err
	}
	return f, nil
}

// SetShape switches the cell geometry and origin. All buffers are invalidated
// and rebuilt from scratch on the next Rebuild.
func (f *Fuser) SetShape(s *shape.Shape, origin math.Vec3) error {
	if s.VerticesPerCell() > f.ceiling {
		return fmt.Errorf("%w: %d vertices per cell, ceiling %d", ErrCeilingTooSmall, s.VerticesPerCell(), f.ceiling)
	}
	f.shape = s
	f.origin = origin
	f.template = s.Mesh().Vertices
	f.buffers = nil
	f.dirty = true
	return nil
}

// ColorMode reports whether cells are vertex painted.
func (f *Fuser) ColorMode() bool { return f.colorMode }

// Len returns the number of cells.
func (f *Fuser) Len() int { return len(f.cells) }

// Dirty reports whether the buffers are stale.
func (f *Fuser) Dirty() bool { return f.dirty }

// MarkDirty forces the next Rebuild to run.
func (f *Fuser) MarkDirty() { f.dirty = true }

// Contains reports whether c is a member.
func (f *Fuser) Contains(c shape.Coord) bool {
	_, ok := f.index[c.Key()]
	return ok
}

// ColorAt returns the paint color of c.
func (f *Fuser) ColorAt(c shape.Coord) (color.RGBA, bool) {
	i, ok := f.index[c.Key()]
	if !ok {
		return color.RGBA{}, false
	}
	return f.cells[i].color, true
}

// Coords returns the member coordinates in storage order.
func (f *Fuser) Coords() []shape.Coord {
	out := make([]shape.Coord, len(f.cells))
	for i, c := range f.cells {
		out[i] = c.coord
	}
	return out
}

// Insert adds c. Inserting a member is a no-op.
func (f *Fuser) Insert(c shape.Coord, col color.RGBA) bool {
	key := c.Key()
	if _, ok := f.index[key]; ok {
		return false
	}
	f.index[key] = len(f.cells)
	f.cells = append(f.cells, cell{coord: c, key: key, color: col})
	f.dirty = true
	return true
}

// Paint changes the color of a member.
func (f *Fuser) Paint(c shape.Coord, col color.RGBA) bool {
	i, ok := f.index[c.Key()]
	if !ok || f.cells[i].color == col {
		return false
	}
	f.cells[i].color = col
	if f.colorMode {
		f.dirty = true
	}
	return true
}

// Remove drops c. Removing a non-member is a no-op. A removal whose index
// does not match the backing storage fails without touching any state.
func (f *Fuser) Remove(c shape.Coord) bool {
	key := c.Key()
	i, ok := f.index[key]
	if !ok {
		return false
	}
	if i < 0 || i >= len(f.cells) || f.cells[i].key != key {
		f.log.Warn("removal failed",
			zap.Stringer("coord", c),
			zap.Int("index", i),
			zap.Int("cells", len(f.cells)))
		return false
	}

	last := len(f.cells) - 1
	if i != last {
		f.cells[i] = f.cells[last]
		f.index[f.cells[i].key] = i
	}
	f.cells = f.cells[:last]
	delete(f.index, key)
	f.dirty = true
	return true
}

// Combine merges the cells of other into f, skipping coordinates already
// present. It returns the number of cells added.
func (f *Fuser) Combine(other *Fuser) int {
	added := 0
	for _, c := range other.cells {
		if f.Insert(c.coord, c.color) {
			added++
		}
	}
	return added
}

// Clear removes every cell.
func (f *Fuser) Clear() {
	f.cells = nil
	clear(f.index)
	f.buffers = nil
	f.dirty = true
}

// Buffers returns the buffers of the last rebuild.
func (f *Fuser) Buffers() []*mesh.Buffer {
	return f.buffers
}

// layout describes how cells are split into buffers.
type layout struct {
	groups int
	base   int // cells in every group
	rem    int // the first rem groups hold one extra cell
}

func (f *Fuser) layout() layout {
	n := len(f.cells)
	perBuffer := f.ceiling / f.shape.VerticesPerCell()
	groups := (n + perBuffer - 1) / perBuffer
	return layout{groups: groups, base: n / groups, rem: n % groups}
}

func (l layout) size(g int) int {
	if g < l.rem {
		return l.base + 1
	}
	return l.base
}

// locate maps a cell index to its group and slot in that group.
func (l layout) locate(i int) (group, slot int) {
	big := l.rem * (l.base + 1)
	if i < big {
		return i / (l.base + 1), i % (l.base + 1)
	}
	i -= big
	return l.rem + i/l.base, i % l.base
}

func (f *Fuser) allocate(l layout) []*mesh.Buffer {
	vpc := f.shape.VerticesPerCell()
	ipc := f.shape.IndicesPerCell()
	bufs := make([]*mesh.Buffer, l.groups)
	for g := range bufs {
		n := l.size(g)
		bufs[g] = mesh.NewBuffer(n*vpc, n*ipc)
	}
	return bufs
}

// Rebuild regenerates the buffers if the fuser is dirty and reports whether
// it ran.
func (f *Fuser) Rebuild() bool {
	return f.rebuild(1)
}

// RebuildParallel is Rebuild with cell iteration split across workers.
// Every worker writes a disjoint region of pre-sized buffers.
func (f *Fuser) RebuildParallel(workers int) bool {
	return f.rebuild(workers)
}

func (f *Fuser) rebuild(workers int) bool {
	if !f.dirty {
		return false
	}
	f.dirty = false
	if len(f.cells) == 0 {
		f.buffers = nil
		return true
	}

	l := f.layout()
	bufs := f.allocate(l)
	write := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			g, slot := l.locate(i)
			f.writeCell(bufs[g], slot, f.cells[i])
		}
	}
	if workers == 1 {
		write(0, len(f.cells))
	} else {
		parallel.Ranges(len(f.cells), workers, write)
	}
	f.buffers = bufs
	return true
}

func (f *Fuser) writeCell(b *mesh.Buffer, slot int, c cell) {
	vpc := len(f.template)
	tris := f.shape.Triangles()
	uvs := f.shape.UVs()

	offset := f.shape.TesselatedPosition(c.coord).Sub(f.origin)
	col := White
	if f.colorMode {
		col = c.color
	}

	v0 := slot * vpc
	for v, p := range f.template {
		b.Positions[v0+v] = p.Add(offset)
		b.UVs[v0+v] = uvs[v]
		b.Colors[v0+v] = col
	}
	i0 := slot * len(tris)
	for k, t := range tris {
		b.Indices[i0+k] = uint32(v0) + t
	}
}
