// Package debug generates line geometry for grid debug overlays.
package debug

import (
	"image/color"

	"github.com/Faultbox/gridmesh/internal/engine/grid"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// LineVertex is one endpoint of a line segment in local space.
type LineVertex struct {
	X, Y, Z float32 // Position
	R, G, B float32 // Color
}

// Default overlay colors.
var (
	ChunkColor = color.RGBA{255, 200, 0, 255}
	CellColor  = color.RGBA{128, 128, 128, 255}
)

func vertex(p math.Vec3, c color.RGBA) LineVertex {
	return LineVertex{p.X, p.Y, p.Z, float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

// polygon appends the closed outline through pts as line pairs.
func polygon(out []LineVertex, pts []math.Vec3, c color.RGBA) []LineVertex {
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		out = append(out, vertex(p, c), vertex(q, c))
	}
	return out
}

// ChunkOutlines returns the bounding rectangle of every chunk, 8 vertices
// per chunk.
func ChunkOutlines(m *grid.Manager, c color.RGBA) []LineVertex {
	s := m.Shape()
	out := make([]LineVertex, 0, len(m.Chunks())*8)
	for _, ch := range m.Chunks() {
		out = polygon(out, rectangle(s, ch.WorldBounds()), c)
	}
	return out
}

// rectangle returns the corners of b on the template plane.
func rectangle(s *shape.Shape, b shape.Bounds) []math.Vec3 {
	lo, hi := s.Flatten(b.Min), s.Flatten(b.Max)
	return []math.Vec3{
		s.Embed(math.Vec2{X: lo.X, Y: lo.Y}),
		s.Embed(math.Vec2{X: hi.X, Y: lo.Y}),
		s.Embed(math.Vec2{X: hi.X, Y: hi.Y}),
		s.Embed(math.Vec2{X: lo.X, Y: hi.Y}),
	}
}

// CellOutlines returns the outline of every cell of r clipped to the grid,
// two vertices per template edge.
func CellOutlines(m *grid.Manager, r shape.Rect, c color.RGBA) []LineVertex {
	s := m.Shape()
	bounds := m.Bounds()
	outline := s.Outline()

	var out []LineVertex
	pts := make([]math.Vec3, len(outline))
	r.Each(func(cell shape.Coord) {
		if !bounds.Contains(cell) {
			return
		}
		center := s.Offset(cell)
		for i, v := range outline {
			pts[i] = s.Embed(center.Add(v))
		}
		out = polygon(out, pts, c)
	})
	return out
}

// BoundsWireframe returns the 12 edges of an axis aligned box.
func BoundsWireframe(b shape.Bounds, c color.RGBA) []LineVertex {
	lo, hi := b.Min, b.Max
	corner := func(x, y, z bool) math.Vec3 {
		p := lo
		if x {
			p.X = hi.X
		}
		if y {
			p.Y = hi.Y
		}
		if z {
			p.Z = hi.Z
		}
		return p
	}
	out := make([]LineVertex, 0, 24)
	for _, z := range []bool{false, true} {
		out = polygon(out, []math.Vec3{
			corner(false, false, z), corner(true, false, z),
			corner(true, true, z), corner(false, true, z),
		}, c)
	}
	for _, x := range []bool{false, true} {
		for _, y := range []bool{false, true} {
			out = append(out, vertex(corner(x, y, false), c), vertex(corner(x, y, true), c))
		}
	}
	return out
}

// Flatten packs vertices as [x, y, z, r, g, b] floats for upload.
func Flatten(vertices []LineVertex) []float32 {
	out := make([]float32, 0, len(vertices)*6)
	for _, v := range vertices {
		out = append(out, v.X, v.Y, v.Z, v.R, v.G, v.B)
	}
	return out
}
