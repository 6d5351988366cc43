// Package mesh holds fused geometry buffers and packs them into draw batches.
package mesh

import (
	"image/color"

	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// DefaultVertexCeiling is the largest vertex count addressable with 16-bit
// indices while keeping one value free for primitive restart.
const DefaultVertexCeiling = 65534

// Buffer is a fused geometry buffer. Indices are relative to the buffer's
// own first vertex.
type Buffer struct {
	Positions []math.Vec3
	UVs       []math.Vec2
	Colors    []color.RGBA
	Indices   []uint32
}

// NewBuffer returns a buffer with vertices and indices slots already sized,
// so disjoint regions can be written concurrently.
func NewBuffer(vertices, indices int) *Buffer {
	return &Buffer{
		Positions: make([]math.Vec3, vertices),
		UVs:       make([]math.Vec2, vertices),
		Colors:    make([]color.RGBA, vertices),
		Indices:   make([]uint32, indices),
	}
}

// VertexCount returns the number of vertices.
func (b *Buffer) VertexCount() int {
	return len(b.Positions)
}

// IndexCount returns the number of triangle indices.
func (b *Buffer) IndexCount() int {
	return len(b.Indices)
}

// TriangleCount returns the number of triangles.
func (b *Buffer) TriangleCount() int {
	return len(b.Indices) / 3
}

// Append concatenates other onto b, rebasing its indices.
func (b *Buffer) Append(other *Buffer) {
	base := uint32(len(b.Positions))
	b.Positions = append(b.Positions, other.Positions...)
	b.UVs = append(b.UVs, other.UVs...)
	b.Colors = append(b.Colors, other.Colors...)
	for _, idx := range other.Indices {
		b.Indices = append(b.Indices, base+idx)
	}
}

// Tagged is a buffer together with the style it is drawn with.
type Tagged struct {
	Style  *style.Style
	Buffer *Buffer
}

// Binding maps a sub-range of a batch to the style it is drawn with.
type Binding struct {
	Style       *style.Style
	VertexStart int
	VertexCount int
	IndexStart  int
	IndexCount  int
}

// Batch is one renderable unit: a concatenated buffer plus its style bindings.
type Batch struct {
	Buffer   *Buffer
	Bindings []Binding
}

// VertexCount returns the number of vertices in the batch.
func (b *Batch) VertexCount() int {
	return b.Buffer.VertexCount()
}

// FloatsPerVertex is the width of one interleaved vertex:
// position(3) + uv(2) + color(4).
const FloatsPerVertex = 9

// Interleave packs the buffer into one float slice with colors normalized
// to [0, 1].
func (b *Buffer) Interleave() []float32 {
	out := make([]float32, 0, b.VertexCount()*FloatsPerVertex)
	for i, p := range b.Positions {
		uv := b.UVs[i]
		c := b.Colors[i]
		out = append(out,
			p.X, p.Y, p.Z,
			uv.X, uv.Y,
			float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	}
	return out
}
