package mesh

import (
	"image/color"
	"testing"

	"github.com/Faultbox/gridmesh/pkg/math"
)

func TestAppendRebasesIndices(t *testing.T) {
	a := NewBuffer(3, 3)
	a.Indices = []uint32{0, 1, 2}
	b := NewBuffer(4, 6)
	b.Indices = []uint32{0, 1, 2, 0, 2, 3}

	a.Append(b)
	if a.VertexCount() != 7 || a.IndexCount() != 9 {
		t.Fatalf("counts = %d/%d, want 7/9", a.VertexCount(), a.IndexCount())
	}
	want := []uint32{0, 1, 2, 3, 4, 5, 3, 5, 6}
	for i, idx := range a.Indices {
		if idx != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, idx, want[i])
		}
	}
	if a.TriangleCount() != 3 {
		t.Errorf("TriangleCount = %d, want 3", a.TriangleCount())
	}
}

func TestInterleave(t *testing.T) {
	b := NewBuffer(2, 0)
	b.Positions[0] = math.Vec3{X: 1, Y: 2, Z: 3}
	b.Positions[1] = math.Vec3{X: 4, Y: 5, Z: 6}
	b.UVs[1] = math.Vec2{X: 0.5, Y: 1}
	b.Colors[0] = color.RGBA{255, 0, 0, 255}

	got := b.Interleave()
	if len(got) != 2*FloatsPerVertex {
		t.Fatalf("len = %d, want %d", len(got), 2*FloatsPerVertex)
	}
	want := []float32{1, 2, 3, 0, 0, 1, 0, 0, 1, 4, 5, 6, 0.5, 1, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
