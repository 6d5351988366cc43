package camera

import (
	stdmath "math"
	"testing"

	"github.com/Faultbox/gridmesh/pkg/math"
)

func near(a, b float32) bool {
	return stdmath.Abs(float64(a-b)) < 1e-4
}

func TestScreenToPlaneMatchesViewProj(t *testing.T) {
	for _, xz := range []bool{false, true} {
		c := NewPanCamera()
		c.Center = math.Vec2{X: 12, Y: -3}
		c.Zoom = 20
		c.XZ = xz

		const w, h = 800, 600
		p := c.ScreenToPlane(600, 150, w, h)
		local := math.Vec3{X: p.X, Y: p.Y}
		if xz {
			local = math.Vec3{X: p.X, Z: p.Y}
		}
		clip := c.ViewProj(w, h).TransformVec3(local)

		// Pixel (600, 150) is at NDC (0.5, 0.5).
		if !near(clip.X, 0.5) || !near(clip.Y, 0.5) {
			t.Errorf("xz=%v: clip = %+v, want (0.5, 0.5)", xz, clip)
		}
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewPanCamera()
	for range 200 {
		c.HandleZoom(1)
	}
	if c.Zoom != c.MaxZoom {
		t.Errorf("Zoom = %v, want %v", c.Zoom, c.MaxZoom)
	}
	for range 200 {
		c.HandleZoom(-1)
	}
	if c.Zoom != c.MinZoom {
		t.Errorf("Zoom = %v, want %v", c.Zoom, c.MinZoom)
	}
}

func TestHandleDragMovesOppositeToMouse(t *testing.T) {
	c := NewPanCamera()
	c.Zoom = 10
	c.HandleDrag(20, 10)
	if !near(c.Center.X, -2) || !near(c.Center.Y, 1) {
		t.Errorf("Center = %+v, want (-2, 1)", c.Center)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewPanCamera()
	c.FitToBounds(math.Vec2{X: 0, Y: 0}, math.Vec2{X: 10, Y: 5}, 200, 200)
	if c.Center != (math.Vec2{X: 5, Y: 2.5}) {
		t.Errorf("Center = %+v", c.Center)
	}
	if !near(c.Zoom, 19) {
		t.Errorf("Zoom = %v, want 19", c.Zoom)
	}
}
