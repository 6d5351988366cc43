// Package camera provides the top-down camera used by the grid viewer.
package camera

import (
	"github.com/Faultbox/gridmesh/pkg/math"
)

// PanCamera looks straight down at the grid plane with an orthographic
// projection.
type PanCamera struct {
	// Center of the view on the grid plane
	Center math.Vec2

	// Zoom is the number of screen pixels per world unit
	Zoom    float32
	MinZoom float32
	MaxZoom float32

	// XZ selects the ground plane instead of the screen plane
	XZ bool

	ZoomSensitivity float32
}

// NewPanCamera creates a camera with default settings.
func NewPanCamera() *PanCamera {
	return &PanCamera{
		Zoom:            32,
		MinZoom:         1,
		MaxZoom:         512,
		ZoomSensitivity: 0.1,
	}
}

// HandleDrag pans by a mouse delta in pixels.
func (c *PanCamera) HandleDrag(deltaX, deltaY float32) {
	c.Center.X -= deltaX / c.Zoom
	c.Center.Y += deltaY / c.Zoom
}

// HandleZoom scales the view based on scroll wheel delta.
func (c *PanCamera) HandleZoom(delta float32) {
	c.Zoom += delta * c.Zoom * c.ZoomSensitivity
	c.Zoom = min(max(c.Zoom, c.MinZoom), c.MaxZoom)
}

// FitToBounds centers the view on a plane-space box and zooms so it fills
// a width x height pixel viewport.
func (c *PanCamera) FitToBounds(lo, hi math.Vec2, width, height int) {
	c.Center = lo.Add(hi).Scale(0.5)
	size := hi.Sub(lo)
	if size.X <= 0 || size.Y <= 0 || width <= 0 || height <= 0 {
		return
	}
	zx := float32(width) / size.X
	zy := float32(height) / size.Y
	c.Zoom = min(max(min(zx, zy)*0.95, c.MinZoom), c.MaxZoom)
}

// ViewProj returns the matrix mapping local positions to clip space for a
// width x height viewport.
func (c *PanCamera) ViewProj(width, height int) math.Mat4 {
	hw := float32(width) / (2 * c.Zoom)
	hh := float32(height) / (2 * c.Zoom)
	proj := math.Ortho(c.Center.X-hw, c.Center.X+hw, c.Center.Y-hh, c.Center.Y+hh, -1000, 1000)
	if c.XZ {
		return proj.Mul(math.PlaneXZ())
	}
	return proj
}

// ScreenToPlane converts a pixel position, origin top-left, to a point on
// the grid plane.
func (c *PanCamera) ScreenToPlane(x, y, width, height int) math.Vec2 {
	return math.Vec2{
		X: c.Center.X + (float32(x)-float32(width)/2)/c.Zoom,
		Y: c.Center.Y - (float32(y)-float32(height)/2)/c.Zoom,
	}
}
