package render

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/gridmesh/internal/engine/debug"
	"github.com/Faultbox/gridmesh/internal/engine/render/shaders"
	"github.com/Faultbox/gridmesh/internal/engine/shader"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// LineRenderer draws one set of overlay line segments.
type LineRenderer struct {
	program     uint32
	locViewProj int32
	vao, vbo    uint32
	count       int32
}

// NewLineRenderer compiles the overlay program.
func NewLineRenderer() (*LineRenderer, error) {
	program, err := shader.CompileProgram(shaders.LinesVertexShader, shaders.LinesFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("lines shader: %w", err)
	}
	r := &LineRenderer{program: program}
	r.locViewProj = shader.GetUniform(program, "uViewProj")

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	stride := int32(6 * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)
	return r, nil
}

// Upload replaces the drawn segments.
func (r *LineRenderer) Upload(vertices []debug.LineVertex) {
	r.count = int32(len(vertices))
	if r.count == 0 {
		return
	}
	data := debug.Flatten(vertices)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Render draws the uploaded segments.
func (r *LineRenderer) Render(viewProj math.Mat4) {
	if r.count == 0 {
		return
	}
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.LINES, 0, r.count)
	gl.BindVertexArray(0)
}

// Destroy releases the GPU resources.
func (r *LineRenderer) Destroy() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
		r.vbo = 0
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
		r.program = 0
	}
}
