// Package render uploads sealed grid batches to OpenGL and draws them.
package render

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/render/shaders"
	"github.com/Faultbox/gridmesh/internal/engine/shader"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/internal/engine/texture"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// TextureLoader resolves a material binding to an image.
type TextureLoader func(material string) (image.Image, error)

type slot struct {
	chunk shape.Coord
	layer string
}

type gpuBatch struct {
	vao, vbo, ebo uint32
	bindings      []mesh.Binding
}

type slotMesh struct {
	origin  math.Vec3
	batches []gpuBatch
}

// GLSink keeps one set of GPU buffers per chunk layer. All methods must be
// called from the thread owning the GL context.
type GLSink struct {
	program uint32

	locViewProj int32
	locOrigin   int32
	locTexture  int32
	locTint     int32

	origin func(shape.Coord) math.Vec3
	layers []string
	slots  map[slot]*slotMesh

	loader   TextureLoader
	textures map[string]uint32
	white    uint32

	log *zap.Logger
}

// NewGLSink compiles the grid program. origin maps a chunk start coordinate
// to the local position batches are relative to; layers fixes the draw
// order.
func NewGLSink(origin func(shape.Coord) math.Vec3, layers []string, loader TextureLoader, log *zap.Logger) (*GLSink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	program, err := shader.CompileProgram(shaders.GridVertexShader, shaders.GridFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("grid shader: %w", err)
	}

	s := &GLSink{
		program:  program,
		origin:   origin,
		layers:   slices.Clone(layers),
		slots:    make(map[slot]*slotMesh),
		loader:   loader,
		textures: make(map[string]uint32),
		log:      log,
	}
	s.locViewProj = shader.GetUniform(program, "uViewProj")
	s.locOrigin = shader.GetUniform(program, "uOrigin")
	s.locTexture = shader.GetUniform(program, "uTexture")
	s.locTint = shader.GetUniform(program, "uTint")

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.Set(0, 0, color.White)
	s.white = uploadTexture(white)
	return s, nil
}

// Submit replaces the GPU buffers of one chunk layer.
func (s *GLSink) Submit(chunk shape.Coord, layer string, batches []*mesh.Batch) error {
	key := slot{chunk, layer}
	if old, ok := s.slots[key]; ok {
		for i := range old.batches {
			old.batches[i].release()
		}
		delete(s.slots, key)
	}
	if len(batches) == 0 {
		return nil
	}

	m := &slotMesh{origin: s.origin(chunk)}
	for _, b := range batches {
		if b.VertexCount() == 0 {
			continue
		}
		m.batches = append(m.batches, upload(b))
	}
	s.slots[key] = m
	s.log.Debug("batches uploaded",
		zap.Stringer("chunk", chunk),
		zap.String("layer", layer),
		zap.Int("batches", len(m.batches)))
	return nil
}

func upload(b *mesh.Batch) gpuBatch {
	var g gpuBatch
	g.bindings = b.Bindings
	vertices := b.Buffer.Interleave()
	indices := b.Buffer.Indices

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	stride := int32(mesh.FloatsPerVertex * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, 5*4)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return g
}

func (g *gpuBatch) release() {
	if g.vao != 0 {
		gl.DeleteVertexArrays(1, &g.vao)
		g.vao = 0
	}
	if g.vbo != 0 {
		gl.DeleteBuffers(1, &g.vbo)
		g.vbo = 0
	}
	if g.ebo != 0 {
		gl.DeleteBuffers(1, &g.ebo)
		g.ebo = 0
	}
}

func uploadTexture(img *image.RGBA) uint32 {
	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)

	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(img.Bounds().Dx()), int32(img.Bounds().Dy()),
		0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))

	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	return texID
}

// texture returns the GL texture of a binding, loading it on first use.
// Flat color bindings and materials that fail to load draw with white.
func (s *GLSink) texture(st *style.Style) uint32 {
	if st.Mode() == style.FlatColor || s.loader == nil {
		return s.white
	}
	name := st.Material()
	if tex, ok := s.textures[name]; ok {
		return tex
	}

	tex := s.white
	img, err := s.loader(name)
	if err != nil {
		s.log.Warn("material texture unavailable", zap.String("material", name), zap.Error(err))
	} else {
		rgba := texture.ToRGBA(img)
		if len(rgba.Pix) > 0 {
			tex = uploadTexture(rgba)
		}
	}
	s.textures[name] = tex
	return tex
}

// Render draws every uploaded layer in configured order.
func (s *GLSink) Render(viewProj math.Mat4) {
	gl.UseProgram(s.program)
	gl.UniformMatrix4fv(s.locViewProj, 1, false, viewProj.Ptr())
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(s.locTexture, 0)

	for _, layer := range s.layers {
		for key, m := range s.slots {
			if key.layer != layer {
				continue
			}
			gl.Uniform3f(s.locOrigin, m.origin.X, m.origin.Y, m.origin.Z)
			for _, b := range m.batches {
				gl.BindVertexArray(b.vao)
				for _, bind := range b.bindings {
					c := bind.Style.Color()
					if bind.Style.Mode() == style.FlatColor {
						c = color.RGBA{255, 255, 255, 255}
					}
					gl.Uniform4f(s.locTint, float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
					gl.BindTexture(gl.TEXTURE_2D, s.texture(bind.Style))
					gl.DrawElementsWithOffset(gl.TRIANGLES, int32(bind.IndexCount), gl.UNSIGNED_INT, uintptr(bind.IndexStart*4))
				}
			}
		}
	}
	gl.BindVertexArray(0)
}

// Stats returns the number of uploaded batches and draw calls per frame.
func (s *GLSink) Stats() (batches, draws int) {
	for _, m := range s.slots {
		batches += len(m.batches)
		for _, b := range m.batches {
			draws += len(b.bindings)
		}
	}
	return batches, draws
}

// Destroy releases all GPU resources.
func (s *GLSink) Destroy() {
	for _, m := range s.slots {
		for i := range m.batches {
			m.batches[i].release()
		}
	}
	clear(s.slots)
	for _, tex := range s.textures {
		if tex != 0 && tex != s.white {
			gl.DeleteTextures(1, &tex)
		}
	}
	clear(s.textures)
	if s.white != 0 {
		gl.DeleteTextures(1, &s.white)
		s.white = 0
	}
	if s.program != 0 {
		gl.DeleteProgram(s.program)
		s.program = 0
	}
}
