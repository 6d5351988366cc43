// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// GridVertexShader transforms fused cell vertices by the chunk origin and
// the camera.
//
//go:embed grid.vert
var GridVertexShader string

// GridFragmentShader samples the binding texture and applies the tint and
// the vertex color.
//
//go:embed grid.frag
var GridFragmentShader string

// LinesVertexShader draws debug overlay lines in grid space.
//
//go:embed lines.vert
var LinesVertexShader string

//go:embed lines.frag
var LinesFragmentShader string
