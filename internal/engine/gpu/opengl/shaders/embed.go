// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// FullscreenVertexShader draws one triangle covering the viewport.
//
//go:embed fullscreen.vert
var FullscreenVertexShader string

// TerrainFragmentShader evaluates the terrain program's passes.
//
//go:embed terrain.frag
var TerrainFragmentShader string
