// Package terrain builds the flat grid mesh and bakes GPU height and colour
// output into it.
package terrain

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is a regular grid of (Width+1)×(Depth+1) vertices laid out row-major:
// vertex (col j, row i) has index k = i*(Width+1)+j.
type Mesh struct {
	Name  string
	Width int
	Depth int
	Scale float32

	Positions []mgl32.Vec3
	UVs       []mgl32.Vec2
	Normals   []mgl32.Vec3
	Indices   []uint32

	Bounds Bounds
	// Origin is where the grid's first vertex sits once the mesh is centred
	// on the world origin.
	Origin mgl32.Vec3
}

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min mgl32.Vec3 `yaml:"min"`
	Max mgl32.Vec3 `yaml:"max"`
}

// Center returns the middle of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent on each axis.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Positions = slices.Clone(m.Positions)
	c.UVs = slices.Clone(m.UVs)
	c.Normals = slices.Clone(m.Normals)
	c.Indices = slices.Clone(m.Indices)
	return &c
}
