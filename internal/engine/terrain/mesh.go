package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidDimension is returned for grids with a non-positive size or scale.
var ErrInvalidDimension = errors.New("invalid grid dimension")

// DefaultScale keeps the grid's footprint around ten world units regardless
// of its resolution.
func DefaultScale(width, depth int) float32 {
	return 1 / (float32(width+depth) / 10)
}

// BuildGrid creates a flat width×depth cell grid in the XZ plane.
// Vertex (j,i) sits at (j*scale, 0, i*scale) with UV (j/width, i/depth).
// Each cell is split into two triangles {k, k+w+1, k+1} and
// {k+1, k+w+1, k+w+2}, where k is the cell's lower-left vertex.
func BuildGrid(width, depth int, scale float32) (*Mesh, error) {
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, depth)
	}
	if !(scale > 0) {
		return nil, fmt.Errorf("%w: scale %v", ErrInvalidDimension, scale)
	}
	cols, rows := width+1, depth+1
	if uint64(cols)*uint64(rows) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %dx%d exceeds 32-bit indices", ErrInvalidDimension, width, depth)
	}

	n := cols * rows
	m := &Mesh{
		Width:     width,
		Depth:     depth,
		Scale:     scale,
		Positions: make([]mgl32.Vec3, n),
		UVs:       make([]mgl32.Vec2, n),
		Normals:   make([]mgl32.Vec3, n),
		Indices:   make([]uint32, 0, width*depth*6),
		Origin: mgl32.Vec3{
			-(float32(width) / 2) * scale,
			0,
			-(float32(depth) / 2) * scale,
		},
	}

	for i := range rows {
		for j := range cols {
			k := i*cols + j
			m.Positions[k] = mgl32.Vec3{float32(j) * scale, 0, float32(i) * scale}
			m.UVs[k] = mgl32.Vec2{float32(j) / float32(width), float32(i) / float32(depth)}
		}
	}

	w := uint32(width)
	for i := range depth {
		for j := range width {
			k := uint32(i*cols + j)
			m.Indices = append(m.Indices,
				k, k+w+1, k+1,
				k+1, k+w+1, k+w+2,
			)
		}
	}

	RecalculateNormals(m)
	RecalculateBounds(m)
	return m, nil
}

// RecalculateNormals computes smooth vertex normals as the area-weighted sum
// of the face normals around each vertex.
func RecalculateNormals(m *Mesh) {
	if len(m.Normals) != len(m.Positions) {
		m.Normals = make([]mgl32.Vec3, len(m.Positions))
	}
	clear(m.Normals)

	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		p0, p1, p2 := m.Positions[a], m.Positions[b], m.Positions[c]
		// Unnormalized cross product: length is twice the triangle area.
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		m.Normals[a] = m.Normals[a].Add(face)
		m.Normals[b] = m.Normals[b].Add(face)
		m.Normals[c] = m.Normals[c].Add(face)
	}

	for i, n := range m.Normals {
		m.Normals[i] = normalize(n)
	}
}

// RecalculateBounds recomputes the bounding box from the vertex positions.
func RecalculateBounds(m *Mesh) {
	if len(m.Positions) == 0 {
		m.Bounds = Bounds{}
		return
	}
	b := Bounds{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		updateBounds(&b, p)
	}
	m.Bounds = b
}

func updateBounds(b *Bounds, p mgl32.Vec3) {
	for i := range 3 {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// normalize falls back to +Y for degenerate normals.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-8 {
		return mgl32.Vec3{0, 1, 0}
	}
	return v.Normalize()
}
