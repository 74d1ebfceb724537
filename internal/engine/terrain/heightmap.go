package terrain

import (
	"fmt"

	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	m "github.com/Faultbox/terrainbake/pkg/math"
)

// edgeThreshold is the UV past which the far row and column switch from
// bilinear to nearest sampling, so the last vertex reads the last texel.
const edgeThreshold = 0.999

// ApplyHeightmap sets every vertex's Y from img and refreshes normals and
// bounds. Vertex (j,i) samples at u=j/Width, v=i/Depth.
func ApplyHeightmap(mesh *Mesh, img *texture.HeightImage) error {
	if err := checkGrid(mesh); err != nil {
		return err
	}
	if img == nil || img.Size <= 0 || len(img.Pix) != img.Size*img.Size {
		return fmt.Errorf("%w: empty height image", gpu.ErrInvalidBakeInput)
	}
	cols := mesh.Width + 1

	for k := range mesh.Positions {
		j, i := k%cols, k/cols
		u := m.Saturate(float32(j) / float32(mesh.Width))
		v := m.Saturate(float32(i) / float32(mesh.Depth))
		mesh.Positions[k][1] = SampleHeight(img, u, v)
	}

	RecalculateNormals(mesh)
	RecalculateBounds(mesh)
	return nil
}

// SampleHeight reads img at (u, v): nearest on the far edge, bilinear elsewhere.
func SampleHeight(img *texture.HeightImage, u, v float32) float32 {
	if u >= edgeThreshold || v >= edgeThreshold {
		return img.Nearest(u, v)
	}
	return img.Bilinear(u, v)
}

// checkGrid reports whether mesh has the vertex layout BuildGrid produces.
func checkGrid(mesh *Mesh) error {
	if mesh == nil || len(mesh.Positions) == 0 {
		return fmt.Errorf("%w: empty mesh", gpu.ErrInvalidBakeInput)
	}
	if mesh.Width <= 0 || mesh.Depth <= 0 || len(mesh.Positions) != (mesh.Width+1)*(mesh.Depth+1) {
		return fmt.Errorf("%w: mesh is not a %dx%d grid", gpu.ErrInvalidBakeInput, mesh.Width, mesh.Depth)
	}
	return nil
}
