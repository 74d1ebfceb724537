package assets

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terrainbake/internal/engine/terrain"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

// ArtifactKind identifies one file of a baked bundle.
type ArtifactKind int

// Bundle artifacts in the order they are written.
const (
	ArtifactMesh ArtifactKind = iota
	ArtifactHeightMap
	ArtifactDiffuse
	ArtifactMaterial
	ArtifactPrefab
)

// String returns the artifact name used in errors and logs.
func (k ArtifactKind) String() string {
	switch k {
	case ArtifactMesh:
		return "mesh"
	case ArtifactHeightMap:
		return "heightmap"
	case ArtifactDiffuse:
		return "diffuse"
	case ArtifactMaterial:
		return "material"
	case ArtifactPrefab:
		return "prefab"
	default:
		return fmt.Sprintf("artifact(%d)", int(k))
	}
}

// IsTexture reports whether the artifact is an image.
func (k ArtifactKind) IsTexture() bool {
	return k == ArtifactHeightMap || k == ArtifactDiffuse
}

// FileName returns the artifact's file name inside the bundle directory.
func FileName(name string, kind ArtifactKind) string {
	switch kind {
	case ArtifactMesh:
		return name + "_Mesh.asset"
	case ArtifactHeightMap:
		return name + "_HeightMap.png"
	case ArtifactDiffuse:
		return name + "_Diffuse.png"
	case ArtifactMaterial:
		return name + "_Material.mat"
	default:
		return name + ".prefab"
	}
}

// Artifact is one encoded file handed to a Session.
type Artifact struct {
	Kind ArtifactKind
	Data []byte
}

// Ref points at a persisted artifact from another artifact.
type Ref struct {
	File string `yaml:"file"`
	GUID string `yaml:"guid,omitempty"`
}

// Handle identifies a committed bundle.
type Handle struct {
	Name string
	Dir  string
	// GUID is the prefab's GUID; empty for backends without sidecars.
	GUID string
}

// MeshAsset is the serialized form of a terrain mesh. Vectors are flattened
// so each attribute stays on one line.
type MeshAsset struct {
	Name      string         `yaml:"name"`
	Width     int            `yaml:"width"`
	Depth     int            `yaml:"depth"`
	Scale     float32        `yaml:"scale"`
	Bounds    terrain.Bounds `yaml:"bounds"`
	Positions []float32      `yaml:"positions,flow"`
	UVs       []float32      `yaml:"uvs,flow"`
	Normals   []float32      `yaml:"normals,flow"`
	Indices   []uint32       `yaml:"indices,flow"`
}

// NewMeshAsset flattens mesh for persistence.
func NewMeshAsset(name string, mesh *terrain.Mesh) *MeshAsset {
	a := &MeshAsset{
		Name:      name,
		Width:     mesh.Width,
		Depth:     mesh.Depth,
		Scale:     mesh.Scale,
		Bounds:    mesh.Bounds,
		Positions: make([]float32, 0, 3*len(mesh.Positions)),
		UVs:       make([]float32, 0, 2*len(mesh.UVs)),
		Normals:   make([]float32, 0, 3*len(mesh.Normals)),
		Indices:   mesh.Indices,
	}
	for _, p := range mesh.Positions {
		a.Positions = append(a.Positions, p[:]...)
	}
	for _, uv := range mesh.UVs {
		a.UVs = append(a.UVs, uv[:]...)
	}
	for _, n := range mesh.Normals {
		a.Normals = append(a.Normals, n[:]...)
	}
	return a
}

// Mesh rebuilds the in-memory mesh.
func (a *MeshAsset) Mesh() (*terrain.Mesh, error) {
	n := (a.Width + 1) * (a.Depth + 1)
	if a.Width <= 0 || a.Depth <= 0 || len(a.Positions) != 3*n || len(a.UVs) != 2*n {
		return nil, fmt.Errorf("mesh asset %q: %dx%d grid with %d position and %d uv floats",
			a.Name, a.Width, a.Depth, len(a.Positions), len(a.UVs))
	}
	if len(a.Normals) != 0 && len(a.Normals) != 3*n {
		return nil, fmt.Errorf("mesh asset %q: %d normal floats for %d vertices", a.Name, len(a.Normals), n)
	}
	for _, idx := range a.Indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("mesh asset %q: index %d out of range", a.Name, idx)
		}
	}

	m := &terrain.Mesh{
		Name:      a.Name,
		Width:     a.Width,
		Depth:     a.Depth,
		Scale:     a.Scale,
		Positions: make([]mgl32.Vec3, n),
		UVs:       make([]mgl32.Vec2, n),
		Normals:   make([]mgl32.Vec3, n),
		Indices:   a.Indices,
		Bounds:    a.Bounds,
		Origin: mgl32.Vec3{
			-(float32(a.Width) / 2) * a.Scale,
			0,
			-(float32(a.Depth) / 2) * a.Scale,
		},
	}
	for i := range n {
		copy(m.Positions[i][:], a.Positions[3*i:])
		copy(m.UVs[i][:], a.UVs[2*i:])
	}
	if len(a.Normals) == 0 {
		terrain.RecalculateNormals(m)
	} else {
		for i := range n {
			copy(m.Normals[i][:], a.Normals[3*i:])
		}
	}
	return m, nil
}

// BaseMaterial is the material a baked material copies its shader and
// properties from.
type BaseMaterial struct {
	Shader     string
	Properties map[string]float32
}

// Material property names set by the packager.
const (
	PropertyMainTex    = "_MainTex"
	PropertyGlossiness = "_Glossiness"
)

// Material is the serialized baked material.
type Material struct {
	Name        string             `yaml:"name"`
	Shader      string             `yaml:"shader"`
	Floats      map[string]float32 `yaml:"floats"`
	Textures    map[string]Ref     `yaml:"textures"`
	HeightRange texture.Range      `yaml:"height_range"`
}

// Transform places the prefab in the world.
type Transform struct {
	Position mgl32.Vec3 `yaml:"position,flow"`
	Scale    mgl32.Vec3 `yaml:"scale,flow"`
}

// Prefab ties the baked mesh and material together.
type Prefab struct {
	Name        string         `yaml:"name"`
	Mesh        Ref            `yaml:"mesh"`
	Material    Ref            `yaml:"material"`
	HeightMap   Ref            `yaml:"heightmap"`
	Transform   Transform      `yaml:"transform"`
	HeightRange texture.Range  `yaml:"height_range"`
	Bounds      terrain.Bounds `yaml:"bounds"`
}

// Meta is the sidecar the editor backend writes next to every artifact.
type Meta struct {
	FileFormatVersion int                     `yaml:"file_format_version"`
	GUID              string                  `yaml:"guid"`
	Importer          string                  `yaml:"importer"`
	TextureImporter   *texture.ImportSettings `yaml:"texture_importer,omitempty"`
}

// Importer names recorded in sidecars.
const (
	ImporterNative  = "NativeFormatImporter"
	ImporterTexture = "TextureImporter"
)

// Bundle is a resolved bake: everything needed to place the terrain again.
type Bundle struct {
	Handle   Handle
	Mesh     *terrain.Mesh
	Material *Material
	Prefab   *Prefab
	Height   *texture.HeightImage
	Diffuse  *image.NRGBA
	// Metas holds editor sidecars by artifact; nil for the headless backend.
	Metas map[ArtifactKind]*Meta
}
