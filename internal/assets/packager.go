package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"maps"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/terrainbake/internal/engine/terrain"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	"github.com/Faultbox/terrainbake/internal/logger"
)

// ErrIncomplete is returned when a package request lacks a bake result.
var ErrIncomplete = errors.New("incomplete bake result")

// PackageRequest is everything one bake produced.
type PackageRequest struct {
	Name         string
	Mesh         *terrain.Mesh
	Height       *texture.HeightImage
	Diffuse      *image.NRGBA
	BaseMaterial BaseMaterial
	Overwrite    bool
}

// Packager turns bake results into a persisted bundle.
type Packager struct {
	backend Backend
	log     *zap.Logger
}

// NewPackager creates a packager writing through backend.
func NewPackager(backend Backend) *Packager {
	return &Packager{backend: backend, log: logger.Named("assets")}
}

// Backend returns the backend bundles are written through.
func (p *Packager) Backend() Backend {
	return p.backend
}

// Package writes mesh, heightmap, diffuse, material and prefab, in that order,
// and commits them under req.Name. On any failure nothing is left under the
// name; an existing bundle being overwritten stays intact.
func (p *Packager) Package(req PackageRequest) (h Handle, err error) {
	switch {
	case req.Mesh == nil || len(req.Mesh.Positions) == 0:
		return Handle{}, fmt.Errorf("%w: no mesh", ErrIncomplete)
	case req.Height == nil || req.Height.Size == 0:
		return Handle{}, fmt.Errorf("%w: no heightmap", ErrIncomplete)
	case req.Diffuse == nil || req.Diffuse.Bounds().Empty():
		return Handle{}, fmt.Errorf("%w: no diffuse texture", ErrIncomplete)
	}

	start := time.Now()
	session, err := p.backend.Begin(req.Name, req.Overwrite)
	if err != nil {
		return Handle{}, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, session.Abort())
		}
	}()

	meshRef, err := putYAML(session, req.Name, ArtifactMesh, NewMeshAsset(req.Name, req.Mesh))
	if err != nil {
		return Handle{}, err
	}

	heightRange := req.Height.Range()
	var buf bytes.Buffer
	if err := texture.EncodeHeightPNG(&buf, req.Height, heightRange); err != nil {
		return Handle{}, &PersistenceError{Step: ArtifactHeightMap.String(), Path: FileName(req.Name, ArtifactHeightMap), Err: err}
	}
	heightRef, err := session.Put(Artifact{Kind: ArtifactHeightMap, Data: bytes.Clone(buf.Bytes())})
	if err != nil {
		return Handle{}, err
	}

	buf.Reset()
	if err := texture.EncodeDiffusePNG(&buf, req.Diffuse); err != nil {
		return Handle{}, &PersistenceError{Step: ArtifactDiffuse.String(), Path: FileName(req.Name, ArtifactDiffuse), Err: err}
	}
	diffuseRef, err := session.Put(Artifact{Kind: ArtifactDiffuse, Data: buf.Bytes()})
	if err != nil {
		return Handle{}, err
	}

	mat := NewMaterial(req.Name, req.BaseMaterial, diffuseRef, heightRange)
	matRef, err := putYAML(session, req.Name, ArtifactMaterial, mat)
	if err != nil {
		return Handle{}, err
	}

	prefab := &Prefab{
		Name:      req.Name,
		Mesh:      meshRef,
		Material:  matRef,
		HeightMap: heightRef,
		Transform: Transform{
			Position: req.Mesh.Origin,
			Scale:    mgl32.Vec3{1, 1, 1},
		},
		HeightRange: heightRange,
		Bounds:      req.Mesh.Bounds,
	}
	if _, err := putYAML(session, req.Name, ArtifactPrefab, prefab); err != nil {
		return Handle{}, err
	}

	h, err = session.Commit()
	if err != nil {
		return Handle{}, err
	}

	p.log.Info("terrain packaged",
		zap.String("name", h.Name),
		zap.String("dir", h.Dir),
		zap.String("backend", p.backend.Kind()),
		zap.Float32("heightMin", heightRange.Min),
		zap.Float32("heightMax", heightRange.Max),
		zap.Duration("duration", time.Since(start)),
	)
	return h, nil
}

// NewMaterial copies base's shader and properties, points _MainTex at the
// baked diffuse and turns glossiness off.
func NewMaterial(name string, base BaseMaterial, diffuse Ref, heightRange texture.Range) *Material {
	floats := maps.Clone(base.Properties)
	if floats == nil {
		floats = make(map[string]float32)
	}
	floats[PropertyGlossiness] = 0
	return &Material{
		Name:        name + "_Material",
		Shader:      base.Shader,
		Floats:      floats,
		Textures:    map[string]Ref{PropertyMainTex: diffuse},
		HeightRange: heightRange,
	}
}

func putYAML(s Session, name string, kind ArtifactKind, v any) (Ref, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return Ref{}, &PersistenceError{Step: kind.String(), Path: FileName(name, kind), Err: err}
	}
	return s.Put(Artifact{Kind: kind, Data: data})
}
