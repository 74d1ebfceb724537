package terrain

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	"github.com/Faultbox/terrainbake/internal/logger"
)

// HeightBaker renders the displacement pass and writes it into mesh heights.
type HeightBaker struct {
	targets *gpu.Targets
	log     *zap.Logger
}

// NewHeightBaker creates a height baker sharing targets with other bakers.
func NewHeightBaker(targets *gpu.Targets) *HeightBaker {
	return &HeightBaker{targets: targets, log: logger.Named("bake.height")}
}

// Bake renders the program's displacement pass at resolution×resolution,
// reads it back and returns a displaced copy of mesh together with the
// height image. mesh itself is never modified.
func (b *HeightBaker) Bake(mesh *Mesh, prog shader.Program, resolution int) (*Mesh, *texture.HeightImage, error) {
	if err := checkGrid(mesh); err != nil {
		return nil, nil, err
	}
	if resolution <= 0 {
		return nil, nil, fmt.Errorf("%w: height resolution %d", gpu.ErrInvalidBakeInput, resolution)
	}

	start := time.Now()
	img, err := b.Render(prog, resolution)
	if err != nil {
		return nil, nil, err
	}

	out := mesh.Clone()
	if err := ApplyHeightmap(out, img); err != nil {
		return nil, nil, err
	}

	b.log.Info("height baked",
		zap.Int("resolution", resolution),
		zap.Int("vertices", out.VertexCount()),
		zap.Float32("minY", out.Bounds.Min.Y()),
		zap.Float32("maxY", out.Bounds.Max.Y()),
		zap.Duration("duration", time.Since(start)),
	)
	return out, img, nil
}

// Render runs the displacement pass and reads the height image back without
// touching any mesh.
func (b *HeightBaker) Render(prog shader.Program, resolution int) (*texture.HeightImage, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: height resolution %d", gpu.ErrInvalidBakeInput, resolution)
	}
	rt, err := b.targets.Ensure(gpu.KindHeight, resolution)
	if err != nil {
		return nil, err
	}
	dev := b.targets.Device()
	if err := dev.Render(prog, shader.PassDisplacement, rt); err != nil {
		return nil, &gpu.ResourceError{Stage: "render", Kind: gpu.KindHeight, Resolution: resolution, Err: err}
	}
	img, err := dev.ReadHeight(rt)
	if err != nil {
		return nil, &gpu.ResourceError{Stage: "readback", Kind: gpu.KindHeight, Resolution: resolution, Err: err}
	}
	return img, nil
}

// DiffuseBaker renders the diffuse pass into an RGBA8 image.
type DiffuseBaker struct {
	targets *gpu.Targets
	log     *zap.Logger
}

// NewDiffuseBaker creates a diffuse baker sharing targets with other bakers.
func NewDiffuseBaker(targets *gpu.Targets) *DiffuseBaker {
	return &DiffuseBaker{targets: targets, log: logger.Named("bake.diffuse")}
}

// Bake renders the program's diffuse pass and reads it back, top row first.
func (b *DiffuseBaker) Bake(prog shader.Program, resolution int) (*image.NRGBA, error) {
	return b.render(prog, shader.PassDiffuse, resolution)
}

// Preview renders the viewport pass the same way, for inspecting parameters
// without baking.
func (b *DiffuseBaker) Preview(prog shader.Program, resolution int) (*image.NRGBA, error) {
	return b.render(prog, shader.PassPreview, resolution)
}

func (b *DiffuseBaker) render(prog shader.Program, pass shader.Pass, resolution int) (*image.NRGBA, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: texture resolution %d", gpu.ErrInvalidBakeInput, resolution)
	}

	start := time.Now()
	rt, err := b.targets.Ensure(gpu.KindDiffuse, resolution)
	if err != nil {
		return nil, err
	}
	dev := b.targets.Device()
	if err := dev.Render(prog, pass, rt); err != nil {
		return nil, &gpu.ResourceError{Stage: "render", Kind: gpu.KindDiffuse, Resolution: resolution, Err: err}
	}
	img, err := dev.ReadColor(rt)
	if err != nil {
		return nil, &gpu.ResourceError{Stage: "readback", Kind: gpu.KindDiffuse, Resolution: resolution, Err: err}
	}

	b.log.Info("diffuse rendered",
		zap.Stringer("pass", pass),
		zap.Int("resolution", resolution),
		zap.Duration("duration", time.Since(start)),
	)
	return img, nil
}
