package bake

import (
	"fmt"

	"github.com/Faultbox/terrainbake/internal/assets"
	"github.com/Faultbox/terrainbake/internal/config"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/terrain"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

// Options describe one bake.
type Options struct {
	Name  string
	Width int
	Depth int
	// Scale of 0 uses terrain.DefaultScale.
	Scale float32

	HeightResolution  int
	TextureResolution int

	Params       shader.Params
	BaseMaterial assets.BaseMaterial
	Overwrite    bool
}

// GridScale returns the scale the grid is built with.
func (o Options) GridScale() float32 {
	if o.Scale > 0 {
		return o.Scale
	}
	return terrain.DefaultScale(o.Width, o.Depth)
}

// OptionsFromConfig builds bake options from a clamped, validated config and
// loads the base textures it names.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	params := shader.ParamsFromConfig(cfg)

	var err error
	if path := cfg.Textures.MainTexture; path != "" {
		if params.MainTex, err = texture.LoadImage(path); err != nil {
			return Options{}, fmt.Errorf("main texture: %w", err)
		}
	}
	if path := cfg.Textures.SnowTexture; path != "" {
		if params.SnowTex, err = texture.LoadImage(path); err != nil {
			return Options{}, fmt.Errorf("snow texture: %w", err)
		}
	}

	return Options{
		Name:              cfg.Output.Name,
		Width:             cfg.Mesh.Width,
		Depth:             cfg.Mesh.Depth,
		Scale:             cfg.Mesh.Scale,
		HeightResolution:  cfg.Bake.HeightResolution,
		TextureResolution: cfg.Bake.TextureResolution,
		Params:            params,
		BaseMaterial: assets.BaseMaterial{
			Shader:     cfg.Material.Shader,
			Properties: cfg.Material.Properties,
		},
		Overwrite: cfg.Output.Overwrite,
	}, nil
}
