// Package config handles bake configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/terrainbake/pkg/math"
)

// Supported persistence backends.
const (
	BackendEditor   = "editor"
	BackendHeadless = "headless"
)

// Supported GPU devices.
const (
	DeviceSoftware = "software"
	DeviceOpenGL   = "opengl"
)

// ErrInvalidConfig is returned by Validate for structurally unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all bake settings.
type Config struct {
	Mesh     MeshConfig     `yaml:"mesh" toml:"mesh"`
	Bake     BakeConfig     `yaml:"bake" toml:"bake"`
	Terrain  TerrainConfig  `yaml:"terrain" toml:"terrain"`
	Textures TextureConfig  `yaml:"textures" toml:"textures"`
	Material MaterialConfig `yaml:"material" toml:"material"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// MeshConfig holds grid tessellation settings.
type MeshConfig struct {
	Width int     `yaml:"width" toml:"width"`
	Depth int     `yaml:"depth" toml:"depth"`
	Scale float32 `yaml:"scale" toml:"scale"` // 0 derives 1/((width+depth)/10)
}

// BakeConfig holds render target sizes and the GPU device to bake with.
type BakeConfig struct {
	HeightResolution  int    `yaml:"height_resolution" toml:"height_resolution"`
	TextureResolution int    `yaml:"texture_resolution" toml:"texture_resolution"`
	Device            string `yaml:"device" toml:"device"`
}

// TerrainConfig holds the fractal shape parameters.
type TerrainConfig struct {
	Amplitude      float32 `yaml:"amplitude" toml:"amplitude"`
	Frequency      float32 `yaml:"frequency" toml:"frequency"`
	Lacunarity     float32 `yaml:"lacunarity" toml:"lacunarity"`
	Iterations     int     `yaml:"iterations" toml:"iterations"`
	SlopeThreshold float32 `yaml:"slope_threshold" toml:"slope_threshold"`
}

// TextureConfig holds base textures and how they are tiled and blended.
type TextureConfig struct {
	MainTexture    string  `yaml:"main_texture" toml:"main_texture"`
	MainTiling     float32 `yaml:"main_tiling" toml:"main_tiling"`
	SnowTexture    string  `yaml:"snow_texture" toml:"snow_texture"`
	SnowTiling     float32 `yaml:"snow_tiling" toml:"snow_tiling"`
	SnowBlendRange float32 `yaml:"snow_blend_range" toml:"snow_blend_range"`
}

// MaterialConfig describes the base material the baked material is copied from.
type MaterialConfig struct {
	Shader     string             `yaml:"shader" toml:"shader"`
	Properties map[string]float32 `yaml:"properties" toml:"properties"`
}

// OutputConfig holds where and how the baked asset is persisted.
type OutputConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Root      string `yaml:"root" toml:"root"`
	Backend   string `yaml:"backend" toml:"backend"`
	Overwrite bool   `yaml:"overwrite" toml:"overwrite"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mesh: MeshConfig{
			Width: 128,
			Depth: 128,
		},
		Bake: BakeConfig{
			HeightResolution:  512,
			TextureResolution: 1024,
			Device:            DeviceSoftware,
		},
		Terrain: TerrainConfig{
			Amplitude:      3.5,
			Frequency:      1.5,
			Lacunarity:     2,
			Iterations:     8,
			SlopeThreshold: 0.75,
		},
		Textures: TextureConfig{
			MainTiling:     1,
			SnowTiling:     1,
			SnowBlendRange: 1,
		},
		Material: MaterialConfig{
			Shader: "Standard",
			Properties: map[string]float32{
				"_Metallic":   0,
				"_Glossiness": 0.5,
			},
		},
		Output: OutputConfig{
			Name:    "Terrain",
			Root:    "Assets/Terrain/Prefabs",
			Backend: BackendEditor,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Clamp forces shape and texture parameters into their authoring ranges.
// This is the only place range limits are enforced.
func (c *Config) Clamp() {
	t := &c.Terrain
	t.Amplitude = math.Clamp(t.Amplitude, 0, 50)
	t.Frequency = math.Clamp(t.Frequency, 0, 4)
	t.Lacunarity = math.Clamp(t.Lacunarity, 1, 10)
	t.Iterations = math.Clamp(t.Iterations, 1, 10)
	t.SlopeThreshold = math.Clamp(t.SlopeThreshold, 0, 1)

	x := &c.Textures
	x.MainTiling = math.Clamp(x.MainTiling, 1, 100)
	x.SnowTiling = math.Clamp(x.SnowTiling, 0.01, 10)
	x.SnowBlendRange = math.Clamp(x.SnowBlendRange, 0.01, 1)
}

// Validate reports settings no bake can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Mesh.Width <= 0 || c.Mesh.Depth <= 0 {
		errs = append(errs, fmt.Errorf("mesh size %dx%d must be positive", c.Mesh.Width, c.Mesh.Depth))
	}
	if c.Mesh.Scale < 0 {
		errs = append(errs, fmt.Errorf("mesh scale %v must not be negative", c.Mesh.Scale))
	}
	if c.Bake.HeightResolution <= 0 || c.Bake.TextureResolution <= 0 {
		errs = append(errs, fmt.Errorf("resolutions %d/%d must be positive",
			c.Bake.HeightResolution, c.Bake.TextureResolution))
	}
	switch c.Bake.Device {
	case DeviceSoftware, DeviceOpenGL:
	default:
		errs = append(errs, fmt.Errorf("unknown device %q", c.Bake.Device))
	}
	if c.Output.Name == "" {
		errs = append(errs, errors.New("output name is empty"))
	}
	switch c.Output.Backend {
	case BackendEditor, BackendHeadless:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Output.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
