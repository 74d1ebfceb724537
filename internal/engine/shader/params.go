// Package shader binds terrain-shaping parameters to a GPU program.
package shader

import (
	"image"
	"maps"
)

// Uniform names understood by the terrain program.
const (
	UniformAmplitude      = "_Amplitude"
	UniformFrequency      = "_Frequency"
	UniformLacunarity     = "_Lacunarity"
	UniformIterations     = "_Iterations"
	UniformSlopeThreshold = "_SlopeThreshold"
	UniformMainTexTiling  = "_MainTexTiling"
	UniformSnowTexTiling  = "_SnowTexTiling"
	UniformSnowBlendRange = "_SnowBlendRange"
	UniformMainTex        = "_MainTex"
	UniformSnowTex        = "_SnowTex"
)

// Pass selects a sub-pass of the terrain program.
type Pass int

// Terrain program passes. The preview pass is what the live viewport renders;
// bakes only use displacement and diffuse.
const (
	PassDisplacement Pass = 0
	PassPreview      Pass = 1
	PassDiffuse      Pass = 2
)

// String returns the pass name.
func (p Pass) String() string {
	switch p {
	case PassDisplacement:
		return "displacement"
	case PassPreview:
		return "preview"
	case PassDiffuse:
		return "diffuse"
	default:
		return "unknown"
	}
}

// Params is the flat terrain parameter record pushed to the program.
// Values are expected to be clamped already (see config.Config.Clamp).
type Params struct {
	Amplitude      float32
	Frequency      float32
	Lacunarity     float32
	Iterations     int
	SlopeThreshold float32

	MainTexTiling  float32
	SnowTexTiling  float32
	SnowBlendRange float32

	MainTex *image.NRGBA
	SnowTex *image.NRGBA
}

// Program is the uniform state of a GPU program.
type Program interface {
	SetFloat(name string, v float32)
	SetInt(name string, v int32)
	SetTexture(name string, img *image.NRGBA)
}

// Uniforms is a CPU-side Program. The software device renders from it, and
// hardware programs keep one as their shadow copy.
type Uniforms struct {
	Floats   map[string]float32
	Ints     map[string]int32
	Textures map[string]*image.NRGBA
}

// NewUniforms returns an empty uniform set.
func NewUniforms() *Uniforms {
	return &Uniforms{
		Floats:   make(map[string]float32),
		Ints:     make(map[string]int32),
		Textures: make(map[string]*image.NRGBA),
	}
}

// SetFloat implements Program.
func (u *Uniforms) SetFloat(name string, v float32) { u.Floats[name] = v }

// SetInt implements Program.
func (u *Uniforms) SetInt(name string, v int32) { u.Ints[name] = v }

// SetTexture implements Program.
func (u *Uniforms) SetTexture(name string, img *image.NRGBA) { u.Textures[name] = img }

// Equal reports whether two uniform sets hold identical values.
// Textures compare by identity.
func (u *Uniforms) Equal(o *Uniforms) bool {
	return maps.Equal(u.Floats, o.Floats) &&
		maps.Equal(u.Ints, o.Ints) &&
		maps.Equal(u.Textures, o.Textures)
}

// Clone returns a copy that does not share maps with u.
func (u *Uniforms) Clone() *Uniforms {
	return &Uniforms{
		Floats:   maps.Clone(u.Floats),
		Ints:     maps.Clone(u.Ints),
		Textures: maps.Clone(u.Textures),
	}
}

// Params reads the terrain parameters back out of the uniform set.
func (u *Uniforms) Params() Params {
	return Params{
		Amplitude:      u.Floats[UniformAmplitude],
		Frequency:      u.Floats[UniformFrequency],
		Lacunarity:     u.Floats[UniformLacunarity],
		Iterations:     int(u.Ints[UniformIterations]),
		SlopeThreshold: u.Floats[UniformSlopeThreshold],
		MainTexTiling:  u.Floats[UniformMainTexTiling],
		SnowTexTiling:  u.Floats[UniformSnowTexTiling],
		SnowBlendRange: u.Floats[UniformSnowBlendRange],
		MainTex:        u.Textures[UniformMainTex],
		SnowTex:        u.Textures[UniformSnowTex],
	}
}
