package shader

import (
	"github.com/Faultbox/terrainbake/internal/config"
)

// Apply pushes every terrain parameter into prog's uniform state.
// Later renders with prog see the new values; nothing is rendered here.
// Applying the same Params twice leaves the program in the same state.
func Apply(p Params, prog Program) {
	prog.SetFloat(UniformAmplitude, p.Amplitude)
	prog.SetFloat(UniformFrequency, p.Frequency)
	prog.SetFloat(UniformLacunarity, p.Lacunarity)
	prog.SetInt(UniformIterations, int32(p.Iterations))
	prog.SetTexture(UniformMainTex, p.MainTex)
	prog.SetTexture(UniformSnowTex, p.SnowTex)
	prog.SetFloat(UniformSlopeThreshold, p.SlopeThreshold)
	prog.SetFloat(UniformMainTexTiling, p.MainTexTiling)
	prog.SetFloat(UniformSnowTexTiling, p.SnowTexTiling)
	prog.SetFloat(UniformSnowBlendRange, p.SnowBlendRange)
}

// ParamsFromConfig builds a parameter record from clamped configuration.
// Base textures are loaded separately and attached by the caller.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Amplitude:      cfg.Terrain.Amplitude,
		Frequency:      cfg.Terrain.Frequency,
		Lacunarity:     cfg.Terrain.Lacunarity,
		Iterations:     cfg.Terrain.Iterations,
		SlopeThreshold: cfg.Terrain.SlopeThreshold,
		MainTexTiling:  cfg.Textures.MainTiling,
		SnowTexTiling:  cfg.Textures.SnowTiling,
		SnowBlendRange: cfg.Textures.SnowBlendRange,
	}
}
