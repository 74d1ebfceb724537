// Package procedural holds the CPU reference of the terrain program: the same
// fractal height field and slope/height colouring the GPU passes evaluate.
package procedural

import (
	"math"

	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	m "github.com/Faultbox/terrainbake/pkg/math"
)

// HeightFunc evaluates terrain height at texture coordinates (u, v).
type HeightFunc func(u, v float32, p shader.Params) float32

// ColorFunc evaluates the diffuse colour at (u, v) as linear [0,1] RGBA.
type ColorFunc func(u, v float32, p shader.Params) [4]float32

// Functions pairs the two evaluators a software device renders with.
type Functions struct {
	Height HeightFunc
	Color  ColorFunc
}

// Default returns the terrain program's own functions.
func Default() Functions {
	return Functions{Height: Height, Color: Color}
}

// domainScale maps frequency 1 to four noise cells across the terrain.
const domainScale = 4

// gain is the per-octave amplitude falloff.
const gain = 0.5

// Height is fractal value noise: Iterations octaves, each Lacunarity times the
// frequency and half the weight of the previous one, normalized to [0,1] and
// scaled by Amplitude.
func Height(u, v float32, p shader.Params) float32 {
	return p.Amplitude * fbm(u, v, p)
}

func fbm(u, v float32, p shader.Params) float32 {
	freq := p.Frequency * domainScale
	weight := float32(1)
	var sum, norm float32
	for i := range max(p.Iterations, 1) {
		sum += weight * valueNoise(u*freq, v*freq, uint32(i)*131)
		norm += weight
		weight *= gain
		freq *= p.Lacunarity
	}
	return sum / norm
}

// Default tints used when no base texture is bound.
var (
	groundTint = [4]float32{0.36, 0.42, 0.24, 1}
	snowTint   = [4]float32{0.95, 0.95, 0.97, 1}
)

// gradientStep is the UV offset used for the finite-difference normal.
const gradientStep = 1.0 / 512

// Color blends the tiled ground texture towards the tiled snow texture on
// high, flat ground. SnowBlendRange widens the height band the blend happens
// over; SlopeThreshold is the minimum upright-ness (normal.y) snow sticks to.
func Color(u, v float32, p shader.Params) [4]float32 {
	h := Height(u, v, p)
	n := normalAt(u, v, p)

	ground, snow := groundTint, snowTint
	if p.MainTex != nil {
		ground = texture.SampleRepeat(p.MainTex, u*p.MainTexTiling, v*p.MainTexTiling)
	}
	if p.SnowTex != nil {
		snow = texture.SampleRepeat(p.SnowTex, u*p.SnowTexTiling, v*p.SnowTexTiling)
	}

	var hn float32
	if p.Amplitude > 0 {
		hn = h / p.Amplitude
	}
	heightMask := m.SmoothStep(1-p.SnowBlendRange, 1, hn)
	slopeMask := m.SmoothStep(p.SlopeThreshold-0.05, p.SlopeThreshold+0.05, n[1])
	w := heightMask * slopeMask

	// Steeper faces read darker.
	shade := m.Lerp(float32(0.6), 1, n[1])

	var out [4]float32
	for i := range 3 {
		out[i] = m.Saturate(m.Lerp(ground[i]*shade, snow[i], w))
	}
	out[3] = 1
	return out
}

// normalAt returns the unit surface normal of the height field, treating the
// terrain as one unit across in u and v.
func normalAt(u, v float32, p shader.Params) [3]float32 {
	const e = gradientStep
	dx := (Height(u+e, v, p) - Height(u-e, v, p)) / (2 * e)
	dz := (Height(u, v+e, p) - Height(u, v-e, p)) / (2 * e)

	x, y, z := -dx, float32(1), -dz
	l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	return [3]float32{x / l, y / l, z / l}
}
