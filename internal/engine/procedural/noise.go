package procedural

import "math"

// hash2 is a 32-bit lattice hash. The GLSL terrain program uses the same
// constants so both paths agree to within float precision.
func hash2(x, y int32, seed uint32) uint32 {
	h := uint32(x)*0x8da6b343 ^ uint32(y)*0xd8163841 ^ seed*0xcb1ab31f
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return h
}

func lattice(x, y int32, seed uint32) float32 {
	return float32(hash2(x, y, seed)&0xffffff) / float32(0xffffff)
}

// fade is the quintic 6t^5 - 15t^4 + 10t^3.
func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

// valueNoise returns smooth noise in [0,1].
func valueNoise(x, y float32, seed uint32) float32 {
	x0 := float32(math.Floor(float64(x)))
	y0 := float32(math.Floor(float64(y)))
	fx := fade(x - x0)
	fy := fade(y - y0)

	ix, iy := int32(x0), int32(y0)
	v00 := lattice(ix, iy, seed)
	v10 := lattice(ix+1, iy, seed)
	v01 := lattice(ix, iy+1, seed)
	v11 := lattice(ix+1, iy+1, seed)

	a := v00 + (v10-v00)*fx
	b := v01 + (v11-v01)*fx
	return a + (b-a)*fy
}
