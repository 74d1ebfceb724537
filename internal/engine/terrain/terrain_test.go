package terrain

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/gpu/software"
	"github.com/Faultbox/terrainbake/internal/engine/procedural"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

func TestBuildGridCounts(t *testing.T) {
	tests := []struct {
		w, d int
	}{
		{1, 1}, {4, 4}, {3, 7}, {128, 128},
	}
	for _, tt := range tests {
		m, err := BuildGrid(tt.w, tt.d, 1)
		if err != nil {
			t.Fatalf("BuildGrid(%d,%d): %v", tt.w, tt.d, err)
		}
		if got, want := m.VertexCount(), (tt.w+1)*(tt.d+1); got != want {
			t.Errorf("%dx%d: vertices = %d, want %d", tt.w, tt.d, got, want)
		}
		if got, want := len(m.Indices), tt.w*tt.d*6; got != want {
			t.Errorf("%dx%d: indices = %d, want %d", tt.w, tt.d, got, want)
		}
		for _, idx := range m.Indices {
			if int(idx) >= m.VertexCount() {
				t.Fatalf("%dx%d: index %d out of range", tt.w, tt.d, idx)
			}
		}
	}
}

func TestBuildGrid4x4(t *testing.T) {
	m, err := BuildGrid(4, 4, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() != 25 || m.TriangleCount() != 32 {
		t.Fatalf("got %d vertices, %d triangles", m.VertexCount(), m.TriangleCount())
	}
	// Vertex 17 is column 2, row 3.
	if got, want := m.Positions[17], (mgl32.Vec3{1, 0, 1.5}); got != want {
		t.Errorf("position[17] = %v, want %v", got, want)
	}
	if got, want := m.UVs[17], (mgl32.Vec2{0.5, 0.75}); got != want {
		t.Errorf("uv[17] = %v, want %v", got, want)
	}
	if got, want := m.Origin, (mgl32.Vec3{-1, 0, -1}); got != want {
		t.Errorf("origin = %v, want %v", got, want)
	}
}

func TestBuildGridUVsExact(t *testing.T) {
	const w, d = 5, 3
	m, _ := BuildGrid(w, d, 2)
	for i := range d + 1 {
		for j := range w + 1 {
			k := i*(w+1) + j
			want := mgl32.Vec2{float32(j) / w, float32(i) / d}
			if m.UVs[k] != want {
				t.Errorf("uv(%d,%d) = %v, want %v", j, i, m.UVs[k], want)
			}
		}
	}
	if m.UVs[len(m.UVs)-1] != (mgl32.Vec2{1, 1}) {
		t.Error("far corner UV must be exactly (1,1)")
	}
}

func TestBuildGridWinding(t *testing.T) {
	m, _ := BuildGrid(2, 2, 1)
	want := []uint32{0, 3, 1, 1, 3, 4}
	if !slices.Equal(m.Indices[:6], want) {
		t.Errorf("first cell = %v, want %v", m.Indices[:6], want)
	}
	for i, n := range m.Normals {
		if !n.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
			t.Fatalf("normal[%d] = %v, want +Y", i, n)
		}
	}
	if m.Bounds.Min != (mgl32.Vec3{0, 0, 0}) || m.Bounds.Max != (mgl32.Vec3{2, 0, 2}) {
		t.Errorf("bounds = %+v", m.Bounds)
	}
}

func TestBuildGridInvalid(t *testing.T) {
	tests := []struct {
		name  string
		w, d  int
		scale float32
	}{
		{"zero width", 0, 4, 1},
		{"negative depth", 4, -1, 1},
		{"zero scale", 4, 4, 0},
		{"negative scale", 4, 4, -2},
		{"index overflow", 1 << 16, 1 << 16, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildGrid(tt.w, tt.d, tt.scale); !errors.Is(err, ErrInvalidDimension) {
				t.Errorf("error = %v, want ErrInvalidDimension", err)
			}
		})
	}
}

func TestBoundsCenterAndSize(t *testing.T) {
	b := Bounds{Min: mgl32.Vec3{-1, 0, -2}, Max: mgl32.Vec3{3, 4, 2}}
	if got := b.Center(); got != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("Center = %v", got)
	}
	if got := b.Size(); got != (mgl32.Vec3{4, 4, 4}) {
		t.Errorf("Size = %v", got)
	}
}

func TestDefaultScale(t *testing.T) {
	if got := DefaultScale(5, 5); got != 1 {
		t.Errorf("DefaultScale(5,5) = %v, want 1", got)
	}
	if got := DefaultScale(128, 128); got < 0.039 || got > 0.0391 {
		t.Errorf("DefaultScale(128,128) = %v, want ~0.0390625", got)
	}
}

func TestApplyHeightmapFarCorner(t *testing.T) {
	img := texture.NewHeightImage(8)
	for i := range img.Pix {
		img.Pix[i] = float32(i)
	}
	m, _ := BuildGrid(4, 4, 1)
	if err := ApplyHeightmap(m, img); err != nil {
		t.Fatal(err)
	}
	last := m.Positions[len(m.Positions)-1]
	if last.Y() != img.At(7, 7) {
		t.Errorf("far corner = %v, want last texel %v", last.Y(), img.At(7, 7))
	}
	// Right edge of row 0 reads the last column with nearest sampling.
	if got := m.Positions[4].Y(); got != img.At(7, 0) {
		t.Errorf("edge vertex = %v, want %v", got, img.At(7, 0))
	}
	// First vertex clamps to texel (0,0).
	if got := m.Positions[0].Y(); got != img.At(0, 0) {
		t.Errorf("origin vertex = %v, want %v", got, img.At(0, 0))
	}
	if m.Bounds.Max.Y() != img.At(7, 7) {
		t.Errorf("bounds not refreshed: %+v", m.Bounds)
	}
}

func TestApplyHeightmapInvalid(t *testing.T) {
	m, _ := BuildGrid(2, 2, 1)
	if err := ApplyHeightmap(m, nil); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("nil image error = %v", err)
	}
	if err := ApplyHeightmap(&Mesh{}, texture.NewHeightImage(2)); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("empty mesh error = %v", err)
	}
}

func TestRecalculateNormalsSlope(t *testing.T) {
	m, _ := BuildGrid(2, 2, 1)
	// Tilt the plane: y = x.
	for k, p := range m.Positions {
		m.Positions[k][1] = p.X()
	}
	RecalculateNormals(m)
	want := mgl32.Vec3{-1, 1, 0}.Normalize()
	for i, n := range m.Normals {
		if !n.ApproxEqualThreshold(want, 1e-5) {
			t.Fatalf("normal[%d] = %v, want %v", i, n, want)
		}
	}
}

func newSoftwareBakers(fns procedural.Functions) (*gpu.Targets, *HeightBaker, *DiffuseBaker) {
	targets := gpu.NewTargets(software.New(software.Options{Functions: fns}))
	return targets, NewHeightBaker(targets), NewDiffuseBaker(targets)
}

func TestHeightBakerDisplacesClone(t *testing.T) {
	targets, hb, _ := newSoftwareBakers(procedural.Functions{
		Height: func(u, v float32, _ shader.Params) float32 { return 2 },
	})
	defer targets.Close()

	in, _ := BuildGrid(4, 4, 1)
	out, img, err := hb.Bake(in, targets.Device().Program(), 16)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if img.Size != 16 {
		t.Errorf("height image size = %d, want 16", img.Size)
	}
	for k := range out.Positions {
		if out.Positions[k].Y() != 2 {
			t.Fatalf("vertex %d y = %v, want 2", k, out.Positions[k].Y())
		}
		if in.Positions[k].Y() != 0 {
			t.Fatalf("input vertex %d modified", k)
		}
		if out.Positions[k].X() != in.Positions[k].X() || out.Positions[k].Z() != in.Positions[k].Z() {
			t.Fatalf("vertex %d moved in XZ", k)
		}
	}
}

func TestHeightBakerFailureLeavesInput(t *testing.T) {
	targets := gpu.NewTargets(software.New(software.Options{MaxResolution: 8}))
	hb := NewHeightBaker(targets)
	in, _ := BuildGrid(2, 2, 1)
	before := slices.Clone(in.Positions)

	if _, _, err := hb.Bake(in, targets.Device().Program(), 0); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("zero resolution error = %v", err)
	}
	if _, _, err := hb.Bake(in, targets.Device().Program(), 64); !errors.Is(err, gpu.ErrGPUResource) {
		t.Errorf("oversized target error = %v", err)
	}
	if _, _, err := hb.Bake(&Mesh{}, targets.Device().Program(), 4); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("empty mesh error = %v", err)
	}
	if _, _, err := hb.Bake(in, shader.Program(nil), 4); !errors.Is(err, gpu.ErrGPUResource) {
		t.Errorf("foreign program error = %v", err)
	}
	if !slices.Equal(in.Positions, before) {
		t.Error("input mesh modified on failure")
	}
}

func TestHeightBakerRejectsMalformedMeshBeforeRendering(t *testing.T) {
	dev := software.New(software.Options{})
	targets := gpu.NewTargets(dev)
	hb := NewHeightBaker(targets)

	bad, _ := BuildGrid(4, 4, 1)
	bad.Width = 5
	if _, _, err := hb.Bake(bad, dev.Program(), 16); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Fatalf("malformed mesh error = %v", err)
	}
	if dev.LiveTargets() != 0 {
		t.Errorf("live targets = %d after rejected bake, want 0", dev.LiveTargets())
	}
	if _, ok := targets.Live(gpu.KindHeight); ok {
		t.Error("height target allocated for a malformed mesh")
	}
}

func TestDiffuseBaker(t *testing.T) {
	targets, _, db := newSoftwareBakers(procedural.Functions{})
	defer targets.Close()
	prog := targets.Device().Program()
	shader.Apply(shader.Params{Amplitude: 1, Frequency: 1, Lacunarity: 2, Iterations: 2, SlopeThreshold: 0.5, MainTexTiling: 1, SnowTexTiling: 1, SnowBlendRange: 0.5}, prog)

	img, err := db.Bake(prog, 8)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("image size = %v", b)
	}
	for y := range 8 {
		for x := range 8 {
			if img.NRGBAAt(x, y).A != 255 {
				t.Fatalf("pixel (%d,%d) not opaque", x, y)
			}
		}
	}

	if _, err := db.Bake(prog, 0); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("Bake(0) error = %v", err)
	}
	if rt, ok := targets.Live(gpu.KindDiffuse); !ok || rt.Resolution() != 8 {
		t.Error("failed bake should not touch the live target")
	}

	if _, err := db.Preview(prog, 4); err != nil {
		t.Errorf("Preview: %v", err)
	}
}
