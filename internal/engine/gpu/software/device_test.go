package software

import (
	"errors"
	"testing"

	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/procedural"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
)

func TestRenderHeightAtPixelCentres(t *testing.T) {
	dev := New(Options{Functions: procedural.Functions{
		Height: func(u, v float32, _ shader.Params) float32 { return u*10 + v },
	}})
	rt, err := dev.CreateTarget(gpu.KindHeight, 4)
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	if err := dev.Render(dev.Program(), shader.PassDisplacement, rt); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := dev.ReadHeight(rt)
	if err != nil {
		t.Fatalf("ReadHeight: %v", err)
	}
	// Texel (1,2) sits at u=0.375, v=0.625.
	if got, want := img.At(1, 2), float32(0.375*10+0.625); got != want {
		t.Errorf("texel (1,2) = %v, want %v", got, want)
	}
}

func TestRenderDiffuseTopRowFirst(t *testing.T) {
	dev := New(Options{Functions: procedural.Functions{
		Color: func(_, v float32, _ shader.Params) [4]float32 { return [4]float32{v, 0, 0, 1} },
	}})
	rt, _ := dev.CreateTarget(gpu.KindDiffuse, 2)
	if err := dev.Render(dev.Program(), shader.PassDiffuse, rt); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := dev.ReadColor(rt)
	if err != nil {
		t.Fatalf("ReadColor: %v", err)
	}
	top, bottom := img.NRGBAAt(0, 0).R, img.NRGBAAt(0, 1).R
	if top <= bottom {
		t.Errorf("top row red %d should exceed bottom row %d (v grows upward)", top, bottom)
	}
}

func TestRenderUsesBoundParams(t *testing.T) {
	dev := New(Options{})
	shader.Apply(shader.Params{Amplitude: 0, Frequency: 1, Lacunarity: 2, Iterations: 1}, dev.Program())
	rt, _ := dev.CreateTarget(gpu.KindHeight, 8)
	if err := dev.Render(dev.Program(), shader.PassDisplacement, rt); err != nil {
		t.Fatal(err)
	}
	img, _ := dev.ReadHeight(rt)
	for i, h := range img.Pix {
		if h != 0 {
			t.Fatalf("texel %d = %v with zero amplitude", i, h)
		}
	}
}

func TestRenderFormatMismatch(t *testing.T) {
	dev := New(Options{})
	rt, _ := dev.CreateTarget(gpu.KindDiffuse, 4)
	if err := dev.Render(dev.Program(), shader.PassDisplacement, rt); err == nil {
		t.Error("displacement into RGBA8 target should fail")
	}
	if _, err := dev.ReadHeight(rt); err == nil {
		t.Error("ReadHeight of RGBA8 target should fail")
	}
	if err := dev.Render(shader.NewUniforms(), shader.PassDiffuse, rt); !errors.Is(err, errForeignProgram) {
		t.Errorf("foreign program error = %v", err)
	}
}

func TestTargetLifecycle(t *testing.T) {
	dev := New(Options{MaxResolution: 64})
	if _, err := dev.CreateTarget(gpu.KindHeight, 128); err == nil {
		t.Error("expected error above MaxResolution")
	}
	if _, err := dev.CreateTarget(gpu.KindHeight, 0); !errors.Is(err, gpu.ErrInvalidBakeInput) {
		t.Errorf("zero resolution error = %v", err)
	}

	rt, err := dev.CreateTarget(gpu.KindHeight, 64)
	if err != nil {
		t.Fatal(err)
	}
	if dev.LiveTargets() != 1 {
		t.Errorf("live = %d, want 1", dev.LiveTargets())
	}
	rt.Release()
	rt.Release()
	if dev.LiveTargets() != 0 {
		t.Errorf("live after release = %d, want 0", dev.LiveTargets())
	}
	if _, err := dev.ReadHeight(rt); !errors.Is(err, errReleased) {
		t.Errorf("read after release error = %v", err)
	}

	other := New(Options{})
	foreign, _ := other.CreateTarget(gpu.KindHeight, 4)
	if _, err := dev.ReadHeight(foreign); !errors.Is(err, errForeignTarget) {
		t.Errorf("foreign target error = %v", err)
	}
}

func TestTargetsOnSoftwareDevice(t *testing.T) {
	dev := New(Options{})
	targets := gpu.NewTargets(dev)
	targets.Ensure(gpu.KindHeight, 256)
	targets.Ensure(gpu.KindHeight, 512)
	if dev.LiveTargets() != 1 {
		t.Errorf("live = %d after resize, want 1", dev.LiveTargets())
	}
	if err := targets.Close(); err != nil {
		t.Fatal(err)
	}
	if dev.LiveTargets() != 0 {
		t.Errorf("live = %d after Close, want 0", dev.LiveTargets())
	}
}
