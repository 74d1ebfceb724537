package gpu

import (
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

type fakeTarget struct {
	dev      *fakeDevice
	kind     Kind
	format   Format
	res      int
	released bool
}

func (f *fakeTarget) Kind() Kind        { return f.kind }
func (f *fakeTarget) Format() Format    { return f.format }
func (f *fakeTarget) Resolution() int   { return f.res }
func (f *fakeTarget) RandomWrite() bool { return true }

func (f *fakeTarget) Release() error {
	if f.released {
		return nil
	}
	f.released = true
	f.dev.live--
	return f.dev.releaseErr
}

type fakeDevice struct {
	live       int
	created    int
	createErr  error
	releaseErr error
	badFormat  bool
}

func (d *fakeDevice) Name() string            { return "fake" }
func (d *fakeDevice) Program() shader.Program { return shader.NewUniforms() }
func (d *fakeDevice) Close() error            { return nil }

func (d *fakeDevice) CreateTarget(kind Kind, res int) (RenderTarget, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.created++
	d.live++
	format := kind.Format()
	if d.badFormat {
		format = FormatRGBA8
	}
	return &fakeTarget{dev: d, kind: kind, format: format, res: res}, nil
}

func (d *fakeDevice) Render(shader.Program, shader.Pass, RenderTarget) error { return nil }

func (d *fakeDevice) ReadHeight(RenderTarget) (*texture.HeightImage, error) {
	return texture.NewHeightImage(1), nil
}

func (d *fakeDevice) ReadColor(RenderTarget) (*image.NRGBA, error) {
	return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestEnsureReallocatesOnResize(t *testing.T) {
	dev := &fakeDevice{}
	targets := NewTargets(dev)

	first, err := targets.Ensure(KindHeight, 256)
	if err != nil {
		t.Fatalf("Ensure(256): %v", err)
	}
	if first.Format() != FormatR32F {
		t.Errorf("height target format = %s, want R32F", first.Format())
	}

	second, err := targets.Ensure(KindHeight, 512)
	if err != nil {
		t.Fatalf("Ensure(512): %v", err)
	}
	if dev.live != 1 {
		t.Errorf("live targets = %d, want 1", dev.live)
	}
	if !first.(*fakeTarget).released {
		t.Error("old target not released")
	}
	if second.Resolution() != 512 {
		t.Errorf("resolution = %d, want 512", second.Resolution())
	}
	if cur, ok := targets.Live(KindHeight); !ok || cur != second {
		t.Error("Live does not return the current target")
	}
}

func TestEnsureReusesSameResolution(t *testing.T) {
	dev := &fakeDevice{}
	targets := NewTargets(dev)

	a, _ := targets.Ensure(KindDiffuse, 128)
	b, err := targets.Ensure(KindDiffuse, 128)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if a != b || dev.created != 1 {
		t.Errorf("expected reuse, created %d targets", dev.created)
	}
	if b.Format() != FormatRGBA8 {
		t.Errorf("diffuse format = %s, want RGBA8", b.Format())
	}
}

func TestEnsureRejectsInvalidResolution(t *testing.T) {
	for _, res := range []int{0, -4} {
		dev := &fakeDevice{}
		_, err := NewTargets(dev).Ensure(KindDiffuse, res)
		if !errors.Is(err, ErrInvalidBakeInput) {
			t.Errorf("Ensure(%d) error = %v, want ErrInvalidBakeInput", res, err)
		}
		if dev.created != 0 {
			t.Errorf("Ensure(%d) allocated %d targets", res, dev.created)
		}
	}
}

func TestEnsureAllocationFailure(t *testing.T) {
	boom := errors.New("out of memory")
	dev := &fakeDevice{createErr: boom}
	_, err := NewTargets(dev).Ensure(KindHeight, 64)
	if !errors.Is(err, ErrGPUResource) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want ErrGPUResource wrapping device error", err)
	}
	var re *ResourceError
	if !errors.As(err, &re) || re.Stage != "allocate" || re.Resolution != 64 {
		t.Errorf("ResourceError = %+v", re)
	}
}

func TestEnsureRejectsWrongFormat(t *testing.T) {
	dev := &fakeDevice{badFormat: true}
	_, err := NewTargets(dev).Ensure(KindHeight, 32)
	if !errors.Is(err, ErrGPUResource) {
		t.Fatalf("error = %v, want ErrGPUResource", err)
	}
	if dev.live != 0 {
		t.Errorf("mismatched target left alive (%d)", dev.live)
	}
}

func TestReleaseClearsSlotOnError(t *testing.T) {
	dev := &fakeDevice{}
	targets := NewTargets(dev)
	if _, err := targets.Ensure(KindHeight, 16); err != nil {
		t.Fatal(err)
	}
	dev.releaseErr = errors.New("driver lost")

	if err := targets.Release(KindHeight); !errors.Is(err, ErrGPUResource) {
		t.Errorf("Release error = %v, want ErrGPUResource", err)
	}
	if _, ok := targets.Live(KindHeight); ok {
		t.Error("slot still populated after failed release")
	}
}

func TestCloseReleasesAll(t *testing.T) {
	dev := &fakeDevice{}
	targets := NewTargets(dev)
	targets.Ensure(KindHeight, 16)
	targets.Ensure(KindDiffuse, 32)
	if dev.live != 2 {
		t.Fatalf("live = %d, want 2", dev.live)
	}
	if err := targets.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if dev.live != 0 {
		t.Errorf("live after Close = %d, want 0", dev.live)
	}
}

func TestKindAndFormatStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{KindHeight.String(), "height"},
		{KindDiffuse.String(), "diffuse"},
		{Kind(9).String(), "kind(9)"},
		{FormatR32F.String(), "R32F"},
		{FormatRGBA8.String(), "RGBA8"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
