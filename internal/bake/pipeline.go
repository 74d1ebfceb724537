// Package bake runs the full terrain bake: grid, height, diffuse, package.
package bake

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/assets"
	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/terrain"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	"github.com/Faultbox/terrainbake/internal/logger"
)

// State is the pipeline's position in a bake.
type State int

// Pipeline states, in the order a successful bake visits them.
const (
	StateIdle State = iota
	StateMeshBuilt
	StateHeightBaked
	StateDiffuseBaked
	StatePackaged
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMeshBuilt:
		return "mesh-built"
	case StateHeightBaked:
		return "height-baked"
	case StateDiffuseBaked:
		return "diffuse-baked"
	case StatePackaged:
		return "packaged"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is what a successful bake produced.
type Result struct {
	Handle   assets.Handle
	Mesh     *terrain.Mesh
	Height   *texture.HeightImage
	Diffuse  *image.NRGBA
	Duration time.Duration
}

// Pipeline owns the GPU targets and bakers and runs one bake at a time.
type Pipeline struct {
	mu    sync.Mutex
	state atomic.Int32

	device   gpu.Device
	targets  *gpu.Targets
	height   *terrain.HeightBaker
	diffuse  *terrain.DiffuseBaker
	packager *assets.Packager

	onTransition func(from, to State)
	log          *zap.Logger
}

// New creates a pipeline baking on device and persisting through backend.
// The pipeline takes ownership of device.
func New(device gpu.Device, backend assets.Backend) *Pipeline {
	targets := gpu.NewTargets(device)
	return &Pipeline{
		device:   device,
		targets:  targets,
		height:   terrain.NewHeightBaker(targets),
		diffuse:  terrain.NewDiffuseBaker(targets),
		packager: assets.NewPackager(backend),
		log:      logger.Named("bake"),
	}
}

// OnTransition registers fn to be called on every state change. fn runs on
// the baking goroutine and may call State. It must be set before the first Run.
func (p *Pipeline) OnTransition(fn func(from, to State)) {
	p.onTransition = fn
}

// State returns the current state without waiting for a running bake.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Backend returns the backend bakes are persisted through.
func (p *Pipeline) Backend() assets.Backend {
	return p.packager.Backend()
}

// Run bakes and persists one terrain. Concurrent calls queue. On failure the
// pipeline returns to Idle and no later stage runs.
func (p *Pipeline) Run(opts Options) (res *Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	log := p.log.With(zap.String("name", opts.Name))
	defer func() {
		if err != nil {
			log.Error("bake failed", zap.Stringer("stage", p.State()), zap.Error(err))
		}
		p.transition(StateIdle)
	}()

	if !opts.Overwrite {
		exists, err := p.Backend().Exists(opts.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %q", assets.ErrNameConflict, opts.Name)
		}
	}

	mesh, err := terrain.BuildGrid(opts.Width, opts.Depth, opts.GridScale())
	if err != nil {
		return nil, err
	}
	mesh.Name = opts.Name
	p.transition(StateMeshBuilt)
	log.Debug("grid built", zap.Int("vertices", mesh.VertexCount()), zap.Int("triangles", mesh.TriangleCount()))

	prog := p.device.Program()
	shader.Apply(opts.Params, prog)

	displaced, heightImg, err := p.height.Bake(mesh, prog, opts.HeightResolution)
	if err != nil {
		return nil, err
	}
	p.transition(StateHeightBaked)

	diffuseImg, err := p.diffuse.Bake(prog, opts.TextureResolution)
	if err != nil {
		return nil, err
	}
	p.transition(StateDiffuseBaked)

	h, err := p.packager.Package(assets.PackageRequest{
		Name:         opts.Name,
		Mesh:         displaced,
		Height:       heightImg,
		Diffuse:      diffuseImg,
		BaseMaterial: opts.BaseMaterial,
		Overwrite:    opts.Overwrite,
	})
	if err != nil {
		return nil, err
	}
	p.transition(StatePackaged)

	res = &Result{
		Handle:   h,
		Mesh:     displaced,
		Height:   heightImg,
		Diffuse:  diffuseImg,
		Duration: time.Since(start),
	}
	log.Info("bake complete", zap.String("dir", h.Dir), zap.Duration("duration", res.Duration))
	return res, nil
}

func (p *Pipeline) transition(to State) {
	from := p.State()
	if from == to {
		return
	}
	p.state.Store(int32(to))
	if p.onTransition != nil {
		p.onTransition(from, to)
	}
}

// Close releases GPU targets and the device.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return multierr.Append(p.targets.Close(), p.device.Close())
}
