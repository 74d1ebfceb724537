package gpu

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/logger"
)

// Targets owns at most one live render target per kind and reallocates it
// when a different resolution is requested. It is not safe for concurrent use;
// bakes are expected to be serialized by the caller.
type Targets struct {
	device Device
	live   map[Kind]RenderTarget
	log    *zap.Logger
}

// NewTargets creates an empty target set backed by device.
func NewTargets(device Device) *Targets {
	return &Targets{
		device: device,
		live:   make(map[Kind]RenderTarget),
		log:    logger.Named("gpu"),
	}
}

// Device returns the device targets are allocated on.
func (t *Targets) Device() Device {
	return t.device
}

// Ensure returns a target of the given kind at resolution×resolution.
// An existing target of the same size is reused; otherwise the old one is
// released before the new one is allocated.
func (t *Targets) Ensure(kind Kind, resolution int) (RenderTarget, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: %s resolution %d", ErrInvalidBakeInput, kind, resolution)
	}

	if cur, ok := t.live[kind]; ok {
		if cur.Resolution() == resolution {
			return cur, nil
		}
		if err := t.Release(kind); err != nil {
			return nil, err
		}
	}

	rt, err := t.device.CreateTarget(kind, resolution)
	if err != nil {
		return nil, &ResourceError{Stage: "allocate", Kind: kind, Resolution: resolution, Err: err}
	}
	if rt.Format() != kind.Format() || rt.Resolution() != resolution {
		err := fmt.Errorf("device returned %s %dx%d", rt.Format(), rt.Resolution(), rt.Resolution())
		return nil, &ResourceError{
			Stage:      "allocate",
			Kind:       kind,
			Resolution: resolution,
			Err:        multierr.Append(err, rt.Release()),
		}
	}

	t.live[kind] = rt
	t.log.Debug("render target allocated",
		zap.Stringer("kind", kind),
		zap.Stringer("format", rt.Format()),
		zap.Int("resolution", resolution),
	)
	return rt, nil
}

// Live returns the current target of a kind, if any.
func (t *Targets) Live(kind Kind) (RenderTarget, bool) {
	rt, ok := t.live[kind]
	return rt, ok
}

// Release frees the target of a kind. The slot is cleared even when the
// device reports an error, so a failed release never leaves two targets alive.
func (t *Targets) Release(kind Kind) error {
	rt, ok := t.live[kind]
	if !ok {
		return nil
	}
	delete(t.live, kind)

	if err := rt.Release(); err != nil {
		return &ResourceError{Stage: "release", Kind: kind, Resolution: rt.Resolution(), Err: err}
	}
	t.log.Debug("render target released", zap.Stringer("kind", kind), zap.Int("resolution", rt.Resolution()))
	return nil
}

// Close releases every live target.
func (t *Targets) Close() error {
	var err error
	for _, kind := range []Kind{KindHeight, KindDiffuse} {
		err = multierr.Append(err, t.Release(kind))
	}
	return err
}
