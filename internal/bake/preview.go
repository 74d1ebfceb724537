package bake

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/config"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

// Preview is a render of the current parameters that is never persisted as
// an asset.
type Preview struct {
	Params shader.Params
	Height *texture.HeightImage
	Color  *image.NRGBA
}

// Preview binds params and renders the height field and the viewport colour
// at resolution×resolution. It shares targets with Run, so a preview between
// bakes reuses their allocations when sizes match.
func (p *Pipeline) Preview(params shader.Params, resolution int) (*Preview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prog := p.device.Program()
	shader.Apply(params, prog)

	height, err := p.height.Render(prog, resolution)
	if err != nil {
		return nil, err
	}
	color, err := p.diffuse.Preview(prog, resolution)
	if err != nil {
		return nil, err
	}
	return &Preview{Params: params, Height: height, Color: color}, nil
}

// WritePreview saves pv as <name>_PreviewHeight.png and <name>_Preview.png
// in dir and returns the paths written.
func WritePreview(dir, name string, pv *Preview) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating preview dir: %w", err)
	}

	heightPath := filepath.Join(dir, name+"_PreviewHeight.png")
	if err := writePNG(heightPath, func(f *os.File) error {
		return texture.EncodeHeightPNG(f, pv.Height, pv.Height.Range())
	}); err != nil {
		return nil, err
	}

	colorPath := filepath.Join(dir, name+"_Preview.png")
	if err := writePNG(colorPath, func(f *os.File) error {
		return texture.EncodeDiffusePNG(f, pv.Color)
	}); err != nil {
		return nil, err
	}
	return []string{heightPath, colorPath}, nil
}

func writePNG(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WatchPreview renders cfg once, then again every time the config file at
// path changes, writing each preview into dir. Parameters are re-bound on
// every change the way the live viewport does; nothing is baked. It blocks
// until ctx is cancelled. rendered, if set, is called after each write.
func (p *Pipeline) WatchPreview(ctx context.Context, path string, cfg *config.Config, dir string, rendered func(*Preview, []string)) error {
	render := func(cfg *config.Config) error {
		opts, err := OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		pv, err := p.Preview(opts.Params, cfg.Bake.TextureResolution)
		if err != nil {
			return err
		}
		paths, err := WritePreview(dir, opts.Name, pv)
		if err != nil {
			return err
		}
		p.log.Info("preview rendered", zap.Strings("files", paths))
		if rendered != nil {
			rendered(pv, paths)
		}
		return nil
	}

	if err := render(cfg); err != nil {
		return err
	}
	return config.Watch(ctx, path, func(next *config.Config) {
		if err := next.Validate(); err != nil {
			p.log.Warn("ignoring invalid config", zap.Error(err))
			return
		}
		if err := render(next); err != nil {
			p.log.Warn("preview failed", zap.Error(err))
		}
	})
}
