// terrainbake bakes procedural terrain into a persisted mesh, heightmap,
// diffuse texture, material and prefab.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/assets"
	"github.com/Faultbox/terrainbake/internal/bake"
	"github.com/Faultbox/terrainbake/internal/config"
	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/gpu/opengl"
	"github.com/Faultbox/terrainbake/internal/engine/gpu/software"
	"github.com/Faultbox/terrainbake/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "bake":
		err = cmdBake(args)
	case "preview":
		err = cmdPreview(args)
	case "inspect":
		err = cmdInspect(args)
	case "init":
		err = cmdInit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	logger.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, assets.ErrNameConflict) {
			fmt.Fprintln(os.Stderr, "Use -overwrite to replace the existing asset.")
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`terrainbake - procedural terrain baker

Usage:
  terrainbake <command> [options]

Commands:
  bake                 Bake and persist a terrain asset
  preview [-watch]     Render preview images without persisting an asset
  inspect <name>       Resolve a baked asset and print a summary
  init [path]          Write a default config file
  help                 Show this help

Common options:
  -config <file>       Config file (.yaml or .toml)
  -name <name>         Asset name
  -out <dir>           Output root directory
  -backend <kind>      editor or headless
  -gpu <device>        software or opengl
  -overwrite           Replace an existing asset with the same name
  -debug               Enable debug logging

Examples:
  terrainbake bake -name Hill01 -width 256 -depth 256
  terrainbake preview -config terrainbake.yaml -watch -preview-dir ./preview
  terrainbake inspect -out Assets/Terrain/Prefabs Hill01`)
}

// setup loads config with flag overrides and initializes logging.
func setup(ov *config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(ov)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger.Sugar.Debugf("config: %+v", cfg)
	return cfg, nil
}

func openDevice(name string) (gpu.Device, error) {
	switch name {
	case config.DeviceOpenGL:
		return opengl.New()
	case config.DeviceSoftware, "":
		return software.New(software.Options{}), nil
	default:
		return nil, fmt.Errorf("%w: unknown gpu device %q", config.ErrInvalidConfig, name)
	}
}

func newPipeline(cfg *config.Config) (*bake.Pipeline, error) {
	backend, err := assets.NewBackend(cfg.Output.Backend, cfg.Output.Root)
	if err != nil {
		return nil, err
	}
	dev, err := openDevice(cfg.Bake.Device)
	if err != nil {
		return nil, err
	}
	logger.Info("device opened", zap.String("gpu", dev.Name()), zap.String("backend", backend.Kind()))
	return bake.New(dev, backend), nil
}

func cmdBake(args []string) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	ov := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := setup(ov)
	if err != nil {
		return err
	}
	opts, err := bake.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	p.OnTransition(func(from, to bake.State) {
		logger.Debug("bake state", zap.Stringer("from", from), zap.Stringer("to", to))
	})

	res, err := p.Run(opts)
	if err != nil {
		return err
	}

	fmt.Printf("Baked %s in %s\n", res.Handle.Name, res.Duration.Round(time.Millisecond))
	fmt.Printf("  Directory:  %s\n", res.Handle.Dir)
	fmt.Printf("  Vertices:   %d\n", res.Mesh.VertexCount())
	fmt.Printf("  Triangles:  %d\n", res.Mesh.TriangleCount())
	fmt.Printf("  Height:     %[1]dx%[1]d  [%.3f, %.3f]\n", res.Height.Size, res.Mesh.Bounds.Min.Y(), res.Mesh.Bounds.Max.Y())
	fmt.Printf("  Relief:     %.3f\n", res.Mesh.Bounds.Size().Y())
	fmt.Printf("  Diffuse:    %dx%d\n", res.Diffuse.Bounds().Dx(), res.Diffuse.Bounds().Dy())
	return nil
}

func cmdPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	ov := config.RegisterFlags(fs)
	watch := fs.Bool("watch", false, "Re-render whenever the config file changes")
	dir := fs.String("preview-dir", "preview", "Directory preview images are written to")
	fs.Parse(args)

	cfg, err := setup(ov)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if !*watch {
		opts, err := bake.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		pv, err := p.Preview(opts.Params, cfg.Bake.TextureResolution)
		if err != nil {
			return err
		}
		paths, err := bake.WritePreview(*dir, opts.Name, pv)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println(path)
		}
		return nil
	}

	if ov.ConfigPath == "" {
		return errors.New("-watch needs -config")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s, writing previews to %s (Ctrl+C to stop)\n", ov.ConfigPath, *dir)
	return p.WatchPreview(ctx, ov.ConfigPath, cfg, *dir, func(_ *bake.Preview, paths []string) {
		fmt.Printf("Updated %v\n", paths)
	})
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	ov := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := setup(ov)
	if err != nil {
		return err
	}
	name := cfg.Output.Name
	if fs.NArg() > 0 {
		name = fs.Arg(0)
	}

	backend, err := assets.NewBackend(cfg.Output.Backend, cfg.Output.Root)
	if err != nil {
		return err
	}
	b, err := backend.Resolve(assets.Handle{Name: name})
	if err != nil {
		return err
	}

	fmt.Printf("Asset:     %s (%s)\n", b.Handle.Name, backend.Kind())
	fmt.Printf("Directory: %s\n", b.Handle.Dir)
	if b.Handle.GUID != "" {
		fmt.Printf("GUID:      %s\n", b.Handle.GUID)
	}
	fmt.Printf("Mesh:      %dx%d cells, %d vertices, %d triangles\n",
		b.Mesh.Width, b.Mesh.Depth, b.Mesh.VertexCount(), b.Mesh.TriangleCount())
	size, center := b.Mesh.Bounds.Size(), b.Mesh.Bounds.Center()
	fmt.Printf("Bounds:    %.3f x %.3f x %.3f centred at (%.3f, %.3f, %.3f)\n",
		size.X(), size.Y(), size.Z(), center.X(), center.Y(), center.Z())
	fmt.Printf("Height:    %[1]dx%[1]d over [%.4f, %.4f]\n", b.Height.Size, b.Prefab.HeightRange.Min, b.Prefab.HeightRange.Max)
	fmt.Printf("Diffuse:   %dx%d\n", b.Diffuse.Bounds().Dx(), b.Diffuse.Bounds().Dy())
	fmt.Printf("Material:  %s (shader %s)\n", b.Material.Name, b.Material.Shader)

	keys := make([]string, 0, len(b.Material.Floats))
	for k := range b.Material.Floats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-14s %g\n", k, b.Material.Floats[k])
	}
	return nil
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path := "terrainbake.yaml"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force)", path)
	}
	if err := config.Default().SaveTo(path); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}
