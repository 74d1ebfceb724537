package config

import "flag"

// Overrides holds command-line values that take priority over the config file.
// Zero values mean "not set".
type Overrides struct {
	ConfigPath string
	Debug      bool
	Name       string
	Root       string
	Backend    string
	Device     string
	Overwrite  bool
	Width      int
	Depth      int
	HeightRes  int
	TextureRes int
}

// RegisterFlags binds the shared bake flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	ov := &Overrides{}
	fs.StringVar(&ov.ConfigPath, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&ov.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&ov.Name, "name", "", "Output asset name")
	fs.StringVar(&ov.Root, "out", "", "Output root directory")
	fs.StringVar(&ov.Backend, "backend", "", "Persistence backend (editor, headless)")
	fs.StringVar(&ov.Device, "gpu", "", "GPU device (software, opengl)")
	fs.BoolVar(&ov.Overwrite, "overwrite", false, "Replace an existing asset with the same name")
	fs.IntVar(&ov.Width, "width", 0, "Mesh width in cells")
	fs.IntVar(&ov.Depth, "depth", 0, "Mesh depth in cells")
	fs.IntVar(&ov.HeightRes, "height-res", 0, "Heightmap resolution")
	fs.IntVar(&ov.TextureRes, "texture-res", 0, "Diffuse texture resolution")
	return ov
}

// apply applies CLI overrides to the config.
func (ov *Overrides) apply(cfg *Config) {
	if ov == nil {
		return
	}
	if ov.Debug {
		cfg.Logging.Level = "debug"
	}
	if ov.Name != "" {
		cfg.Output.Name = ov.Name
	}
	if ov.Root != "" {
		cfg.Output.Root = ov.Root
	}
	if ov.Backend != "" {
		cfg.Output.Backend = ov.Backend
	}
	if ov.Device != "" {
		cfg.Bake.Device = ov.Device
	}
	if ov.Overwrite {
		cfg.Output.Overwrite = true
	}
	if ov.Width > 0 {
		cfg.Mesh.Width = ov.Width
	}
	if ov.Depth > 0 {
		cfg.Mesh.Depth = ov.Depth
	}
	if ov.HeightRes > 0 {
		cfg.Bake.HeightResolution = ov.HeightRes
	}
	if ov.TextureRes > 0 {
		cfg.Bake.TextureResolution = ov.TextureRes
	}
}
