package config

import (
	"fmt"
	"os"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, loaded from a TOML file.
type Config struct {
	App      App      `toml:"app"`
	Window   Window   `toml:"window"`
	Document Document `toml:"document"`
	Texture  Texture  `toml:"texture"`
	Assets   Assets   `toml:"assets"`
}

type App struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

type Window struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Document struct {
	// Size is the square document edge length, in document units.
	Size float64 `toml:"size"`
}

type Texture struct {
	// Resolution is the square composited texture edge, in pixels.
	Resolution int `toml:"resolution"`
	// IdleTimeoutMS is how long the render loop keeps animating after the
	// last document mutation.
	IdleTimeoutMS int `toml:"idle_timeout_ms"`
}

type Assets struct {
	Dir       string `toml:"dir"`
	Font      string `toml:"font"`
	MaxBytes  int64  `toml:"max_bytes"`
	MaxPixels int    `toml:"max_pixels"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App:      App{Name: "three-svg-decals", LogLevel: "info"},
		Window:   Window{Width: 1280, Height: 720},
		Document: Document{Size: 1024},
		Texture:  Texture{Resolution: 1024, IdleTimeoutMS: 1000},
		Assets:   Assets{Dir: "assets", MaxBytes: 4 << 20, MaxPixels: 2048},
	}
}

// Load reads the TOML file at path, filling unset fields from Default.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		core.LogInfo("no config at %q, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// ApplyLogLevel maps the configured level onto the shared logger.
func (c *Config) ApplyLogLevel() {
	switch c.App.LogLevel {
	case "debug":
		core.SetLogLevel(core.LogLevelDebug)
	case "warn":
		core.SetLogLevel(core.LogLevelWarn)
	case "error":
		core.SetLogLevel(core.LogLevelError)
	default:
		core.SetLogLevel(core.LogLevelInfo)
	}
}
