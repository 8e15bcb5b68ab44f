// Package config loads the board configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"SharedBoard/internal/logging"
	"SharedBoard/internal/state"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Network NetworkConfig `toml:"network"`
	Drawing DrawingConfig `toml:"drawing"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	Sim     SimConfig     `toml:"sim"`
}

type NetworkConfig struct {
	Port int    `toml:"port"`
	Room string `toml:"room"`
	// Discovery advertises the host over mDNS and lets clients browse for it.
	Discovery bool `toml:"discovery"`
}

type DrawingConfig struct {
	PenWidth     float64 `toml:"pen_width"`
	EraserWidth  float64 `toml:"eraser_width"`
	BatchSize    int     `toml:"batch_size"`
	MinDistance  float64 `toml:"min_distance"`
	Smoothing    bool    `toml:"smoothing"`
	DefaultColor string  `toml:"default_color"`
	// FrameRate is the repaint rate in frames per second.
	FrameRate int `toml:"frame_rate"`
}

type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type SimConfig struct {
	IntervalMS int `toml:"interval_ms"`
}

func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Port:      8888,
			Room:      "board",
			Discovery: true,
		},
		Drawing: DrawingConfig{
			PenWidth:     state.PenWidth,
			EraserWidth:  state.EraserWidth,
			BatchSize:    10,
			MinDistance:  2,
			Smoothing:    true,
			DefaultColor: state.DefaultColor,
			FrameRate:    60,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(DataDir(), "board.db"),
		},
		Log: LogConfig{Level: "info"},
		Sim: SimConfig{IntervalMS: 100},
	}
}

// DataDir is where the board keeps its files. SHAREDBOARD_DATA_DIR overrides
// the platform default.
func DataDir() string {
	if dir := os.Getenv("SHAREDBOARD_DATA_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sharedboard")
	}
	return ".sharedboard"
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies SHAREDBOARD_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SHAREDBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Network.Port = port
		}
	}
	if v := os.Getenv("SHAREDBOARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SHAREDBOARD_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Network.Port > 0 && c.Network.Port < 65536, "network.port %d out of range", c.Network.Port)
	check(c.Drawing.PenWidth > 0, "drawing.pen_width must be positive")
	check(c.Drawing.EraserWidth > 0, "drawing.eraser_width must be positive")
	check(c.Drawing.BatchSize >= 2, "drawing.batch_size must be at least 2, got %d", c.Drawing.BatchSize)
	check(c.Drawing.MinDistance >= 0, "drawing.min_distance must not be negative")
	check(state.KnownColor(c.Drawing.DefaultColor), "drawing.default_color %q is not in the palette", c.Drawing.DefaultColor)
	check(c.Drawing.FrameRate > 0 && c.Drawing.FrameRate <= 240, "drawing.frame_rate %d out of range", c.Drawing.FrameRate)
	check(!c.Storage.Enabled || c.Storage.Path != "", "storage.path is required when storage is enabled")
	check(c.Sim.IntervalMS > 0, "sim.interval_ms must be positive")
	check(logging.KnownLevel(c.Log.Level), "log.level %q is unknown", c.Log.Level)
	return errors.Join(errs...)
}

// FrameInterval is the delay between repaints.
func (d DrawingConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(d.FrameRate)
}

func (s SimConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}
