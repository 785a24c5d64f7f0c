// Package config loads dicecount settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Record backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds dicecount configuration.
type Config struct {
	CameraID        int     `env:"DICECOUNT_CAMERA" envDefault:"0"`
	Width           int     `env:"DICECOUNT_WIDTH" envDefault:"640"`
	Height          int     `env:"DICECOUNT_HEIGHT" envDefault:"480"`
	Eps             float64 `env:"DICECOUNT_EPS" envDefault:"40"`
	BlurSize        int     `env:"DICECOUNT_BLUR" envDefault:"7"`
	MinInertiaRatio float64 `env:"DICECOUNT_MIN_INERTIA" envDefault:"0.6"`
	Addr            string  `env:"DICECOUNT_ADDR" envDefault:":8080"`
	StaticDir       string  `env:"DICECOUNT_STATIC_DIR"`
	Window          bool    `env:"DICECOUNT_WINDOW" envDefault:"true"`
	Tray            bool    `env:"DICECOUNT_TRAY" envDefault:"false"`
	Backend         string  `env:"DICECOUNT_BACKEND" envDefault:"memory"`
	Image           string  `env:"DICECOUNT_IMAGE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseConfig parses environment and then flags into Config. Flags win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}

	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "Camera device index")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Capture width in pixels")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Capture height in pixels")
	fs.Float64Var(&cfg.Eps, "eps", cfg.Eps, "Pip clustering radius in pixels")
	fs.IntVar(&cfg.BlurSize, "blur", cfg.BlurSize, "Median blur kernel size (odd)")
	fs.Float64Var(&cfg.MinInertiaRatio, "min-inertia", cfg.MinInertiaRatio, "Minimum blob inertia ratio")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address; empty disables the server")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory of static files to serve")
	fs.BoolVar(&cfg.Window, "window", cfg.Window, "Show the overlay window")
	fs.BoolVar(&cfg.Tray, "tray", cfg.Tray, "Show the system tray menu")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Roll record backend: memory or sqlite")
	fs.StringVar(&cfg.Image, "image", cfg.Image, "Count the dice in a still image and exit")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %v", c.Eps)
	}
	if c.BlurSize < 1 || c.BlurSize%2 == 0 {
		return fmt.Errorf("blur size must be a positive odd number, got %d", c.BlurSize)
	}
	if c.MinInertiaRatio < 0 || c.MinInertiaRatio > 1 {
		return fmt.Errorf("min inertia ratio must be within [0, 1], got %v", c.MinInertiaRatio)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("frame size must not be negative, got %dx%d", c.Width, c.Height)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("camera index must not be negative, got %d", c.CameraID)
	}
	return nil
}
