// Package config loads the studio settings from an optional YAML file and the
// environment.
package config

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/garment"
	"apparel-studio/shade"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all studio configuration.
type Config struct {
	Listen             string        `yaml:"listen"`
	LogLevel           string        `yaml:"loglevel"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
	Canvas             CanvasConfig  `yaml:"canvas"`
	Order              OrderConfig   `yaml:"order"`
	Storage            StorageConfig `yaml:"storage"`
}

// CanvasConfig controls the garment surface and new sessions.
type CanvasConfig struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	GridSpacing   float64       `yaml:"grid_spacing"`
	TextureSeed   uint64        `yaml:"texture_seed"`
	Center        core.Point    `yaml:"center"`
	BaseColor     string        `yaml:"base_color"`
	Palette       []Swatch      `yaml:"palette"`
	DecodeTimeout time.Duration `yaml:"decode_timeout"`
}

// Swatch is a preset garment colour.
type Swatch struct {
	Name string `yaml:"name" json:"name"`
	Hex  string `yaml:"hex" json:"hex"`
}

type OrderConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitPrice int    `yaml:"unit_price"`
}

// StorageConfig selects where drafts and exported artifacts are kept.
type StorageConfig struct {
	Type           string `yaml:"type"`
	Path           string `yaml:"path"`
	DataSourceName string `yaml:"dsn"`
	Bucket         string `yaml:"bucket"`
}

var defaultPalette = []Swatch{
	{"White", "#ffffff"},
	{"Black", "#000000"},
	{"Red", "#ff0000"},
	{"Blue", "#0000ff"},
	{"Yellow", "#ffff00"},
	{"Green", "#00ff00"},
	{"Magenta", "#ff00ff"},
	{"Cyan", "#00ffff"},
	{"Gray", "#808080"},
	{"Orange", "#ffa500"},
	{"Brown", "#964b00"},
	{"Purple", "#800080"},
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":3002"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.SessionIdleTimeout <= 0 {
		c.SessionIdleTimeout = editor.DefaultIdleTimeout
	}
	if c.Canvas.Width <= 0 {
		c.Canvas.Width = garment.DefaultWidth
	}
	if c.Canvas.Height <= 0 {
		c.Canvas.Height = garment.DefaultHeight
	}
	if c.Canvas.GridSpacing <= 0 {
		c.Canvas.GridSpacing = garment.DefaultGridSpacing
	}
	if c.Canvas.Center == (core.Point{}) {
		c.Canvas.Center = editor.DefaultConfig().Center
	}
	if c.Canvas.BaseColor == "" {
		c.Canvas.BaseColor = "#ffffff"
	}
	if len(c.Canvas.Palette) == 0 {
		c.Canvas.Palette = append([]Swatch(nil), defaultPalette...)
	}
	if c.Canvas.DecodeTimeout <= 0 {
		c.Canvas.DecodeTimeout = export.DefaultDecodeTimeout
	}
	if c.Order.UnitPrice <= 0 {
		c.Order.UnitPrice = export.DefaultUnitPrice
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data"
	}
	if c.Storage.DataSourceName == "" {
		c.Storage.DataSourceName = "studio.db"
	}
}

// applyEnv lets the deployment environment override the file.
func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"STORAGE_TYPE":       &c.Storage.Type,
		"LOCAL_STORAGE_PATH": &c.Storage.Path,
		"DATA_SOURCE_NAME":   &c.Storage.DataSourceName,
		"S3_BUCKET_NAME":     &c.Storage.Bucket,
		"ORDER_ENDPOINT":     &c.Order.Endpoint,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("UNIT_PRICE"); v != "" {
		price, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UNIT_PRICE: %w", err)
		}
		c.Order.UnitPrice = price
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		idle, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_IDLE_TIMEOUT: %w", err)
		}
		c.SessionIdleTimeout = idle
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := shade.ParseHex(c.Canvas.BaseColor); err != nil {
		return fmt.Errorf("canvas.base_color: %w", err)
	}
	for _, s := range c.Canvas.Palette {
		if _, err := shade.ParseHex(s.Hex); err != nil {
			return fmt.Errorf("canvas.palette %q: %w", s.Name, err)
		}
	}
	switch c.Storage.Type {
	case "", "memory", "filesystem", "sqlite":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	return nil
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path when it is set, applies environment overrides and fills
// in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) RendererOptions() garment.Options {
	return garment.Options{
		Width:       c.Canvas.Width,
		Height:      c.Canvas.Height,
		GridSpacing: c.Canvas.GridSpacing,
		TextureSeed: c.Canvas.TextureSeed,
	}
}

// SessionDefaults seeds every new editing session.
func (c *Config) SessionDefaults() editor.Config {
	base, _ := shade.ParseHex(c.Canvas.BaseColor)
	return editor.Config{
		Center:     c.Canvas.Center,
		BaseColor:  base,
		ActiveView: core.ViewFront,
	}
}

func (c *Config) ExportOptions(sub export.Submitter) export.Options {
	return export.Options{
		DecodeTimeout: c.Canvas.DecodeTimeout,
		UnitPrice:     c.Order.UnitPrice,
		Submitter:     sub,
	}
}

// PaletteColors resolves the palette swatches.
func (c *Config) PaletteColors() []color.RGBA {
	out := make([]color.RGBA, 0, len(c.Canvas.Palette))
	for _, s := range c.Canvas.Palette {
		if rgba, err := shade.ParseHex(s.Hex); err == nil {
			out = append(out, rgba)
		}
	}
	return out
}
