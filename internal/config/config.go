package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/talgya/hexgrid/internal/world"
)

type Config struct {
	Map        MapConfig        `toml:"map"`
	Generation GenerationConfig `toml:"generation"`
	Database   DatabaseConfig   `toml:"database"`
	API        APIConfig        `toml:"api"`
	Logging    LoggingConfig    `toml:"logging"`
	Data       DataConfig       `toml:"data"`
}

type MapConfig struct {
	CellsX     int    `toml:"cells_x"` // multiple of 5
	CellsZ     int    `toml:"cells_z"` // multiple of 5
	Wrapping   bool   `toml:"wrapping"`
	Seed       int64  `toml:"seed"`        // 0 = random
	NoiseImage string `toml:"noise_image"` // empty = generate
	NoiseSize  int    `toml:"noise_size"`  // side of the generated noise image
}

type GenerationConfig struct {
	SeaLevel      float64 `toml:"sea_level"`      // normalized (0.0-1.0)
	MountainLevel float64 `toml:"mountain_level"` // normalized (0.0-1.0)
	MaxElevation  int     `toml:"max_elevation"`
	WaterLevel    int     `toml:"water_level"`
	Units         int     `toml:"units"`        // units placed on a fresh map
	UnitSpacing   int     `toml:"unit_spacing"` // minimum steps between spawns
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type APIConfig struct {
	Port              int    `toml:"port"`
	AdminKey          string `toml:"admin_key"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

type DataConfig struct {
	UnitTypes string `toml:"unit_types"` // YAML table
	Scripts   string `toml:"scripts"`    // Lua directory
}

// Load reads path over the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// Validate checks values the rest of the program cannot recover from.
func (c *Config) Validate() error {
	if c.Map.CellsX <= 0 || c.Map.CellsZ <= 0 {
		return fmt.Errorf("map size %dx%d must be positive", c.Map.CellsX, c.Map.CellsZ)
	}
	if c.Map.NoiseSize <= 0 {
		return fmt.Errorf("noise_size must be positive")
	}
	if c.Generation.SeaLevel < 0 || c.Generation.SeaLevel > 1 ||
		c.Generation.MountainLevel < 0 || c.Generation.MountainLevel > 1 {
		return fmt.Errorf("sea_level and mountain_level must be within [0, 1]")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// GenConfig returns the generation parameters for a map with the given seed.
func (c *Config) GenConfig(seed int64) world.GenConfig {
	gen := world.DefaultGenConfig()
	gen.Seed = seed
	gen.SeaLevel = c.Generation.SeaLevel
	gen.MountainLevel = c.Generation.MountainLevel
	gen.MaxElevation = c.Generation.MaxElevation
	gen.WaterLevel = c.Generation.WaterLevel
	return gen
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("HEXMAP_ADMIN_KEY"); key != "" {
		cfg.API.AdminKey = key
	}
}

func defaults() *Config {
	gen := world.DefaultGenConfig()
	return &Config{
		Map: MapConfig{
			CellsX:    40,
			CellsZ:    30,
			Wrapping:  true,
			NoiseSize: 256,
		},
		Generation: GenerationConfig{
			SeaLevel:      gen.SeaLevel,
			MountainLevel: gen.MountainLevel,
			MaxElevation:  gen.MaxElevation,
			WaterLevel:    gen.WaterLevel,
			Units:         8,
			UnitSpacing:   5,
		},
		Database: DatabaseConfig{
			Path: "data/hexmap.db",
		},
		API: APIConfig{
			Port:              8080,
			RequestsPerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Data: DataConfig{
			UnitTypes: "data/unit_types.yaml",
			Scripts:   "scripts",
		},
	}
}
