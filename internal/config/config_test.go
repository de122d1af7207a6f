package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/hexgrid/internal/world"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hexmap.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[map]
cells_x = 20
wrapping = false
seed = 99

[api]
port = 9000

[logging]
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Map.CellsX != 20 || cfg.Map.Wrapping || cfg.Map.Seed != 99 {
		t.Errorf("map section = %+v", cfg.Map)
	}
	// Untouched keys keep their defaults.
	if cfg.Map.CellsZ != 30 || cfg.Map.NoiseSize != 256 {
		t.Errorf("defaults lost: %+v", cfg.Map)
	}
	if cfg.API.Port != 9000 || cfg.API.RequestsPerMinute != 120 {
		t.Errorf("api section = %+v", cfg.API)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("logging section = %+v", cfg.Logging)
	}
}

func TestLoadAdminKeyFromEnv(t *testing.T) {
	t.Setenv("HEXMAP_ADMIN_KEY", "secret")
	cfg, err := Load(writeConfig(t, "[api]\nadmin_key = \"file\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.AdminKey != "secret" {
		t.Errorf("AdminKey = %q, want env value", cfg.API.AdminKey)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file loaded")
	}
	tests := map[string]string{
		"syntax":     "[map\n",
		"size":       "[map]\ncells_x = 0\n",
		"log format": "[logging]\nformat = \"xml\"\n",
		"sea level":  "[generation]\nsea_level = 2.0\n",
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: no error", name)
		}
	}
}

func TestGenConfig(t *testing.T) {
	cfg := Default()
	want := world.DefaultGenConfig()
	want.Seed = 7
	if got := cfg.GenConfig(7); got != want {
		t.Errorf("default GenConfig = %+v, want %+v", got, want)
	}

	path := writeConfig(t, `
[generation]
sea_level = 0.5
max_elevation = 12
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.GenConfig(1)
	if got.SeaLevel != 0.5 || got.MaxElevation != 12 || got.MountainLevel != want.MountainLevel {
		t.Errorf("GenConfig = %+v", got)
	}
}
