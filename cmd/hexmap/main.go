// Command hexmap generates, stores and serves hex grid maps.
//
//	hexmap generate [-seed N] [-name NAME]
//	hexmap serve [-map ID]
//	hexmap path -map ID -from COL,ROW -to COL,ROW -unit TYPE
//	hexmap list
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexgrid/internal/api"
	"github.com/talgya/hexgrid/internal/config"
	"github.com/talgya/hexgrid/internal/noise"
	"github.com/talgya/hexgrid/internal/persistence"
	"github.com/talgya/hexgrid/internal/world"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Logging))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "generate":
		err = runGenerate(cfg, args)
	case "serve":
		err = runServe(cfg, args)
	case "path":
		err = runPath(cfg, args)
	case "list":
		err = runList(cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hexmap <generate|serve|path|list> [flags]")
}

// loadConfig reads HEXMAP_CONFIG, or config/hexmap.toml when present.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("HEXMAP_CONFIG")
	if path == "" {
		path = filepath.Join("config", "hexmap.toml")
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openDB(cfg *config.Config) (*persistence.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir %s: %w", dir, err)
		}
	}
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.Database.Path)
	return db, nil
}

// newGrid builds an empty grid over the configured noise source.
func newGrid(cfg *config.Config, seed int64) (*world.Grid, error) {
	var field *noise.Field
	if cfg.Map.NoiseImage != "" {
		img, err := noise.LoadSource(cfg.Map.NoiseImage)
		if err != nil {
			return nil, err
		}
		field = noise.NewField(seed, img, 0)
	} else {
		field = noise.NewField(seed, noise.GenerateSource(seed, cfg.Map.NoiseSize), 0)
	}
	return world.NewGrid(field, slog.Default()), nil
}

// generateMap creates, fills and populates a fresh map.
func generateMap(cfg *config.Config, units *unitTypes, seed int64) (*world.Grid, error) {
	g, err := newGrid(cfg, seed)
	if err != nil {
		return nil, err
	}
	if err := g.CreateMap(cfg.Map.CellsX, cfg.Map.CellsZ, cfg.Map.Wrapping); err != nil {
		return nil, err
	}

	world.Generate(g, cfg.GenConfig(seed))
	for t, n := range world.TerrainCounts(g) {
		slog.Debug("terrain", "type", world.TerrainName(t), "count", n)
	}

	names := units.Names()
	if len(names) == 0 || cfg.Generation.Units <= 0 {
		slog.Warn("no unit types loaded, map has no units")
		return g, nil
	}
	// Types take turns so every kind appears on the map.
	spawns := world.PlaceUnits(g, units.Lookup(names[0]), cfg.Generation.Units, cfg.Generation.UnitSpacing, seed)
	for i, sp := range spawns {
		t := units.Lookup(names[i%len(names)])
		cell, err := g.CellByCoordinates(sp.Coordinates)
		if err != nil {
			return nil, err
		}
		if err := g.AddUnit(world.NewUnit(t, sp.Name), cell, world.Bearing(0)); err != nil {
			slog.Warn("unit not placed", "name", sp.Name, "type", t.Name(), "error", err)
			continue
		}
		slog.Info("unit placed", "name", sp.Name, "type", t.Name(), "at", sp.Coordinates,
			"score", fmt.Sprintf("%.2f", sp.Score))
	}
	g.Refresh()
	return g, nil
}

// loadMap restores a stored map and its units.
func loadMap(cfg *config.Config, db *persistence.DB, units *unitTypes, id string) (*world.Grid, *persistence.MapRecord, error) {
	// The noise field must match the one the map was generated over.
	info, err := db.GetMap(id)
	if err != nil {
		return nil, nil, err
	}
	g, err := newGrid(cfg, info.Seed)
	if err != nil {
		return nil, nil, err
	}
	rec, err := db.LoadMap(id, g)
	if err != nil {
		return nil, nil, err
	}
	stored, err := db.LoadUnits(id)
	if err != nil {
		return nil, nil, err
	}
	if err := persistence.RestoreUnits(g, stored, units.Lookup); err != nil {
		slog.Warn("some units were not restored", "error", err)
	}
	g.Refresh()
	return g, rec, nil
}

func runGenerate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	seed := fs.Int64("seed", cfg.Map.Seed, "generation seed (0 = random)")
	name := fs.String("name", "", "map name")
	fs.Parse(args)

	units, err := loadUnitTypes(cfg)
	if err != nil {
		return err
	}
	defer units.Close()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s := *seed
	if s == 0 {
		s = rand.Int63()
	}
	g, err := generateMap(cfg, units, s)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = fmt.Sprintf("map-%d", s)
	}
	id, err := db.SaveMap("", *name, g, s)
	if err != nil {
		return err
	}
	if err := db.SaveMeta("last_map", id); err != nil {
		return err
	}
	fmt.Printf("generated %s (%dx%d, %d units): %s\n", *name, g.CellCountX(), g.CellCountZ(), len(g.Units()), id)
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	mapID := fs.String("map", "", "stored map ID (default: last map)")
	fs.Parse(args)

	units, err := loadUnitTypes(cfg)
	if err != nil {
		return err
	}
	defer units.Close()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := *mapID
	if id == "" {
		id, _ = db.GetMeta("last_map")
	}

	srv := &api.Server{
		DB:                db,
		UnitTypes:         units.Lookup,
		Port:              cfg.API.Port,
		AdminKey:          cfg.API.AdminKey,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	}
	if id != "" {
		g, rec, err := loadMap(cfg, db, units, id)
		if err != nil {
			return err
		}
		srv.Grid, srv.MapID, srv.MapName, srv.Seed = g, rec.ID, rec.Name, rec.Seed
	} else {
		slog.Info("no stored map, generating a new one")
		seed := cfg.Map.Seed
		if seed == 0 {
			seed = rand.Int63()
		}
		g, err := generateMap(cfg, units, seed)
		if err != nil {
			return err
		}
		srv.Grid, srv.MapName, srv.Seed = g, fmt.Sprintf("map-%d", seed), seed
		if _, err := srv.Save(); err != nil {
			return err
		}
		db.SaveMeta("last_map", srv.MapID)
	}

	if cfg.API.AdminKey == "" {
		slog.Warn("HEXMAP_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	srv.Start()
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	if _, err := srv.Save(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}

func runPath(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	mapID := fs.String("map", "", "stored map ID (default: last map)")
	from := fs.String("from", "", "start cell as col,row")
	to := fs.String("to", "", "target cell as col,row")
	unitName := fs.String("unit", "", "unit type")
	fs.Parse(args)

	fc, fr, err := parseOffset(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	tc, tr, err := parseOffset(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	units, err := loadUnitTypes(cfg)
	if err != nil {
		return err
	}
	defer units.Close()
	t := units.Lookup(*unitName)
	if t == nil {
		return fmt.Errorf("unknown unit type %q (have %s)", *unitName, strings.Join(units.Names(), ", "))
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := *mapID
	if id == "" {
		if id, err = db.GetMeta("last_map"); err != nil {
			return errors.New("no map given and no stored map")
		}
	}
	g, _, err := loadMap(cfg, db, units, id)
	if err != nil {
		return err
	}

	start, err := g.CellByOffset(fc, fr)
	if err != nil {
		return err
	}
	end, err := g.CellByOffset(tc, tr)
	if err != nil {
		return err
	}
	path, err := g.FindPath(start, end, world.NewUnit(t, ""))
	if err != nil {
		return err
	}
	for _, c := range path {
		col, row := c.Coordinates().Offset()
		fmt.Printf("%3d,%-3d  elev %d  %-5s  turn %d\n", col, row, c.Elevation(),
			world.TerrainName(c.TerrainTypeIndex()), g.Turns(c))
	}
	fmt.Printf("%d steps, %d turns\n", len(path)-1, g.PathTurns())
	return nil
}

func runList(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	maps, err := db.ListMaps()
	if err != nil {
		return err
	}
	for _, m := range maps {
		fmt.Printf("%s  %-20s %3dx%-3d seed %-20d %s\n", m.ID, m.Name, m.CellsX, m.CellsZ, m.Seed,
			humanize.Bytes(uint64(m.Size)))
	}
	return nil
}

// parseOffset parses "col,row".
func parseOffset(v string) (int, int, error) {
	a, b, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want col,row, got %q", v)
	}
	col, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, err
	}
	row, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, err
	}
	return col, row, nil
}
