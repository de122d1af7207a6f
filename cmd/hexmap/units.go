package main

import (
	"errors"
	"log/slog"
	"os"
	"sort"

	"github.com/talgya/hexgrid/internal/config"
	"github.com/talgya/hexgrid/internal/data"
	"github.com/talgya/hexgrid/internal/scripting"
	"github.com/talgya/hexgrid/internal/world"
)

// unitTypes merges the YAML table with scripted types. A scripted type
// shadows a table entry of the same name.
type unitTypes struct {
	table   *data.UnitTypeTable
	scripts *scripting.Engine
}

func loadUnitTypes(cfg *config.Config) (*unitTypes, error) {
	u := &unitTypes{}
	if cfg.Data.UnitTypes != "" {
		table, err := data.LoadUnitTypeTable(cfg.Data.UnitTypes)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("unit type table missing", "path", cfg.Data.UnitTypes)
		case err != nil:
			return nil, err
		default:
			u.table = table
			slog.Info("unit types loaded", "path", cfg.Data.UnitTypes, "count", table.Count())
		}
	}

	engine, err := scripting.NewEngine(cfg.Data.Scripts, slog.Default())
	if err != nil {
		return nil, err
	}
	u.scripts = engine
	if n := len(engine.UnitTypeNames()); n > 0 {
		slog.Info("scripted unit types loaded", "dir", cfg.Data.Scripts, "count", n)
	}
	return u, nil
}

// Lookup returns the named type, or nil. It never returns a typed nil.
func (u *unitTypes) Lookup(name string) world.UnitType {
	if u.scripts != nil {
		if t := u.scripts.UnitType(name); t != nil {
			return t
		}
	}
	if u.table != nil {
		if t := u.table.Get(name); t != nil {
			return t
		}
	}
	return nil
}

func (u *unitTypes) Names() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(list []string) {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	if u.table != nil {
		add(u.table.Names())
	}
	if u.scripts != nil {
		add(u.scripts.UnitTypeNames())
	}
	sort.Strings(names)
	return names
}

func (u *unitTypes) Close() {
	if u.scripts != nil {
		u.scripts.Close()
	}
}
