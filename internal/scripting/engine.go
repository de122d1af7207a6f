package scripting

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/world"
)

// Engine wraps a single gopher-lua VM holding scripted unit types.
// Single-goroutine access only; callers that share a grid already serialize
// access to it.
type Engine struct {
	vm    *lua.LState
	log   *slog.Logger
	types map[string]*UnitType
}

// NewEngine creates a Lua engine and loads all scripts from scriptsDir and
// its units subdirectory. A missing directory is not an error.
func NewEngine(scriptsDir string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, types: make(map[string]*UnitType)}
	e.registerAPI()

	if scriptsDir == "" {
		return e, nil
	}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "units")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", "file", path)
	}
	return nil
}

// DoString runs a chunk of Lua source in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) registerAPI() {
	e.vm.SetGlobal("register_unit_type", e.vm.NewFunction(e.luaRegisterUnitType))

	edges := e.vm.NewTable()
	edges.RawSetString("FLAT", lua.LNumber(hex.Flat))
	edges.RawSetString("SLOPE", lua.LNumber(hex.Slope))
	edges.RawSetString("CLIFF", lua.LNumber(hex.Cliff))
	e.vm.SetGlobal("EDGE", edges)
}

// luaRegisterUnitType implements register_unit_type{name=, speed=, vision=,
// is_valid_destination=function(cell), move_cost=function(from, to, dir, edge, road)}.
func (e *Engine) luaRegisterUnitType(L *lua.LState) int {
	def := L.CheckTable(1)

	name := lua.LVAsString(def.RawGetString("name"))
	if name == "" {
		L.ArgError(1, "unit type needs a name")
		return 0
	}
	speed := int(lua.LVAsNumber(def.RawGetString("speed")))
	if speed <= 0 {
		L.ArgError(1, fmt.Sprintf("unit type %q: speed must be positive", name))
		return 0
	}

	ut := &UnitType{
		engine: e,
		name:   name,
		speed:  speed,
		vision: int(lua.LVAsNumber(def.RawGetString("vision"))),
	}
	if fn, ok := def.RawGetString("is_valid_destination").(*lua.LFunction); ok {
		ut.validFn = fn
	}
	if fn, ok := def.RawGetString("move_cost").(*lua.LFunction); ok {
		ut.costFn = fn
	}
	if _, dup := e.types[name]; dup {
		e.log.Warn("lua unit type redefined", "name", name)
	}
	e.types[name] = ut
	return 0
}

// UnitType returns the scripted unit type with the given name, or nil.
func (e *Engine) UnitType(name string) *UnitType {
	return e.types[name]
}

// UnitTypeNames returns the registered type names in sorted order.
func (e *Engine) UnitTypeNames() []string {
	names := make([]string, 0, len(e.types))
	for name := range e.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnitType is a world.UnitType whose rules live in Lua. A missing callback
// allows every destination and charges 1 per step; a failing callback
// rejects the move.
type UnitType struct {
	engine  *Engine
	name    string
	speed   int
	vision  int
	validFn *lua.LFunction
	costFn  *lua.LFunction
}

var _ world.UnitType = (*UnitType)(nil)

func (t *UnitType) Name() string     { return t.name }
func (t *UnitType) Speed() int       { return t.speed }
func (t *UnitType) VisionRange() int { return t.vision }

// IsValidDestination calls the script's is_valid_destination.
func (t *UnitType) IsValidDestination(c *world.Cell) bool {
	if t.validFn == nil {
		return true
	}
	vm := t.engine.vm
	if err := vm.CallByParam(lua.P{
		Fn:      t.validFn,
		NRet:    1,
		Protect: true,
	}, cellTable(vm, c)); err != nil {
		t.engine.log.Error("lua is_valid_destination error", "type", t.name, "err", err)
		return false
	}
	result := vm.Get(-1)
	vm.Pop(1)
	return lua.LVAsBool(result)
}

// MoveCost calls the script's move_cost. Non-numeric results reject the
// step.
func (t *UnitType) MoveCost(from, to *world.Cell, d hex.Direction) int {
	if t.costFn == nil {
		return 1
	}
	vm := t.engine.vm
	if err := vm.CallByParam(lua.P{
		Fn:      t.costFn,
		NRet:    1,
		Protect: true,
	}, cellTable(vm, from), cellTable(vm, to), lua.LNumber(d), lua.LNumber(from.EdgeType(d)),
		lua.LBool(from.HasRoadThroughEdge(d))); err != nil {
		t.engine.log.Error("lua move_cost error", "type", t.name, "err", err)
		return -1
	}
	result := vm.Get(-1)
	vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		t.engine.log.Error("lua move_cost returned non-number", "type", t.name)
		return -1
	}
	return int(n)
}

// cellTable packs the fields scripts may read.
func cellTable(vm *lua.LState, c *world.Cell) *lua.LTable {
	t := vm.NewTable()
	col, row := c.Coordinates().Offset()
	t.RawSetString("col", lua.LNumber(col))
	t.RawSetString("row", lua.LNumber(row))
	t.RawSetString("elevation", lua.LNumber(c.Elevation()))
	t.RawSetString("water_level", lua.LNumber(c.WaterLevel()))
	t.RawSetString("terrain", lua.LString(world.TerrainName(c.TerrainTypeIndex())))
	t.RawSetString("underwater", lua.LBool(c.IsUnderwater()))
	t.RawSetString("explored", lua.LBool(c.IsExplored()))
	t.RawSetString("roads", lua.LBool(c.HasRoads()))
	t.RawSetString("occupied", lua.LBool(c.Unit() != nil))
	return t
}
