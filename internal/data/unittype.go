package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/world"
)

// UnitTypeEntry is one unit type as written in unit_types.yaml.
type UnitTypeEntry struct {
	Name         string         `yaml:"name"`
	Speed        int            `yaml:"speed"`
	Vision       int            `yaml:"vision"`
	FlatCost     int            `yaml:"flat_cost"`     // entering over a flat edge
	SlopeCost    int            `yaml:"slope_cost"`    // surcharge for a road-less slope
	RoadCost     int            `yaml:"road_cost"`     // following a road, any edge
	TerrainCosts map[string]int `yaml:"terrain_costs"` // extra per terrain name; negative forbids
	Climb        bool           `yaml:"climb"`         // may cross cliffs
	Swim         bool           `yaml:"swim"`          // may enter underwater cells
	Explored     bool           `yaml:"requires_explored"`
}

// UnitType is a table-driven world.UnitType.
type UnitType struct {
	name             string
	speed, vision    int
	flat, slope      int
	road             int
	terrain          [world.TerrainSnow + 1]int
	forbidden        [world.TerrainSnow + 1]bool
	climb, swim      bool
	requiresExplored bool
}

var _ world.UnitType = (*UnitType)(nil)

func (t *UnitType) Name() string     { return t.name }
func (t *UnitType) Speed() int       { return t.speed }
func (t *UnitType) VisionRange() int { return t.vision }

// IsValidDestination rejects water for non-swimmers, forbidden terrain and,
// when the type requires it, unexplored cells.
func (t *UnitType) IsValidDestination(c *world.Cell) bool {
	if t.requiresExplored && !c.IsExplored() {
		return false
	}
	if c.IsUnderwater() && !t.swim {
		return false
	}
	if ti := int(c.TerrainTypeIndex()); ti < len(t.forbidden) && t.forbidden[ti] {
		return false
	}
	return true
}

// MoveCost charges the road cost along roads, otherwise the flat cost plus
// the slope surcharge per level climbed and the terrain extra. The result
// never exceeds one turn of movement.
func (t *UnitType) MoveCost(from, to *world.Cell, d hex.Direction) int {
	edge := from.EdgeType(d)
	if edge == hex.Cliff && !t.climb {
		return -1
	}
	if from.HasRoadThroughEdge(d) {
		return min(t.road, t.speed)
	}
	cost := t.flat
	if edge != hex.Flat {
		cost += t.slope * from.ElevationDifference(d)
	}
	if ti := int(to.TerrainTypeIndex()); ti < len(t.terrain) {
		cost += t.terrain[ti]
	}
	return max(1, min(cost, t.speed))
}

// UnitTypeTable provides lookup of unit types by name.
type UnitTypeTable struct {
	types map[string]*UnitType
}

// LoadUnitTypeTable loads unit_types.yaml.
func LoadUnitTypeTable(path string) (*UnitTypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit types: %w", err)
	}
	return ParseUnitTypeTable(raw)
}

// ParseUnitTypeTable builds a table from YAML. Zero costs fall back to
// 5 flat, 5 slope and 1 on roads.
func ParseUnitTypeTable(raw []byte) (*UnitTypeTable, error) {
	var entries []UnitTypeEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse unit types: %w", err)
	}
	t := &UnitTypeTable{types: make(map[string]*UnitType, len(entries))}
	for i := range entries {
		ut, err := newUnitType(&entries[i])
		if err != nil {
			return nil, err
		}
		if _, dup := t.types[ut.name]; dup {
			return nil, fmt.Errorf("unit type %q defined twice", ut.name)
		}
		t.types[ut.name] = ut
	}
	return t, nil
}

func newUnitType(e *UnitTypeEntry) (*UnitType, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("unit type without name")
	}
	if e.Speed <= 0 {
		return nil, fmt.Errorf("unit type %q: speed must be positive, got %d", e.Name, e.Speed)
	}
	ut := &UnitType{
		name:             e.Name,
		speed:            e.Speed,
		vision:           e.Vision,
		flat:             orDefault(e.FlatCost, 5),
		slope:            orDefault(e.SlopeCost, 5),
		road:             orDefault(e.RoadCost, 1),
		climb:            e.Climb,
		swim:             e.Swim,
		requiresExplored: e.Explored,
	}
	for name, cost := range e.TerrainCosts {
		ti, ok := terrainByName(name)
		if !ok {
			return nil, fmt.Errorf("unit type %q: unknown terrain %q", e.Name, name)
		}
		if cost < 0 {
			ut.forbidden[ti] = true
			continue
		}
		ut.terrain[ti] = cost
	}
	return ut, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func terrainByName(name string) (world.Terrain, bool) {
	for t := world.TerrainSand; t <= world.TerrainSnow; t++ {
		if strings.EqualFold(world.TerrainName(t), name) {
			return t, true
		}
	}
	return 0, false
}

// Get returns the unit type with the given name, or nil if none.
func (t *UnitTypeTable) Get(name string) *UnitType {
	return t.types[name]
}

// Names returns all type names in sorted order.
func (t *UnitTypeTable) Names() []string {
	names := make([]string, 0, len(t.types))
	for name := range t.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of unit types loaded.
func (t *UnitTypeTable) Count() int {
	return len(t.types)
}
