// Package world holds the hex cell graph and everything that runs over it:
// the grid and its chunks, units, pathfinding, visibility, map persistence
// and procedural generation.
package world

import (
	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
)

// Terrain indexes the terrain texture array of the renderer.
type Terrain uint8

const (
	TerrainSand  Terrain = iota // beaches, dunes, shallow sea floor
	TerrainGrass                // lowland
	TerrainMud                  // wetland and deep sea floor
	TerrainStone                // highland
	TerrainSnow                 // peaks
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainSand:
		return "Sand"
	case TerrainGrass:
		return "Grass"
	case TerrainMud:
		return "Mud"
	case TerrainStone:
		return "Stone"
	case TerrainSnow:
		return "Snow"
	default:
		return "Unknown"
	}
}

// Cell is a single tile of the grid. Cells live inside their Grid and are
// handed out as pointers into its cell slice; those pointers stay valid until
// the next CreateMap.
type Cell struct {
	grid *Grid

	coordinates hex.Coordinates
	index       int
	columnIndex int
	chunkIndex  int

	elevation  int
	waterLevel int
	terrain    Terrain
	explorable bool
	explored   bool
	visibility int
	roads      uint8 // one bit per hex.Direction

	// Neighbor cell indices per direction, -1 when there is none.
	neighbors [6]int

	// Search scratch, valid only while searchPhase matches the grid's.
	distance    int
	heuristic   int
	searchPhase int
	pathFrom    int

	unit int // index into Grid.units, -1 when empty
}

func (c *Cell) Coordinates() hex.Coordinates { return c.coordinates }

// Index is x + z*CellCountX in offset space.
func (c *Cell) Index() int { return c.index }

// ColumnIndex is the chunk column the cell belongs to.
func (c *Cell) ColumnIndex() int { return c.columnIndex }

func (c *Cell) ChunkIndex() int { return c.chunkIndex }

func (c *Cell) Elevation() int { return c.elevation }

func (c *Cell) WaterLevel() int { return c.waterLevel }

func (c *Cell) TerrainTypeIndex() Terrain { return c.terrain }

// IsUnderwater reports whether the water surface is above the cell.
func (c *Cell) IsUnderwater() bool { return c.waterLevel > c.elevation }

func (c *Cell) Explorable() bool { return c.explorable }

// IsExplored reports whether the cell has ever been visible. Cells that are
// not explorable are never explored.
func (c *Cell) IsExplored() bool { return c.explored && c.explorable }

func (c *Cell) IsVisible() bool { return c.visibility > 0 }

// Visibility returns the number of observers currently seeing the cell.
func (c *Cell) Visibility() int { return c.visibility }

func (c *Cell) HasRoadThroughEdge(d hex.Direction) bool { return c.roads&(1<<d) != 0 }

func (c *Cell) HasRoads() bool { return c.roads != 0 }

func (c *Cell) Distance() int { return c.distance }

func (c *Cell) SearchHeuristic() int { return c.heuristic }

// SearchPriority orders the search frontier.
func (c *Cell) SearchPriority() int { return c.distance + c.heuristic }

func (c *Cell) SearchPhase() int { return c.searchPhase }

// PathFrom returns the cell the last search reached c from, or nil.
func (c *Cell) PathFrom() *Cell {
	if c.pathFrom < 0 {
		return nil
	}
	return &c.grid.cells[c.pathFrom]
}

// Unit returns the unit standing on the cell, or nil.
func (c *Cell) Unit() *Unit {
	if c.unit < 0 {
		return nil
	}
	return c.grid.units[c.unit]
}

// Neighbor returns the adjacent cell in direction d, or nil.
func (c *Cell) Neighbor(d hex.Direction) *Cell {
	i := c.neighbors[d]
	if i < 0 {
		return nil
	}
	return &c.grid.cells[i]
}

// EdgeType classifies the elevation transition towards direction d. A
// missing neighbor is treated as a cliff.
func (c *Cell) EdgeType(d hex.Direction) hex.EdgeType {
	n := c.Neighbor(d)
	if n == nil {
		return hex.Cliff
	}
	return hex.GetEdgeType(c.elevation, n.elevation)
}

// EdgeTypeTo classifies the elevation transition towards any other cell.
func (c *Cell) EdgeTypeTo(other *Cell) hex.EdgeType {
	return hex.GetEdgeType(c.elevation, other.elevation)
}

// ElevationDifference returns the absolute elevation difference towards d,
// or 0 without a neighbor.
func (c *Cell) ElevationDifference(d hex.Direction) int {
	n := c.Neighbor(d)
	if n == nil {
		return 0
	}
	diff := c.elevation - n.elevation
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// ViewElevation is the height observers on this cell see from. Underwater
// cells see from the water surface; dry cells on the shore of a water body
// see one level farther.
func (c *Cell) ViewElevation() int {
	if c.IsUnderwater() {
		return c.waterLevel
	}
	for _, d := range hex.Directions {
		if n := c.Neighbor(d); n != nil && n.IsUnderwater() {
			return c.elevation + 1
		}
	}
	return c.elevation
}

// Position returns the world-space center of the cell, including the
// elevation jitter taken from the grid's noise field.
func (c *Cell) Position() geom.Vec3 {
	p := c.coordinates.Position()
	p.Y = float64(c.elevation) * hex.ElevationStep
	if c.grid.field != nil {
		s := c.grid.field.SampleNoise(p)
		p.Y += (s[1]*2 - 1) * hex.ElevationPerturbStrength
	}
	return p
}

// WaterSurfaceY is the world height of the cell's water surface.
func (c *Cell) WaterSurfaceY() float64 {
	return (float64(c.waterLevel) + hex.WaterElevationOffset) * hex.ElevationStep
}

// SetElevation changes the cell height. Roads over edges that became too
// steep are removed.
func (c *Cell) SetElevation(elevation int) {
	if c.elevation == elevation {
		return
	}
	c.elevation = elevation
	for _, d := range hex.Directions {
		if c.HasRoadThroughEdge(d) && c.ElevationDifference(d) > 1 {
			c.setRoad(d, false)
		}
	}
	c.refresh()
}

func (c *Cell) SetWaterLevel(level int) {
	if c.waterLevel == level {
		return
	}
	c.waterLevel = level
	c.refresh()
}

func (c *Cell) SetTerrainTypeIndex(t Terrain) {
	if c.terrain == t {
		return
	}
	c.terrain = t
	c.refreshSelfOnly()
}

// SetExplorable marks whether the cell can ever be seen or entered.
func (c *Cell) SetExplorable(explorable bool) {
	if c.explorable == explorable {
		return
	}
	c.explorable = explorable
	c.grid.notifyVisibility(c.index)
}

// AddRoad builds a road towards d. It reports false when there is no
// neighbor or the edge is steeper than a slope.
func (c *Cell) AddRoad(d hex.Direction) bool {
	if c.HasRoadThroughEdge(d) {
		return true
	}
	if c.Neighbor(d) == nil || c.ElevationDifference(d) > 1 {
		return false
	}
	c.setRoad(d, true)
	return true
}

// RemoveRoads clears every road touching the cell.
func (c *Cell) RemoveRoads() {
	for _, d := range hex.Directions {
		if c.HasRoadThroughEdge(d) {
			c.setRoad(d, false)
		}
	}
}

func (c *Cell) setRoad(d hex.Direction, on bool) {
	n := c.Neighbor(d)
	c.roads = setBit(c.roads, d, on)
	c.refreshSelfOnly()
	if n != nil {
		n.roads = setBit(n.roads, d.Opposite(), on)
		n.refreshSelfOnly()
	}
}

func setBit(mask uint8, d hex.Direction, on bool) uint8 {
	if on {
		return mask | 1<<d
	}
	return mask &^ (1 << d)
}

// refresh marks the cell's chunk and every neighboring chunk dirty.
func (c *Cell) refresh() {
	c.grid.markDirty(c.chunkIndex)
	for _, d := range hex.Directions {
		if n := c.Neighbor(d); n != nil && n.chunkIndex != c.chunkIndex {
			c.grid.markDirty(n.chunkIndex)
		}
	}
	if u := c.Unit(); u != nil {
		u.ValidateLocation()
	}
}

func (c *Cell) refreshSelfOnly() {
	c.grid.markDirty(c.chunkIndex)
	if u := c.Unit(); u != nil {
		u.ValidateLocation()
	}
}
