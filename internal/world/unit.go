package world

import (
	"fmt"

	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
)

// UnitType supplies the movement rules of a kind of unit. The grid never
// decides on its own what a unit may enter; it only asks.
type UnitType interface {
	Name() string
	// Speed is the movement budget of one turn.
	Speed() int
	VisionRange() int
	// IsValidDestination reports whether a unit of this type may stand on c.
	IsValidDestination(c *Cell) bool
	// MoveCost returns the cost of stepping from one cell into its neighbor
	// in direction d, or a negative value when the step is impossible.
	MoveCost(from, to *Cell, d hex.Direction) int
}

// Unit is a piece on the map. Its location is a cell index; the grid owns
// the cell.
type Unit struct {
	Type UnitType
	Name string

	grid        *Grid
	id          int
	location    int
	orientation float64
	position    geom.Vec3
}

// NewUnit returns a unit of type t that is not on any map yet.
func NewUnit(t UnitType, name string) *Unit {
	return &Unit{Type: t, Name: name, id: -1, location: -1}
}

// ID is the unit's slot on its grid, -1 when unplaced.
func (u *Unit) ID() int { return u.id }

func (u *Unit) Speed() int { return u.Type.Speed() }

func (u *Unit) VisionRange() int { return u.Type.VisionRange() }

// Orientation is the facing in degrees clockwise from north.
func (u *Unit) Orientation() float64 { return u.orientation }

// Position is the world position of the unit as of the last
// ValidateLocation.
func (u *Unit) Position() geom.Vec3 { return u.position }

// Location returns the cell the unit stands on, or nil.
func (u *Unit) Location() *Cell {
	if u.grid == nil || u.location < 0 {
		return nil
	}
	return &u.grid.cells[u.location]
}

// IsValidDestination reports whether u may end a step on c: the cell must be
// explorable, free of other units and accepted by the unit type.
func (u *Unit) IsValidDestination(c *Cell) bool {
	if !c.explorable {
		return false
	}
	if c.unit >= 0 && c.unit != u.id {
		return false
	}
	return u.Type.IsValidDestination(c)
}

// MoveCost delegates to the unit type.
func (u *Unit) MoveCost(from, to *Cell, d hex.Direction) int {
	return u.Type.MoveCost(from, to, d)
}

// AddUnit places u on cell and starts its vision there.
func (g *Grid) AddUnit(u *Unit, cell *Cell, orientation float64) error {
	if u.grid != nil {
		return fmt.Errorf("%w: unit %q is already placed", ErrInvalidMove, u.Name)
	}
	if !u.IsValidDestination(cell) {
		return fmt.Errorf("%w: unit %q cannot stand on %s", ErrInvalidMove, u.Name, cell.coordinates)
	}
	u.grid = g
	u.id = len(g.units)
	u.location = cell.index
	u.orientation = orientation
	g.units = append(g.units, u)
	cell.unit = u.id
	u.ValidateLocation()
	g.IncreaseVisibility(cell, u.VisionRange())
	return nil
}

// Units returns the units currently on the map.
func (g *Grid) Units() []*Unit {
	units := make([]*Unit, 0, len(g.units))
	for _, u := range g.units {
		if u != nil {
			units = append(units, u)
		}
	}
	return units
}

// clearUnits removes all units without touching visibility. CreateMap and
// Load throw the counters away anyway.
func (g *Grid) clearUnits() {
	for _, u := range g.units {
		if u != nil {
			u.grid = nil
			u.id = -1
			u.location = -1
		}
	}
	g.units = nil
}

// ValidateLocation snaps the unit's position to its cell.
func (u *Unit) ValidateLocation() {
	if c := u.Location(); c != nil {
		u.position = c.Position()
	}
}

// Travel moves the unit along path, which must start at its location and
// step between neighbors only. Every step must be one the unit type allows. The path is checked before anything moves.
// Vision follows the unit one cell at a time.
func (u *Unit) Travel(path []*Cell) error {
	start := u.Location()
	if start == nil {
		return fmt.Errorf("%w: unit %q is not on a map", ErrInvalidMove, u.Name)
	}
	if len(path) == 0 || path[0] != start {
		return fmt.Errorf("%w: path must start at %s", ErrInvalidMove, start.coordinates)
	}

	dirs := make([]hex.Direction, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		d, ok := directionTo(path[i-1], path[i])
		if !ok {
			return fmt.Errorf("%w: %s is not adjacent to %s", ErrInvalidMove,
				path[i].coordinates, path[i-1].coordinates)
		}
		if !u.IsValidDestination(path[i]) {
			return fmt.Errorf("%w: cannot enter %s", ErrInvalidMove, path[i].coordinates)
		}
		if u.MoveCost(path[i-1], path[i], d) < 0 {
			return fmt.Errorf("%w: cannot step from %s to %s", ErrInvalidMove,
				path[i-1].coordinates, path[i].coordinates)
		}
		dirs = append(dirs, d)
	}

	g := u.grid
	vision := u.VisionRange()
	start.unit = -1
	for i, d := range dirs {
		g.DecreaseVisibility(path[i], vision)
		u.location = path[i+1].index
		u.orientation = Bearing(d)
		g.IncreaseVisibility(path[i+1], vision)
	}
	path[len(path)-1].unit = u.id
	u.ValidateLocation()
	return nil
}

// Die removes the unit from the map and releases its vision.
func (u *Unit) Die() {
	c := u.Location()
	if c == nil {
		return
	}
	g := u.grid
	g.DecreaseVisibility(c, u.VisionRange())
	c.unit = -1
	g.units[u.id] = nil
	u.grid = nil
	u.id = -1
	u.location = -1
}

// Bearing returns the facing in degrees of a unit looking through edge d.
func Bearing(d hex.Direction) float64 {
	return float64(d)*60 + 30
}

func directionTo(from, to *Cell) (hex.Direction, bool) {
	for _, d := range hex.Directions {
		if from.neighbors[d] == to.index {
			return d, true
		}
	}
	return 0, false
}
