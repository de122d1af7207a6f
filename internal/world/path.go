package world

import (
	"fmt"
	"slices"

	"github.com/talgya/hexgrid/internal/hex"
)

// pathState remembers the result of the last FindPath. The cell list is
// copied out of the search fields so later searches cannot corrupt it.
type pathState struct {
	from, to int
	cells    []int
	turns    []int
}

// FindPath searches for the cheapest route from one cell to another for
// unit. It returns the cells in travel order, from first. When to cannot
// be reached it returns ErrNoPathFound and an empty path.
func (g *Grid) FindPath(from, to *Cell, unit *Unit) ([]*Cell, error) {
	g.ClearPath()
	if from == nil || to == nil || unit == nil {
		return nil, fmt.Errorf("%w: missing endpoint or unit", ErrInvalidMove)
	}

	speed := max(unit.Speed(), 1)
	if !g.search(from, to, unit, speed) {
		g.log.Debug("no path", "from", from.coordinates, "to", to.coordinates, "unit", unit.Name)
		return nil, fmt.Errorf("%w: %s to %s", ErrNoPathFound, from.coordinates, to.coordinates)
	}

	var cells []int
	for i := to.index; ; i = g.cells[i].pathFrom {
		cells = append(cells, i)
		if i == from.index {
			break
		}
	}
	slices.Reverse(cells)

	turns := make([]int, len(cells))
	for i, idx := range cells[1:] {
		turns[i+1] = (g.cells[idx].distance-1)/speed + 1
	}
	g.path = pathState{from: from.index, to: to.index, cells: cells, turns: turns}
	return g.GetPath(), nil
}

// search runs A* from from to to. Every call advances searchPhase by two:
// cells stamped with searchPhase are in the frontier, searchPhase+1 are
// closed, anything lower holds stale data.
func (g *Grid) search(from, to *Cell, unit *Unit, speed int) bool {
	g.searchPhase += 2
	g.frontier.reset()

	from.searchPhase = g.searchPhase
	from.distance = 0
	from.heuristic = 0
	from.pathFrom = -1
	g.frontier.enqueue(from.index, 0)

	for g.frontier.Len() > 0 {
		current := &g.cells[g.frontier.dequeue()]
		current.searchPhase++
		if current == to {
			return true
		}

		currentTurn := (current.distance - 1) / speed
		for _, d := range hex.Directions {
			n := current.Neighbor(d)
			if n == nil || n.searchPhase > g.searchPhase {
				continue
			}
			if !n.explorable || !unit.IsValidDestination(n) {
				continue
			}
			cost := unit.MoveCost(current, n, d)
			if cost < 0 {
				continue
			}
			cost = max(cost, 1)

			// A step that does not fit the current turn starts a new one;
			// whatever was left of the old turn is lost.
			distance := current.distance + cost
			if turn := (distance - 1) / speed; turn > currentTurn {
				distance = turn*speed + cost
			}

			switch {
			case n.searchPhase < g.searchPhase:
				n.searchPhase = g.searchPhase
				n.distance = distance
				n.pathFrom = current.index
				n.heuristic = n.coordinates.DistanceTo(to.coordinates, g.wrapSize)
				g.frontier.enqueue(n.index, n.SearchPriority())
			case distance < n.distance:
				n.distance = distance
				n.pathFrom = current.index
				g.frontier.enqueue(n.index, n.SearchPriority())
			}
		}
	}
	return false
}

// HasPath reports whether the last FindPath succeeded and has not been
// cleared.
func (g *Grid) HasPath() bool { return len(g.path.cells) > 0 }

// GetPath returns the cells of the current path, or nil.
func (g *Grid) GetPath() []*Cell {
	if len(g.path.cells) == 0 {
		return nil
	}
	path := make([]*Cell, len(g.path.cells))
	for i, idx := range g.path.cells {
		path[i] = &g.cells[idx]
	}
	return path
}

// Turns returns the number of turns the unit of the current path needs to
// reach c. It is 0 for the start cell and for cells off the path.
func (g *Grid) Turns(c *Cell) int {
	if i := slices.Index(g.path.cells, c.index); i >= 0 {
		return g.path.turns[i]
	}
	return 0
}

// PathTurns returns the turns needed to reach the end of the current path.
func (g *Grid) PathTurns() int {
	if n := len(g.path.turns); n > 0 {
		return g.path.turns[n-1]
	}
	return 0
}

// ClearPath forgets the current path and resets the search markers of its
// cells.
func (g *Grid) ClearPath() {
	for _, idx := range g.path.cells {
		if idx < len(g.cells) {
			c := &g.cells[idx]
			c.pathFrom = -1
			c.distance = 0
			c.heuristic = 0
		}
	}
	g.path = pathState{from: -1, to: -1}
}
